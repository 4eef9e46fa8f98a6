// Package transport talks to the Socialite REST API. Every endpoint returns
// the same envelope shape; callers get the decoded payload plus the envelope
// for paging and error metadata.
package transport

import (
	"context"

	"github.com/socialitehq/socialite/models"
)

// Transport is the REST surface the rest of the client is written against.
// Implementations must return an *errors.Error for API-level failures so the
// services can pattern-match business rules on them.
type Transport interface {
	Get(ctx context.Context, path string, out interface{}) (*models.Envelope, error)
	Post(ctx context.Context, path string, body, out interface{}) (*models.Envelope, error)
	Patch(ctx context.Context, path string, body, out interface{}) (*models.Envelope, error)
	Delete(ctx context.Context, path string, out interface{}) (*models.Envelope, error)
}
