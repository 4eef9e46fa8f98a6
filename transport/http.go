package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/socialitehq/socialite/config"
	"github.com/socialitehq/socialite/errors"
	"github.com/socialitehq/socialite/models"
)

// httpTransport is the production Transport over net/http.
type httpTransport struct {
	baseUrl string
	token   string
	client  *http.Client
}

// NewHTTP builds a Transport against conf.BaseUrl using conf.AccessToken as
// bearer credential.
func NewHTTP(conf *config.Config) Transport {
	return &httpTransport{
		baseUrl: strings.TrimRight(conf.BaseUrl, "/"),
		token:   conf.AccessToken,
		client:  &http.Client{Timeout: conf.RequestTimeout},
	}
}

func (t *httpTransport) Get(ctx context.Context, path string, out interface{}) (*models.Envelope, error) {
	return t.do(ctx, http.MethodGet, path, nil, out)
}

func (t *httpTransport) Post(ctx context.Context, path string, body, out interface{}) (*models.Envelope, error) {
	return t.do(ctx, http.MethodPost, path, body, out)
}

func (t *httpTransport) Patch(ctx context.Context, path string, body, out interface{}) (*models.Envelope, error) {
	return t.do(ctx, http.MethodPatch, path, body, out)
}

func (t *httpTransport) Delete(ctx context.Context, path string, out interface{}) (*models.Envelope, error) {
	return t.do(ctx, http.MethodDelete, path, nil, out)
}

func (t *httpTransport) do(ctx context.Context, method, path string, body, out interface{}) (*models.Envelope, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "encode request body")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseUrl+path, reader)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	res, err := t.client.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "%s %s", method, path)
	}
	defer res.Body.Close()

	env := &models.Envelope{}
	if err := json.NewDecoder(res.Body).Decode(env); err != nil {
		return nil, pkgerrors.Wrapf(err, "decode response for %s %s", method, path)
	}
	if env.Code == 0 {
		env.Code = res.StatusCode
	}

	if res.StatusCode >= 400 || env.Error {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(res.StatusCode)
		}
		return env, errors.New(msg, env.Code)
	}

	if err := env.DecodeData(out); err != nil {
		return env, pkgerrors.Wrapf(err, "decode payload for %s %s", method, path)
	}
	return env, nil
}
