package models

import (
	"encoding/json"
)

type Paging struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// Envelope is the response shape every Socialite API endpoint returns.
type Envelope struct {
	Data    json.RawMessage `json:"data,omitempty"`
	Error   bool            `json:"error"`
	Code    int             `json:"code"`
	Message string          `json:"message,omitempty"`
	Paging  *Paging         `json:"paging,omitempty"`
}

// DecodeData unmarshals the envelope payload into out. A nil or empty data
// field is not an error; out is left untouched.
func (e *Envelope) DecodeData(out interface{}) error {
	if out == nil || len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, out)
}
