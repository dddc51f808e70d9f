// Package rest holds the small pieces shared by the JSON-over-HTTP adapters.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/seu-repo/voxbank/internal/domain"
)

// NewJSONRequest builds a JSON request, attaching the bearer token when one
// is present.
func NewJSONRequest(ctx context.Context, method, url string, payload interface{}, token string) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

// ReadError turns a non-2xx response into a ServerError, pulling the detail
// field the backend puts in its error bodies.
func ReadError(resp *http.Response) error {
	se := &domain.ServerError{Status: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return se
	}

	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Detail != "" {
		se.Detail = body.Detail
	}
	return se
}

// Success reports whether the response carries a 2xx status
func Success(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
