package circuitbreaker

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HTTPClient wraps an HTTP client with circuit breaker protection.
// The breaker only blocks calls while a collaborator is down; it never
// retries, so one-shot actions stay one-shot.
type HTTPClient struct {
	client  *http.Client
	breaker *Breaker
	log     *zap.Logger
}

// NewHTTPClient creates a new HTTP client with circuit breaker
func NewHTTPClient(client *http.Client, breaker *Breaker, log *zap.Logger) *HTTPClient {
	if client == nil {
		client = &http.Client{
			Timeout: 30 * time.Second,
		}
	}
	return &HTTPClient{
		client:  client,
		breaker: breaker,
		log:     log,
	}
}

// NewHTTPClientWithSettings creates a protected HTTP client from settings
func NewHTTPClientWithSettings(settings Settings, timeout time.Duration, log *zap.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &http.Client{Timeout: timeout}
	return NewHTTPClient(client, New(settings, log), log)
}

// Do executes an HTTP request with circuit breaker protection
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}

		// Consider 5xx errors as failures for circuit breaker
		if resp.StatusCode >= 500 {
			return resp, fmt.Errorf("server error: %d", resp.StatusCode)
		}

		return resp, nil
	})

	if err != nil {
		if IsCircuitOpen(err) {
			c.log.Warn("Circuit breaker open, request blocked",
				zap.String("url", req.URL.String()),
				zap.String("breaker", c.breaker.Name()),
			)
			return nil, err
		}
		// A 5xx response is still a response; hand it back so callers can
		// surface the server's reason.
		if resp, ok := result.(*http.Response); ok && resp != nil {
			return resp, nil
		}
		return nil, err
	}

	return result.(*http.Response), nil
}
