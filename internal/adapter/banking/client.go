package banking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/seu-repo/voxbank/internal/adapter/rest"
	"github.com/seu-repo/voxbank/internal/domain"
	"github.com/seu-repo/voxbank/internal/infrastructure/circuitbreaker"
	"github.com/seu-repo/voxbank/internal/ports"
)

// Client talks to the core banking backend's transfer endpoints
type Client struct {
	baseURL string
	http    *circuitbreaker.HTTPClient
	tokens  ports.TokenProvider
	log     *zap.Logger
}

// NewClient creates a banking client against baseURL
func NewClient(baseURL string, httpClient *circuitbreaker.HTTPClient, tokens ports.TokenProvider, log *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    httpClient,
		tokens:  tokens,
		log:     log,
	}
}

type initTransferRequest struct {
	Amount       float64 `json:"amount"`
	Counterparty string  `json:"counterparty"`
	Channel      string  `json:"channel,omitempty"`
}

// InitTransfer opens a transfer session on the server. The returned session
// id is the only handle to the pending transfer; the server decides whether
// MFA is required.
func (c *Client) InitTransfer(ctx context.Context, params domain.TransferParams) (*domain.ActionSession, error) {
	payload := initTransferRequest{
		Amount:       params.Amount,
		Counterparty: params.Counterparty,
		Channel:      params.Channel,
	}

	var decoded struct {
		SessionID   string `json:"session_id"`
		MFARequired bool   `json:"mfa_required"`
	}
	if err := c.post(ctx, "/transfer/init", payload, &decoded); err != nil {
		return nil, err
	}

	c.log.Info("Transfer session opened",
		zap.String("session_id", decoded.SessionID),
		zap.Bool("mfa_required", decoded.MFARequired),
	)
	return &domain.ActionSession{
		SessionID:   decoded.SessionID,
		MFARequired: decoded.MFARequired,
	}, nil
}

// ConfirmTransfer executes the pending transfer and returns the transaction
// id issued by the core banking system.
func (c *Client) ConfirmTransfer(ctx context.Context, sessionID, otp string, voiceVerified bool) (string, error) {
	payload := map[string]interface{}{
		"session_id":     sessionID,
		"otp":            otp,
		"voice_verified": voiceVerified,
	}

	var decoded struct {
		TxnID string `json:"txn_id"`
	}
	if err := c.post(ctx, "/transfer/confirm", payload, &decoded); err != nil {
		return "", err
	}
	return decoded.TxnID, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	req, err := rest.NewJSONRequest(ctx, http.MethodPost, c.baseURL+path, payload, c.tokens.AccessToken())
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("Banking request failed", zap.String("path", path), zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	if !rest.Success(resp) {
		return rest.ReadError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
