package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/seu-repo/voxbank/internal/adapter/rest"
	"github.com/seu-repo/voxbank/internal/domain"
	"github.com/seu-repo/voxbank/internal/infrastructure/circuitbreaker"
)

// Client talks to the authentication backend. Login and token exchange run
// before a session exists, so no bearer token is attached.
type Client struct {
	baseURL string
	http    *circuitbreaker.HTTPClient
	log     *zap.Logger
}

// NewClient creates an auth client against baseURL
func NewClient(baseURL string, httpClient *circuitbreaker.HTTPClient, log *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    httpClient,
		log:     log,
	}
}

// Login submits credentials and triggers OTP delivery
func (c *Client) Login(ctx context.Context, params domain.LoginParams) (*domain.LoginChallenge, error) {
	payload := map[string]string{
		"username": params.Username,
		"password": params.Password,
	}

	var decoded struct {
		UserID  string `json:"user_id"`
		OTPSent bool   `json:"otp_sent"`
	}
	if err := c.post(ctx, "/auth/login", payload, &decoded); err != nil {
		return nil, err
	}

	c.log.Info("Login challenge issued", zap.String("user_id", decoded.UserID))
	return &domain.LoginChallenge{
		UserID:  decoded.UserID,
		OTPSent: decoded.OTPSent,
	}, nil
}

// VerifyOTPAndVoice exchanges both verification factors for a token pair
func (c *Client) VerifyOTPAndVoice(ctx context.Context, userID, otp string, voice domain.AudioPayload) (*domain.TokenPair, error) {
	payload := map[string]string{
		"user_id":      userID,
		"otp":          otp,
		"audio_base64": voice.Base64(),
	}

	var decoded struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.post(ctx, "/auth/token", payload, &decoded); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  decoded.AccessToken,
		RefreshToken: decoded.RefreshToken,
	}, nil
}

// EnrollVoice registers a voiceprint sample for the user
func (c *Client) EnrollVoice(ctx context.Context, userID string, voice domain.AudioPayload) error {
	if voice.Empty() {
		return domain.ErrEmptyAudio
	}

	payload := map[string]string{
		"user_id":      userID,
		"audio_base64": voice.Base64(),
	}
	return c.post(ctx, "/auth/voice/enroll", payload, nil)
}

// VerifyVoice checks a sample against the user's enrolled voiceprint
func (c *Client) VerifyVoice(ctx context.Context, userID string, voice domain.AudioPayload, otp string) (*domain.VoiceVerification, error) {
	if voice.Empty() {
		return nil, domain.ErrEmptyAudio
	}

	payload := map[string]string{
		"user_id":      userID,
		"audio_base64": voice.Base64(),
	}
	if otp != "" {
		payload["otp"] = otp
	}

	var decoded struct {
		Verified bool   `json:"verified"`
		Detail   string `json:"detail"`
	}
	if err := c.post(ctx, "/auth/voice/verify", payload, &decoded); err != nil {
		return nil, err
	}

	return &domain.VoiceVerification{
		Verified: decoded.Verified,
		Detail:   decoded.Detail,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	req, err := rest.NewJSONRequest(ctx, http.MethodPost, c.baseURL+path, payload, "")
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("Auth request failed", zap.String("path", path), zap.Error(err))
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
