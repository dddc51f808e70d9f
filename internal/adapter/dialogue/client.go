package dialogue

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/seu-repo/voxbank/internal/adapter/rest"
	"github.com/seu-repo/voxbank/internal/domain"
	"github.com/seu-repo/voxbank/internal/infrastructure/circuitbreaker"
	"github.com/seu-repo/voxbank/internal/ports"
)

// Client talks to the dialogue backend's request/response endpoint
type Client struct {
	baseURL string
	http    *circuitbreaker.HTTPClient
	tokens  ports.TokenProvider
	log     *zap.Logger
}

// NewClient creates a dialogue client against baseURL
func NewClient(baseURL string, httpClient *circuitbreaker.HTTPClient, tokens ports.TokenProvider, log *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    httpClient,
		tokens:  tokens,
		log:     log,
	}
}

type voiceTurnRequest struct {
	AudioBase64 string `json:"audio_base64"`
	Language    string `json:"language,omitempty"`
	Context     string `json:"context,omitempty"`
}

type voiceTurnResponse struct {
	Transcript string                 `json:"transcript"`
	Slots      map[string]interface{} `json:"slots"`
	Dialogue   struct {
		Text string `json:"text"`
	} `json:"dialogue"`
	TTS struct {
		AudioBase64 string `json:"audio_base64"`
	} `json:"tts"`
}

// VoiceTurn sends one utterance for a full transcribe/understand/respond
// turn. Transport failures come back wrapped in TurnError; server rejections
// come back as ServerError with the backend's detail.
func (c *Client) VoiceTurn(ctx context.Context, req domain.VoiceTurnRequest) (*domain.VoiceTurnResponse, error) {
	if req.Audio.Empty() {
		return nil, domain.ErrEmptyAudio
	}

	payload := voiceTurnRequest{
		AudioBase64: req.Audio.Base64(),
		Language:    req.Language,
		Context:     req.Context,
	}

	httpReq, err := rest.NewJSONRequest(ctx, http.MethodPost, c.baseURL+"/dialogue/voice-turn", payload, c.tokens.AccessToken())
	if err != nil {
		return nil, &domain.TurnError{Cause: err}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.log.Error("Voice turn request failed", zap.Error(err))
		return nil, &domain.TurnError{Cause: err}
	}
	defer resp.Body.Close()

	if !rest.Success(resp) {
		return nil, rest.ReadError(resp)
	}

	var decoded voiceTurnResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &domain.TurnError{Cause: fmt.Errorf("decoding voice turn response: %w", err)}
	}

	out := &domain.VoiceTurnResponse{
		Transcript: decoded.Transcript,
		Slots:      decoded.Slots,
		Message:    decoded.Dialogue.Text,
	}

	if decoded.TTS.AudioBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(decoded.TTS.AudioBase64)
		if err != nil {
			// Speech is optional; a bad encoding degrades to text only
			c.log.Warn("Discarding undecodable speech payload", zap.Error(err))
		} else {
			out.Speech = &domain.AudioPayload{Data: data, MimeType: "audio/wav"}
		}
	}

	return out, nil
}
