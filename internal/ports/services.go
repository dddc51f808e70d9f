package ports

import (
	"context"
	"io"

	"github.com/seu-repo/voxbank/internal/domain"
)

// DialogueService turns one captured utterance into transcript, slots,
// an assistant message and optional synthesized speech.
type DialogueService interface {
	VoiceTurn(ctx context.Context, req domain.VoiceTurnRequest) (*domain.VoiceTurnResponse, error)
}

// AuthService is the client's view of the authentication backend.
type AuthService interface {
	Login(ctx context.Context, params domain.LoginParams) (*domain.LoginChallenge, error)
	VerifyOTPAndVoice(ctx context.Context, userID, otp string, voice domain.AudioPayload) (*domain.TokenPair, error)
	EnrollVoice(ctx context.Context, userID string, voice domain.AudioPayload) error
	VerifyVoice(ctx context.Context, userID string, voice domain.AudioPayload, otp string) (*domain.VoiceVerification, error)
}

// BankingService initiates and confirms protected banking actions.
type BankingService interface {
	InitTransfer(ctx context.Context, params domain.TransferParams) (*domain.ActionSession, error)
	ConfirmTransfer(ctx context.Context, sessionID, otp string, voiceVerified bool) (string, error)
}

// AudioSource abstracts capture-device acquisition so tests can run without
// hardware. Open acquires the device exclusively and delivers chunks to
// onChunk in arrival order until the returned handle is closed. Closing the
// handle releases the device.
type AudioSource interface {
	Open(ctx context.Context, onChunk func([]byte)) (io.Closer, error)
}

// SpeechPlayer plays one synthesized speech payload to completion.
type SpeechPlayer interface {
	Play(ctx context.Context, speech domain.AudioPayload) error
}

// TokenProvider supplies the current access token for outbound calls.
// An empty string means no session is active.
type TokenProvider interface {
	AccessToken() string
}
