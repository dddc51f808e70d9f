package mocks

import (
	"context"

	"github.com/seu-repo/voxbank/internal/domain"
)

// MockDialogueService is a mock implementation of ports.DialogueService
type MockDialogueService struct {
	VoiceTurnFunc func(ctx context.Context, req domain.VoiceTurnRequest) (*domain.VoiceTurnResponse, error)
}

func (m *MockDialogueService) VoiceTurn(ctx context.Context, req domain.VoiceTurnRequest) (*domain.VoiceTurnResponse, error) {
	if m.VoiceTurnFunc != nil {
		return m.VoiceTurnFunc(ctx, req)
	}
	return &domain.VoiceTurnResponse{}, nil
}

// MockAuthService is a mock implementation of ports.AuthService
type MockAuthService struct {
	LoginFunc             func(ctx context.Context, params domain.LoginParams) (*domain.LoginChallenge, error)
	VerifyOTPAndVoiceFunc func(ctx context.Context, userID, otp string, voice domain.AudioPayload) (*domain.TokenPair, error)
	EnrollVoiceFunc       func(ctx context.Context, userID string, voice domain.AudioPayload) error
	VerifyVoiceFunc       func(ctx context.Context, userID string, voice domain.AudioPayload, otp string) (*domain.VoiceVerification, error)
}

func (m *MockAuthService) Login(ctx context.Context, params domain.LoginParams) (*domain.LoginChallenge, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, params)
	}
	return &domain.LoginChallenge{}, nil
}

func (m *MockAuthService) VerifyOTPAndVoice(ctx context.Context, userID, otp string, voice domain.AudioPayload) (*domain.TokenPair, error) {
	if m.VerifyOTPAndVoiceFunc != nil {
		return m.VerifyOTPAndVoiceFunc(ctx, userID, otp, voice)
	}
	return &domain.TokenPair{}, nil
}

func (m *MockAuthService) EnrollVoice(ctx context.Context, userID string, voice domain.AudioPayload) error {
	if m.EnrollVoiceFunc != nil {
		return m.EnrollVoiceFunc(ctx, userID, voice)
	}
	return nil
}

func (m *MockAuthService) VerifyVoice(ctx context.Context, userID string, voice domain.AudioPayload, otp string) (*domain.VoiceVerification, error) {
	if m.VerifyVoiceFunc != nil {
		return m.VerifyVoiceFunc(ctx, userID, voice, otp)
	}
	return &domain.VoiceVerification{Verified: true}, nil
}

// MockBankingService is a mock implementation of ports.BankingService
type MockBankingService struct {
	InitTransferFunc    func(ctx context.Context, params domain.TransferParams) (*domain.ActionSession, error)
	ConfirmTransferFunc func(ctx context.Context, sessionID, otp string, voiceVerified bool) (string, error)
}

func (m *MockBankingService) InitTransfer(ctx context.Context, params domain.TransferParams) (*domain.ActionSession, error) {
	if m.InitTransferFunc != nil {
		return m.InitTransferFunc(ctx, params)
	}
	return &domain.ActionSession{SessionID: "session-1"}, nil
}

func (m *MockBankingService) ConfirmTransfer(ctx context.Context, sessionID, otp string, voiceVerified bool) (string, error) {
	if m.ConfirmTransferFunc != nil {
		return m.ConfirmTransferFunc(ctx, sessionID, otp, voiceVerified)
	}
	return "txn-1", nil
}

// StaticTokens is a fixed-value ports.TokenProvider for tests
type StaticTokens string

func (s StaticTokens) AccessToken() string { return string(s) }
