package authflow

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/seu-repo/voxbank/internal/domain"
	"github.com/seu-repo/voxbank/internal/mocks"
)

func newTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func voiceSample() domain.AudioPayload {
	return domain.AudioPayload{Data: []byte{1, 2, 3}, MimeType: "audio/wav"}
}

func TestLoginFlow_Success(t *testing.T) {
	// Arrange
	auth := &mocks.MockAuthService{
		LoginFunc: func(ctx context.Context, params domain.LoginParams) (*domain.LoginChallenge, error) {
			return &domain.LoginChallenge{UserID: "user-42", OTPSent: true}, nil
		},
		VerifyOTPAndVoiceFunc: func(ctx context.Context, userID, otp string, voice domain.AudioPayload) (*domain.TokenPair, error) {
			if userID != "user-42" || otp != "123456" || voice.Empty() {
				t.Errorf("unexpected factors: user %q otp %q voice empty=%v", userID, otp, voice.Empty())
			}
			return &domain.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"}, nil
		},
	}
	machine := NewLoginMachine(auth, newTestLogger())

	// Act
	if err := machine.InitLogin(context.Background(), domain.LoginParams{Username: "priya", Password: "secret"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if machine.State() != domain.StateAwaitingMFA {
		t.Fatalf("expected awaiting-mfa, got %s", machine.State())
	}

	if err := machine.SupplyOTP("123456"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := machine.SupplyVoice(voiceSample()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if machine.State() != domain.StateReadyToConfirm {
		t.Fatalf("expected ready-to-confirm, got %s", machine.State())
	}

	result, err := machine.Confirm(context.Background())

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if machine.State() != domain.StateSucceeded {
		t.Errorf("expected succeeded, got %s", machine.State())
	}
	if result.Tokens == nil || result.Tokens.AccessToken != "access-1" {
		t.Errorf("expected token pair in result, got %+v", result)
	}
}

func TestLoginFlow_BothFactorsMandatory(t *testing.T) {
	// Arrange
	auth := &mocks.MockAuthService{
		LoginFunc: func(ctx context.Context, params domain.LoginParams) (*domain.LoginChallenge, error) {
			// The server claims no OTP was sent; local policy still demands both factors
			return &domain.LoginChallenge{UserID: "user-42", OTPSent: false}, nil
		},
	}
	machine := NewLoginMachine(auth, newTestLogger())
	if err := machine.InitLogin(context.Background(), domain.LoginParams{Username: "priya", Password: "secret"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Act: only one factor supplied
	if err := machine.SupplyOTP("123456"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Assert
	if machine.State() != domain.StateAwaitingMFA {
		t.Errorf("expected awaiting-mfa with only one factor, got %s", machine.State())
	}
	if _, err := machine.Confirm(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Errorf("expected ErrNotReady, got %v", err)
	}

	// Voice completes the pair
	if err := machine.SupplyVoice(voiceSample()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if machine.State() != domain.StateReadyToConfirm {
		t.Errorf("expected ready-to-confirm with both factors, got %s", machine.State())
	}
}

func TestLoginFlow_ServerRejection(t *testing.T) {
	// Arrange
	auth := &mocks.MockAuthService{
		VerifyOTPAndVoiceFunc: func(ctx context.Context, userID, otp string, voice domain.AudioPayload) (*domain.TokenPair, error) {
			return nil, &domain.ServerError{Status: 401, Detail: "invalid otp"}
		},
	}
	machine := NewLoginMachine(auth, newTestLogger())
	_ = machine.InitLogin(context.Background(), domain.LoginParams{Username: "priya", Password: "secret"})
	_ = machine.SupplyOTP("000000")
	_ = machine.SupplyVoice(voiceSample())

	// Act
	_, err := machine.Confirm(context.Background())

	// Assert
	var se *domain.ServerError
	if !errors.As(err, &se) {
		t.Fatalf("expected ServerError, got %v", err)
	}
	if machine.State() != domain.StateFailed {
		t.Errorf("expected failed, got %s", machine.State())
	}
	if machine.FailureReason() != "invalid otp" {
		t.Errorf("expected server reason retained, got %q", machine.FailureReason())
	}
}

func TestTransferFlow_MFARequired(t *testing.T) {
	// Arrange
	banking := &mocks.MockBankingService{
		InitTransferFunc: func(ctx context.Context, params domain.TransferParams) (*domain.ActionSession, error) {
			return &domain.ActionSession{SessionID: "sess-7", MFARequired: true}, nil
		},
		ConfirmTransferFunc: func(ctx context.Context, sessionID, otp string, voiceVerified bool) (string, error) {
			if sessionID != "sess-7" || otp != "123456" {
				t.Errorf("unexpected confirm args: %q %q", sessionID, otp)
			}
			if !voiceVerified {
				t.Error("expected voice_verified true after verification")
			}
			return "txn-991", nil
		},
	}
	auth := &mocks.MockAuthService{
		VerifyVoiceFunc: func(ctx context.Context, userID string, voice domain.AudioPayload, otp string) (*domain.VoiceVerification, error) {
			if userID != "user-42" {
				t.Errorf("unexpected user id %q", userID)
			}
			return &domain.VoiceVerification{Verified: true}, nil
		},
	}
	machine := NewTransferMachine(banking, auth, "user-42", newTestLogger())

	// Act
	if err := machine.InitTransfer(context.Background(), domain.TransferParams{Amount: 1000, Counterparty: "rajesh@paytm", Channel: "UPI"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if machine.State() != domain.StateAwaitingMFA {
		t.Fatalf("expected awaiting-mfa, got %s", machine.State())
	}
	if machine.SessionID() != "sess-7" {
		t.Errorf("unexpected session id %q", machine.SessionID())
	}

	_ = machine.SupplyOTP("123456")
	_ = machine.SupplyVoice(voiceSample())
	result, err := machine.Confirm(context.Background())

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.ConfirmationID != "txn-991" {
		t.Errorf("expected txn id in result, got %q", result.ConfirmationID)
	}
}

func TestTransferFlow_NoMFAGoesStraightToReady(t *testing.T) {
	// Arrange
	banking := &mocks.MockBankingService{
		InitTransferFunc: func(ctx context.Context, params domain.TransferParams) (*domain.ActionSession, error) {
			return &domain.ActionSession{SessionID: "sess-8", MFARequired: false}, nil
		},
		ConfirmTransferFunc: func(ctx context.Context, sessionID, otp string, voiceVerified bool) (string, error) {
			if voiceVerified {
				t.Error("expected voice_verified false without a voice sample")
			}
			return "txn-1", nil
		},
	}
	machine := NewTransferMachine(banking, nil, "user-42", newTestLogger())

	// Act
	if err := machine.InitTransfer(context.Background(), domain.TransferParams{Amount: 250, Counterparty: "bob@phonepe"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Assert
	if machine.State() != domain.StateReadyToConfirm {
		t.Fatalf("expected ready-to-confirm, got %s", machine.State())
	}
	if _, err := machine.Confirm(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestConfirm_ConsumedSession(t *testing.T) {
	// Arrange
	confirms := 0
	banking := &mocks.MockBankingService{
		InitTransferFunc: func(ctx context.Context, params domain.TransferParams) (*domain.ActionSession, error) {
			return &domain.ActionSession{SessionID: "sess-9", MFARequired: false}, nil
		},
		ConfirmTransferFunc: func(ctx context.Context, sessionID, otp string, voiceVerified bool) (string, error) {
			confirms++
			return "txn-2", nil
		},
	}
	machine := NewTransferMachine(banking, nil, "user-42", newTestLogger())
	_ = machine.InitTransfer(context.Background(), domain.TransferParams{Amount: 100, Counterparty: "sarah@upi"})
	if _, err := machine.Confirm(context.Background()); err != nil {
		t.Fatalf("expected first confirm to succeed, got %v", err)
	}

	// Act
	_, err := machine.Confirm(context.Background())

	// Assert
	if !errors.Is(err, domain.ErrSessionConsumed) {
		t.Fatalf("expected ErrSessionConsumed, got %v", err)
	}
	if confirms != 1 {
		t.Errorf("expected a single network confirm, got %d", confirms)
	}
	if err := machine.SupplyOTP("123456"); !errors.Is(err, domain.ErrSessionConsumed) {
		t.Errorf("expected factor supply rejected on consumed session, got %v", err)
	}
}

func TestInit_FailurePreservesReason(t *testing.T) {
	// Arrange
	banking := &mocks.MockBankingService{
		InitTransferFunc: func(ctx context.Context, params domain.TransferParams) (*domain.ActionSession, error) {
			return nil, &domain.ServerError{Status: 400, Detail: "insufficient balance"}
		},
	}
	machine := NewTransferMachine(banking, nil, "user-42", newTestLogger())

	// Act
	err := machine.InitTransfer(context.Background(), domain.TransferParams{Amount: 1e9, Counterparty: "rajesh@paytm"})

	// Assert
	if err == nil {
		t.Fatal("expected error")
	}
	if machine.State() != domain.StateFailed {
		t.Errorf("expected failed, got %s", machine.State())
	}
	if machine.FailureReason() != "insufficient balance" {
		t.Errorf("expected server reason, got %q", machine.FailureReason())
	}
	if err := machine.InitTransfer(context.Background(), domain.TransferParams{}); !errors.Is(err, ErrAlreadyInitiated) {
		t.Errorf("expected fresh machine to be required, got %v", err)
	}
}

func TestSupply_Validation(t *testing.T) {
	// Arrange
	auth := &mocks.MockAuthService{}
	machine := NewLoginMachine(auth, newTestLogger())
	_ = machine.InitLogin(context.Background(), domain.LoginParams{Username: "priya", Password: "secret"})

	// Act / Assert
	if err := machine.SupplyOTP(""); err == nil {
		t.Error("expected empty otp rejected")
	}
	if err := machine.SupplyVoice(domain.AudioPayload{}); !errors.Is(err, domain.ErrEmptyAudio) {
		t.Errorf("expected ErrEmptyAudio, got %v", err)
	}
	if machine.State() != domain.StateAwaitingMFA {
		t.Errorf("expected state unchanged, got %s", machine.State())
	}
}

func TestSupply_BeforeInit(t *testing.T) {
	// Arrange
	machine := NewLoginMachine(&mocks.MockAuthService{}, newTestLogger())

	// Act
	err := machine.SupplyOTP("123456")

	// Assert
	if err == nil {
		t.Fatal("expected error supplying a factor before init")
	}
}
