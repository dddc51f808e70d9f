package authflow

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/seu-repo/voxbank/internal/domain"
	"github.com/seu-repo/voxbank/internal/observability/telemetry"
	"github.com/seu-repo/voxbank/internal/ports"
)

// ErrNotReady rejects a confirm before every required factor is supplied
var ErrNotReady = errors.New("authorization session is not ready to confirm")

// ErrAlreadyInitiated rejects a second init on the same machine
var ErrAlreadyInitiated = errors.New("authorization session already initiated")

// Machine walks one protected action through init, factor collection and
// confirmation. A machine is single-use: once it reaches succeeded or
// failed, a fresh machine (and a fresh server session) is required.
type Machine struct {
	kind    domain.ActionKind
	auth    ports.AuthService
	banking ports.BankingService
	log     *zap.Logger

	state       domain.SessionState
	sessionID   string
	userID      string
	mfaRequired bool
	otp         string
	voice       domain.AudioPayload
	failure     string

	transfer domain.TransferParams
}

// NewLoginMachine creates a machine driving the login flow
func NewLoginMachine(auth ports.AuthService, log *zap.Logger) *Machine {
	return &Machine{
		kind:  domain.ActionLogin,
		auth:  auth,
		log:   log,
		state: domain.StateCollectingInput,
	}
}

// NewTransferMachine creates a machine driving a funds transfer for the
// authenticated user. auth may be nil when voice verification is not
// available; the transfer then confirms with voice_verified false.
func NewTransferMachine(banking ports.BankingService, auth ports.AuthService, userID string, log *zap.Logger) *Machine {
	return &Machine{
		kind:    domain.ActionTransfer,
		banking: banking,
		auth:    auth,
		userID:  userID,
		log:     log,
		state:   domain.StateCollectingInput,
	}
}

// State returns the machine's current position
func (m *Machine) State() domain.SessionState {
	return m.state
}

// SessionID returns the server-issued session id, empty before init.
// For login sessions this is the challenged user id.
func (m *Machine) SessionID() string {
	return m.sessionID
}

// FailureReason returns the server's reason string after a failure
func (m *Machine) FailureReason() string {
	return m.failure
}

// InitLogin submits credentials and opens the login session. Login always
// requires MFA locally, whatever the server says about OTP delivery.
func (m *Machine) InitLogin(ctx context.Context, params domain.LoginParams) error {
	if m.kind != domain.ActionLogin {
		return errors.New("not a login session")
	}
	if m.state != domain.StateCollectingInput {
		return ErrAlreadyInitiated
	}

	m.state = domain.StateInitiated
	challenge, err := m.auth.Login(ctx, params)
	if err != nil {
		m.fail(err)
		return err
	}

	m.sessionID = challenge.UserID
	m.userID = challenge.UserID
	m.mfaRequired = true
	m.state = domain.StateAwaitingMFA
	m.log.Info("Login session opened",
		zap.String("user_id", challenge.UserID),
		zap.Bool("otp_sent", challenge.OTPSent),
	)
	return nil
}

// InitTransfer opens a transfer session. The server's mfa_required flag
// decides whether an OTP must be collected before confirm.
func (m *Machine) InitTransfer(ctx context.Context, params domain.TransferParams) error {
	if m.kind != domain.ActionTransfer {
		return errors.New("not a transfer session")
	}
	if m.state != domain.StateCollectingInput {
		return ErrAlreadyInitiated
	}

	m.state = domain.StateInitiated
	session, err := m.banking.InitTransfer(ctx, params)
	if err != nil {
		m.fail(err)
		return err
	}

	m.sessionID = session.SessionID
	m.mfaRequired = session.MFARequired
	m.transfer = params
	if m.mfaRequired {
		m.state = domain.StateAwaitingMFA
	} else {
		m.state = domain.StateReadyToConfirm
	}
	m.log.Info("Transfer session opened",
		zap.String("session_id", session.SessionID),
		zap.Bool("mfa_required", session.MFARequired),
	)
	return nil
}

// SupplyOTP records the one-time password. Format validation is the
// server's job; only emptiness is rejected locally.
func (m *Machine) SupplyOTP(otp string) error {
	if err := m.collectable(); err != nil {
		return err
	}
	if otp == "" {
		return errors.New("otp must not be empty")
	}
	m.otp = otp
	m.refreshReadiness()
	return nil
}

// SupplyVoice records the voice artifact for MFA
func (m *Machine) SupplyVoice(voice domain.AudioPayload) error {
	if err := m.collectable(); err != nil {
		return err
	}
	if voice.Empty() {
		return domain.ErrEmptyAudio
	}
	m.voice = voice
	m.refreshReadiness()
	return nil
}

// Confirm executes the action. Success is terminal; confirming a consumed
// machine fails locally without touching the network.
func (m *Machine) Confirm(ctx context.Context) (*domain.AuthorizationResult, error) {
	switch m.state {
	case domain.StateSucceeded, domain.StateFailed:
		return nil, domain.ErrSessionConsumed
	case domain.StateReadyToConfirm:
	default:
		return nil, ErrNotReady
	}

	m.state = domain.StateConfirming

	var result *domain.AuthorizationResult
	var err error
	switch m.kind {
	case domain.ActionLogin:
		result, err = m.confirmLogin(ctx)
	case domain.ActionTransfer:
		result, err = m.confirmTransfer(ctx)
	}

	if err != nil {
		m.fail(err)
		telemetry.AuthorizationsTotal.WithLabelValues(string(m.kind), "failed").Inc()
		return nil, err
	}

	m.state = domain.StateSucceeded
	telemetry.AuthorizationsTotal.WithLabelValues(string(m.kind), "succeeded").Inc()
	m.log.Info("Authorization succeeded",
		zap.String("action", string(m.kind)),
		zap.String("confirmation_id", result.ConfirmationID),
	)
	return result, nil
}

func (m *Machine) confirmLogin(ctx context.Context) (*domain.AuthorizationResult, error) {
	tokens, err := m.auth.VerifyOTPAndVoice(ctx, m.userID, m.otp, m.voice)
	if err != nil {
		return nil, err
	}
	return &domain.AuthorizationResult{
		ConfirmationID: m.userID,
		Tokens:         tokens,
	}, nil
}

func (m *Machine) confirmTransfer(ctx context.Context) (*domain.AuthorizationResult, error) {
	voiceVerified := false
	if !m.voice.Empty() && m.auth != nil {
		verification, err := m.auth.VerifyVoice(ctx, m.userID, m.voice, m.otp)
		if err != nil {
			return nil, err
		}
		voiceVerified = verification.Verified
	}

	txnID, err := m.banking.ConfirmTransfer(ctx, m.sessionID, m.otp, voiceVerified)
	if err != nil {
		return nil, err
	}
	return &domain.AuthorizationResult{ConfirmationID: txnID}, nil
}

func (m *Machine) collectable() error {
	switch m.state {
	case domain.StateAwaitingMFA, domain.StateReadyToConfirm:
		return nil
	case domain.StateSucceeded, domain.StateFailed:
		return domain.ErrSessionConsumed
	default:
		return errors.New("authorization session has no pending factor collection")
	}
}

// refreshReadiness recomputes awaiting-mfa vs ready-to-confirm. Login
// demands both factors; a transfer only needs the OTP when the server
// asked for MFA.
func (m *Machine) refreshReadiness() {
	ready := false
	switch m.kind {
	case domain.ActionLogin:
		ready = m.otp != "" && !m.voice.Empty()
	case domain.ActionTransfer:
		ready = !m.mfaRequired || m.otp != ""
	}

	if ready {
		m.state = domain.StateReadyToConfirm
	} else {
		m.state = domain.StateAwaitingMFA
	}
}

func (m *Machine) fail(err error) {
	m.state = domain.StateFailed
	m.failure = domain.Reason(err)
	m.log.Warn("Authorization failed",
		zap.String("action", string(m.kind)),
		zap.String("reason", m.failure),
	)
}
