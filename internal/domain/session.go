package domain

// ActionKind identifies which protected action an authorization session is
// driving.
type ActionKind string

const (
	ActionLogin    ActionKind = "login"
	ActionTransfer ActionKind = "transfer"
)

// SessionState is the authorization machine's current position.
type SessionState string

const (
	StateCollectingInput SessionState = "collecting-input"
	StateInitiated       SessionState = "initiated"
	StateAwaitingMFA     SessionState = "awaiting-mfa"
	StateReadyToConfirm  SessionState = "ready-to-confirm"
	StateConfirming      SessionState = "confirming"
	StateSucceeded       SessionState = "succeeded"
	StateFailed          SessionState = "failed"
)

// TransferParams are the core parameters of a funds transfer.
type TransferParams struct {
	Amount       float64
	Counterparty string
	Channel      string
}

// LoginParams are the credentials submitted to start a login session.
type LoginParams struct {
	Username string
	Password string
}

// ActionSession is the server's answer to an init call. The session id is
// opaque and correlates init with the later confirm; MFARequired is the
// single source of truth for whether a further factor is needed.
type ActionSession struct {
	SessionID   string
	MFARequired bool
}

// LoginChallenge is the server's answer to a credential submission.
type LoginChallenge struct {
	UserID  string
	OTPSent bool
}

// TokenPair is issued once login verification succeeds.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// VoiceVerification is the outcome of a standalone voice check.
type VoiceVerification struct {
	Verified bool
	Detail   string
}

// AuthorizationResult is the terminal success record of a session.
type AuthorizationResult struct {
	ConfirmationID string
	Tokens         *TokenPair
}

// ConnectionState tracks the realtime channel's lifecycle.
type ConnectionState string

const (
	ConnDisconnected ConnectionState = "disconnected"
	ConnConnecting   ConnectionState = "connecting"
	ConnOpen         ConnectionState = "open"
	ConnClosing      ConnectionState = "closing"
)
