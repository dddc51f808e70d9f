package domain

// VoiceTurnRequest is one captured utterance sent for a request/response turn.
// Context is an optional semantic hint ("amount", "loans", ...) that narrows
// how recognized slots are interpreted; empty means generic dialogue.
type VoiceTurnRequest struct {
	Audio    AudioPayload
	Language string
	Context  string
}

// VoiceTurnResponse carries whatever the dialogue service produced for a turn.
// Every field is independently optional.
type VoiceTurnResponse struct {
	Transcript string
	Slots      map[string]interface{}
	Message    string
	Speech     *AudioPayload
}

// RealtimeTurn is the frame shape accepted by the dialogue service's
// persistent socket endpoint.
type RealtimeTurn struct {
	UserID      string `json:"user_id"`
	AudioBase64 string `json:"audio_base64"`
	Language    string `json:"language,omitempty"`
	Token       string `json:"token,omitempty"`
}

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// AssistantMessage is one entry of the visible conversation transcript.
// Once appended the message is immutable and never reordered.
type AssistantMessage struct {
	Role MessageRole
	Text string
}
