package assistant

import (
	"context"
	"encoding/base64"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/voxbank/internal/domain"
	"github.com/seu-repo/voxbank/internal/ports"
)

// Channel is the persistent session the assistant talks over
type Channel interface {
	Connect(ctx context.Context) error
	Disconnect()
	Send(turn domain.RealtimeTurn) error
	OnMessage(fn func(map[string]interface{})) func()
	OnError(fn func(error)) func()
	OnClose(fn func()) func()
}

// Assistant keeps a hands-free conversation going over the realtime
// channel. The transcript is append-only: messages are never edited or
// reordered once recorded.
type Assistant struct {
	channel  Channel
	player   ports.SpeechPlayer
	language string
	log      *zap.Logger

	mu      sync.Mutex
	userID  string
	history []domain.AssistantMessage
	removes []func()
	started bool
}

// NewAssistant creates an idle assistant. player may be nil to run text-only.
func NewAssistant(channel Channel, player ports.SpeechPlayer, language string, log *zap.Logger) *Assistant {
	return &Assistant{
		channel:  channel,
		player:   player,
		language: language,
		log:      log,
	}
}

// Start connects the channel and begins recording the conversation
func (a *Assistant) Start(ctx context.Context, userID string) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return nil
	}
	a.userID = userID
	a.started = true
	a.removes = []func(){
		a.channel.OnMessage(a.handleFrame),
		a.channel.OnError(func(err error) {
			a.log.Warn("Assistant channel error", zap.Error(err))
		}),
		a.channel.OnClose(func() {
			a.log.Info("Assistant channel dropped, reconnect pending")
		}),
	}
	a.mu.Unlock()

	if err := a.channel.Connect(ctx); err != nil {
		// Roll the registration back so a later Start retries cleanly
		a.mu.Lock()
		removes := a.removes
		a.removes = nil
		a.started = false
		a.mu.Unlock()
		for _, remove := range removes {
			remove()
		}
		return err
	}
	a.log.Info("Assistant session started", zap.String("user_id", userID))
	return nil
}

// SendAudio ships one captured utterance into the conversation
func (a *Assistant) SendAudio(audio domain.AudioPayload) error {
	if audio.Empty() {
		return domain.ErrEmptyAudio
	}

	a.mu.Lock()
	userID := a.userID
	a.mu.Unlock()

	return a.channel.Send(domain.RealtimeTurn{
		UserID:      userID,
		AudioBase64: audio.Base64(),
		Language:    a.language,
	})
}

// History returns a copy of the conversation so far
func (a *Assistant) History() []domain.AssistantMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.AssistantMessage, len(a.history))
	copy(out, a.history)
	return out
}

// Close ends the session: handlers removed, channel disconnected, history
// dropped.
func (a *Assistant) Close() {
	a.mu.Lock()
	removes := a.removes
	a.removes = nil
	a.history = nil
	a.started = false
	a.mu.Unlock()

	for _, remove := range removes {
		remove()
	}
	a.channel.Disconnect()
	a.log.Info("Assistant session closed")
}

// handleFrame records the turn the backend answered: the user's transcript
// first, then the assistant's reply.
func (a *Assistant) handleFrame(payload map[string]interface{}) {
	if transcript, ok := payload["transcript"].(string); ok && transcript != "" {
		a.append(domain.AssistantMessage{Role: domain.RoleUser, Text: transcript})
	}

	if dialogue, ok := payload["dialogue"].(map[string]interface{}); ok {
		if text, ok := dialogue["text"].(string); ok && text != "" {
			a.append(domain.AssistantMessage{Role: domain.RoleAssistant, Text: text})
		}
	}

	if tts, ok := payload["tts"].(map[string]interface{}); ok && a.player != nil {
		if encoded, ok := tts["audio_base64"].(string); ok && encoded != "" {
			data, err := base64.StdEncoding.DecodeString(encoded)
			if err != nil {
				a.log.Warn("Discarding undecodable speech payload", zap.Error(err))
				return
			}
			go func() {
				playCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
				defer cancel()
				if err := a.player.Play(playCtx, domain.AudioPayload{Data: data, MimeType: "audio/wav"}); err != nil {
					a.log.Warn("Speech playback failed", zap.Error(err))
				}
			}()
		}
	}
}

func (a *Assistant) append(msg domain.AssistantMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = append(a.history, msg)
}
