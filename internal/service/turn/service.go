package turn

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/voxbank/internal/domain"
	"github.com/seu-repo/voxbank/internal/observability/telemetry"
	"github.com/seu-repo/voxbank/internal/ports"
)

// contextMessages replaces the server's dialogue text on informational
// pages. Deliberate product behavior: these pages always explain themselves
// the same way no matter what the backend answered.
var contextMessages = map[string]string{
	"loans":        "This page displays all your active loans including home loans, car loans, and personal loans. You can see the outstanding amount, EMI due, interest rate, and next due date for each loan. Use this page to track your loan payments and manage your credit.",
	"offers":       "This page shows eligible loans and special offers based on your credit score and account activity. You can see home loans, car loans, personal loans, and credit card offers with their interest rates, tenure, and benefits. Check here for personalized financial products.",
	"transactions": "This page shows all your past transactions including transfers, payments, and deposits. You can see the amount, recipient, payment method, status, and date of each transaction. Use this to track your spending and payment history.",
}

// SlotRouter receives the recognized slots of a completed turn
type SlotRouter interface {
	Reconcile(context string, slots map[string]interface{})
}

// Hooks let the caller observe a turn's outcome as it lands. Both are
// optional.
type Hooks struct {
	OnTranscript func(transcript string)
	OnMessage    func(message string)
}

// Service drives one-shot voice turns: capture result in, transcript,
// filled slots and spoken answer out.
type Service struct {
	dialogue ports.DialogueService
	player   ports.SpeechPlayer
	router   SlotRouter
	log      *zap.Logger
}

// NewService creates a turn service. player may be nil when the host has no
// audio output.
func NewService(dialogue ports.DialogueService, player ports.SpeechPlayer, router SlotRouter, log *zap.Logger) *Service {
	return &Service{
		dialogue: dialogue,
		player:   player,
		router:   router,
		log:      log,
	}
}

// SendTurn ships one utterance through the dialogue backend. Recognized
// slots are routed to registered form fields, the assistant's answer is
// surfaced through hooks and synthesized speech plays in the background.
// Playback failures never fail the turn.
func (s *Service) SendTurn(ctx context.Context, req domain.VoiceTurnRequest, hooks Hooks) (*domain.VoiceTurnResponse, error) {
	if req.Audio.Empty() {
		telemetry.VoiceTurnsTotal.WithLabelValues("rejected").Inc()
		return nil, domain.ErrEmptyAudio
	}

	start := time.Now()
	resp, err := s.dialogue.VoiceTurn(ctx, req)
	telemetry.VoiceTurnLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		telemetry.VoiceTurnsTotal.WithLabelValues("error").Inc()
		s.log.Error("Voice turn failed", zap.String("context", req.Context), zap.Error(err))
		return nil, err
	}
	telemetry.VoiceTurnsTotal.WithLabelValues("ok").Inc()

	if canned, ok := contextMessages[req.Context]; ok {
		resp.Message = canned
	}

	if resp.Transcript != "" && hooks.OnTranscript != nil {
		hooks.OnTranscript(resp.Transcript)
	}
	if resp.Message != "" && hooks.OnMessage != nil {
		hooks.OnMessage(resp.Message)
	}

	if s.router != nil && len(resp.Slots) > 0 {
		s.router.Reconcile(req.Context, resp.Slots)
	}

	if resp.Speech != nil && !resp.Speech.Empty() && s.player != nil {
		speech := *resp.Speech
		go func() {
			// The turn is already done; playback gets its own deadline
			playCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			if err := s.player.Play(playCtx, speech); err != nil {
				s.log.Warn("Speech playback failed", zap.Error(err))
			}
		}()
	}

	return resp, nil
}
