package audio

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"go.uber.org/zap"

	"github.com/seu-repo/voxbank/internal/domain"
)

// PlaybackConfig shapes the speaker stream
type PlaybackConfig struct {
	SampleRate   int
	ChannelCount int
}

// DefaultPlaybackConfig is 24kHz mono, the rate of synthesized speech
func DefaultPlaybackConfig() PlaybackConfig {
	return PlaybackConfig{
		SampleRate:   24000,
		ChannelCount: 1,
	}
}

// Speaker is a ports.SpeechPlayer backed by the system audio output.
// oto allows a single context per process, so the context is created once
// and shared by all plays.
type Speaker struct {
	config PlaybackConfig
	log    *zap.Logger

	mu  sync.Mutex
	ctx *oto.Context
}

// NewSpeaker creates a speaker. The audio context is initialized lazily on
// the first Play.
func NewSpeaker(config PlaybackConfig, log *zap.Logger) *Speaker {
	if config.SampleRate == 0 {
		config = DefaultPlaybackConfig()
	}
	return &Speaker{
		config: config,
		log:    log,
	}
}

// Play plays one speech payload to completion. It blocks until the payload
// has drained or ctx is cancelled.
func (s *Speaker) Play(ctx context.Context, speech domain.AudioPayload) error {
	if speech.Empty() {
		return nil
	}

	otoCtx, err := s.playbackContext()
	if err != nil {
		return err
	}

	player := otoCtx.NewPlayer(bytes.NewReader(speech.Data))
	defer player.Close()
	player.Play()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func (s *Speaker) playbackContext() (*oto.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx != nil {
		return s.ctx, nil
	}

	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   s.config.SampleRate,
		ChannelCount: s.config.ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		s.log.Error("Failed to init speaker", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrDeviceUnavailable, err)
	}
	<-ready

	s.ctx = otoCtx
	return s.ctx, nil
}
