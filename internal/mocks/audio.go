package mocks

import (
	"context"
	"io"
	"sync"

	"github.com/seu-repo/voxbank/internal/domain"
)

// MockAudioSource is a mock implementation of ports.AudioSource
type MockAudioSource struct {
	OpenFunc func(ctx context.Context, onChunk func([]byte)) (io.Closer, error)

	mu      sync.Mutex
	onChunk func([]byte)
	closed  bool
}

func (m *MockAudioSource) Open(ctx context.Context, onChunk func([]byte)) (io.Closer, error) {
	if m.OpenFunc != nil {
		return m.OpenFunc(ctx, onChunk)
	}
	m.mu.Lock()
	m.onChunk = onChunk
	m.closed = false
	m.mu.Unlock()
	return closerFunc(func() error {
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()
		return nil
	}), nil
}

// Emit delivers a chunk as if it arrived from the device
func (m *MockAudioSource) Emit(chunk []byte) {
	m.mu.Lock()
	fn := m.onChunk
	m.mu.Unlock()
	if fn != nil {
		fn(chunk)
	}
}

// Closed reports whether the last handle has been closed
func (m *MockAudioSource) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// MockSpeechPlayer is a mock implementation of ports.SpeechPlayer
type MockSpeechPlayer struct {
	PlayFunc func(ctx context.Context, speech domain.AudioPayload) error

	mu     sync.Mutex
	played []domain.AudioPayload
}

func (m *MockSpeechPlayer) Play(ctx context.Context, speech domain.AudioPayload) error {
	m.mu.Lock()
	m.played = append(m.played, speech)
	m.mu.Unlock()
	if m.PlayFunc != nil {
		return m.PlayFunc(ctx, speech)
	}
	return nil
}

// Played returns a snapshot of everything handed to Play
func (m *MockSpeechPlayer) Played() []domain.AudioPayload {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AudioPayload, len(m.played))
	copy(out, m.played)
	return out
}
