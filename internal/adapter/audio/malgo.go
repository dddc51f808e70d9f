package audio

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"

	"github.com/seu-repo/voxbank/internal/domain"
)

// CaptureConfig shapes the microphone stream
type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

// DefaultCaptureConfig is 16kHz mono, the rate the dialogue backend expects
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		SampleRate: 16000,
		Channels:   1,
	}
}

// MicSource is a ports.AudioSource backed by the system microphone
type MicSource struct {
	config CaptureConfig
	log    *zap.Logger

	mu  sync.Mutex
	ctx *malgo.AllocatedContext
}

// NewMicSource creates a microphone source. The underlying audio context is
// initialized lazily on the first Open.
func NewMicSource(config CaptureConfig, log *zap.Logger) *MicSource {
	if config.SampleRate == 0 {
		config = DefaultCaptureConfig()
	}
	return &MicSource{
		config: config,
		log:    log,
	}
}

// Open acquires the default capture device and streams raw S16LE chunks to
// onChunk until the returned handle is closed.
func (s *MicSource) Open(_ context.Context, onChunk func([]byte)) (io.Closer, error) {
	malgoCtx, err := s.audioContext()
	if err != nil {
		return nil, err
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = s.config.Channels
	deviceConfig.SampleRate = s.config.SampleRate
	deviceConfig.PeriodSizeInMilliseconds = 20

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, pInputSamples []byte, _ uint32) {
			onChunk(pInputSamples)
		},
	}

	device, err := malgo.InitDevice(malgoCtx.Context, deviceConfig, callbacks)
	if err != nil {
		s.log.Error("Failed to init capture device", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrDeviceUnavailable, err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		s.log.Error("Failed to start capture device", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrDeviceUnavailable, err)
	}

	return &micHandle{device: device}, nil
}

// Close releases the shared audio context
func (s *MicSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx != nil {
		_ = s.ctx.Uninit()
		s.ctx.Free()
		s.ctx = nil
	}
	return nil
}

func (s *MicSource) audioContext() (*malgo.AllocatedContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx != nil {
		return s.ctx, nil
	}

	contextConfig := malgo.ContextConfig{}
	contextConfig.ThreadPriority = malgo.ThreadPriorityRealtime

	malgoCtx, err := malgo.InitContext(nil, contextConfig, nil)
	if err != nil {
		s.log.Error("Failed to init audio context", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrDeviceUnavailable, err)
	}
	s.ctx = malgoCtx
	return s.ctx, nil
}

type micHandle struct {
	device *malgo.Device
	once   sync.Once
}

func (h *micHandle) Close() error {
	h.once.Do(func() {
		_ = h.device.Stop()
		h.device.Uninit()
	})
	return nil
}
