package audio

import (
	"context"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/seu-repo/voxbank/internal/domain"
	"github.com/seu-repo/voxbank/internal/ports"
)

// MimeType tags every finalized recording.
const MimeType = "audio/wav"

// Recorder owns the push-to-talk capture lifecycle. At most one recording is
// active at a time; chunks are appended in arrival order and handed over as a
// single payload on Stop.
type Recorder struct {
	source ports.AudioSource
	log    *zap.Logger

	mu     sync.Mutex
	handle io.Closer
	chunks [][]byte
}

// NewRecorder creates a recorder over the given capture source
func NewRecorder(source ports.AudioSource, log *zap.Logger) *Recorder {
	return &Recorder{
		source: source,
		log:    log,
	}
}

// Start acquires the capture device and begins buffering chunks.
// A second Start while recording returns ErrCaptureBusy and leaves the
// active recording untouched.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handle != nil {
		return domain.ErrCaptureBusy
	}

	handle, err := r.source.Open(ctx, r.append)
	if err != nil {
		r.log.Error("Failed to acquire capture device", zap.Error(err))
		return err
	}

	r.handle = handle
	r.chunks = nil
	r.log.Debug("Recording started")
	return nil
}

// Recording reports whether a capture is currently active
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handle != nil
}

// Stop releases the capture device, finalizes the buffered chunks into one
// payload and hands it to consume. The device is released before consume
// runs, so it is available again even if consume fails. Stop without an
// active recording is a no-op.
func (r *Recorder) Stop(consume func(domain.AudioPayload) error) error {
	r.mu.Lock()

	if r.handle == nil {
		r.mu.Unlock()
		return nil
	}

	handle := r.handle
	chunks := r.chunks
	r.handle = nil
	r.chunks = nil
	r.mu.Unlock()

	if err := handle.Close(); err != nil {
		r.log.Warn("Capture device close failed", zap.Error(err))
	}

	size := 0
	for _, c := range chunks {
		size += len(c)
	}
	data := make([]byte, 0, size)
	for _, c := range chunks {
		data = append(data, c...)
	}

	r.log.Debug("Recording stopped", zap.Int("bytes", len(data)))

	if consume == nil {
		return nil
	}
	return consume(domain.AudioPayload{Data: data, MimeType: MimeType})
}

// Abort releases the capture device and discards any buffered audio
func (r *Recorder) Abort() {
	r.mu.Lock()
	handle := r.handle
	r.handle = nil
	r.chunks = nil
	r.mu.Unlock()

	if handle != nil {
		if err := handle.Close(); err != nil {
			r.log.Warn("Capture device close failed", zap.Error(err))
		}
		r.log.Debug("Recording aborted")
	}
}

func (r *Recorder) append(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	// The device callback may outlive Stop by a moment; drop late chunks.
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handle == nil {
		return
	}
	buf := make([]byte, len(chunk))
	copy(buf, chunk)
	r.chunks = append(r.chunks, buf)
}
