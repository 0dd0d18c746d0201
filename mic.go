package moodsense

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// Microphone is a Device backed by the default PortAudio input device. The
// opened source owns the device exclusively for the pipeline's lifetime; the
// handle is released on every exit path, including errors during open.
type Microphone struct{}

// Open acquires the default input device and starts capturing mono 16-bit
// PCM at the configured sample rate and frame size. Failures are reported as
// ErrCaptureUnavailable.
func (Microphone) Open(cfg *Config) (FrameSource, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}

	buffer := make([]int16, cfg.FrameSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(cfg.SampleRate), len(buffer), buffer)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}

	return &micSource{stream: stream, buffer: buffer}, nil
}

type micSource struct {
	stream *portaudio.Stream
	buffer []int16
	seq    uint64

	closeOnce sync.Once
	closeErr  error
}

// NextFrame blocks on the device for one frame period. A device-buffer
// overflow is surfaced as ErrCaptureOverrun; any other read failure means the
// device went away mid-stream and is surfaced as ErrCaptureInterrupted.
func (m *micSource) NextFrame(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	if err := m.stream.Read(); err != nil {
		if errors.Is(err, portaudio.InputOverflowed) {
			return Frame{}, fmt.Errorf("%w: %v", ErrCaptureOverrun, err)
		}
		return Frame{}, fmt.Errorf("%w: %v", ErrCaptureInterrupted, err)
	}

	samples := make([]int16, len(m.buffer))
	copy(samples, m.buffer)

	f := Frame{Seq: m.seq, Samples: samples}
	m.seq++
	return f, nil
}

func (m *micSource) Close() error {
	m.closeOnce.Do(func() {
		if stopErr := m.stream.Stop(); stopErr != nil {
			m.closeErr = stopErr
		}
		if closeErr := m.stream.Close(); closeErr != nil && m.closeErr == nil {
			m.closeErr = closeErr
		}
		portaudio.Terminate()
	})
	return m.closeErr
}
