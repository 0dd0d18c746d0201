package moodsense

import "context"

// Frame is one fixed-length block of consecutive 16-bit PCM samples,
// timestamped by sequence index. Immutable once captured.
type Frame struct {
	// Seq is the capture sequence index, starting at 0.
	Seq uint64

	// Samples holds exactly the configured frame size of signed 16-bit
	// samples.
	Samples []int16
}

// FrameSource produces a lazy, infinite (until closed) sequence of frames at
// a fixed sample rate and frame size. Continuous capture callbacks are
// reframed as a blocking pull so the pipeline's control flow stays explicit
// and testable without a live microphone.
type FrameSource interface {
	// NextFrame blocks until the next frame is available or ctx is done.
	// Implementations return errors wrapped in ErrCaptureInterrupted when the
	// device fails mid-stream, and io.EOF when a finite source is exhausted.
	NextFrame(ctx context.Context) (Frame, error)

	// Close releases the capture resource. Safe to call more than once.
	Close() error
}

// Device opens frame sources. The pipeline acquires a source on Start and
// releases it on Stop, on every exit path, so a stopped pipeline can always
// be started again.
type Device interface {
	Open(cfg *Config) (FrameSource, error)
}
