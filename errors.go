package moodsense

import "errors"

// Error taxonomy for the pipeline. Configuration errors are fatal before the
// loop starts; capture errors stop the pipeline cleanly; backend errors are
// fatal because no fallback classification exists. Frame overruns are counted,
// never raised.
var (
	// ErrInvalidConfiguration indicates a config value outside its documented
	// valid range. Raised at startup, before any resource is acquired.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrCaptureUnavailable indicates the capture device could not be opened.
	ErrCaptureUnavailable = errors.New("capture device unavailable")

	// ErrCaptureInterrupted indicates the capture device failed mid-stream
	// (e.g. unplugged). The pipeline stops cleanly when it sees this.
	ErrCaptureInterrupted = errors.New("capture interrupted")

	// ErrCaptureOverrun indicates the device buffer overflowed and frames
	// were lost. Non-fatal: the pipeline counts it and keeps reading.
	ErrCaptureOverrun = errors.New("capture overrun")

	// ErrInvalidInputShape indicates a window whose length does not match the
	// backend's input contract. The assembler never produces such a window.
	ErrInvalidInputShape = errors.New("invalid input shape")

	// ErrModelUnavailable indicates the inference backend failed or returned
	// a malformed probability vector. Fatal to the pipeline.
	ErrModelUnavailable = errors.New("model unavailable")
)
