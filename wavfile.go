package moodsense

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"
)

// WAVFile is a Device that replays a 16-bit PCM WAV recording as a frame
// sequence, used for offline analysis of saved sessions and as a
// deterministic capture substitute. The source returns io.EOF once the file
// is exhausted; a trailing partial frame is zero-padded.
type WAVFile struct {
	Path string
}

// Open decodes the file up front and serves it frame by frame. A missing or
// malformed file, or a sample rate mismatch with the config, is reported as
// ErrCaptureUnavailable.
func (w WAVFile) Open(cfg *Config) (FrameSource, error) {
	f, err := os.Open(w.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: %s is not a valid wav file", ErrCaptureUnavailable, w.Path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrCaptureUnavailable, w.Path, err)
	}
	if int(dec.SampleRate) != cfg.SampleRate {
		return nil, fmt.Errorf("%w: %s has sample rate %d, want %d",
			ErrCaptureUnavailable, w.Path, dec.SampleRate, cfg.SampleRate)
	}

	chans := int(dec.NumChans)
	if chans < 1 {
		chans = 1
	}

	// Downmix to mono and clip to int16.
	samples := make([]int16, 0, len(buf.Data)/chans)
	for i := 0; i+chans <= len(buf.Data); i += chans {
		sum := 0
		for c := 0; c < chans; c++ {
			sum += buf.Data[i+c]
		}
		v := sum / chans
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		samples = append(samples, int16(v))
	}

	return &wavSource{samples: samples, frameSize: cfg.FrameSize}, nil
}

type wavSource struct {
	samples   []int16
	frameSize int
	pos       int
	seq       uint64
}

func (w *wavSource) NextFrame(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if w.pos >= len(w.samples) {
		return Frame{}, io.EOF
	}

	samples := make([]int16, w.frameSize)
	n := copy(samples, w.samples[w.pos:])
	w.pos += n

	f := Frame{Seq: w.seq, Samples: samples}
	w.seq++
	return f, nil
}

func (w *wavSource) Close() error {
	w.pos = len(w.samples)
	return nil
}
