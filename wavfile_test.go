package moodsense

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeWAV encodes 16-bit mono PCM at the given rate into a temp file.
func writeWAV(t *testing.T, rate int, samples []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "take.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	return path
}

func wavConfig() *Config {
	cfg := DefaultConfig()
	cfg.SampleRate = 8000
	cfg.FrameSize = 1600
	cfg.WindowSeconds = 0.6
	return cfg
}

func TestWAVFileServesFrames(t *testing.T) {
	samples := make([]int, 3200)
	for i := range samples {
		samples[i] = 1000
	}
	cfg := wavConfig()
	src, err := WAVFile{Path: writeWAV(t, 8000, samples)}.Open(cfg)
	require.NoError(t, err)
	defer src.Close()

	ctx := context.Background()
	first, err := src.NextFrame(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), first.Seq)
	require.Len(t, first.Samples, 1600)
	assert.Equal(t, int16(1000), first.Samples[0])

	second, err := src.NextFrame(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), second.Seq)

	_, err = src.NextFrame(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestWAVFileZeroPadsTrailingPartialFrame(t *testing.T) {
	samples := make([]int, 2000) // 1 full frame + 400 samples
	for i := range samples {
		samples[i] = 500
	}
	cfg := wavConfig()
	src, err := WAVFile{Path: writeWAV(t, 8000, samples)}.Open(cfg)
	require.NoError(t, err)
	defer src.Close()

	ctx := context.Background()
	_, err = src.NextFrame(ctx)
	require.NoError(t, err)

	tail, err := src.NextFrame(ctx)
	require.NoError(t, err)
	require.Len(t, tail.Samples, 1600)
	assert.Equal(t, int16(500), tail.Samples[399])
	assert.Equal(t, int16(0), tail.Samples[400])

	_, err = src.NextFrame(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestWAVFileRejectsSampleRateMismatch(t *testing.T) {
	path := writeWAV(t, 44100, make([]int, 100))
	_, err := WAVFile{Path: path}.Open(wavConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCaptureUnavailable)
	assert.Contains(t, err.Error(), "44100")
}

func TestWAVFileRejectsMissingOrInvalidFile(t *testing.T) {
	_, err := WAVFile{Path: filepath.Join(t.TempDir(), "absent.wav")}.Open(wavConfig())
	assert.ErrorIs(t, err, ErrCaptureUnavailable)

	path := filepath.Join(t.TempDir(), "noise.wav")
	require.NoError(t, os.WriteFile(path, []byte("definitely not riff"), 0o644))
	_, err = WAVFile{Path: path}.Open(wavConfig())
	assert.ErrorIs(t, err, ErrCaptureUnavailable)
}

func TestWAVFileNextFrameHonorsCancellation(t *testing.T) {
	path := writeWAV(t, 8000, make([]int, 3200))
	src, err := WAVFile{Path: path}.Open(wavConfig())
	require.NoError(t, err)
	defer src.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.NextFrame(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
