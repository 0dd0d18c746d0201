package moodsense

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/moodsense/moodsense/backend"
)

// degradeSpan is the number of captured frames between drop-rate checks.
const degradeSpan = 256

// Pipeline orchestrates the capture-to-inference loop: it pulls frames from
// the source, drives the noise gate and assembler, invokes the backend
// whenever a window completes, and publishes smoothed states.
//
// Capture and processing run on separate goroutines joined by a bounded
// frame queue. When inference latency exceeds the frame period the queue
// fills and the oldest frame is dropped (counted as an overrun), so capture
// is never blocked. The inference chain itself is strictly sequential: one
// window in flight at a time.
//
// The published state is a single-writer, multiple-reader snapshot: readers
// get an immutable *EmotionState via State, or a feed of them via Subscribe.
type Pipeline struct {
	cfg     *Config
	device  Device
	invoker *InferenceInvoker
	metrics *Metrics
	journal *Journal
	log     *log.Logger

	mu       sync.Mutex // guards the lifecycle fields below
	running  bool
	source   FrameSource
	cancel   context.CancelFunc
	done     chan struct{}
	startErr error

	state    atomic.Pointer[EmotionState]
	runErr   atomic.Pointer[error]
	degraded atomic.Bool
	sawEOF   atomic.Bool

	subMu  sync.Mutex
	subs   map[int]chan EmotionState
	subSeq int
}

// NewPipeline wires a pipeline from its collaborators. The config is
// validated here so that misconfiguration fails before any resource is
// acquired. metrics and journal may be nil.
func NewPipeline(cfg *Config, device Device, b backend.Backend, metrics *Metrics, journal *Journal, logger *log.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:     cfg,
		device:  device,
		invoker: NewInferenceInvoker(b, metrics),
		metrics: metrics,
		journal: journal,
		log:     logger,
		subs:    make(map[int]chan EmotionState),
	}, nil
}

// Start acquires the capture source and begins the loop. Starting a running
// pipeline is an error; starting a stopped one begins a fresh session with
// an uninitialized smoother.
func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return errors.New("pipeline already running")
	}

	source, err := p.device.Open(p.cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.source = source
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.runErr.Store(nil)
	p.degraded.Store(false)
	p.sawEOF.Store(false)
	p.state.Store(nil)

	frames := make(chan Frame, p.cfg.BacklogFrames)
	sessionStart := time.Now()

	var wg sync.WaitGroup
	wg.Add(2)
	go p.captureLoop(ctx, source, frames, &wg)
	go p.processLoop(ctx, cancel, frames, &wg)

	done := p.done
	go func() {
		wg.Wait()
		cancel()
		p.finalize(source, sessionStart)
		close(done)
	}()

	return nil
}

// Stop signals cooperative termination and blocks until the loops have
// exited and the capture resource is released. The loop's wait on an
// in-flight inference is interrupted promptly; the native call may finish in
// the background, but no new work is scheduled. Stop is idempotent, and an
// immediate Start afterwards succeeds.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// Wait blocks until the current session ends, whether by Stop or on its own
// (finite source exhausted, capture failure, backend failure). Returns
// immediately when no session has been started.
func (p *Pipeline) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// State returns the latest published snapshot, or nil before the first
// inference of the current session.
func (p *Pipeline) State() *EmotionState {
	return p.state.Load()
}

// Err returns the terminal error that stopped the pipeline, or nil while it
// runs or after a clean stop.
func (p *Pipeline) Err() error {
	if e := p.runErr.Load(); e != nil {
		return *e
	}
	return nil
}

// Degraded reports whether the sustained frame drop rate has exceeded the
// configured ratio. Recoverable: it clears when the drop rate falls again.
func (p *Pipeline) Degraded() bool {
	return p.degraded.Load()
}

// Running reports whether the loop is active.
func (p *Pipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Subscribe returns a feed of published states. The channel closes when the
// pipeline stops. The returned cancel function detaches the subscriber; it
// is safe to call more than once.
func (p *Pipeline) Subscribe() (<-chan EmotionState, func()) {
	p.subMu.Lock()
	defer p.subMu.Unlock()

	id := p.subSeq
	p.subSeq++
	ch := make(chan EmotionState, 8)
	p.subs[id] = ch
	if p.metrics != nil {
		p.metrics.Subscribers.Add(context.Background(), 1)
	}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.subMu.Lock()
			if _, ok := p.subs[id]; ok {
				delete(p.subs, id)
				close(ch)
			}
			p.subMu.Unlock()
			if p.metrics != nil {
				p.metrics.Subscribers.Add(context.Background(), -1)
			}
		})
	}
}

// captureLoop pulls frames from the source and queues them with a
// drop-oldest policy so capture itself never blocks on slow inference.
func (p *Pipeline) captureLoop(ctx context.Context, source FrameSource, frames chan Frame, wg *sync.WaitGroup) {
	defer wg.Done()
	defer close(frames)

	var spanCaptured, spanDropped int

	for {
		f, err := source.NextFrame(ctx)
		if err != nil {
			switch {
			case errors.Is(err, ErrCaptureOverrun):
				// Device-buffer overflow lost frames but the stream is still
				// alive: count it and keep reading.
				spanDropped++
				spanCaptured++
				if p.metrics != nil {
					p.metrics.FramesDropped.Add(ctx, 1)
				}
				continue
			case errors.Is(err, io.EOF):
				p.sawEOF.Store(true)
			case errors.Is(err, context.Canceled):
			default:
				p.log.Printf("Capture failed: %v", err)
				p.setErr(err)
			}
			return
		}

		if p.metrics != nil {
			p.metrics.FramesCaptured.Add(ctx, 1)
		}

		select {
		case frames <- f:
		default:
			// Backlog full: evict the oldest queued frame, then retry once.
			select {
			case <-frames:
			default:
			}
			select {
			case frames <- f:
			default:
			}
			spanDropped++
			if p.metrics != nil {
				p.metrics.FramesDropped.Add(ctx, 1)
			}
		}

		spanCaptured++
		if spanCaptured >= degradeSpan {
			ratio := float64(spanDropped) / float64(spanCaptured)
			degraded := ratio >= p.cfg.DegradeRatio
			if degraded != p.degraded.Load() {
				if degraded {
					p.log.Printf("Degraded: dropping %.0f%% of frames, inference cannot keep up", ratio*100)
				} else {
					p.log.Printf("Recovered from degraded mode")
				}
				p.degraded.Store(degraded)
			}
			spanCaptured, spanDropped = 0, 0
		}
	}
}

// processLoop drains the frame queue through gate, assembler, backend and
// smoother. Gate, assembler and smoother state belong exclusively to this
// goroutine.
func (p *Pipeline) processLoop(ctx context.Context, cancel context.CancelFunc, frames <-chan Frame, wg *sync.WaitGroup) {
	defer wg.Done()

	gate := NewNoiseGate(p.cfg)
	asm := NewFeatureAssembler(p.cfg)
	smoother := NewEmotionSmoother(p.cfg)

	for f := range frames {
		state := gate.Process(f)
		if state == Silent && p.metrics != nil {
			p.metrics.FramesGated.Add(ctx, 1)
		}

		window, ok := asm.Add(f, state)
		if !ok {
			continue
		}
		if !p.classify(ctx, cancel, smoother, window) {
			return
		}
	}

	// A finite source ended mid-window: classify the zero-padded remainder.
	if p.sawEOF.Load() && ctx.Err() == nil {
		if window, ok := asm.Flush(); ok {
			p.classify(ctx, cancel, smoother, window)
		}
	}
}

// classify runs one window through the backend and publishes the smoothed
// result. It returns false when the pipeline must halt. The wait on the
// backend is interruptible: cancellation abandons the in-flight call.
func (p *Pipeline) classify(ctx context.Context, cancel context.CancelFunc, smoother *EmotionSmoother, window []float32) bool {
	if p.metrics != nil {
		p.metrics.WindowsAssembled.Add(ctx, 1)
	}

	type outcome struct {
		probs ProbabilityVector
		err   error
	}
	ch := make(chan outcome, 1)
	go func() {
		probs, err := p.invoker.Infer(ctx, window)
		ch <- outcome{probs, err}
	}()

	var out outcome
	select {
	case out = <-ch:
	case <-ctx.Done():
		return false
	}

	if out.err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.log.Printf("Inference failed, halting pipeline: %v", out.err)
		p.setErr(out.err)
		cancel()
		return false
	}

	prev := smoother.Current()
	state, published := smoother.Observe(out.probs)
	if !published {
		return true
	}
	if p.metrics != nil && prev != nil && prev.Dominant != state.Dominant {
		p.metrics.LabelSwitches.Add(ctx, 1)
	}
	p.publish(state)
	return true
}

// publish stores the immutable snapshot and fans it out to subscribers. A
// subscriber that cannot keep up misses intermediate states rather than
// blocking the loop.
func (p *Pipeline) publish(state EmotionState) {
	snapshot := state
	p.state.Store(&snapshot)

	p.subMu.Lock()
	defer p.subMu.Unlock()
	for _, ch := range p.subs {
		select {
		case ch <- state:
		default:
		}
	}
}

// finalize releases the capture resource, records the session in the
// journal, and detaches subscribers. Runs exactly once per session, on every
// exit path.
func (p *Pipeline) finalize(source FrameSource, sessionStart time.Time) {
	if err := source.Close(); err != nil {
		p.log.Printf("Error closing capture source: %v", err)
	}

	if p.journal != nil {
		if last := p.state.Load(); last != nil {
			rec := SessionRecord{
				Emotion:    last.Dominant,
				Confidence: last.Confidence,
				Intensity:  last.IntensityLevel(),
				Revisions:  last.Revision,
				StartedAt:  sessionStart,
				EndedAt:    time.Now(),
			}
			if err := p.journal.Append(rec); err != nil {
				p.log.Printf("Error writing session record: %v", err)
			}
		}
	}

	p.subMu.Lock()
	for id, ch := range p.subs {
		delete(p.subs, id)
		close(ch)
	}
	p.subMu.Unlock()

	p.mu.Lock()
	p.running = false
	p.source = nil
	p.mu.Unlock()
}

func (p *Pipeline) setErr(err error) {
	p.runErr.CompareAndSwap(nil, &err)
}
