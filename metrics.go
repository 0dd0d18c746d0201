package moodsense

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// meterName is the instrumentation scope for all pipeline metrics.
const meterName = "github.com/moodsense/moodsense"

// Metrics holds the OpenTelemetry instruments for the pipeline. The
// underlying OTel types handle their own synchronisation, so a single
// Metrics value is shared across goroutines.
type Metrics struct {
	// FramesCaptured counts frames pulled from the capture source.
	FramesCaptured metric.Int64Counter

	// FramesDropped counts overruns: frames dropped by the bounded backlog
	// when inference lags behind capture.
	FramesDropped metric.Int64Counter

	// FramesGated counts frames rejected by the noise gate.
	FramesGated metric.Int64Counter

	// WindowsAssembled counts completed analysis windows.
	WindowsAssembled metric.Int64Counter

	// Inferences counts backend calls. Attribute: status=ok|error.
	Inferences metric.Int64Counter

	// InferenceDuration tracks backend latency in seconds.
	InferenceDuration metric.Float64Histogram

	// LabelSwitches counts published dominant-label changes.
	LabelSwitches metric.Int64Counter

	// Subscribers tracks connected state-feed clients.
	Subscribers metric.Int64UpDownCounter
}

// NewMetrics creates all instruments on the given provider. Tests should
// pass a private provider to avoid cross-test pollution.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)
	m := &Metrics{}
	var err error

	if m.FramesCaptured, err = meter.Int64Counter("moodsense_frames_captured_total",
		metric.WithDescription("Frames pulled from the capture source")); err != nil {
		return nil, err
	}
	if m.FramesDropped, err = meter.Int64Counter("moodsense_frames_dropped_total",
		metric.WithDescription("Frames dropped by backlog overrun")); err != nil {
		return nil, err
	}
	if m.FramesGated, err = meter.Int64Counter("moodsense_frames_gated_total",
		metric.WithDescription("Frames rejected by the noise gate")); err != nil {
		return nil, err
	}
	if m.WindowsAssembled, err = meter.Int64Counter("moodsense_windows_assembled_total",
		metric.WithDescription("Completed analysis windows")); err != nil {
		return nil, err
	}
	if m.Inferences, err = meter.Int64Counter("moodsense_inferences_total",
		metric.WithDescription("Backend inference calls")); err != nil {
		return nil, err
	}
	if m.InferenceDuration, err = meter.Float64Histogram("moodsense_inference_duration_seconds",
		metric.WithDescription("Backend inference latency"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.LabelSwitches, err = meter.Int64Counter("moodsense_label_switches_total",
		metric.WithDescription("Published dominant-label changes")); err != nil {
		return nil, err
	}
	if m.Subscribers, err = meter.Int64UpDownCounter("moodsense_subscribers",
		metric.WithDescription("Connected state-feed clients")); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordInference records one backend call.
func (m *Metrics) RecordInference(ctx context.Context, d time.Duration, ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	m.Inferences.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	m.InferenceDuration.Record(ctx, d.Seconds())
}

// InitMetrics wires a Prometheus exporter bridge into a fresh SDK meter
// provider, registers it globally, and returns the Metrics instruments plus
// a shutdown function to defer from main. Scraping happens via the state
// server's /metrics endpoint.
func InitMetrics() (*Metrics, func(context.Context) error, error) {
	exporter, err := promexporter.New()
	if err != nil {
		return nil, nil, err
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(mp)

	m, err := NewMetrics(mp)
	if err != nil {
		return nil, nil, err
	}
	return m, mp.Shutdown, nil
}
