package otel

import (
	"context"
	"errors"
	"fmt"

	jwtAuth "github.com/MrEthical07/jwtAuth"
	"github.com/MrEthical07/jwtAuth/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// FlowKey is the attribute carrying the lifecycle flow of a counter.
const FlowKey = attribute.Key("flow")

// BucketKey is the attribute carrying a histogram bucket's upper bound.
const BucketKey = attribute.Key("le")

type metricsSource interface {
	MetricsSnapshot() jwtAuth.MetricsSnapshot
	AuditDropped() uint64
}

type flowCounter struct {
	id         jwtAuth.MetricID
	instrument metric.Int64ObservableCounter
	attrs      metric.ObserveOption
}

// latencyHistogram is published as cumulative bucket gauges keyed by le, plus
// a sample count, since snapshots carry no sum.
type latencyHistogram struct {
	id      jwtAuth.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
	flow    attribute.KeyValue
	bounds  [8]metric.ObserveOption
}

// OTelExporter publishes engine snapshots through observable instruments. One
// callback takes one snapshot per collection, so counters of a cycle agree.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration
	counters     []flowCounter
	histograms   []latencyHistogram
	auditDropped metric.Int64ObservableCounter
}

func NewOTelExporter(meter metric.Meter, engine *jwtAuth.Engine) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, engine)
}

func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{source: source}
	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", def.Name, err)
		}
		e.counters = append(e.counters, flowCounter{
			id:         def.ID,
			instrument: ins,
			attrs:      metric.WithAttributes(FlowKey.String(string(def.ID.Flow()))),
		})
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		h, err := newLatencyHistogram(meter, def)
		if err != nil {
			return nil, err
		}
		e.histograms = append(e.histograms, h)
		observables = append(observables, h.buckets, h.count)
	}

	dropped, err := meter.Int64ObservableCounter(
		internaldefs.AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	e.auditDropped = dropped
	observables = append(observables, dropped)

	reg, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = reg
	return e, nil
}

func newLatencyHistogram(meter metric.Meter, def internaldefs.HistogramDef) (latencyHistogram, error) {
	h := latencyHistogram{
		id:   def.ID,
		flow: FlowKey.String(string(def.ID.Flow())),
	}
	var err error
	h.buckets, err = meter.Int64ObservableGauge(def.Name+"_bucket",
		metric.WithDescription(def.Help+" Cumulative count per upper bound."))
	if err != nil {
		return h, fmt.Errorf("create bucket gauge %s: %w", def.Name, err)
	}
	h.count, err = meter.Int64ObservableGauge(def.Name+"_count",
		metric.WithDescription(def.Help+" Total samples."))
	if err != nil {
		return h, fmt.Errorf("create count gauge %s: %w", def.Name, err)
	}
	for i, le := range internaldefs.HistogramBoundLabels {
		h.bounds[i] = metric.WithAttributes(h.flow, BucketKey.String(le))
	}
	return h, nil
}

func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()
	for _, c := range e.counters {
		o.ObserveInt64(c.instrument, int64(snap.Counters[c.id]), c.attrs)
	}
	for _, h := range e.histograms {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[h.id]))
		for i, v := range cumulative {
			o.ObserveInt64(h.buckets, int64(v), h.bounds[i])
		}
		o.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]), metric.WithAttributes(h.flow))
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
