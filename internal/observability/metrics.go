// Package observability provides OpenTelemetry metric instruments for the
// compiler and job admission.
package observability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"reelplan/internal/services"
)

const meterName = "reelplan"

// Instrument names.
const (
	MetricCompiles        = "reelplan.compile.count"
	MetricCompileWarnings = "reelplan.compile.warnings"
	MetricCompileDuration = "reelplan.compile.duration"
	MetricAdmissions      = "reelplan.admission.count"
)

// Metrics records compile and admission outcomes. It satisfies both
// compiler.Recorder and jobs.AdmissionRecorder.
type Metrics struct {
	compiles   metric.Int64Counter
	warnings   metric.Int64Counter
	duration   metric.Float64Histogram
	admissions metric.Int64Counter
}

// NewMetrics creates the instruments on provider, or on the global provider
// when provider is nil.
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(meterName)

	compiles, err := meter.Int64Counter(MetricCompiles,
		metric.WithDescription("Render plan compilations by profile and outcome"))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", MetricCompiles, err)
	}
	warnings, err := meter.Int64Counter(MetricCompileWarnings,
		metric.WithDescription("Soft degradation warnings attached to compiled plans"))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", MetricCompileWarnings, err)
	}
	duration, err := meter.Float64Histogram(MetricCompileDuration,
		metric.WithDescription("Wall time spent compiling a render plan"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", MetricCompileDuration, err)
	}
	admissions, err := meter.Int64Counter(MetricAdmissions,
		metric.WithDescription("Render job admission decisions by outcome"))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", MetricAdmissions, err)
	}
	return &Metrics{compiles: compiles, warnings: warnings, duration: duration, admissions: admissions}, nil
}

// RecordCompile counts one compile attempt.
func (m *Metrics) RecordCompile(ctx context.Context, profile string, warnings int, elapsed time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("render_profile", profile),
		attribute.String("outcome", compileOutcome(err)),
	)
	m.compiles.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
	if warnings > 0 {
		m.warnings.Add(ctx, int64(warnings), metric.WithAttributes(attribute.String("render_profile", profile)))
	}
}

// RecordAdmission counts one admission decision.
func (m *Metrics) RecordAdmission(ctx context.Context, tenantID, env, outcome string) {
	m.admissions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tenant", tenantID),
		attribute.String("env", env),
		attribute.String("outcome", outcome),
	))
}

func compileOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, services.ErrValidation):
		return "invalid"
	case errors.Is(err, services.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// Collector owns an in-process meter provider whose readings can be read
// back on demand, for CLI summaries and tests.
type Collector struct {
	Provider *sdkmetric.MeterProvider
	reader   *sdkmetric.ManualReader
}

// NewCollector builds a provider backed by a manual reader.
func NewCollector() *Collector {
	reader := sdkmetric.NewManualReader()
	return &Collector{
		Provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		reader:   reader,
	}
}

// Reading is one aggregated data point.
type Reading struct {
	Name       string
	Attributes string
	Value      float64
	Count      uint64
}

// Collect returns every data point currently held by the provider, sorted by
// name then attributes. Counters report Value; histograms report Count and
// the Value sum.
func (c *Collector) Collect(ctx context.Context) ([]Reading, error) {
	var rm metricdata.ResourceMetrics
	if err := c.reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("collect metrics: %w", err)
	}
	var out []Reading
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					out = append(out, Reading{Name: m.Name, Attributes: attrString(dp.Attributes), Value: float64(dp.Value)})
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					out = append(out, Reading{Name: m.Name, Attributes: attrString(dp.Attributes), Value: dp.Sum, Count: dp.Count})
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Attributes < out[j].Attributes
	})
	return out, nil
}

// Shutdown flushes and stops the provider.
func (c *Collector) Shutdown(ctx context.Context) error {
	return c.Provider.Shutdown(ctx)
}

func attrString(set attribute.Set) string {
	parts := make([]string, 0, set.Len())
	iter := set.Iter()
	for iter.Next() {
		kv := iter.Attribute()
		parts = append(parts, string(kv.Key)+"="+kv.Value.Emit())
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}
