// Package metrics owns the OpenTelemetry instruments recorded by the explorer
// and the Prometheus endpoint that exposes them.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/ZuzannaKurillova/trAIvel"

// Provider is a meter provider exporting to its own Prometheus registry.
type Provider struct {
	meterProvider *sdkmetric.MeterProvider
	handler       http.Handler
}

// Setup builds a Provider with a fresh registry, so several providers can
// coexist in one process (tests).
func Setup() (*Provider, error) {
	registry := prom.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	return &Provider{
		meterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter)),
		handler:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}, nil
}

// MeterProvider returns the provider instruments are created from.
func (p *Provider) MeterProvider() metric.MeterProvider {
	return p.meterProvider
}

// Handler serves the registry in the Prometheus text format.
func (p *Provider) Handler() http.Handler {
	return p.handler
}

// Shutdown flushes and stops the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if err := p.meterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down meter provider: %w", err)
	}
	return nil
}

// Instruments holds the explorer's metric instruments.
type Instruments struct {
	searches       metric.Int64Counter
	searchDuration metric.Float64Histogram
	staleResults   metric.Int64Counter
}

// NewInstruments creates the instruments on mp.
func NewInstruments(mp metric.MeterProvider) (*Instruments, error) {
	meter := mp.Meter(meterName)
	var (
		inst Instruments
		err  error
	)

	inst.searches, err = meter.Int64Counter(
		"traivel_searches_total",
		metric.WithDescription("Settled searches by outcome"),
		metric.WithUnit("{search}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating traivel_searches_total: %w", err)
	}

	inst.searchDuration, err = meter.Float64Histogram(
		"traivel_search_duration_seconds",
		metric.WithDescription("Time from explore to settlement"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating traivel_search_duration_seconds: %w", err)
	}

	inst.staleResults, err = meter.Int64Counter(
		"traivel_stale_results_total",
		metric.WithDescription("Results discarded because a newer search had started"),
		metric.WithUnit("{result}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating traivel_stale_results_total: %w", err)
	}

	return &inst, nil
}

// Noop returns instruments that record nothing.
func Noop() *Instruments {
	// The noop provider never fails to create instruments.
	inst, _ := NewInstruments(noop.NewMeterProvider())
	return inst
}

// RecordSearch counts one settled search and its latency.
func (i *Instruments) RecordSearch(ctx context.Context, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	i.searches.Add(ctx, 1, attrs)
	i.searchDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordStale counts one result that arrived after a newer search began.
func (i *Instruments) RecordStale(ctx context.Context) {
	i.staleResults.Add(ctx, 1)
}
