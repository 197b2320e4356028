// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package tracing wires OpenTelemetry tracing and metrics, exported over
// Prometheus, behind the appserver.Instrumentation interface.
package tracing

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Provider is a slim OpenTelemetry tracer/meter provider, exported over
// Prometheus, that implements appserver.Instrumentation: one span per
// phase, and a duration histogram plus error counter per
// (phase, feature) pair.
type Provider struct {
	tp  *sdktrace.TracerProvider
	mp  *sdkmetric.MeterProvider
	tr  trace.Tracer
	mtr metric.Meter

	phaseDuration   metric.Float64Histogram
	featureDuration metric.Float64Histogram
	featureErrors   metric.Int64Counter
}

// NewProvider builds a Provider tagged with serviceName/version, exposing
// metrics to whatever reads the default Prometheus registry via
// MetricsHandler.
func NewProvider(serviceName, version string) (*Provider, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			"",
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("building resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)

	promExporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("building prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promExporter),
	)

	tr := tp.Tracer("github.com/relaykit/appserver")
	mtr := mp.Meter("github.com/relaykit/appserver")

	phaseDuration, err := mtr.Float64Histogram(
		"appserver.phase.duration",
		metric.WithDescription("wall-clock duration of one lifecycle phase"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("building phase duration histogram: %w", err)
	}
	featureDuration, err := mtr.Float64Histogram(
		"appserver.feature.duration",
		metric.WithDescription("wall-clock duration of one feature callback within a phase"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("building feature duration histogram: %w", err)
	}
	featureErrors, err := mtr.Int64Counter(
		"appserver.feature.errors",
		metric.WithDescription("count of feature callbacks that returned a non-nil error"),
	)
	if err != nil {
		return nil, fmt.Errorf("building feature error counter: %w", err)
	}

	return &Provider{
		tp:              tp,
		mp:              mp,
		tr:              tr,
		mtr:             mtr,
		phaseDuration:   phaseDuration,
		featureDuration: featureDuration,
		featureErrors:   featureErrors,
	}, nil
}

// StartPhase implements appserver.Instrumentation.
func (p *Provider) StartPhase(phase string) func() {
	start := time.Now()
	_, span := p.tr.Start(context.Background(), "phase:"+phase,
		trace.WithAttributes(attribute.String("appserver.phase", phase)))
	return func() {
		elapsed := time.Since(start).Seconds()
		p.phaseDuration.Record(context.Background(), elapsed,
			metric.WithAttributes(attribute.String("phase", phase)))
		span.End()
	}
}

// StartFeature implements appserver.Instrumentation.
func (p *Provider) StartFeature(phase, feature string) func(err error) {
	start := time.Now()
	_, span := p.tr.Start(context.Background(), "feature:"+phase,
		trace.WithAttributes(
			attribute.String("appserver.phase", phase),
			attribute.String("appserver.feature", feature),
		))
	attrs := metric.WithAttributes(
		attribute.String("phase", phase),
		attribute.String("feature", feature),
	)
	return func(err error) {
		elapsed := time.Since(start).Seconds()
		p.featureDuration.Record(context.Background(), elapsed, attrs)
		if err != nil {
			p.featureErrors.Add(context.Background(), 1, attrs)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// MetricsHandler returns an HTTP handler serving the default Prometheus
// registry, which the OpenTelemetry Prometheus exporter registers into.
func (p *Provider) MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// Shutdown flushes pending spans/metrics and releases resources.
func (p *Provider) Shutdown(ctx context.Context) error {
	if err := p.tp.Shutdown(ctx); err != nil {
		return err
	}
	return p.mp.Shutdown(ctx)
}
