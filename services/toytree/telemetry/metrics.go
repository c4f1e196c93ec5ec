// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Metrics contains pre-defined metrics for the toytree service.
//
// Description:
//
//	Standard counters and histograms for HTTP traffic, parsing,
//	topology mutations, and distance computations. All metrics use the
//	"toytree_" prefix for consistent naming.
//
// Thread Safety: Safe for concurrent use after creation.
type Metrics struct {
	// --- HTTP Metrics ---

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal metric.Int64Counter

	// HTTPRequestDuration records HTTP request duration in seconds.
	HTTPRequestDuration metric.Float64Histogram

	// --- Parse Metrics ---

	// ParsesTotal counts parse operations by status.
	ParsesTotal metric.Int64Counter

	// ParseErrorsTotal counts parse failures by error class.
	ParseErrorsTotal metric.Int64Counter

	// ParseDuration records parse duration in seconds.
	ParseDuration metric.Float64Histogram

	// ParsedNodes records node counts of successfully parsed trees.
	ParsedNodes metric.Int64Histogram

	// --- Mutation Metrics ---

	// MutationsTotal counts topology mutations by kind and status.
	MutationsTotal metric.Int64Counter

	// --- Distance Metrics ---

	// DistanceTotal counts distance computations by metric kind and status.
	DistanceTotal metric.Int64Counter

	// DistanceDuration records distance computation duration in seconds.
	DistanceDuration metric.Float64Histogram
}

// NewMetrics creates all toytree metrics on the given meter.
//
// Outputs:
//
//	*Metrics - Ready-to-use instruments.
//	error - Non-nil if any instrument fails to register.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.HTTPRequestsTotal, err = meter.Int64Counter(
		"toytree_http_requests_total",
		metric.WithDescription("Total HTTP requests"),
	); err != nil {
		return nil, fmt.Errorf("create http requests counter: %w", err)
	}
	if m.HTTPRequestDuration, err = meter.Float64Histogram(
		"toytree_http_request_duration_seconds",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("create http duration histogram: %w", err)
	}
	if m.ParsesTotal, err = meter.Int64Counter(
		"toytree_parses_total",
		metric.WithDescription("Total Newick parse operations"),
	); err != nil {
		return nil, fmt.Errorf("create parses counter: %w", err)
	}
	if m.ParseErrorsTotal, err = meter.Int64Counter(
		"toytree_parse_errors_total",
		metric.WithDescription("Parse failures by error class"),
	); err != nil {
		return nil, fmt.Errorf("create parse errors counter: %w", err)
	}
	if m.ParseDuration, err = meter.Float64Histogram(
		"toytree_parse_duration_seconds",
		metric.WithDescription("Newick parse duration"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("create parse duration histogram: %w", err)
	}
	if m.ParsedNodes, err = meter.Int64Histogram(
		"toytree_parsed_nodes",
		metric.WithDescription("Node counts of parsed trees"),
	); err != nil {
		return nil, fmt.Errorf("create parsed nodes histogram: %w", err)
	}
	if m.MutationsTotal, err = meter.Int64Counter(
		"toytree_mutations_total",
		metric.WithDescription("Topology mutations by kind"),
	); err != nil {
		return nil, fmt.Errorf("create mutations counter: %w", err)
	}
	if m.DistanceTotal, err = meter.Int64Counter(
		"toytree_distance_total",
		metric.WithDescription("Distance computations by kind"),
	); err != nil {
		return nil, fmt.Errorf("create distance counter: %w", err)
	}
	if m.DistanceDuration, err = meter.Float64Histogram(
		"toytree_distance_duration_seconds",
		metric.WithDescription("Distance computation duration"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("create distance duration histogram: %w", err)
	}
	return m, nil
}

// Default returns process-wide metrics on the global meter, creating
// them on first use. Errors degrade to no-op instruments rather than
// failing the caller; telemetry must never break the data path.
func Default() *Metrics {
	defaultOnce.Do(func() {
		m, err := NewMetrics(otel.Meter("toytree"))
		if err != nil {
			m = &Metrics{}
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

// RecordParse records one parse attempt.
func (m *Metrics) RecordParse(ctx context.Context, dur time.Duration, nodes int, errClass string) {
	status := "ok"
	if errClass != "" {
		status = "error"
		if m.ParseErrorsTotal != nil {
			m.ParseErrorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("class", errClass)))
		}
	}
	if m.ParsesTotal != nil {
		m.ParsesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}
	if m.ParseDuration != nil {
		m.ParseDuration.Record(ctx, dur.Seconds())
	}
	if errClass == "" && m.ParsedNodes != nil {
		m.ParsedNodes.Record(ctx, int64(nodes))
	}
}

// RecordMutation records one topology mutation attempt.
func (m *Metrics) RecordMutation(ctx context.Context, kind string, err error) {
	if m.MutationsTotal == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.MutationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("status", status),
	))
}

// RecordDistance records one distance computation.
func (m *Metrics) RecordDistance(ctx context.Context, kind string, dur time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	if m.DistanceTotal != nil {
		m.DistanceTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("status", status),
		))
	}
	if m.DistanceDuration != nil {
		m.DistanceDuration.Record(ctx, dur.Seconds(),
			metric.WithAttributes(attribute.String("kind", kind)))
	}
}
