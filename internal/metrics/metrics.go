// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics parses the backend's Prometheus text exposition into a
// queryable snapshot for the metrics dashboard.
package metrics

import (
	"fmt"
	"sort"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Snapshot is one parsed scrape.
type Snapshot struct {
	families map[string]*dto.MetricFamily
}

// Parse decodes Prometheus text format.
func Parse(text string) (*Snapshot, error) {
	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("parse metrics: %w", err)
	}
	return &Snapshot{families: families}, nil
}

// Names returns the metric family names in sorted order.
func (s *Snapshot) Names() []string {
	names := make([]string, 0, len(s.families))
	for name := range s.families {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether the family exists.
func (s *Snapshot) Has(name string) bool {
	_, ok := s.families[name]
	return ok
}

// Help returns the family's HELP text.
func (s *Snapshot) Help(name string) string {
	if mf, ok := s.families[name]; ok {
		return mf.GetHelp()
	}
	return ""
}

// Value sums every sample of name whose labels match the given key/value
// pairs. Counters, gauges and untyped metrics contribute their value;
// histograms and summaries contribute their sample sum.
func (s *Snapshot) Value(name string, labels ...string) (float64, bool) {
	return s.aggregate(name, labels, func(mf *dto.MetricFamily, m *dto.Metric) float64 {
		switch mf.GetType() {
		case dto.MetricType_COUNTER:
			return m.GetCounter().GetValue()
		case dto.MetricType_GAUGE:
			return m.GetGauge().GetValue()
		case dto.MetricType_HISTOGRAM:
			return m.GetHistogram().GetSampleSum()
		case dto.MetricType_SUMMARY:
			return m.GetSummary().GetSampleSum()
		default:
			return m.GetUntyped().GetValue()
		}
	})
}

// Count sums the observation counts of a histogram or summary.
func (s *Snapshot) Count(name string, labels ...string) (float64, bool) {
	return s.aggregate(name, labels, func(mf *dto.MetricFamily, m *dto.Metric) float64 {
		switch mf.GetType() {
		case dto.MetricType_HISTOGRAM:
			return float64(m.GetHistogram().GetSampleCount())
		case dto.MetricType_SUMMARY:
			return float64(m.GetSummary().GetSampleCount())
		default:
			return 0
		}
	})
}

// Mean returns sum/count for a histogram or summary.
func (s *Snapshot) Mean(name string, labels ...string) (float64, bool) {
	sum, ok := s.Value(name, labels...)
	if !ok {
		return 0, false
	}
	count, _ := s.Count(name, labels...)
	if count == 0 {
		return 0, false
	}
	return sum / count, true
}

func (s *Snapshot) aggregate(name string, labels []string, value func(*dto.MetricFamily, *dto.Metric) float64) (float64, bool) {
	mf, ok := s.families[name]
	if !ok {
		return 0, false
	}

	want := make(map[string]string, len(labels)/2)
	for i := 0; i+1 < len(labels); i += 2 {
		want[labels[i]] = labels[i+1]
	}

	var total float64
	matched := false
	for _, m := range mf.GetMetric() {
		if !hasLabels(m, want) {
			continue
		}
		total += value(mf, m)
		matched = true
	}
	return total, matched
}

func hasLabels(m *dto.Metric, want map[string]string) bool {
	if len(want) == 0 {
		return true
	}
	found := 0
	for _, lp := range m.GetLabel() {
		if v, ok := want[lp.GetName()]; ok {
			if v != lp.GetValue() {
				return false
			}
			found++
		}
	}
	return found == len(want)
}
