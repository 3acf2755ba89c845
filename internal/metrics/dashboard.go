// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package metrics

import (
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

// Unavailable is shown for metrics the backend did not report.
const Unavailable = "n/a"

// Aggregation selects how a panel reduces its samples.
type Aggregation int

const (
	// Total sums values (or histogram sums)
	Total Aggregation = iota
	// Average divides the histogram sum by its count
	Average
)

// Format selects how a panel renders its number.
type Format int

const (
	Plain Format = iota
	Seconds
	Bytes
)

// Panel is one dashboard line.
type Panel struct {
	Label  string
	Metric string
	Agg    Aggregation
	Format Format
}

// Row is a rendered panel.
type Row struct {
	Label  string
	Metric string
	Value  string
	Found  bool
}

// Dashboard lists the panels the metrics command displays.
var Dashboard = []Panel{
	{Label: "Chat requests", Metric: "rag_requests_total"},
	{Label: "Mean latency", Metric: "rag_request_latency_seconds", Agg: Average, Format: Seconds},
	{Label: "Documents indexed", Metric: "rag_documents_indexed"},
	{Label: "Chunks indexed", Metric: "rag_chunks_indexed"},
	{Label: "Ingestion failures", Metric: "rag_ingestion_failures_total"},
	{Label: "Active tasks", Metric: "rag_tasks_active"},
	{Label: "Resident memory", Metric: "process_resident_memory_bytes", Format: Bytes},
}

// Render evaluates panels against the snapshot.
func (s *Snapshot) Render(panels []Panel) []Row {
	rows := make([]Row, 0, len(panels))
	for _, p := range panels {
		var (
			v  float64
			ok bool
		)
		if p.Agg == Average {
			v, ok = s.Mean(p.Metric)
		} else {
			v, ok = s.Value(p.Metric)
		}

		row := Row{Label: p.Label, Metric: p.Metric, Value: Unavailable, Found: ok}
		if ok {
			row.Value = formatValue(v, p.Format)
		}
		rows = append(rows, row)
	}
	return rows
}

func formatValue(v float64, f Format) string {
	switch f {
	case Seconds:
		return time.Duration(v * float64(time.Second)).Round(time.Millisecond).String()
	case Bytes:
		return humanize.Bytes(uint64(v))
	}
	if v == float64(int64(v)) {
		return humanize.Comma(int64(v))
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
