// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `# HELP rag_requests_total Chat requests served.
# TYPE rag_requests_total counter
rag_requests_total{endpoint="stream",status="ok"} 40
rag_requests_total{endpoint="stream",status="error"} 2
rag_requests_total{endpoint="search",status="ok"} 1500
# HELP rag_request_latency_seconds Request latency.
# TYPE rag_request_latency_seconds histogram
rag_request_latency_seconds_bucket{le="0.5"} 3
rag_request_latency_seconds_bucket{le="1"} 4
rag_request_latency_seconds_bucket{le="+Inf"} 4
rag_request_latency_seconds_sum 2
rag_request_latency_seconds_count 4
# TYPE rag_documents_indexed gauge
rag_documents_indexed 12
`

func TestParse_Value(t *testing.T) {
	snap, err := Parse(sample)
	require.NoError(t, err)

	v, ok := snap.Value("rag_requests_total")
	assert.True(t, ok)
	assert.Equal(t, 1542.0, v)

	v, ok = snap.Value("rag_requests_total", "endpoint", "stream")
	assert.True(t, ok)
	assert.Equal(t, 42.0, v)

	v, ok = snap.Value("rag_requests_total", "endpoint", "stream", "status", "error")
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)

	_, ok = snap.Value("rag_requests_total", "endpoint", "upload")
	assert.False(t, ok)

	mean, ok := snap.Mean("rag_request_latency_seconds")
	assert.True(t, ok)
	assert.Equal(t, 0.5, mean)

	assert.Equal(t, "Chat requests served.", snap.Help("rag_requests_total"))
	assert.Equal(t, []string{"rag_documents_indexed", "rag_request_latency_seconds", "rag_requests_total"}, snap.Names())
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse("rag_requests_total{oops 1\n")
	assert.Error(t, err)
}

func TestRender_MissingIsUnavailable(t *testing.T) {
	snap, err := Parse(sample)
	require.NoError(t, err)

	rows := snap.Render(Dashboard)
	byMetric := map[string]Row{}
	for _, r := range rows {
		byMetric[r.Metric] = r
	}

	assert.Equal(t, "1,542", byMetric["rag_requests_total"].Value)
	assert.Equal(t, "500ms", byMetric["rag_request_latency_seconds"].Value)
	assert.Equal(t, "12", byMetric["rag_documents_indexed"].Value)
	assert.Equal(t, Unavailable, byMetric["rag_chunks_indexed"].Value)
	assert.False(t, byMetric["rag_chunks_indexed"].Found)
}
