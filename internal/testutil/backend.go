// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package testutil provides an in-memory backend for end-to-end tests.
//
// FakeBackend serves the same routes and envelopes as the real RAG server,
// streams scripted chat replies over SSE and exports Prometheus metrics.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jeranaias/ragterm/internal/api"
	"github.com/jeranaias/ragterm/internal/model"
	"github.com/jeranaias/ragterm/internal/tasks"
)

// Frame is one scripted SSE frame.
type Frame struct {
	Event string
	Data  string
}

// Script produces the frames streamed for one chat request.
type Script func(req api.ChatRequest) []Frame

// EchoScript answers with one reasoning step, two content deltas and a
// single source.
func EchoScript(req api.ChatRequest) []Frame {
	return []Frame{
		{Data: `{"type":"reasoning","steps":["Searching documents"]}`},
		{Data: `{"type":"content","delta":"You said: "}`},
		{Data: mustJSON(map[string]string{"type": "content", "delta": req.Message + " [1]"})},
		{Data: `{"type":"sources","sources":[{"id":1,"name":"notes.md","content":"excerpt","chunk_index":0,"chunk_count":3}]}`},
	}
}

// FakeBackend is a gorilla/mux router over in-memory state.
type FakeBackend struct {
	Server *httptest.Server

	mu         sync.Mutex
	script     Script
	now        func() time.Time
	seq        int
	workspaces map[string]*api.Workspace
	documents  map[string]*api.Document // key: workspace/name
	threads    map[string]*api.Thread
	history    map[string][]model.Message
	settings   map[string]api.Settings // key: workspace id, "" for global
	metadata   map[string]api.SettingMetadata
	tools      map[string]*api.Tool
	tasks      map[string]*tasks.Task
	shared     map[string][]string

	registry  *prometheus.Registry
	requests  *prometheus.CounterVec
	latency   prometheus.Histogram
	docsGauge prometheus.Gauge
}

// NewFakeBackend starts a backend that closes with the test.
func NewFakeBackend(t testing.TB) *FakeBackend {
	t.Helper()

	b := &FakeBackend{
		script:     EchoScript,
		now:        time.Now,
		workspaces: make(map[string]*api.Workspace),
		documents:  make(map[string]*api.Document),
		threads:    make(map[string]*api.Thread),
		history:    make(map[string][]model.Message),
		settings:   map[string]api.Settings{"": {"top_k": float64(4), "chunk_size": float64(512), "llm_provider": "ollama"}},
		metadata: map[string]api.SettingMetadata{
			"top_k":        {Mutable: true, Category: "retrieval", Description: "Chunks retrieved per question"},
			"chunk_size":   {Mutable: true, Category: "ingestion", Description: "Characters per chunk"},
			"llm_provider": {Mutable: true, Category: "provider", Description: "Model provider", Options: []string{"ollama", "openai"}},
		},
		tools:  make(map[string]*api.Tool),
		tasks:  make(map[string]*tasks.Task),
		shared: make(map[string][]string),
	}
	b.initMetrics()

	b.Server = httptest.NewServer(b.Router())
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the server's base URL.
func (b *FakeBackend) URL() string {
	return b.Server.URL
}

// Client returns an api.Client bound to the server.
func (b *FakeBackend) Client() *api.Client {
	return api.New(b.Server.URL)
}

// SetScript replaces the chat reply script.
func (b *FakeBackend) SetScript(s Script) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.script = s
}

// SetClock fixes the backend's notion of now.
func (b *FakeBackend) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

func (b *FakeBackend) initMetrics() {
	b.registry = prometheus.NewRegistry()
	b.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rag_requests_total",
		Help: "Chat requests served.",
	}, []string{"endpoint"})
	b.latency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rag_request_latency_seconds",
		Help:    "Chat request latency.",
		Buckets: prometheus.DefBuckets,
	})
	b.docsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rag_documents_indexed",
		Help: "Documents currently indexed.",
	})
	b.registry.MustRegister(b.requests, b.latency, b.docsGauge)
}

// Router returns the backend's routes.
func (b *FakeBackend) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", b.health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(b.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	r.HandleFunc("/chat/stream", b.chatStream).Methods(http.MethodPost)
	r.HandleFunc("/chat/threads", b.listThreads).Methods(http.MethodGet)
	r.HandleFunc("/chat/threads", b.updateThreads).Methods(http.MethodPatch)
	r.HandleFunc("/chat/threads/{id}/title", b.renameThread).Methods(http.MethodPatch)
	r.HandleFunc("/chat/threads/{id}", b.deleteThread).Methods(http.MethodDelete)
	r.HandleFunc("/chat/history/{id}", b.getHistory).Methods(http.MethodGet)

	r.HandleFunc("/documents", b.listDocuments).Methods(http.MethodGet)
	r.HandleFunc("/documents/{name}", b.getDocument).Methods(http.MethodGet)
	r.HandleFunc("/documents/{name}", b.deleteDocument).Methods(http.MethodDelete)
	r.HandleFunc("/upload", b.upload).Methods(http.MethodPost)
	r.HandleFunc("/upload-arxiv", b.uploadArxiv).Methods(http.MethodPost)

	r.HandleFunc("/settings/", b.getSettings).Methods(http.MethodGet)
	r.HandleFunc("/settings/", b.updateSettings).Methods(http.MethodPut)
	r.HandleFunc("/settings/metadata", b.getMetadata).Methods(http.MethodGet)

	r.HandleFunc("/workspaces/", b.listWorkspaces).Methods(http.MethodGet)
	r.HandleFunc("/workspaces/", b.createWorkspace).Methods(http.MethodPost)
	r.HandleFunc("/workspaces/{id}", b.updateWorkspace).Methods(http.MethodPut)
	r.HandleFunc("/workspaces/{id}", b.deleteWorkspace).Methods(http.MethodDelete)
	r.HandleFunc("/workspaces/{id}/details", b.workspaceDetails).Methods(http.MethodGet)
	r.HandleFunc("/workspaces/{id}/share", b.shareDocument).Methods(http.MethodPost)

	r.HandleFunc("/tools/", b.listTools).Methods(http.MethodGet)
	r.HandleFunc("/tools/", b.createTool).Methods(http.MethodPost)
	r.HandleFunc("/tools/{id}/toggle", b.toggleTool).Methods(http.MethodPatch)
	r.HandleFunc("/tools/{id}", b.deleteTool).Methods(http.MethodDelete)

	r.HandleFunc("/tasks/", b.listTasks).Methods(http.MethodGet)
	r.HandleFunc("/tasks/{id}", b.getTask).Methods(http.MethodGet)
	r.HandleFunc("/tasks/{id}/retry", b.retryTask).Methods(http.MethodPost)
	r.HandleFunc("/tasks/{id}/cancel", b.cancelTask).Methods(http.MethodPost)

	r.HandleFunc("/search", b.search).Methods(http.MethodGet)
	return r
}

// =============================================================================
// TASK CONTROL
// =============================================================================

// SetTaskStatus moves a task, as the ingestion worker would.
func (b *FakeBackend) SetTaskStatus(id string, status tasks.Status, progress int, errorCode string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.tasks[id]; ok {
		t.Status = status
		t.Progress = progress
		t.ErrorCode = errorCode
		t.UpdatedAt = model.Timestamp{Time: b.now()}
		if status == tasks.StatusFailed && t.Message == "" {
			t.Message = "Parsing failed."
		}
	}
}

// AddTask inserts a task directly.
func (b *FakeBackend) AddTask(t tasks.Task) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tt := t.Clone()
	b.tasks[t.ID] = &tt
}

// Task returns a copy of a stored task.
func (b *FakeBackend) Task(id string) (tasks.Task, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tasks[id]
	if !ok {
		return tasks.Task{}, false
	}
	return t.Clone(), true
}

// History returns the stored messages of a thread.
func (b *FakeBackend) History(threadID string) []model.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Message(nil), b.history[threadID]...)
}

// =============================================================================
// HELPERS
// =============================================================================

func (b *FakeBackend) nextID(prefix string) string {
	b.seq++
	return fmt.Sprintf("%s-%d", prefix, b.seq)
}

func docKey(workspaceID, name string) string {
	return workspaceID + "/" + name
}

func (b *FakeBackend) docsIn(workspaceID string) []api.Document {
	var out []api.Document
	for _, d := range b.documents {
		if d.WorkspaceID == workspaceID {
			out = append(out, *d)
		}
	}
	for _, name := range b.shared[workspaceID] {
		for _, d := range b.documents {
			if d.Name == name && d.WorkspaceID != workspaceID {
				out = append(out, *d)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func mustJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": data})
}

func writeFail(w http.ResponseWriter, status int, code, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]interface{}{"success": false, "code": code, "message": message}
	if data != nil {
		body["data"] = data
	}
	_ = json.NewEncoder(w).Encode(body)
}

func writeNotFound(w http.ResponseWriter, what string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": what + " not found"})
}
