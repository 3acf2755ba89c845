// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ragterm/internal/logging"
	"github.com/jeranaias/ragterm/internal/model"
	"github.com/jeranaias/ragterm/internal/stream"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return New(server.URL + "/").WithLogger(logging.Discard())
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

// =============================================================================
// ENVELOPE TESTS
// =============================================================================

func TestClient_UnwrapsEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/workspaces/", r.URL.Path)
		writeJSON(w, 200, `{"success":true,"data":[{"id":"ws1","name":"Research"}]}`)
	})

	list, err := c.Workspaces(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Research", list[0].Name)
}

func TestClient_AcceptsBareBodies(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `[{"id":"t1","title":"First"}]`)
	})

	threads, err := c.Threads(context.Background(), "ws1")
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, "First", threads[0].Title)
}

func TestClient_FailureEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"success":false,"code":"CONFLICT_ERROR","message":"Workspace name taken"}`)
	})

	_, err := c.CreateWorkspace(context.Background(), WorkspaceInput{Name: "dup"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, CodeConflict, apiErr.Code)

	title, msg := apiErr.UserMessage()
	assert.Equal(t, "Conflict", title)
	assert.Equal(t, "Workspace name taken", msg)
}

func TestClient_StatusSentinels(t *testing.T) {
	tests := []struct {
		status int
		target error
	}{
		{http.StatusNotFound, ErrNotFound},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusBadGateway, ErrServer},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, "nope")
			})
			_, err := c.Tools(context.Background())
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}
}

func TestClient_DetailFallback(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 422, `{"detail":[{"msg":"field required"},{"msg":"too short"}]}`)
	})

	_, err := c.Tools(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 422, apiErr.Status)
	assert.Equal(t, "field required; too short", apiErr.Message)
}

func TestClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c := New(url).WithLogger(logging.Discard())
	_, err := c.Workspaces(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransport(err))
}

func TestClient_CanceledContextIsNotTransport(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Workspaces(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, IsTransport(err))
}

func TestUserMessage_Defaults(t *testing.T) {
	tests := []struct {
		code  string
		title string
	}{
		{CodeValidation, "Invalid input"},
		{CodeConflict, "Conflict"},
		{CodeDuplicateDetected, "Duplicate document"},
		{CodeInvalidFilename, "Invalid filename"},
		{CodeIllegalPath, "Illegal path"},
		{"SOMETHING_ELSE", "Request failed"},
		{"", "Request failed"},
	}

	for _, tt := range tests {
		title, msg := (&APIError{Status: 400, Code: tt.code}).UserMessage()
		assert.Equal(t, tt.title, title, tt.code)
		assert.NotEmpty(t, msg, tt.code)
	}
}

// =============================================================================
// CHAT TESTS
// =============================================================================

func TestStreamChat_DeliversEventsInOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Message)
		assert.Equal(t, "thread-1", req.ThreadID)

		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"type\":\"reasoning\",\"steps\":[\"look up\"]}\n\n")
		io.WriteString(w, "data: {\"type\":\"content\",\"delta\":\"Hi\"}\n\n")
		io.WriteString(w, "data: {\"type\":\"content\",\"delta\":\" there\"}\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
	})

	var kinds []model.EventKind
	var text strings.Builder
	err := c.StreamChat(context.Background(), ChatRequest{Message: "hello", ThreadID: "thread-1"}, func(ev model.Event) error {
		kinds = append(kinds, ev.Kind())
		if ce, ok := ev.(model.ContentEvent); ok {
			text.WriteString(ce.Delta)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []model.EventKind{model.KindReasoning, model.KindContent, model.KindContent}, kinds)
	assert.Equal(t, "Hi there", text.String())
}

func TestStreamChat_FatalError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"type\":\"content\",\"delta\":\"partial\"}\n\n")
		io.WriteString(w, "event: FatalError\ndata: {\"message\":\"model crashed\"}\n\n")
	})

	var got int
	err := c.StreamChat(context.Background(), ChatRequest{Message: "x"}, func(ev model.Event) error {
		got++
		return nil
	})

	var fatal *stream.FatalError
	require.True(t, errors.As(err, &fatal), "got %v", err)
	assert.Equal(t, "model crashed", fatal.Message)
	assert.Equal(t, 1, got)
}

func TestStreamChat_ErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 400, `{"success":false,"code":"VALIDATION_ERROR","message":"message is empty"}`)
	})

	err := c.StreamChat(context.Background(), ChatRequest{}, func(model.Event) error { return nil })
	assert.Equal(t, CodeValidation, CodeOf(err))
}

func TestHistory_AcceptsBothShapes(t *testing.T) {
	for name, body := range map[string]string{
		"array":   `[{"id":"m1","role":"user","content":"q"},{"id":"m2","role":"assistant","content":"a [1]"}]`,
		"wrapped": `{"success":true,"data":{"messages":[{"id":"m1","role":"user","content":"q"},{"id":"m2","role":"assistant","content":"a [1]"}]}}`,
	} {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/chat/history/t1", r.URL.Path)
				writeJSON(w, 200, body)
			})

			msgs, err := c.History(context.Background(), "t1")
			require.NoError(t, err)
			require.Len(t, msgs, 2)
			assert.Equal(t, model.RoleAssistant, msgs[1].Role)
		})
	}
}

func TestRenameThread(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/chat/threads/t1/title", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Renamed", body["title"])
		writeJSON(w, 200, `{"success":true}`)
	})

	require.NoError(t, c.RenameThread(context.Background(), "t1", "Renamed"))
}

// =============================================================================
// DOCUMENT TESTS
// =============================================================================

func TestUpload_SendsMultipartWithStrategy(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload", r.URL.Path)
		assert.Equal(t, "overwrite", r.URL.Query().Get("strategy"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "ws1", r.FormValue("workspace_id"))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "notes.md", header.Filename)
		assert.Equal(t, "# notes", string(data))

		writeJSON(w, 200, `{"success":true,"data":{"filename":"notes.md","task_id":"task-9"}}`)
	})

	res, err := c.Upload(context.Background(), UploadRequest{
		Filename:    "notes.md",
		Reader:      strings.NewReader("# notes"),
		WorkspaceID: "ws1",
		Strategy:    StrategyOverwrite,
	})
	require.NoError(t, err)
	assert.Equal(t, "task-9", res.TaskID)
}

func TestUpload_Duplicate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("strategy"))
		io.Copy(io.Discard, r.Body)
		writeJSON(w, 409, `{"success":false,"code":"DUPLICATE_DETECTED","message":"notes.md already exists",`+
			`"data":{"filename":"notes.md","existing_document":{"name":"notes.md","size":12}}}`)
	})

	_, err := c.Upload(context.Background(), UploadRequest{Filename: "notes.md", Reader: strings.NewReader("x")})
	require.True(t, IsDuplicate(err), "got %v", err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	var info DuplicateInfo
	require.NoError(t, apiErr.DecodeData(&info))
	require.NotNil(t, info.Existing)
	assert.Equal(t, int64(12), info.Existing.Size)
}

func TestUpload_RejectsInvalidNameLocally(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := c.Upload(context.Background(), UploadRequest{Filename: "../etc/passwd", Reader: strings.NewReader("x")})
	assert.Equal(t, CodeInvalidFilename, CodeOf(err))
	assert.False(t, called)
}

func TestValidateFilename(t *testing.T) {
	valid := []string{"report.pdf", "naïve résumé.txt", "a b (1).md", strings.Repeat("x", 255)}
	for _, name := range valid {
		assert.NoError(t, ValidateFilename(name), name)
	}

	invalid := []string{"", "   ", ".", "..", "a/b.txt", `a\b.txt`, "bad|name", "what?.md",
		"tab\tname", strings.Repeat("x", 256)}
	for _, name := range invalid {
		err := ValidateFilename(name)
		assert.Equal(t, CodeInvalidFilename, CodeOf(err), "%q", name)
	}
}

func TestNormalizeFilename_NFC(t *testing.T) {
	decomposed := "cafe\u0301.txt"
	assert.Equal(t, "caf\u00e9.txt", NormalizeFilename(decomposed))
}

// =============================================================================
// SETTINGS AND TASK TESTS
// =============================================================================

func TestGeneralSettings_ExcludesProviderKeys(t *testing.T) {
	settings := Settings{
		"chunk_size":      512,
		"top_k":           4,
		"openai_api_key":  "sk-redacted",
		"ollama_base_url": "http://x",
		"llm_provider":    "ollama",
		"embedding_model": "nomic",
		"show_reasoning":  true,
	}
	meta := map[string]SettingMetadata{
		"embedding_model": {Category: "provider"},
		"chunk_size":      {Category: "retrieval", Mutable: true},
	}

	assert.Equal(t, []string{"chunk_size", "show_reasoning", "top_k"}, GeneralSettings(settings, meta))
}

func TestListTasks_FiltersByType(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tasks/", r.URL.Path)
		assert.Equal(t, "ingestion", r.URL.Query().Get("type"))
		writeJSON(w, 200, `{"success":true,"data":[{"id":"t1","type":"ingestion","status":"processing","progress":40,`+
			`"created_at":"2025-03-01T11:59:00","metadata":{"filename":"a.pdf"}}]}`)
	})

	list, err := c.ListTasks(context.Background(), "ingestion")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a.pdf", list[0].Label())
	assert.Equal(t, 40, list[0].ClampedProgress())
	assert.False(t, list[0].CreatedAt.IsZero())
}

func TestMetrics_ReturnsRawText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		io.WriteString(w, "rag_requests_total 7\n")
	})

	text, err := c.Metrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "rag_requests_total 7\n", text)
}

func TestRateLimit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `[]`)
	})
	c.WithRateLimit(20, 1)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.Tools(context.Background())
		require.NoError(t, err)
	}
	// Two waits of 50ms each after the initial burst
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}
