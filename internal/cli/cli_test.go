// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ragterm/internal/testutil"
)

// =============================================================================
// HELPERS
// =============================================================================

// env isolates HOME and the state database, and points at a fake backend.
type env struct {
	t       *testing.T
	backend *testutil.FakeBackend
	home    string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	backend := testutil.NewFakeBackend(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("RAGTERM_STATE_PATH", filepath.Join(home, "state.db"))
	t.Setenv("RAGTERM_API_URL", backend.URL())
	t.Setenv("RAGTERM_LOG_LEVEL", "error")
	return &env{t: t, backend: backend, home: home}
}

type result struct {
	code int
	out  string
	err  string
}

func (e *env) run(args ...string) result {
	e.t.Helper()
	return e.runWith("", false, args...)
}

func (e *env) runWith(stdin string, interactive bool, args ...string) result {
	e.t.Helper()
	var out, errOut bytes.Buffer
	app := NewApp(strings.NewReader(stdin), &out, &errOut)
	app.Interactive = func() bool { return interactive }
	code := Run(context.Background(), app, args)
	return result{code: code, out: out.String(), err: errOut.String()}
}

func (e *env) writeFile(name, content string) string {
	e.t.Helper()
	path := filepath.Join(e.t.TempDir(), name)
	require.NoError(e.t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func decodeEnvelope(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &resp), raw)
	return resp
}

// =============================================================================
// ASK / CHAT
// =============================================================================

func TestAsk_StreamsAnswerWithSources(t *testing.T) {
	e := newEnv(t)

	r := e.run("ask", "hello")
	require.Equal(t, ExitSuccess, r.code, r.err)
	assert.Contains(t, r.out, "You said: hello [1]")
	assert.Contains(t, r.out, "Sources:")
	assert.Contains(t, r.out, "notes.md (chunk 1/3)")
	assert.Contains(t, r.err, "thread ")
}

func TestAsk_JSONEnvelope(t *testing.T) {
	e := newEnv(t)

	r := e.run("--json", "ask", "hello")
	require.Equal(t, ExitSuccess, r.code, r.err)

	resp := decodeEnvelope(t, r.out)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "ask", resp["command"])
	data := resp["data"].(map[string]interface{})
	assert.NotEmpty(t, data["thread_id"])
	msg := data["message"].(map[string]interface{})
	assert.Equal(t, "You said: hello [1]", msg["content"])
}

func TestAsk_BlankQuestionIsUsageError(t *testing.T) {
	e := newEnv(t)

	r := e.run("ask", "   ")
	assert.Equal(t, ExitUsageError, r.code)

	r = e.run("ask")
	assert.Equal(t, ExitUsageError, r.code)
}

func TestChat_REPLResolvesCitations(t *testing.T) {
	e := newEnv(t)

	r := e.runWith("hello\n/cite 1\n/cite 9\n/quit\n", false, "chat", "--new")
	require.Equal(t, ExitSuccess, r.code, r.err)
	assert.Contains(t, r.out, "You said: hello [1]")
	assert.Contains(t, r.out, "[1] notes.md (chunk 1/3)")
	assert.Contains(t, r.out, "excerpt")
	assert.Contains(t, r.out, "Source [9] is no longer available.")
}

func TestChat_RejectsJSON(t *testing.T) {
	e := newEnv(t)

	r := e.run("--json", "chat")
	assert.Equal(t, ExitUsageError, r.code)
}

func TestTUI_RequiresTerminal(t *testing.T) {
	e := newEnv(t)

	r := e.run("tui")
	assert.Equal(t, ExitGeneralError, r.code)
	assert.Contains(t, r.err, "not a terminal")

	r = e.run("--json", "tui")
	assert.Equal(t, ExitUsageError, r.code)
}

// =============================================================================
// DOCUMENTS
// =============================================================================

func TestDocs_UploadListDelete(t *testing.T) {
	e := newEnv(t)
	path := e.writeFile("notes.md", "# Notes\n\nQuarterly numbers.")

	r := e.run("docs", "upload", path)
	require.Equal(t, ExitSuccess, r.code, r.err)
	assert.Contains(t, r.out, "Queued notes.md")

	r = e.run("docs", "list")
	require.Equal(t, ExitSuccess, r.code, r.err)
	assert.Contains(t, r.out, "notes.md")
	assert.Contains(t, r.out, "1 document")

	r = e.run("docs", "delete", "notes.md")
	assert.Equal(t, ExitUsageError, r.code, "delete without --yes on a pipe must refuse")

	r = e.run("docs", "delete", "--yes", "notes.md")
	require.Equal(t, ExitSuccess, r.code, r.err)

	r = e.run("docs", "list")
	assert.Contains(t, r.out, "No documents.")
}

func TestDocs_DuplicateNeedsStrategyWhenNotInteractive(t *testing.T) {
	e := newEnv(t)
	path := e.writeFile("notes.md", "same content")

	require.Equal(t, ExitSuccess, e.run("docs", "upload", path).code)

	r := e.run("docs", "upload", path)
	assert.Equal(t, ExitGeneralError, r.code)
	assert.Contains(t, r.err, "already exists")

	r = e.run("docs", "upload", "--strategy", "use_existing", path)
	require.Equal(t, ExitSuccess, r.code, r.err)
	assert.Contains(t, r.out, "Using existing notes.md")
}

func TestDocs_DuplicatePromptRenames(t *testing.T) {
	e := newEnv(t)
	path := e.writeFile("notes.md", "same content")
	require.Equal(t, ExitSuccess, e.run("docs", "upload", path).code)

	r := e.runWith("2\n", true, "docs", "upload", path)
	require.Equal(t, ExitSuccess, r.code, r.err)
	assert.Contains(t, r.out, "Upload as a renamed copy (notes (1).md)")
	assert.Contains(t, r.out, "Queued notes (1).md")
}

func TestDocs_DuplicatePromptCancel(t *testing.T) {
	e := newEnv(t)
	path := e.writeFile("notes.md", "same content")
	require.Equal(t, ExitSuccess, e.run("docs", "upload", path).code)

	r := e.runWith("3\n", true, "docs", "upload", path)
	require.Equal(t, ExitSuccess, r.code, r.err)
	assert.Contains(t, r.out, "Cancelled.")
}

func TestDocs_InvalidFilenameRejectedBeforeUpload(t *testing.T) {
	e := newEnv(t)
	path := e.writeFile("bad|name.md", "text")

	r := e.run("docs", "upload", path)
	assert.Equal(t, ExitUsageError, r.code)
}

// =============================================================================
// EXIT CODES
// =============================================================================

func TestExitCode_TransportFailure(t *testing.T) {
	e := newEnv(t)
	t.Setenv("RAGTERM_API_URL", "http://127.0.0.1:1")

	r := e.run("docs", "list")
	assert.Equal(t, ExitNetworkError, r.code)
}

func TestExitCode_BackendError(t *testing.T) {
	e := newEnv(t)

	r := e.run("docs", "delete", "--yes", "missing.md")
	assert.Equal(t, ExitGeneralError, r.code)
}

func TestExitCode_JSONErrorEnvelope(t *testing.T) {
	e := newEnv(t)

	r := e.run("--json", "docs", "delete", "--yes", "missing.md")
	assert.Equal(t, ExitGeneralError, r.code)
	resp := decodeEnvelope(t, r.out)
	assert.Equal(t, false, resp["success"])
	assert.NotEmpty(t, resp["error"])
}

// =============================================================================
// WORKSPACES / THREADS / SEARCH
// =============================================================================

func TestWorkspaces_UseIsRemembered(t *testing.T) {
	e := newEnv(t)

	r := e.run("workspaces", "create", "Research")
	require.Equal(t, ExitSuccess, r.code, r.err)

	r = e.run("workspaces", "use", "research")
	require.Equal(t, ExitSuccess, r.code, r.err)
	assert.Contains(t, r.out, "Using workspace Research")

	r = e.run("--json", "status")
	require.Equal(t, ExitSuccess, r.code, r.err)
	data := decodeEnvelope(t, r.out)["data"].(map[string]interface{})
	assert.NotEmpty(t, data["workspace_id"])

	r = e.run("workspaces", "use", "--none")
	require.Equal(t, ExitSuccess, r.code, r.err)
	assert.Contains(t, r.out, "Using the default workspace")
}

func TestThreads_ExportRememberedThread(t *testing.T) {
	e := newEnv(t)
	require.Equal(t, ExitSuccess, e.run("ask", "hello").code)

	r := e.run("threads", "export", "--stdout")
	require.Equal(t, ExitSuccess, r.code, r.err)
	assert.Contains(t, r.out, "You said: hello [1]")
	assert.Contains(t, r.out, "notes.md")

	dir := t.TempDir()
	r = e.run("threads", "export", "--format", "json", "--output", dir)
	require.Equal(t, ExitSuccess, r.code, r.err)
	assert.Contains(t, r.out, "Exported to")
}

func TestSearch_RecordsRecentQueries(t *testing.T) {
	e := newEnv(t)
	path := e.writeFile("budget.md", "budget figures")
	require.Equal(t, ExitSuccess, e.run("docs", "upload", path).code)

	r := e.run("search", "budget")
	require.Equal(t, ExitSuccess, r.code, r.err)
	assert.Contains(t, r.out, "budget.md")

	r = e.run("search", "--recent")
	require.Equal(t, ExitSuccess, r.code, r.err)
	assert.Contains(t, r.out, "budget")

	require.Equal(t, ExitSuccess, e.run("search", "--clear-recent").code)
	r = e.run("search", "--recent")
	assert.Contains(t, r.out, "No recent searches.")

	r = e.run("search")
	assert.Equal(t, ExitUsageError, r.code)
}

// =============================================================================
// SETTINGS / TASKS
// =============================================================================

func TestSettings_SetAndShow(t *testing.T) {
	e := newEnv(t)

	r := e.run("settings", "set", "--global", "top_k=8")
	require.Equal(t, ExitSuccess, r.code, r.err)
	assert.Contains(t, r.out, "top_k = 8")

	r = e.run("settings", "show", "--global")
	require.Equal(t, ExitSuccess, r.code, r.err)
	assert.Contains(t, r.out, "top_k")
	assert.Contains(t, r.out, "8")
	assert.NotContains(t, r.out, "llm_provider")

	r = e.run("settings", "show", "--global", "--all")
	assert.Contains(t, r.out, "llm_provider")

	r = e.run("settings", "set", "not-a-pair")
	assert.Equal(t, ExitUsageError, r.code)
}

func TestTasks_ListAndDismiss(t *testing.T) {
	e := newEnv(t)
	path := e.writeFile("notes.md", "content to ingest")
	require.Equal(t, ExitSuccess, e.run("docs", "upload", path).code)

	r := e.run("--json", "tasks", "list", "--all")
	require.Equal(t, ExitSuccess, r.code, r.err)
	list := decodeEnvelope(t, r.out)["data"].([]interface{})
	require.Len(t, list, 1)
	id := list[0].(map[string]interface{})["id"].(string)

	r = e.run("tasks", "list")
	require.Equal(t, ExitSuccess, r.code, r.err)
	assert.Contains(t, r.out, id)

	r = e.run("tasks", "dismiss", id)
	require.Equal(t, ExitSuccess, r.code, r.err)
	assert.Contains(t, r.out, "Dismissed "+id)

	r = e.run("tasks", "list")
	assert.NotContains(t, r.out, id)
}

// =============================================================================
// STATUS / CONFIG
// =============================================================================

func TestStatus_ReportsBackend(t *testing.T) {
	e := newEnv(t)

	r := e.run("status")
	require.Equal(t, ExitSuccess, r.code, r.err)
	assert.Contains(t, r.out, "Backend")
	assert.Contains(t, r.out, "reachable")
	assert.Contains(t, r.out, e.backend.URL())
}

func TestStatus_UnreachableExitsOnce(t *testing.T) {
	e := newEnv(t)
	t.Setenv("RAGTERM_API_URL", "http://127.0.0.1:1")

	r := e.run("status")
	assert.Equal(t, ExitNetworkError, r.code)
	assert.Contains(t, r.out, "unreachable")
	assert.NotContains(t, r.err, "[ERROR]")
}

func TestConfig_SetGet(t *testing.T) {
	e := newEnv(t)

	r := e.run("config", "set", "ui.theme", "dark")
	require.Equal(t, ExitSuccess, r.code, r.err)

	r = e.run("config", "get", "ui.theme")
	require.Equal(t, ExitSuccess, r.code, r.err)
	assert.Equal(t, "dark", strings.TrimSpace(r.out))

	data, err := os.ReadFile(filepath.Join(e.home, ".ragterm", "config.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "dark")
	assert.NotContains(t, string(data), e.backend.URL(), "environment overrides must not be persisted")

	r = e.run("config", "set", "ui.theme", "purple")
	assert.NotEqual(t, ExitSuccess, r.code)
}

func TestConfig_InitRefusesOverwrite(t *testing.T) {
	e := newEnv(t)

	require.Equal(t, ExitSuccess, e.run("config", "init").code)
	r := e.run("config", "init")
	assert.Equal(t, ExitGeneralError, r.code)
	require.Equal(t, ExitSuccess, e.run("config", "init", "--force").code)
}
