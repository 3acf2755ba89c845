// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package testutil

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/jeranaias/ragterm/internal/api"
	"github.com/jeranaias/ragterm/internal/model"
	"github.com/jeranaias/ragterm/internal/stream"
	"github.com/jeranaias/ragterm/internal/tasks"
)

func (b *FakeBackend) health(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// CHAT
// =============================================================================

func (b *FakeBackend) chatStream(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req api.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, api.CodeValidation, "invalid json", nil)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeFail(w, http.StatusBadRequest, api.CodeValidation, "message is required", nil)
		return
	}

	b.mu.Lock()
	thread, ok := b.threads[req.ThreadID]
	if !ok {
		title := req.Message
		if len([]rune(title)) > 40 {
			title = string([]rune(title)[:40])
		}
		thread = &api.Thread{ID: req.ThreadID, Title: title, WorkspaceID: req.WorkspaceID,
			CreatedAt: model.Timestamp{Time: b.now()}}
		b.threads[req.ThreadID] = thread
	}
	thread.UpdatedAt = model.Timestamp{Time: b.now()}
	b.history[req.ThreadID] = append(b.history[req.ThreadID], model.NewUserMessage(req.Message))
	frames := b.script(req)
	b.mu.Unlock()

	b.requests.WithLabelValues("stream").Inc()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	acc := model.NewAccumulator(nil)
	fatal := false
	for _, f := range frames {
		if r.Context().Err() != nil {
			break
		}
		if f.Event != "" {
			fmt.Fprintf(w, "event: %s\n", f.Event)
		}
		for _, line := range strings.Split(f.Data, "\n") {
			fmt.Fprintf(w, "data: %s\n", line)
		}
		fmt.Fprint(w, "\n")
		if flusher != nil {
			flusher.Flush()
		}

		if f.Event == stream.FatalEventName {
			fatal = true
			break
		}
		if ev, err := stream.Decode(stream.RawEvent{Name: f.Event, Data: []byte(f.Data)}); err == nil {
			_, _ = acc.Apply(ev)
		}
	}

	// Record before [DONE] so callers see the turn once their stream ends
	if msg, ok := acc.Finalize(); ok {
		b.mu.Lock()
		b.history[req.ThreadID] = append(b.history[req.ThreadID], msg)
		b.mu.Unlock()
	}
	b.latency.Observe(time.Since(start).Seconds())
	if fatal {
		return
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	if flusher != nil {
		flusher.Flush()
	}
}

func (b *FakeBackend) listThreads(w http.ResponseWriter, r *http.Request) {
	ws := r.URL.Query().Get("workspace_id")

	b.mu.Lock()
	out := make([]api.Thread, 0, len(b.threads))
	for _, t := range b.threads {
		if ws != "" && t.WorkspaceID != ws {
			continue
		}
		tt := *t
		tt.MessageCount = len(b.history[t.ID])
		out = append(out, tt)
	}
	b.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt.Time) })
	writeData(w, http.StatusOK, out)
}

func (b *FakeBackend) updateThreads(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Threads []api.ThreadUpdate `json:"threads"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeFail(w, http.StatusBadRequest, api.CodeValidation, "invalid json", nil)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range body.Threads {
		t, ok := b.threads[u.ID]
		if !ok {
			continue
		}
		if u.Title != nil {
			t.Title = *u.Title
		}
		if u.WorkspaceID != nil {
			t.WorkspaceID = *u.WorkspaceID
		}
		t.UpdatedAt = model.Timestamp{Time: b.now()}
	}
	writeData(w, http.StatusOK, nil)
}

func (b *FakeBackend) renameThread(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Title) == "" {
		writeFail(w, http.StatusBadRequest, api.CodeValidation, "title is required", nil)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.threads[id]
	if !ok {
		writeNotFound(w, "thread")
		return
	}
	t.Title = body.Title
	writeData(w, http.StatusOK, t)
}

func (b *FakeBackend) deleteThread(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.threads[id]; !ok {
		writeNotFound(w, "thread")
		return
	}
	delete(b.threads, id)
	delete(b.history, id)
	writeData(w, http.StatusOK, nil)
}

func (b *FakeBackend) getHistory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	b.mu.Lock()
	_, known := b.threads[id]
	msgs := append([]model.Message{}, b.history[id]...)
	b.mu.Unlock()

	if !known {
		writeNotFound(w, "thread")
		return
	}
	writeData(w, http.StatusOK, map[string]interface{}{"messages": msgs})
}

// =============================================================================
// DOCUMENTS
// =============================================================================

func (b *FakeBackend) listDocuments(w http.ResponseWriter, r *http.Request) {
	ws := r.URL.Query().Get("workspace_id")

	b.mu.Lock()
	docs := b.docsIn(ws)
	b.mu.Unlock()

	if docs == nil {
		docs = []api.Document{}
	}
	for i := range docs {
		docs[i].Content = ""
	}
	writeData(w, http.StatusOK, docs)
}

func (b *FakeBackend) findDocLocked(name, ws string) (*api.Document, string) {
	if ws != "" {
		key := docKey(ws, name)
		return b.documents[key], key
	}
	for key, d := range b.documents {
		if d.Name == name {
			return d, key
		}
	}
	return nil, ""
}

func (b *FakeBackend) getDocument(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	b.mu.Lock()
	doc, _ := b.findDocLocked(name, r.URL.Query().Get("workspace_id"))
	var out api.Document
	if doc != nil {
		out = *doc
	}
	b.mu.Unlock()

	if doc == nil {
		writeNotFound(w, "document")
		return
	}
	writeData(w, http.StatusOK, out)
}

func (b *FakeBackend) deleteDocument(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	b.mu.Lock()
	defer b.mu.Unlock()
	doc, key := b.findDocLocked(name, r.URL.Query().Get("workspace_id"))
	if doc == nil {
		writeNotFound(w, "document")
		return
	}
	delete(b.documents, key)
	b.docsGauge.Set(float64(len(b.documents)))
	writeData(w, http.StatusOK, nil)
}

func (b *FakeBackend) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeFail(w, http.StatusBadRequest, api.CodeValidation, "expected multipart form", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeFail(w, http.StatusBadRequest, api.CodeValidation, "file is required", nil)
		return
	}
	defer file.Close()

	if strings.Contains(header.Filename, "..") {
		writeFail(w, http.StatusBadRequest, api.CodeIllegalPath, "path escapes the upload directory", nil)
		return
	}
	if err := api.ValidateFilename(header.Filename); err != nil {
		writeFail(w, http.StatusBadRequest, api.CodeInvalidFilename, err.Error(), nil)
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		writeFail(w, http.StatusBadRequest, api.CodeValidation, "could not read file", nil)
		return
	}

	strategy, ok := api.ParseStrategy(r.URL.Query().Get("strategy"))
	if !ok {
		writeFail(w, http.StatusBadRequest, api.CodeValidation, "unknown strategy", nil)
		return
	}

	res, status, failure := b.ingest(api.NormalizeFilename(header.Filename), r.FormValue("workspace_id"), content, strategy)
	if failure != nil {
		writeFail(w, status, failure.Code, failure.Message, failure.Data)
		return
	}
	writeData(w, status, res)
}

type ingestFailure struct {
	Code    string
	Message string
	Data    interface{}
}

// ingest stores a document, resolving duplicates by strategy.
func (b *FakeBackend) ingest(name, ws string, content []byte, strategy api.Strategy) (*api.UploadResult, int, *ingestFailure) {
	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])

	b.mu.Lock()
	defer b.mu.Unlock()

	existing, matchedBy := b.documents[docKey(ws, name)], "name"
	if existing == nil {
		for _, d := range b.documents {
			if d.WorkspaceID == ws && d.ContentHash == hash {
				existing, matchedBy = d, "content"
				break
			}
		}
	}

	if existing != nil {
		switch strategy {
		case api.StrategyNone:
			return nil, http.StatusConflict, &ingestFailure{
				Code:    api.CodeDuplicateDetected,
				Message: fmt.Sprintf("%s already exists", name),
				Data: api.DuplicateInfo{
					Filename:    name,
					Existing:    existing,
					SuggestedAs: b.uniqueNameLocked(ws, name),
					MatchedBy:   matchedBy,
				},
			}
		case api.StrategyUseExisting:
			doc := *existing
			return &api.UploadResult{Filename: doc.Name, Status: "existing", Document: &doc}, http.StatusOK, nil
		case api.StrategyRename:
			name = b.uniqueNameLocked(ws, name)
		case api.StrategyOverwrite:
			delete(b.documents, docKey(existing.WorkspaceID, existing.Name))
		}
	}

	now := model.Timestamp{Time: b.now()}
	doc := &api.Document{
		ID:          b.nextID("doc"),
		Name:        name,
		WorkspaceID: ws,
		Size:        int64(len(content)),
		ContentType: contentType(name),
		ChunkCount:  1 + len(content)/512,
		Status:      "processing",
		ContentHash: hash,
		Content:     string(content),
		UploadedAt:  now,
	}
	b.documents[docKey(ws, name)] = doc
	b.docsGauge.Set(float64(len(b.documents)))

	task := &tasks.Task{
		ID:          b.nextID("task"),
		Type:        tasks.DefaultType,
		Status:      tasks.StatusPending,
		Metadata:    map[string]interface{}{"filename": name},
		WorkspaceID: ws,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	b.tasks[task.ID] = task

	out := *doc
	out.Content = ""
	return &api.UploadResult{Filename: name, Status: "queued", TaskID: task.ID, Document: &out}, http.StatusOK, nil
}

func (b *FakeBackend) uniqueNameLocked(ws, name string) string {
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, n, ext)
		if _, taken := b.documents[docKey(ws, candidate)]; !taken {
			return candidate
		}
	}
}

func contentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".md":
		return "text/markdown"
	case ".txt":
		return "text/plain"
	}
	return "application/octet-stream"
}

func (b *FakeBackend) uploadArxiv(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL         string `json:"url"`
		WorkspaceID string `json:"workspace_id"`
		Strategy    string `json:"strategy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !strings.Contains(body.URL, "arxiv.org/") {
		writeFail(w, http.StatusBadRequest, api.CodeValidation, "an arxiv.org URL is required", nil)
		return
	}
	strategy, ok := api.ParseStrategy(body.Strategy)
	if !ok {
		writeFail(w, http.StatusBadRequest, api.CodeValidation, "unknown strategy", nil)
		return
	}

	name := path.Base(strings.TrimSuffix(body.URL, "/"))
	if !strings.HasSuffix(name, ".pdf") {
		name += ".pdf"
	}
	res, status, failure := b.ingest(name, body.WorkspaceID, []byte(body.URL), strategy)
	if failure != nil {
		writeFail(w, status, failure.Code, failure.Message, failure.Data)
		return
	}
	writeData(w, status, res)
}

// =============================================================================
// SETTINGS
// =============================================================================

func (b *FakeBackend) mergedSettingsLocked(ws string) api.Settings {
	out := api.Settings{}
	for k, v := range b.settings[""] {
		out[k] = v
	}
	if ws != "" {
		for k, v := range b.settings[ws] {
			out[k] = v
		}
	}
	return out
}

func (b *FakeBackend) getSettings(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	out := b.mergedSettingsLocked(r.URL.Query().Get("workspace_id"))
	b.mu.Unlock()
	writeData(w, http.StatusOK, out)
}

func (b *FakeBackend) updateSettings(w http.ResponseWriter, r *http.Request) {
	ws := r.URL.Query().Get("workspace_id")

	var patch api.Settings
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeFail(w, http.StatusBadRequest, api.CodeValidation, "invalid json", nil)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for key := range patch {
		meta, ok := b.metadata[key]
		if !ok {
			writeFail(w, http.StatusBadRequest, api.CodeValidation, fmt.Sprintf("unknown setting %q", key), nil)
			return
		}
		if !meta.Mutable {
			writeFail(w, http.StatusBadRequest, api.CodeValidation, fmt.Sprintf("setting %q is read-only", key), nil)
			return
		}
	}

	if b.settings[ws] == nil {
		b.settings[ws] = api.Settings{}
	}
	for k, v := range patch {
		b.settings[ws][k] = v
	}
	writeData(w, http.StatusOK, b.mergedSettingsLocked(ws))
}

func (b *FakeBackend) getMetadata(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	out := make(map[string]api.SettingMetadata, len(b.metadata))
	for k, v := range b.metadata {
		out[k] = v
	}
	b.mu.Unlock()
	writeData(w, http.StatusOK, out)
}

// =============================================================================
// WORKSPACES
// =============================================================================

func (b *FakeBackend) listWorkspaces(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	out := make([]api.Workspace, 0, len(b.workspaces))
	for _, ws := range b.workspaces {
		out = append(out, *ws)
	}
	b.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	writeData(w, http.StatusOK, out)
}

func (b *FakeBackend) nameTakenLocked(name, exceptID string) bool {
	for id, ws := range b.workspaces {
		if id != exceptID && strings.EqualFold(ws.Name, name) {
			return true
		}
	}
	return false
}

func (b *FakeBackend) createWorkspace(w http.ResponseWriter, r *http.Request) {
	var in api.WorkspaceInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || strings.TrimSpace(in.Name) == "" {
		writeFail(w, http.StatusBadRequest, api.CodeValidation, "name is required", nil)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.nameTakenLocked(in.Name, "") {
		writeFail(w, http.StatusConflict, api.CodeConflict, fmt.Sprintf("workspace %q already exists", in.Name), nil)
		return
	}
	now := model.Timestamp{Time: b.now()}
	ws := &api.Workspace{ID: b.nextID("ws"), Name: in.Name, Description: in.Description, CreatedAt: now, UpdatedAt: now}
	b.workspaces[ws.ID] = ws
	writeData(w, http.StatusCreated, ws)
}

func (b *FakeBackend) updateWorkspace(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var in api.WorkspaceInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeFail(w, http.StatusBadRequest, api.CodeValidation, "invalid json", nil)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	ws, ok := b.workspaces[id]
	if !ok {
		writeNotFound(w, "workspace")
		return
	}
	if in.Name != "" {
		if b.nameTakenLocked(in.Name, id) {
			writeFail(w, http.StatusConflict, api.CodeConflict, fmt.Sprintf("workspace %q already exists", in.Name), nil)
			return
		}
		ws.Name = in.Name
	}
	if in.Description != "" {
		ws.Description = in.Description
	}
	ws.UpdatedAt = model.Timestamp{Time: b.now()}
	writeData(w, http.StatusOK, ws)
}

func (b *FakeBackend) deleteWorkspace(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.workspaces[id]; !ok {
		writeNotFound(w, "workspace")
		return
	}
	delete(b.workspaces, id)
	delete(b.settings, id)
	delete(b.shared, id)
	for key, d := range b.documents {
		if d.WorkspaceID == id {
			delete(b.documents, key)
		}
	}
	for tid, t := range b.threads {
		if t.WorkspaceID == id {
			delete(b.threads, tid)
			delete(b.history, tid)
		}
	}
	b.docsGauge.Set(float64(len(b.documents)))
	writeData(w, http.StatusOK, nil)
}

func (b *FakeBackend) workspaceDetails(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	b.mu.Lock()
	defer b.mu.Unlock()
	ws, ok := b.workspaces[id]
	if !ok {
		writeNotFound(w, "workspace")
		return
	}

	details := api.WorkspaceDetails{Workspace: *ws, Documents: b.docsIn(id), Settings: b.settings[id]}
	for _, t := range b.threads {
		if t.WorkspaceID == id {
			details.Threads = append(details.Threads, *t)
		}
	}
	details.DocumentCount = len(details.Documents)
	details.ThreadCount = len(details.Threads)
	writeData(w, http.StatusOK, details)
}

func (b *FakeBackend) shareDocument(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body struct {
		DocumentName string `json:"document_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.DocumentName == "" {
		writeFail(w, http.StatusBadRequest, api.CodeValidation, "document_name is required", nil)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.workspaces[id]; !ok {
		writeNotFound(w, "workspace")
		return
	}
	if doc, _ := b.findDocLocked(body.DocumentName, ""); doc == nil {
		writeNotFound(w, "document")
		return
	}
	for _, name := range b.shared[id] {
		if name == body.DocumentName {
			writeFail(w, http.StatusConflict, api.CodeConflict, "document already shared", nil)
			return
		}
	}
	b.shared[id] = append(b.shared[id], body.DocumentName)
	writeData(w, http.StatusOK, nil)
}

// =============================================================================
// TOOLS
// =============================================================================

func (b *FakeBackend) listTools(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	out := make([]api.Tool, 0, len(b.tools))
	for _, t := range b.tools {
		out = append(out, *t)
	}
	b.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	writeData(w, http.StatusOK, out)
}

func (b *FakeBackend) createTool(w http.ResponseWriter, r *http.Request) {
	var in api.ToolInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || strings.TrimSpace(in.Name) == "" {
		writeFail(w, http.StatusBadRequest, api.CodeValidation, "name is required", nil)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	tool := &api.Tool{ID: b.nextID("tool"), Name: in.Name, Description: in.Description,
		Type: in.Type, Enabled: in.Enabled, Config: in.Config}
	b.tools[tool.ID] = tool
	writeData(w, http.StatusCreated, tool)
}

func (b *FakeBackend) toggleTool(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	enabled, err := strconv.ParseBool(r.URL.Query().Get("enabled"))
	if err != nil {
		writeFail(w, http.StatusBadRequest, api.CodeValidation, "enabled must be true or false", nil)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	tool, ok := b.tools[id]
	if !ok {
		writeNotFound(w, "tool")
		return
	}
	tool.Enabled = enabled
	writeData(w, http.StatusOK, tool)
}

func (b *FakeBackend) deleteTool(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.tools[id]; !ok {
		writeNotFound(w, "tool")
		return
	}
	delete(b.tools, id)
	writeData(w, http.StatusOK, nil)
}

// =============================================================================
// TASKS
// =============================================================================

func (b *FakeBackend) listTasks(w http.ResponseWriter, r *http.Request) {
	taskType := r.URL.Query().Get("type")

	b.mu.Lock()
	out := make([]tasks.Task, 0, len(b.tasks))
	for _, t := range b.tasks {
		if taskType != "" && t.Type != taskType {
			continue
		}
		out = append(out, t.Clone())
	}
	b.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeData(w, http.StatusOK, out)
}

func (b *FakeBackend) getTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	b.mu.Lock()
	t, ok := b.tasks[id]
	var out tasks.Task
	if ok {
		out = t.Clone()
	}
	b.mu.Unlock()

	if !ok {
		writeNotFound(w, "task")
		return
	}
	writeData(w, http.StatusOK, out)
}

func (b *FakeBackend) retryTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tasks[id]
	if !ok {
		writeNotFound(w, "task")
		return
	}
	if t.Status != tasks.StatusFailed {
		writeFail(w, http.StatusConflict, api.CodeConflict, "only failed tasks can be retried", nil)
		return
	}
	t.Status = tasks.StatusPending
	t.Progress = 0
	t.ErrorCode = ""
	t.Message = ""
	t.UpdatedAt = model.Timestamp{Time: b.now()}
	writeData(w, http.StatusOK, t.Clone())
}

func (b *FakeBackend) cancelTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tasks[id]
	if !ok {
		writeNotFound(w, "task")
		return
	}
	if !t.Status.IsActive() {
		writeFail(w, http.StatusConflict, api.CodeConflict, "task is not running", nil)
		return
	}
	t.Status = tasks.StatusCanceled
	t.UpdatedAt = model.Timestamp{Time: b.now()}
	writeData(w, http.StatusOK, t.Clone())
}

// =============================================================================
// SEARCH
// =============================================================================

func (b *FakeBackend) search(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	ws := r.URL.Query().Get("workspace_id")
	match := func(s string) bool { return q != "" && strings.Contains(strings.ToLower(s), q) }

	b.mu.Lock()
	res := api.SearchResults{Documents: []api.Document{}, Workspaces: []api.Workspace{}, Threads: []api.Thread{}}
	for _, d := range b.documents {
		if (ws == "" || d.WorkspaceID == ws) && match(d.Name) {
			doc := *d
			doc.Content = ""
			res.Documents = append(res.Documents, doc)
		}
	}
	for _, space := range b.workspaces {
		if match(space.Name) {
			res.Workspaces = append(res.Workspaces, *space)
		}
	}
	for _, t := range b.threads {
		if (ws == "" || t.WorkspaceID == ws) && match(t.Title) {
			res.Threads = append(res.Threads, *t)
		}
	}
	b.mu.Unlock()

	sort.Slice(res.Documents, func(i, j int) bool { return res.Documents[i].Name < res.Documents[j].Name })
	sort.Slice(res.Workspaces, func(i, j int) bool { return res.Workspaces[i].Name < res.Workspaces[j].Name })
	sort.Slice(res.Threads, func(i, j int) bool { return res.Threads[i].Title < res.Threads[j].Title })
	writeData(w, http.StatusOK, res)
}
