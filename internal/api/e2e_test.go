// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ragterm/internal/api"
	"github.com/jeranaias/ragterm/internal/model"
	"github.com/jeranaias/ragterm/internal/testutil"
)

func documentNames(docs []api.Document) []string {
	names := make([]string, 0, len(docs))
	for _, d := range docs {
		names = append(names, d.Name)
	}
	return names
}

func TestE2E_UploadListDelete(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	c := backend.Client()
	ctx := context.Background()

	ws, err := c.CreateWorkspace(ctx, api.WorkspaceInput{Name: "Research"})
	require.NoError(t, err)

	res, err := c.Upload(ctx, api.UploadRequest{
		Filename:    "paper.pdf",
		Reader:      strings.NewReader("%PDF-1.4 body"),
		WorkspaceID: ws.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "paper.pdf", res.Filename)
	assert.NotEmpty(t, res.TaskID)

	docs, err := c.Documents(ctx, ws.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"paper.pdf"}, documentNames(docs))

	doc, err := c.Document(ctx, "paper.pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", doc.ContentType)

	require.NoError(t, c.DeleteDocument(ctx, "paper.pdf"))

	docs, err = c.Documents(ctx, ws.ID)
	require.NoError(t, err)
	assert.Empty(t, docs)

	err = c.DeleteDocument(ctx, "paper.pdf")
	assert.True(t, errors.Is(err, api.ErrNotFound))
}

func TestE2E_SettingsRoundTrip(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	c := backend.Client()
	ctx := context.Background()

	before, err := c.Settings(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, float64(4), before["top_k"])

	updated, err := c.UpdateSettings(ctx, "", api.Settings{"top_k": float64(8)})
	require.NoError(t, err)
	assert.Equal(t, float64(8), updated["top_k"])

	after, err := c.Settings(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, float64(8), after["top_k"])
	assert.Equal(t, float64(512), after["chunk_size"])

	_, err = c.UpdateSettings(ctx, "", api.Settings{"no_such_key": true})
	assert.Equal(t, api.CodeValidation, api.CodeOf(err))

	meta, err := c.SettingsMetadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"chunk_size", "top_k"}, api.GeneralSettings(after, meta))
}

func TestE2E_WorkspaceSettingsOverride(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	c := backend.Client()
	ctx := context.Background()

	ws, err := c.CreateWorkspace(ctx, api.WorkspaceInput{Name: "Legal"})
	require.NoError(t, err)

	_, err = c.UpdateSettings(ctx, ws.ID, api.Settings{"top_k": float64(2)})
	require.NoError(t, err)

	scoped, err := c.Settings(ctx, ws.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(2), scoped["top_k"])

	global, err := c.Settings(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, float64(4), global["top_k"])
}

func TestE2E_Workspaces(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	c := backend.Client()
	ctx := context.Background()

	a, err := c.CreateWorkspace(ctx, api.WorkspaceInput{Name: "Alpha"})
	require.NoError(t, err)
	b, err := c.CreateWorkspace(ctx, api.WorkspaceInput{Name: "Beta"})
	require.NoError(t, err)

	_, err = c.CreateWorkspace(ctx, api.WorkspaceInput{Name: "alpha"})
	assert.Equal(t, api.CodeConflict, api.CodeOf(err))

	_, err = c.Upload(ctx, api.UploadRequest{Filename: "shared.md", Reader: strings.NewReader("# hi"), WorkspaceID: a.ID})
	require.NoError(t, err)
	require.NoError(t, c.ShareDocument(ctx, b.ID, "shared.md"))

	details, err := c.WorkspaceDetails(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, details.DocumentCount)
	assert.Equal(t, "Beta", details.Name)

	renamed, err := c.UpdateWorkspace(ctx, b.ID, api.WorkspaceInput{Name: "Gamma"})
	require.NoError(t, err)
	assert.Equal(t, "Gamma", renamed.Name)

	require.NoError(t, c.DeleteWorkspace(ctx, a.ID))
	list, err := c.Workspaces(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Gamma", list[0].Name)
}

func TestE2E_ThreadsAndSearch(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	c := backend.Client()
	ctx := context.Background()

	ignore := func(model.Event) error { return nil }
	require.NoError(t, c.StreamChat(ctx, api.ChatRequest{Message: "Quarterly revenue", ThreadID: "t1"}, ignore))

	require.NoError(t, c.RenameThread(ctx, "t1", "Revenue review"))
	threads, err := c.Threads(ctx, "")
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, "Revenue review", threads[0].Title)

	_, err = c.Upload(ctx, api.UploadRequest{Filename: "revenue.csv", Reader: strings.NewReader("q,amount")})
	require.NoError(t, err)

	res, err := c.Search(ctx, "REVENUE", "")
	require.NoError(t, err)
	assert.Len(t, res.Documents, 1)
	assert.Len(t, res.Threads, 1)
	assert.Empty(t, res.Workspaces)

	empty, err := c.Search(ctx, "  ", "")
	require.NoError(t, err)
	assert.True(t, empty.Empty())

	require.NoError(t, c.DeleteThread(ctx, "t1"))
	_, err = c.History(ctx, "t1")
	assert.True(t, errors.Is(err, api.ErrNotFound))
}

func TestE2E_Tools(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	c := backend.Client()
	ctx := context.Background()

	tool, err := c.CreateTool(ctx, api.ToolInput{Name: "calculator", Type: "builtin", Enabled: true})
	require.NoError(t, err)

	toggled, err := c.ToggleTool(ctx, tool.ID, false)
	require.NoError(t, err)
	assert.False(t, toggled.Enabled)

	require.NoError(t, c.DeleteTool(ctx, tool.ID))
	tools, err := c.Tools(ctx)
	require.NoError(t, err)
	assert.Empty(t, tools)
}

func TestE2E_Health(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	require.NoError(t, backend.Client().Health(context.Background()))

	backend.Server.Close()
	err := backend.Client().Health(context.Background())
	assert.True(t, api.IsTransport(err))
}
