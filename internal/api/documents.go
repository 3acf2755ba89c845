// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
)

// UploadRequest describes one file upload.
type UploadRequest struct {
	Filename    string
	Reader      io.Reader
	WorkspaceID string
	Strategy    Strategy
}

// Documents lists the documents of a workspace.
func (c *Client) Documents(ctx context.Context, workspaceID string) ([]Document, error) {
	var docs []Document
	if err := c.doJSON(ctx, http.MethodGet, "/documents", workspaceQuery(workspaceID), nil, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Document fetches one document by name, including its content.
func (c *Client) Document(ctx context.Context, name string) (*Document, error) {
	var doc Document
	if err := c.doJSON(ctx, http.MethodGet, "/documents/"+pathEscape(name), nil, nil, &doc); err != nil {
		return nil, err
	}
	if doc.Name == "" {
		doc.Name = name
	}
	return &doc, nil
}

// DeleteDocument removes a document and its chunks.
func (c *Client) DeleteDocument(ctx context.Context, name string) error {
	return c.doJSON(ctx, http.MethodDelete, "/documents/"+pathEscape(name), nil, nil, nil)
}

// Upload sends a file as multipart form data. A duplicate without a
// strategy fails with an *APIError carrying CodeDuplicateDetected and a
// DuplicateInfo payload.
func (c *Client) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	req.Filename = NormalizeFilename(req.Filename)
	if err := ValidateFilename(req.Filename); err != nil {
		return nil, err
	}
	if req.Reader == nil {
		return nil, fmt.Errorf("upload %q: no content", req.Filename)
	}

	// Stream the form instead of buffering the whole file
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUploadForm(form, req))
	}()

	query := url.Values{}
	if req.Strategy != StrategyNone {
		query.Set("strategy", string(req.Strategy))
	}

	ctx, cancel := context.WithTimeout(ctx, UploadTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/upload", query), pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())
	httpReq.Header.Set("Accept", "application/json")

	var result UploadResult
	// The upload deadline lives on ctx, so use the untimed client
	if err := c.roundTrip(c.streamClient, httpReq, &result); err != nil {
		pr.Close()
		return nil, err
	}
	if result.Filename == "" {
		result.Filename = req.Filename
	}
	return &result, nil
}

func writeUploadForm(form *multipart.Writer, req UploadRequest) error {
	if req.WorkspaceID != "" {
		if err := form.WriteField("workspace_id", req.WorkspaceID); err != nil {
			return err
		}
	}
	part, err := form.CreateFormFile("file", req.Filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, req.Reader); err != nil {
		return fmt.Errorf("read %s: %w", req.Filename, err)
	}
	return form.Close()
}

// UploadArxiv asks the backend to fetch and index an arXiv paper.
func (c *Client) UploadArxiv(ctx context.Context, paperURL, workspaceID string, strategy Strategy) (*UploadResult, error) {
	body := map[string]string{"url": paperURL}
	if workspaceID != "" {
		body["workspace_id"] = workspaceID
	}
	if strategy != StrategyNone {
		body["strategy"] = string(strategy)
	}

	var result UploadResult
	if err := c.doJSON(ctx, http.MethodPost, "/upload-arxiv", nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
