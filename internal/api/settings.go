// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"sort"
	"strings"
)

// providerCategory marks settings that belong to the provider panel.
const providerCategory = "provider"

// Settings returns the effective settings of a workspace. An empty id
// returns the global settings.
func (c *Client) Settings(ctx context.Context, workspaceID string) (Settings, error) {
	settings := Settings{}
	if err := c.doJSON(ctx, http.MethodGet, "/settings/", workspaceQuery(workspaceID), nil, &settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// UpdateSettings applies patch and returns the resulting settings.
func (c *Client) UpdateSettings(ctx context.Context, workspaceID string, patch Settings) (Settings, error) {
	settings := Settings{}
	if err := c.doJSON(ctx, http.MethodPut, "/settings/", workspaceQuery(workspaceID), patch, &settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// SettingsMetadata describes every known setting key.
func (c *Client) SettingsMetadata(ctx context.Context) (map[string]SettingMetadata, error) {
	meta := map[string]SettingMetadata{}
	if err := c.doJSON(ctx, http.MethodGet, "/settings/metadata", nil, nil, &meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// GeneralSettings returns the keys of settings outside the provider
// panel, sorted. Provider credentials and endpoints are never listed.
func GeneralSettings(settings Settings, meta map[string]SettingMetadata) []string {
	keys := make([]string, 0, len(settings))
	for key := range settings {
		if isProviderKey(key, meta[key]) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func isProviderKey(key string, meta SettingMetadata) bool {
	if meta.Category == providerCategory {
		return true
	}
	for _, suffix := range []string{"_api_key", "_base_url", "_provider"} {
		if strings.HasSuffix(key, suffix) {
			return true
		}
	}
	return false
}
