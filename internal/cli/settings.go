// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ragterm/internal/api"
)

func newSettingsCommand(app *App) *cobra.Command {
	var global bool
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and change backend settings",
	}
	cmd.PersistentFlags().BoolVar(&global, "global", false, "target global settings instead of the workspace")

	scope := func(ctx context.Context) (string, error) {
		if global {
			return "", nil
		}
		return app.Workspace(ctx)
	}

	cmd.AddCommand(
		newSettingsShowCommand(app, scope),
		newSettingsSetCommand(app, scope),
		newSettingsMetadataCommand(app),
	)
	return cmd
}

func newSettingsShowCommand(app *App, scope func(context.Context) (string, error)) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show settings (provider keys hidden unless --all)",
		Args:  exactArgs(0, "ragterm settings show"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := scope(ctx)
			if err != nil {
				return err
			}
			settings, err := app.Client().Settings(ctx, ws)
			if err != nil {
				return err
			}
			meta, err := app.Client().SettingsMetadata(ctx)
			if err != nil {
				app.log.Debug("settings metadata unavailable", "err", err)
				meta = nil
			}

			var keys []string
			if all || meta == nil {
				for k := range settings {
					keys = append(keys, k)
				}
				sort.Strings(keys)
			} else {
				keys = api.GeneralSettings(settings, meta)
			}

			shown := make(api.Settings, len(keys))
			for _, k := range keys {
				shown[k] = settings[k]
			}
			return app.emit(cmd, shown, func() {
				t := newTable("KEY", "VALUE", "CATEGORY")
				for _, k := range keys {
					t.add(k, formatSetting(settings[k]), meta[k].Category)
				}
				t.render(app.Out)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include provider keys")
	return cmd
}

func newSettingsSetCommand(app *App, scope func(context.Context) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key=value>...",
		Short: "Change one or more settings",
		Args:  minArgs(1, "ragterm settings set top_k=8"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			patch := make(api.Settings, len(args))
			for _, arg := range args {
				key, value, ok := strings.Cut(arg, "=")
				key = strings.TrimSpace(key)
				if !ok || key == "" {
					return NewValidationErrorWithExample("setting", arg, "expected key=value", "top_k=8")
				}
				patch[key] = parseSettingValue(value)
			}

			ws, err := scope(ctx)
			if err != nil {
				return err
			}
			updated, err := app.Client().UpdateSettings(ctx, ws, patch)
			if err != nil {
				return err
			}
			return app.emit(cmd, updated, func() {
				for _, k := range sortedKeys(patch) {
					fmt.Fprintf(app.Out, "%s %s = %s\n", SuccessStyle.Render("[OK]"), k, formatSetting(updated[k]))
				}
			})
		},
	}
}

func newSettingsMetadataCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "metadata",
		Short: "Describe every setting key",
		Args:  exactArgs(0, "ragterm settings metadata"),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := app.Client().SettingsMetadata(cmd.Context())
			if err != nil {
				return err
			}
			return app.emit(cmd, meta, func() {
				t := newTable("KEY", "CATEGORY", "MUTABLE", "OPTIONS", "DESCRIPTION")
				keys := make([]string, 0, len(meta))
				for k := range meta {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					m := meta[k]
					mutable := "no"
					if m.Mutable {
						mutable = "yes"
					}
					t.add(k, m.Category, mutable, strings.Join(m.Options, ","), m.Description)
				}
				t.render(app.Out)
			})
		},
	}
}

// parseSettingValue reads numbers, booleans, null and JSON literals as
// such. Anything else is a string.
func parseSettingValue(s string) interface{} {
	s = strings.TrimSpace(s)
	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}

func formatSetting(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case string:
		return val
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}

func sortedKeys(s api.Settings) []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
