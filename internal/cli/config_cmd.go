// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Config command implementation for ragterm.
//
// Command: config [subcommand]
// Short:   View and modify configuration
//
// Subcommands:
//   show (default)      Display the effective configuration
//   path                Show the configuration file path
//   init                Write a default configuration file
//   get <key>           Print one value
//   set <key> <value>   Change one value in the file
//   keys                List every key
//
// Examples:
//   ragterm config set api.url http://rag.internal:8000
//   ragterm config set tasks.poll_interval 5s
//   ragterm config get chat.show_reasoning
//
// The effective configuration includes RAGTERM_* environment overrides.
// "set" edits the file only, so overrides are never written back.

package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ragterm/internal/config"
)

func newConfigCommand(app *App) *cobra.Command {
	show := &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Args:  exactArgs(0, "ragterm config show"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.showConfig(cmd)
		},
	}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Args:  exactArgs(0, "ragterm config show"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.showConfig(cmd)
		},
	}

	path := &cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  exactArgs(0, "ragterm config path"),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := app.configPath()
			return app.emit(cmd, map[string]string{"path": p}, func() {
				fmt.Fprintln(app.Out, p)
			})
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Args:  exactArgs(0, "ragterm config init"),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := app.configPath()
			if _, err := os.Stat(p); err == nil && !force {
				return &CommandError{Command: "config init", Reason: p + " already exists (use --force to overwrite)"}
			}
			if err := writeConfig(config.Default(), p); err != nil {
				return err
			}
			return app.emit(cmd, map[string]string{"path": p}, func() {
				fmt.Fprintf(app.Out, "%s Wrote %s\n", SuccessStyle.Render("[OK]"), p)
			})
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one configuration value",
		Args:  exactArgs(1, "ragterm config get api.timeout"),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := app.Config().Get(args[0])
			if err != nil {
				return NewValidationErrorWithExample("key", args[0], err.Error(), "ragterm config keys")
			}
			return app.emit(cmd, map[string]interface{}{"key": args[0], "value": v}, func() {
				fmt.Fprintln(app.Out, v)
			})
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one value in the configuration file",
		Args:  exactArgs(2, "ragterm config set api.url http://localhost:8000"),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := app.configPath()
			cfg := config.Default()
			if err := config.LoadTOML(cfg, p); err != nil && !errors.Is(err, os.ErrNotExist) {
				return &ConfigError{Err: err}
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return NewValidationErrorWithExample("key", args[0], err.Error(), "ragterm config keys")
			}
			cfg.SetDefaults()
			if err := cfg.Validate(); err != nil {
				return NewValidationError(args[0], args[1], err.Error())
			}
			if err := writeConfig(cfg, p); err != nil {
				return err
			}
			v, _ := cfg.Get(args[0])
			return app.emit(cmd, map[string]interface{}{"key": args[0], "value": v, "path": p}, func() {
				fmt.Fprintf(app.Out, "%s %s = %v\n", SuccessStyle.Render("[OK]"), args[0], v)
			})
		},
	}

	keys := &cobra.Command{
		Use:   "keys",
		Short: "List every configuration key",
		Args:  exactArgs(0, "ragterm config keys"),
		RunE: func(cmd *cobra.Command, args []string) error {
			all := config.GetAllKeys()
			return app.emit(cmd, all, func() {
				for _, k := range all {
					fmt.Fprintln(app.Out, k)
				}
			})
		},
	}

	cmd.AddCommand(show, path, initCmd, get, set, keys)
	return cmd
}

func (a *App) showConfig(cmd *cobra.Command) error {
	cfg := a.Config()
	return a.emit(cmd, cfg, func() {
		printTitle(a.Out, "Configuration")
		fmt.Fprintln(a.Out, DimStyle.Render(a.configPath()))
		section := ""
		for _, key := range config.GetAllKeys() {
			v, err := cfg.Get(key)
			if err != nil {
				continue
			}
			group, name, _ := strings.Cut(key, ".")
			if group != section {
				section = group
				fmt.Fprintln(a.Out, SectionStyle.Render(section))
			}
			printField(a.Out, name, fmt.Sprint(v))
		}
	})
}

func writeConfig(cfg *config.Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return &ConfigError{Err: err}
	}
	if err := config.SaveTOML(cfg, path); err != nil {
		return &ConfigError{Err: err}
	}
	return nil
}
