// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/jeranaias/ragterm/internal/api"
	"github.com/jeranaias/ragterm/internal/chat"
	"github.com/jeranaias/ragterm/internal/config"
	"github.com/jeranaias/ragterm/internal/logging"
	"github.com/jeranaias/ragterm/internal/model"
	"github.com/jeranaias/ragterm/internal/state"
	"github.com/jeranaias/ragterm/internal/storage"
	"github.com/jeranaias/ragterm/internal/tasks"
)

// globalFlags are the persistent flags of the root command.
type globalFlags struct {
	apiURL     string
	workspace  string
	configPath string
	logLevel   string
	json       bool
	yes        bool
}

// App carries what every command needs: configuration, the API client and
// the client state store. The streams are injectable for tests.
type App struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	// Interactive reports whether prompts may be shown. Defaults to CanPrompt.
	Interactive func() bool

	flags  globalFlags
	cfg    *config.Config
	log    *log.Logger
	client *api.Client
	kv     storage.KV
	store  *state.Store
	reader *bufio.Reader
}

// NewApp creates an App on the given streams.
func NewApp(in io.Reader, out, errOut io.Writer) *App {
	return &App{
		In:          in,
		Out:         out,
		Err:         errOut,
		Interactive: CanPrompt,
		reader:      bufio.NewReader(in),
		log:         logging.Default(),
	}
}

// setup loads configuration and builds the client. It runs before every
// command.
func (a *App) setup(cmd *cobra.Command) error {
	var (
		cfg *config.Config
		err error
	)
	if a.flags.configPath != "" {
		cfg, err = config.LoadFromPath(a.flags.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return &ConfigError{Err: err}
	}
	a.cfg = cfg

	level := cfg.UI.LogLevel
	if a.flags.logLevel != "" {
		level = a.flags.logLevel
	}
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return NewValidationErrorWithExample("log level", level, "unknown level", "--log-level debug")
	}
	a.log = logging.New(a.Err, lvl)
	logging.SetDefault(a.log)

	client := api.New(cfg.ResolveBaseURL(a.flags.apiURL)).
		WithTimeout(cfg.API.Timeout.Duration).
		WithLogger(a.log)
	if cfg.API.RateLimit > 0 {
		client = client.WithRateLimit(cfg.API.RateLimit, cfg.API.RateBurst)
	}
	a.client = client

	a.log.Debug("command starting", "command", cmd.CommandPath(), "api", client.BaseURL())
	return nil
}

// Config returns the loaded configuration.
func (a *App) Config() *config.Config {
	if a.cfg == nil {
		a.cfg = config.Default()
	}
	return a.cfg
}

// Client returns the API client.
func (a *App) Client() *api.Client {
	return a.client
}

// State opens the client state store on first use.
func (a *App) State(ctx context.Context) (*state.Store, error) {
	if a.store != nil {
		return a.store, nil
	}

	path, err := a.Config().StatePath()
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	kv, err := storage.OpenSQLite(path)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	store := state.New(kv).WithLogger(a.log)
	if err := store.Init(ctx); err != nil {
		kv.Close()
		return nil, fmt.Errorf("load client state: %w", err)
	}
	a.kv, a.store = kv, store
	return store, nil
}

// Workspace resolves the workspace in effect: --workspace, then the saved
// current workspace. The empty string is the default workspace.
func (a *App) Workspace(ctx context.Context) (string, error) {
	if a.flags.workspace != "" {
		return a.flags.workspace, nil
	}
	store, err := a.State(ctx)
	if err != nil {
		return "", err
	}
	return store.CurrentWorkspace(), nil
}

// NewSession creates a chat session for the workspace in effect.
func (a *App) NewSession(ctx context.Context) (*chat.Session, error) {
	store, err := a.State(ctx)
	if err != nil {
		return nil, err
	}
	ws, err := a.Workspace(ctx)
	if err != nil {
		return nil, err
	}
	return chat.NewSession(a.client, model.NewConversation(), store, chat.Options{
		WorkspaceID:   ws,
		ShowReasoning: a.Config().Chat.ShowReasoning,
		Logger:        a.log,
	}), nil
}

// NewPoller creates a task poller over the client and the dismissed set.
func (a *App) NewPoller(ctx context.Context) (*tasks.Poller, error) {
	store, err := a.State(ctx)
	if err != nil {
		return nil, err
	}
	cfg := a.Config()
	return tasks.NewPoller(a.client, store, tasks.Options{
		Interval:        cfg.Tasks.PollInterval.Duration,
		CompletedWindow: cfg.Tasks.CompletedWindow.Duration,
		TaskType:        cfg.Tasks.Type,
		Logger:          a.log,
	}), nil
}

// Close releases the state store.
func (a *App) Close() error {
	if a.kv == nil {
		return nil
	}
	err := a.kv.Close()
	a.kv, a.store = nil, nil
	return err
}

func (a *App) interactive() bool {
	return a.Interactive != nil && a.Interactive()
}

// emit writes data as a JSON envelope in JSON mode and calls human
// otherwise.
func (a *App) emit(cmd *cobra.Command, data interface{}, human func()) error {
	if a.flags.json {
		return NewJSONResponse(commandName(cmd), data).Write(a.Out)
	}
	human()
	return nil
}

// printf writes human output. It is silent in JSON mode.
func (a *App) printf(format string, args ...interface{}) {
	if a.flags.json {
		return
	}
	fmt.Fprintf(a.Out, format, args...)
}

// commandName is the command path without the binary name.
func commandName(cmd *cobra.Command) string {
	path := cmd.CommandPath()
	if i := strings.IndexByte(path, ' '); i >= 0 {
		return path[i+1:]
	}
	return path
}

// signalContext is canceled on Ctrl-C or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
