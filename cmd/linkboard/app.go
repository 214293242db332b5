package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pders01/linkboard/internal/api"
	"github.com/pders01/linkboard/internal/config"
	"github.com/pders01/linkboard/internal/debuglog"
	"github.com/pders01/linkboard/internal/render"
	"github.com/pders01/linkboard/internal/session"
	"github.com/pders01/linkboard/internal/storage"
)

// app is the per-invocation wiring shared by every command.
type app struct {
	cfg     *config.Config
	store   *storage.Store
	session *session.Session
	out     io.Writer
	quiet   bool
}

func openApp(cmd *cobra.Command, opts *globalOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := debuglog.Setup(debuglog.ParseLogLevel(cfg.Log.Level), cfg.Log.Path); err != nil {
		return nil, fmt.Errorf("setting up log: %w", err)
	}

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(cfg.Credentials.Path, cfg.Credentials.Timeout)
	if err != nil {
		return nil, fmt.Errorf("opening credential store: %w", err)
	}

	sess, err := session.New(client, store, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	a := &app{cfg: cfg, store: store, session: sess, out: cmd.OutOrStdout(), quiet: opts.quiet}
	if _, err := sess.Restore(cmd.Context()); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) close() {
	if err := a.session.Close(); err != nil {
		debuglog.Warnf("closing session: %v", err)
	}
	if err := a.store.Close(); err != nil {
		debuglog.Warnf("closing credential store: %v", err)
	}
	_ = debuglog.Close()
}

func (a *app) println(s string) {
	fmt.Fprintln(a.out, s)
}

// status prints s unless --quiet is set.
func (a *app) status(s string) {
	if !a.quiet {
		a.println(render.Success(s))
	}
}

// withApp opens the app for the duration of run.
func withApp(opts *globalOptions, run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, opts)
		if err != nil {
			return err
		}
		defer a.close()
		return run(cmd, a, args)
	}
}

var errLoginRequired = errors.New("not logged in; run 'linkboard login' first")
