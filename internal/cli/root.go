// Package cli implements showcasectl, the operator tool for the showcase
// store: reconciliation, inspection, seeding and dev tokens.
package cli

import (
	"encoding/json/jsontext"
	"encoding/json/v2"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/listenupapp/showcase-server/internal/config"
	"github.com/listenupapp/showcase-server/internal/di/providers"
	"github.com/listenupapp/showcase-server/internal/logger"
	"github.com/listenupapp/showcase-server/internal/service"
	"github.com/listenupapp/showcase-server/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DataPath string
	Backend  string
	EnvFile  string
	LogLevel string
}

// NewRootCommand creates the showcasectl root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "showcasectl",
		Short:         "Operate on a showcase server's data directory",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.DataPath, "data-path", "", "data directory (default from DATA_PATH or ~/Showcase/data)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "storage backend (badger|sqlite)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "path to .env file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug|info|warn|error)")

	cmd.AddCommand(NewReconcileCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewMirrorCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

// loadConfig resolves configuration the same way the server does, with the
// global flags taking precedence.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	args := []string{"-env-file", o.EnvFile}
	if o.DataPath != "" {
		args = append(args, "-data-path", o.DataPath)
	}
	if o.Backend != "" {
		args = append(args, "-backend", o.Backend)
	}
	if o.LogLevel != "" {
		args = append(args, "-log-level", o.LogLevel)
	}
	return config.Load(args)
}

// engine is the subset of the server's object graph the commands need.
type engine struct {
	cfg       *config.Config
	log       *logger.Logger
	docs      store.DocumentStore
	mirror    *service.MirrorSync
	reconcile *service.ReconcileService
}

func (e *engine) Close() error {
	return e.docs.Close()
}

// openEngine opens the store and wires the engine. Commands that must write
// the legacy collection pass writableLegacy.
func (o *RootOptions) openEngine(stderr io.Writer, writableLegacy bool) (*engine, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Config{
		Writer:      stderr,
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Environment: cfg.App.Environment,
	})

	opts := providers.StoreOptions()
	if writableLegacy {
		opts.ReadOnlyCollections = nil
	}
	docs, _, err := providers.OpenStore(cfg, log, opts)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	ec, err := providers.EngineConfigFrom(cfg)
	if err != nil {
		_ = docs.Close()
		return nil, err
	}

	locator := service.NewLocator(docs, log.Component("locator"))
	mirror := service.NewMirrorSync(docs, ec, log.Component("mirror"))
	ledger := service.NewLikeLedger(docs, locator, mirror, log.Component("likes"))

	return &engine{
		cfg:       cfg,
		log:       log,
		docs:      docs,
		mirror:    mirror,
		reconcile: service.NewReconcileService(docs, locator, mirror, ledger, log.Component("reconcile")),
	}, nil
}

func writeJSON(w io.Writer, v any) error {
	if err := json.MarshalWrite(w, v, jsontext.Multiline(true), jsontext.WithIndent("  ")); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
