// Command nvctl administers a NetVenture store from the shell: enrolment,
// logging, reports and tenant maintenance against the configured backend.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"netventure.org/internal/config"
	"netventure.org/internal/engine"
	"netventure.org/internal/obs"
	"netventure.org/internal/persist"
	"netventure.org/internal/store"
)

// cli carries flag values and the logger for one invocation.
type cli struct {
	verbose bool
	timeout time.Duration
	backend string
	path    string
	dsn     string
	legacy  bool

	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "nvctl",
		Short: "NetVenture administration CLI",
		Long: `nvctl reads and writes NetVenture state directly through the configured
storage backend. Settings come from NV_* environment variables, .env and
NV_CONFIG; the storage flags below override them.

Admin commands require the tenant PIN via --pin.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			zc := zap.NewProductionConfig()
			zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
			if c.verbose {
				zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := zc.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			c.logger = logger
			obs.SetLogger(logger)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "Enable verbose logging")
	pf.DurationVar(&c.timeout, "timeout", 30*time.Second, "Operation timeout")
	pf.StringVar(&c.backend, "backend", "", "Storage backend: memory, file, sqlite, postgres or s3")
	pf.StringVar(&c.path, "path", "", "File directory or SQLite database path")
	pf.StringVar(&c.dsn, "dsn", "", "PostgreSQL DSN")
	pf.BoolVar(&c.legacy, "legacy", false, "Write values in the browser app's envelope")

	root.AddCommand(
		c.enrollCmd(),
		c.logCmd(),
		c.reaffirmCmd(),
		c.summaryCmd(),
		c.historyCmd(),
		c.standingsCmd(),
		c.teamsCmd(),
		c.complianceCmd(),
		c.tenantCmd(),
		c.seedDemoCmd(),
		c.wipeCmd(),
		c.hashPINCmd(),
		c.revisionsCmd(),
		c.rollbackCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves settings with command-line overrides applied.
func (c *cli) loadConfig(cmd *cobra.Command) (config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return config.Config{}, err
	}
	v := config.New()
	if p := os.Getenv("NV_CONFIG"); p != "" {
		v.SetConfigFile(p)
		if err := v.ReadInConfig(); err != nil {
			return config.Config{}, fmt.Errorf("config.read(%s): %w", p, err)
		}
	}
	pf := cmd.Flags()
	for key, name := range map[string]string{
		"storage.backend": "backend",
		"storage.path":    "path",
		"storage.dsn":     "dsn",
		"storage.legacy":  "legacy",
	} {
		if f := pf.Lookup(name); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return config.Config{}, err
			}
		}
	}
	return config.FromViper(v)
}

// session is an engine loaded from the configured backend.
type session struct {
	eng     *engine.Engine
	backend *store.Backend
	log     *zap.Logger
}

func (c *cli) open(cmd *cobra.Command) (context.Context, *session, func(), error) {
	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
	backend, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		cancel()
		return nil, nil, nil, fmt.Errorf("open %s store: %w", cfg.Storage.Backend, err)
	}
	eng := engine.New(
		engine.WithStore(backend),
		engine.WithCodec(persist.Codec{Legacy: cfg.Storage.Legacy}),
		engine.WithLogger(c.logger.Named("engine")),
	)
	if err := eng.Load(ctx); err != nil {
		_ = backend.Close()
		cancel()
		return nil, nil, nil, fmt.Errorf("load state: %w", err)
	}
	c.logger.Debug("store opened", zap.String("backend", backend.Name))
	closer := func() {
		_ = backend.Close()
		cancel()
	}
	return ctx, &session{eng: eng, backend: backend, log: c.logger}, closer, nil
}

// commit writes pending changes back to the store.
func (s *session) commit(ctx context.Context) error {
	if err := s.eng.Flush(ctx); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
