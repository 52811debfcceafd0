package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/orvan-io/dirsync/internal/cache"
	"github.com/orvan-io/dirsync/internal/config"
	"github.com/orvan-io/dirsync/internal/directory"
	"github.com/orvan-io/dirsync/internal/engine"
	"github.com/orvan-io/dirsync/internal/metrics"
)

var version = "dev"

// app holds the wired components shared by all subcommands. It is
// populated by the root command's PersistentPreRunE after the
// configuration is loaded.
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	client *directory.Client
	engine *engine.Engine
}

func execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var configPath string
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "dirsync",
		Short:         "Directory identity synchronization engine",
		Long:          "Synchronizes a normalized identity model with an LDAP-compatible directory: scans, lifecycle transitions, membership maintenance and credential operations.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = newLogger(cfg.Log).With(slog.String("run", uuid.NewString()))

			a.client, err = directory.NewClient(cfg.DirectoryConfig(), a.log)
			if err != nil {
				return err
			}
			m := metrics.New(prometheus.NewRegistry())
			a.engine, err = engine.New(a.client, cache.New(), cfg, a.log, m)
			return err
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.client != nil {
				_ = a.client.Close()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "dirsync.yaml", "Path to configuration file")

	rootCmd.AddCommand(
		newResyncCmd(a),
		newFindCmd(a),
		newLockCmd(a),
		newUnlockCmd(a),
		newIsolateCmd(a),
		newRestoreCmd(a),
		newPasswdCmd(a),
	)
	return rootCmd
}

func newLogger(cfg config.Log) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
