package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/repodock/repodock/internal/config"
	"github.com/repodock/repodock/internal/core"
	"github.com/repodock/repodock/internal/launcher"
	"github.com/repodock/repodock/internal/mcp"
	"github.com/repodock/repodock/internal/store"
)

var (
	version   = "0.1.0"
	gitCommit = ""
	buildTime = ""
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "repodock",
		Short:         "Local repository bookkeeping exposed as MCP tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "config file path")

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve the tool protocol (stdio by default, TCP when configured)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("repodock %s", version)
			if gitCommit != "" {
				fmt.Printf(" (%s)", gitCommit)
			}
			if buildTime != "" {
				fmt.Printf(" built %s", buildTime)
			}
			fmt.Println()
		},
	})
	return cmd
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("invalid configuration", "err", err)
		return err
	}
	level, _ := cfg.SlogLevel()

	// stdout carries the stdio transport; all logging goes to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	storePath := cfg.StorePath
	if storePath == "" {
		storePath = store.DefaultPath()
	}
	st := store.New(storePath, logger)

	overrides, err := editorOverrides(cfg)
	if err != nil {
		logger.Error("invalid editor overrides", "err", err)
		return err
	}
	open := launcher.New(logger, launcher.WithOverrides(overrides))

	repos := core.NewRepoService(st, nil)
	colls := core.NewCollectionService(st, nil)
	server := mcp.NewServer(cfg.Listen, repos, colls, open, logger)

	logger.Info("starting", "version", version, "store", storePath, "listen", cfg.Listen)

	if cfg.Listen == "" {
		return server.Serve(os.Stdin, os.Stdout)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "err", err)
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	server.Shutdown(ctx)
	logger.Info("shutdown complete")
	return nil
}

// editorOverrides translates config entries into launch candidates.
func editorOverrides(cfg *config.Config) (map[launcher.Editor][]launcher.Candidate, error) {
	if len(cfg.Editors) == 0 {
		return nil, nil
	}
	out := make(map[launcher.Editor][]launcher.Candidate, len(cfg.Editors))
	for raw, cmds := range cfg.Editors {
		editor, err := launcher.ParseEditor(raw)
		if err != nil {
			return nil, err
		}
		for _, c := range cmds {
			out[editor] = append(out[editor], launcher.Candidate{Name: c.Command, Args: c.Args})
		}
	}
	return out, nil
}
