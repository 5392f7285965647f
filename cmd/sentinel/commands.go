package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"sentinel/internal/app"
	"sentinel/internal/config"
	"sentinel/internal/logger"
	"sentinel/internal/market"
)

type options struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "sentinel",
		Short:         "Trade decision core: veto, debate, arbitration and sizing",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("SENTINEL_CONFIG"), "config file (toml/yaml/json)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override app.log_level")

	root.AddCommand(newServeCmd(opts), newEvaluateCmd(opts), newIngestCmd(opts), newConfigCmd(opts))
	return root
}

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			a, closeLogs, err := bootstrap(ctx, opts)
			if err != nil {
				return err
			}
			defer closeLogs()
			defer a.Close()
			return a.Run(ctx)
		},
	}
}

func newEvaluateCmd(opts *options) *cobra.Command {
	var snapshotPath string
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate one market snapshot and print the signal as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := readSnapshot(snapshotPath, cmd.InOrStdin())
			if err != nil {
				return err
			}
			a, closeLogs, err := bootstrap(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeLogs()
			defer a.Close()
			sig := a.Evaluate(cmd.Context(), snap)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(sig)
		},
	}
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "-", "snapshot JSON file, - for stdin")
	return cmd
}

func newIngestCmd(opts *options) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load knowledge documents (.md, .txt) into the concept store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, closeLogs, err := bootstrap(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeLogs()
			defer a.Close()
			n, err := a.Ingest(cmd.Context(), dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ingested %d documents from %s\n", n, dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory to walk")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}

func newConfigCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Inspect configuration"}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config ok (env=%s, mode=%s, llm=%t)\n",
				cfg.App.Env, cfg.Judge.ArbitrationMode, cfg.LLM.Enabled)
			return nil
		},
	})
	return cmd
}

func readSnapshot(path string, stdin io.Reader) (market.Snapshot, error) {
	var r io.Reader = stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return market.Snapshot{}, err
		}
		defer f.Close()
		r = f
	}
	var snap market.Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return market.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// bootstrap loads config, routes logs and builds the app. The returned
// func closes any log files.
func bootstrap(ctx context.Context, opts *options) (*app.App, func(), error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if opts.logLevel != "" {
		cfg.App.LogLevel = opts.logLevel
	}
	var files []*os.File
	closeLogs := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	if logFile != nil {
		files = append(files, logFile)
	}
	logger.SetLLMWriter(nil)
	if cfg.App.LLMDump {
		f, err := setupLLMLogOutput(cfg.App.LLMLog)
		if err != nil {
			closeLogs()
			return nil, nil, fmt.Errorf("open llm log: %w", err)
		}
		if f != nil {
			files = append(files, f)
		}
	}
	logger.SetFormat(cfg.App.LogFormat)
	logger.SetLevel(cfg.App.LogLevel)
	logger.EnableLLMPayloadDump(cfg.App.LLMDump)
	logger.Infof("config loaded (env=%s, path=%s)", cfg.App.Env, displayPath(opts.configPath))

	a, err := app.NewApp(ctx, cfg)
	if err != nil {
		closeLogs()
		return nil, nil, fmt.Errorf("init app: %w", err)
	}
	return a, closeLogs, nil
}

func displayPath(p string) string {
	if strings.TrimSpace(p) == "" {
		return "<defaults>"
	}
	return p
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	if dir := filepath.Dir(trimmed); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}

func setupLLMLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	logger.SetLLMWriter(f)
	return f, nil
}
