package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"CDRGo/internal/batch"
	"CDRGo/internal/config"
	"CDRGo/internal/endpoint"
	"CDRGo/internal/engine"
	"CDRGo/internal/extension"
	"CDRGo/internal/global"
	"CDRGo/internal/metrics"
	"CDRGo/internal/sink"
	"CDRGo/webserver"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin webserver and correlate CDR files as they land in the input directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cfg.LogFilePath != "" {
				global.ConfigureLogFile(cfg.LogFilePath, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays)
			}

			ext, endpoints, extDoc, err := loadClassifiers(cfg)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
				return fmt.Errorf("creating output directory: %w", err)
			}

			runCfg := engineConfigFrom(cfg, extDoc)

			m := metrics.New()
			srv := webserver.NewServer(cfg, ext, endpoints, runCfg, m)

			go func() {
				if err := srv.Start(fmt.Sprintf(":%d", cfg.HTTPPort)); err != nil {
					global.LogErrorf(global.LTWebserver, "webserver exited: %v", err)
				}
			}()

			existing, err := listInputFiles(cfg.InputDir)
			if err != nil {
				return err
			}
			for _, f := range existing {
				processWatchedFile(cmd.Context(), cfg, ext, endpoints, runCfg, f, srv, m)
			}

			return watchAndProcess(cmd.Context(), cfg, ext, endpoints, runCfg, srv, m)
		},
	}
	return cmd
}

// watchAndProcess correlates each new file created in cfg.InputDir until
// ctx is cancelled.
func watchAndProcess(ctx context.Context, cfg *config.Config, ext *extension.Classifier, endpoints *endpoint.Classifier, runCfg engine.Config, srv *webserver.Server, m *metrics.Metrics) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting directory watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(cfg.InputDir); err != nil {
		return fmt.Errorf("watching %s: %w", cfg.InputDir, err)
	}

	global.LogInfof(global.LTStreaming, "watching %s for new CDR files", cfg.InputDir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			// Debounce: give the writer time to finish before reading.
			time.Sleep(500 * time.Millisecond)
			processWatchedFile(ctx, cfg, ext, endpoints, runCfg, event.Name, srv, m)
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			global.LogErrorf(global.LTStreaming, "watch error: %v", werr)
		}
	}
}

func processWatchedFile(ctx context.Context, cfg *config.Config, ext *extension.Classifier, endpoints *endpoint.Classifier, runCfg engine.Config, file string, srv *webserver.Server, m *metrics.Metrics) {
	srv.NotifyFileStarted(file)

	newSink := func(f string) (engine.LegSink, error) {
		outPath := filepath.Join(cfg.OutputDir, filepath.Base(f)+".csv")
		return sink.NewCSVSink(outPath)
	}

	result, err := batch.Run(ctx, []string{file}, ext, endpoints, newSink, runCfg, 1)
	if err != nil {
		global.LogErrorf(global.LTStreaming, "processing %s: %v", file, err)
		return
	}

	m.ObserveRunReport(
		result.Totals.RecordsParsed,
		result.Totals.CallsEmitted,
		result.Totals.TrunkToTrunkSplit,
		len(result.Totals.Suppressed),
		len(result.Totals.ParseFailures),
		len(result.Totals.UnknownEndpoints),
	)
	srv.SetLastReport(result)
	srv.NotifyFileFinished(file)
}
