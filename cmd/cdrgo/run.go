package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"CDRGo/internal/batch"
	"CDRGo/internal/config"
	"CDRGo/internal/endpoint"
	"CDRGo/internal/engine"
	"CDRGo/internal/extension"
	"CDRGo/internal/global"
	"CDRGo/internal/report"
	"CDRGo/internal/sink"
)

func newRunCommand() *cobra.Command {
	var concurrency int
	var mysqlOut bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Batch-correlate every CDR file in a directory",
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

			files, err := listInputFiles(cfg.InputDir)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no input files found in %s", cfg.InputDir)
			}

			if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
				return fmt.Errorf("creating output directory: %w", err)
			}

			newSink := func(file string) (engine.LegSink, error) {
				if mysqlOut {
					return sink.NewMySQLSink(context.Background(), cfg.MySQLDSN)
				}
				outPath := filepath.Join(cfg.OutputDir, filepath.Base(file)+".csv")
				return sink.NewCSVSink(outPath)
			}

			runCfg := engineConfigFrom(cfg, extDoc)
			result, err := batch.Run(cmd.Context(), files, ext, endpoints, newSink, runCfg, concurrency)
			if err != nil {
				return err
			}

			report.NewPrinter(os.Stdout).PrintBatch(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "maximum files processed concurrently")
	cmd.Flags().BoolVar(&mysqlOut, "mysql", false, "write calls to the configured MySQL database instead of CSV")

	return cmd
}

func loadClassifiers(cfg *config.Config) (*extension.Classifier, *endpoint.Classifier, *extension.Document, error) {
	ext := extension.New()
	endpoints := endpoint.New()
	var extDoc *extension.Document

	if cfg.ExtensionDocumentPath != "" {
		data, err := os.ReadFile(cfg.ExtensionDocumentPath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("reading extension document: %w", err)
		}
		if err := config.ValidateExtensionDocument(data); err != nil {
			return nil, nil, nil, fmt.Errorf("validating extension document: %w", err)
		}
		doc, err := extension.ParseDocument(data)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("loading extension document: %w", err)
		}
		ext.Load(doc.Ranges)
		extDoc = doc
	}

	if cfg.EndpointDocumentPath != "" {
		data, err := os.ReadFile(cfg.EndpointDocumentPath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("reading endpoint document: %w", err)
		}
		if err := config.ValidateEndpointDocument(data); err != nil {
			return nil, nil, nil, fmt.Errorf("validating endpoint document: %w", err)
		}
		entries, err := endpoint.Parse(data)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("loading endpoint document: %w", err)
		}
		endpoints.Load(entries)
	}

	return ext, endpoints, extDoc, nil
}

func engineConfigFrom(cfg *config.Config, extDoc *extension.Document) engine.Config {
	var seedRouting []string
	voicemail := cfg.ConfiguredVoicemail
	if extDoc != nil {
		seedRouting = extDoc.RoutingNumbers
		if voicemail == "" {
			voicemail = extDoc.VoicemailNumber
		}
	}
	return engine.Config{
		MaxCachedLegs:       cfg.MaxCachedLegs,
		EarlyEmission:       cfg.EarlyEmission,
		ConfiguredVoicemail: voicemail,
		SeedRoutingNumbers:  seedRouting,
	}
}

func listInputFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading input directory %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
