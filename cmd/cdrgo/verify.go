package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"CDRGo/internal/batch"
	"CDRGo/internal/config"
	"CDRGo/internal/endpoint"
	"CDRGo/internal/engine"
	"CDRGo/internal/extension"
	"CDRGo/internal/sink"
)

// newVerifyCommand runs a directory's CDR files through the correlator
// twice and diffs the two CSV outputs, to catch nondeterminism a plain
// re-run wouldn't otherwise surface (map iteration order, unstable sorts).
func newVerifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Run correlation twice and diff the outputs to confirm the run is idempotent",
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
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
			runCfg := engineConfigFrom(cfg, extDoc)

			dirA, err := os.MkdirTemp("", "cdrgo-verify-a-*")
			if err != nil {
				return err
			}
			defer os.RemoveAll(dirA)
			dirB, err := os.MkdirTemp("", "cdrgo-verify-b-*")
			if err != nil {
				return err
			}
			defer os.RemoveAll(dirB)

			if err := runToDir(cmd.Context(), files, ext, endpoints, runCfg, dirA); err != nil {
				return err
			}
			if err := runToDir(cmd.Context(), files, ext, endpoints, runCfg, dirB); err != nil {
				return err
			}

			return diffOutputDirs(dirA, dirB, files)
		},
	}
	return cmd
}

func runToDir(ctx context.Context, files []string, ext *extension.Classifier, endpoints *endpoint.Classifier, runCfg engine.Config, outDir string) error {
	newSink := func(file string) (engine.LegSink, error) {
		outPath := filepath.Join(outDir, filepath.Base(file)+".csv")
		return sink.NewCSVSink(outPath)
	}
	_, err := batch.Run(ctx, files, ext, endpoints, newSink, runCfg, 1)
	return err
}

// diffOutputDirs compares the CSV output produced for each input file
// across two runs and reports the first mismatch it finds.
func diffOutputDirs(dirA, dirB string, files []string) error {
	dmp := diffmatchpatch.New()

	for _, f := range files {
		name := filepath.Base(f) + ".csv"
		a, err := os.ReadFile(filepath.Join(dirA, name))
		if err != nil {
			return fmt.Errorf("reading first run's output for %s: %w", f, err)
		}
		b, err := os.ReadFile(filepath.Join(dirB, name))
		if err != nil {
			return fmt.Errorf("reading second run's output for %s: %w", f, err)
		}
		if string(a) == string(b) {
			continue
		}

		diffs := dmp.DiffMain(string(a), string(b), false)
		return fmt.Errorf("output for %s is not idempotent:\n%s", f, dmp.DiffPrettyText(diffs))
	}

	fmt.Println("verify: outputs are byte-identical across both runs")
	return nil
}
