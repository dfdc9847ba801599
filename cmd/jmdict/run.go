package main

import (
	"context"

	"github.com/spf13/cobra"
	errs "jmdict/pkg/errors"
	"jmdict/pkg/export"
	"jmdict/pkg/logger"
	"jmdict/pkg/pipeline"
	"jmdict/pkg/secret"
)

var (
	// Run command flags
	sourceURL    string
	downloadsDir string
	outputDir    string
	noLock       bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, parse and save today's dictionary",
	Long: `Run the full pipeline once for today's date:

  1. download and decompress the dictionary unless today's raw file exists
  2. stop if today's JSON output already exists
  3. parse the raw file and extract the entries
  4. write the entries as JSON (and export them to MongoDB when configured)`,
	Example: `  # Run with defaults
  jmdict run

  # Use other directories
  jmdict run --downloads /data/raw --output /data/json

  # Use a mirror
  jmdict run --url https://example.org/JMdict_e.gz`,
	Args: cobra.NoArgs,
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&sourceURL, "url", "", "URL of the gzip-compressed dictionary")
	cmd.Flags().StringVarP(&downloadsDir, "downloads", "d", "", "directory for the raw dictionary file")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory for the JSON output")
	cmd.Flags().BoolVar(&noLock, "no-lock", false, "do not take the per-date lock")
}

func runFlags() map[string]interface{} {
	flags := globalFlags()
	if sourceURL != "" {
		flags["url"] = sourceURL
	}
	if downloadsDir != "" {
		flags["downloads"] = downloadsDir
	}
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if noLock {
		flags["no-lock"] = true
	}
	return flags
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, log, store, console, err := setup(runFlags())
	if err != nil {
		return err
	}

	logger.LogComponentStart(log, "pipeline", map[string]interface{}{
		"url":       cfg.Source.URL,
		"downloads": cfg.Paths.DownloadsDir,
		"output":    cfg.Paths.OutputDir,
		"lock":      cfg.Lock.Enabled,
		"mongo":     cfg.Mongo.Enabled(),
	})

	ctx := cmd.Context()
	p := pipeline.New(cfg, store, console, log)

	if cfg.Mongo.Enabled() {
		p.SetExporter(func(ctx context.Context) (pipeline.Exporter, error) {
			if err := secret.ResolveMongoURI(secretStore, &cfg.Mongo); err != nil {
				return nil, errs.New(errs.ErrorTypeConfig, "keyring", err)
			}
			exporter, err := export.Connect(ctx, cfg.Mongo, log)
			if err != nil {
				return nil, err
			}
			return exporter, nil
		})
	}

	return p.Run(ctx)
}
