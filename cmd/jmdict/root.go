package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"jmdict/pkg/config"
	errs "jmdict/pkg/errors"
	"jmdict/pkg/logger"
	"jmdict/pkg/storage"
	"jmdict/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	noColor    bool
	quiet      bool
)

// rootCmd runs the pipeline when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "jmdict",
	Short: "Fetch the JMdict dictionary and convert it to dated JSON",
	Long: `jmdict downloads the gzip-compressed JMdict XML file, decompresses it,
parses the dictionary entries and writes them to a JSON file named after
today's date, e.g. output/JMdict_e-5-3-2024.json.

Files that already exist for today are reused, so running it again on the
same day does not download or rewrite anything.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runPipeline,
}

// Execute runs the root command and returns the process exit status
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		ui.Stdout(config.UIConfig{Color: !noColor}).PrintError("Error", err)
	}
	return errs.ExitCode(err)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./jmdict.yaml or ~/.config/jmdict/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	addRunFlags(rootCmd)

	rootCmd.SetVersionTemplate(`jmdict {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// globalFlags returns the persistent flags that were set, keyed as
// config.MergeCommandLineFlags expects
func globalFlags() map[string]interface{} {
	flags := make(map[string]interface{})
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if noColor {
		flags["no-color"] = true
	}
	if quiet {
		flags["quiet"] = true
	}
	return flags
}

// setup loads the configuration and builds the logger, storage and console
// shared by every command
func setup(flags map[string]interface{}) (*config.Config, logger.Logger, *storage.Manager, *ui.Console, error) {
	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, nil, nil, nil, errs.New(errs.ErrorTypeConfig, "config", err)
	}

	// quiet mode only keeps errors unless a level was asked for
	if cfg.UI.Quiet && logLevel == "" {
		cfg.Logging.Level = "error"
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, nil, nil, nil, errs.New(errs.ErrorTypeConfig, "logger", err)
	}
	log := logger.GetLogger()

	store, err := storage.NewManager(cfg.Paths)
	if err != nil {
		return nil, nil, nil, nil, errs.New(errs.ErrorTypeWrite, "storage", err)
	}

	return cfg, log, store, ui.Stdout(cfg.UI), nil
}
