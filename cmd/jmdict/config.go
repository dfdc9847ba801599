package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"jmdict/pkg/config"
	"jmdict/pkg/secret"
	"jmdict/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage jmdict configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (JMDICT_*, also read from .env)
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file with the default values",
	Long: `Create a configuration file with every option set to its default.

The file is created in the current directory as 'jmdict.yaml' unless a
different path is given with the --config flag.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration after merging all sources.

The MongoDB URI is masked since it may carry credentials.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Required fields
  - Value types and ranges
  - Directory accessibility`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func consoleFromFlags() *ui.Console {
	return ui.Stdout(config.UIConfig{Color: !noColor, Quiet: quiet})
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	console := consoleFromFlags()

	configPath := configFile
	if configPath == "" {
		configPath = "jmdict.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("\nTo overwrite, first remove the existing file:\n  rm %s\n", configPath)
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if err := config.DefaultConfig().Save(configPath); err != nil {
		return err
	}

	console.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Edit the configuration file (set mongo.uri to enable the MongoDB export)")
	fmt.Println("2. Run 'jmdict config validate' to check the configuration")
	fmt.Println("3. Run 'jmdict' to fetch today's dictionary")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, globalFlags())
	if err != nil {
		return err
	}

	displayCfg := *cfg
	displayCfg.Mongo.URI = secret.Mask(displayCfg.Mongo.URI)

	data, err := yaml.Marshal(&displayCfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	console := consoleFromFlags()
	console.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Printf("2. Environment variables (%s*)\n", config.EnvPrefix)
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (searched in default locations)")
	}
	fmt.Println("4. Default values")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	console := consoleFromFlags()

	path := configFile
	if path == "" {
		for _, candidate := range []string{
			"jmdict.yaml",
			"jmdict.yml",
			".jmdict.yaml",
			".jmdict.yml",
			filepath.Join(os.Getenv("HOME"), ".config", "jmdict", "config.yaml"),
		} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			return errors.New("no configuration file found, specify one with --config")
		}
	}

	console.PrintInfo("Validating configuration", path)

	cfg, err := config.Load(path, nil)
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	var problems []string
	for _, dir := range []string{cfg.Paths.DownloadsDir, cfg.Paths.OutputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			problems = append(problems, fmt.Sprintf("Cannot create directory %s: %v", dir, err))
		}
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("Cannot create log directory: %v", err))
		}
	}

	if len(problems) > 0 {
		for _, p := range problems {
			fmt.Printf("  - %s\n", p)
		}
		return errors.New("configuration has errors")
	}

	if !cfg.Lock.Enabled {
		console.PrintWarning("Per-date lock is disabled; concurrent runs may race")
	}

	console.PrintSuccess("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Source URL: %s\n", cfg.Source.URL)
	fmt.Printf("  Downloads directory: %s\n", cfg.Paths.DownloadsDir)
	fmt.Printf("  Output directory: %s\n", cfg.Paths.OutputDir)
	fmt.Printf("  Timeout: %s\n", cfg.Source.Timeout)
	fmt.Printf("  MongoDB export: %t\n", cfg.Mongo.Enabled())
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
	return nil
}
