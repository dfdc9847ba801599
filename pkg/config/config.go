package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for every environment variable override
const EnvPrefix = "JMDICT_"

// Config holds all configuration options for the dictionary pipeline
type Config struct {
	// Remote dictionary source
	Source SourceConfig `yaml:"source" json:"source"`

	// Dated artifact locations
	Paths PathsConfig `yaml:"paths" json:"paths"`

	// Markup layout of the dictionary document
	Document DocumentConfig `yaml:"document" json:"document"`

	// Per-date advisory lock
	Lock LockConfig `yaml:"lock" json:"lock"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Console output
	UI UIConfig `yaml:"ui" json:"ui"`

	// Optional MongoDB export
	Mongo MongoConfig `yaml:"mongo" json:"mongo"`
}

// SourceConfig describes where the compressed dictionary is fetched from
type SourceConfig struct {
	URL       string        `yaml:"url" json:"url"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
}

// PathsConfig holds the directories and naming of dated artifacts
type PathsConfig struct {
	DownloadsDir string `yaml:"downloads_dir" json:"downloads_dir"`
	OutputDir    string `yaml:"output_dir" json:"output_dir"`
	BaseName     string `yaml:"base_name" json:"base_name"`
	Extension    string `yaml:"extension" json:"extension"`
}

// DocumentConfig names the elements the entry list is extracted from
type DocumentConfig struct {
	RootElement  string `yaml:"root_element" json:"root_element"`
	EntryElement string `yaml:"entry_element" json:"entry_element"`
}

// LockConfig holds advisory lock settings
type LockConfig struct {
	Enabled    bool          `yaml:"enabled" json:"enabled"`
	StaleAfter time.Duration `yaml:"stale_after" json:"stale_after"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file" json:"file"`
}

// UIConfig holds console output preferences
type UIConfig struct {
	Color bool `yaml:"color" json:"color"`
	Quiet bool `yaml:"quiet" json:"quiet"`
}

// MongoConfig holds the optional MongoDB export settings. The export is
// disabled when no URI is set and the keychain is not used.
type MongoConfig struct {
	URI        string        `yaml:"uri" json:"uri"`
	UseKeyring bool          `yaml:"use_keyring" json:"use_keyring"`
	Database   string        `yaml:"database" json:"database"`
	Collection string        `yaml:"collection" json:"collection"`
	BatchSize  int           `yaml:"batch_size" json:"batch_size"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
}

// Enabled reports whether the MongoDB export should run
func (m MongoConfig) Enabled() bool {
	return m.URI != "" || m.UseKeyring
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			URL:       "http://ftp.edrdg.org/pub/Nihongo/JMdict_e.gz",
			UserAgent: "jmdict-fetch/1.0",
			Timeout:   10 * time.Minute,
		},
		Paths: PathsConfig{
			DownloadsDir: "./downloads",
			OutputDir:    "./output",
			BaseName:     "JMdict_e",
			Extension:    "xml",
		},
		Document: DocumentConfig{
			RootElement:  "JMdict",
			EntryElement: "entry",
		},
		Lock: LockConfig{
			Enabled:    true,
			StaleAfter: 6 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "",
		},
		UI: UIConfig{
			Color: true,
			Quiet: false,
		},
		Mongo: MongoConfig{
			Database:   "jmdict",
			Collection: "entries",
			BatchSize:  1000,
			Timeout:    30 * time.Second,
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	// Source
	if v := os.Getenv(EnvPrefix + "SOURCE_URL"); v != "" {
		c.Source.URL = v
	}
	if v := os.Getenv(EnvPrefix + "USER_AGENT"); v != "" {
		c.Source.UserAgent = v
	}
	if v := os.Getenv(EnvPrefix + "TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sTIMEOUT: %w", EnvPrefix, err))
		} else {
			c.Source.Timeout = d
		}
	}

	// Paths
	if v := os.Getenv(EnvPrefix + "DOWNLOADS_DIR"); v != "" {
		c.Paths.DownloadsDir = v
	}
	if v := os.Getenv(EnvPrefix + "OUTPUT_DIR"); v != "" {
		c.Paths.OutputDir = v
	}
	if v := os.Getenv(EnvPrefix + "BASE_NAME"); v != "" {
		c.Paths.BaseName = v
	}
	if v := os.Getenv(EnvPrefix + "EXTENSION"); v != "" {
		c.Paths.Extension = v
	}

	// Lock
	if v := os.Getenv(EnvPrefix + "LOCK_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sLOCK_ENABLED: %w", EnvPrefix, err))
		} else {
			c.Lock.Enabled = b
		}
	}

	// Logging
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_FILE"); v != "" {
		c.Logging.File = v
	}

	// Mongo
	if v := os.Getenv(EnvPrefix + "MONGO_URI"); v != "" {
		c.Mongo.URI = v
	}
	if v := os.Getenv(EnvPrefix + "MONGO_USE_KEYRING"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMONGO_USE_KEYRING: %w", EnvPrefix, err))
		} else {
			c.Mongo.UseKeyring = b
		}
	}
	if v := os.Getenv(EnvPrefix + "MONGO_DATABASE"); v != "" {
		c.Mongo.Database = v
	}
	if v := os.Getenv(EnvPrefix + "MONGO_COLLECTION"); v != "" {
		c.Mongo.Collection = v
	}

	// NO_COLOR is honoured regardless of prefix
	if os.Getenv("NO_COLOR") != "" {
		c.UI.Color = false
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML (or JSON) file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		"jmdict.yaml",
		"jmdict.yml",
		".jmdict.yaml",
		".jmdict.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "jmdict", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "jmdict", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	// Source
	if c.Source.URL == "" {
		errs = append(errs, errors.New("source URL is required"))
	} else if u, err := url.Parse(c.Source.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, fmt.Errorf("source URL must be an http(s) URL: %q", c.Source.URL))
	}
	if c.Source.Timeout < 0 {
		errs = append(errs, errors.New("source timeout cannot be negative"))
	}

	// Paths
	if c.Paths.DownloadsDir == "" {
		errs = append(errs, errors.New("downloads directory is required"))
	}
	if c.Paths.OutputDir == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Paths.BaseName == "" {
		errs = append(errs, errors.New("base file name is required"))
	}
	if strings.ContainsAny(c.Paths.BaseName, `/\`) {
		errs = append(errs, errors.New("base file name must not contain path separators"))
	}
	if c.Paths.Extension == "" {
		errs = append(errs, errors.New("file extension is required"))
	}
	if strings.HasPrefix(c.Paths.Extension, ".") {
		errs = append(errs, errors.New("file extension must not start with a dot"))
	}

	// Document
	if c.Document.RootElement == "" || c.Document.EntryElement == "" {
		errs = append(errs, errors.New("document root and entry element names are required"))
	}

	// Lock
	if c.Lock.Enabled && c.Lock.StaleAfter <= 0 {
		errs = append(errs, errors.New("lock stale_after must be positive"))
	}

	// Logging
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, errors.New("invalid log format"))
	}

	// Mongo
	if c.Mongo.Enabled() {
		if c.Mongo.Database == "" || c.Mongo.Collection == "" {
			errs = append(errs, errors.New("mongo database and collection are required when mongo.uri is set"))
		}
		if c.Mongo.BatchSize <= 0 {
			errs = append(errs, errors.New("mongo batch size must be positive"))
		}
		if c.Mongo.Timeout <= 0 {
			errs = append(errs, errors.New("mongo timeout must be positive"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["url"].(string); ok && v != "" {
		c.Source.URL = v
	}
	if v, ok := flags["downloads"].(string); ok && v != "" {
		c.Paths.DownloadsDir = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Paths.OutputDir = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["no-lock"].(bool); ok && v {
		c.Lock.Enabled = false
	}
	if v, ok := flags["no-color"].(bool); ok && v {
		c.UI.Color = false
	}
	if v, ok := flags["quiet"].(bool); ok && v {
		c.UI.Quiet = true
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".jmdict.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
