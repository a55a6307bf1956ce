package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultUserAgent is the identifying browser string sent with every image request
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_11_5) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/50.0.2661.102 Safari/537.36"

// Config holds all configuration options for a fetch run
type Config struct {
	// Manifest and hash table locations
	Input InputConfig `yaml:"input" json:"input"`

	// Output layout
	Output OutputConfig `yaml:"output" json:"output"`

	// Network settings
	Fetch FetchConfig `yaml:"fetch" json:"fetch"`

	// Console settings
	UI UIConfig `yaml:"ui" json:"ui"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// InputConfig holds the job inputs
type InputConfig struct {
	Manifest string `yaml:"manifest" json:"manifest"`
	HashFile string `yaml:"hash_file" json:"hash_file"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
	ImagesDir     string `yaml:"images_dir" json:"images_dir"`
	LogsDir       string `yaml:"logs_dir" json:"logs_dir"`
	StitchedDir   string `yaml:"stitched_dir" json:"stitched_dir"`
}

// FetchConfig holds download-specific configuration
type FetchConfig struct {
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
	ChunkSize         int           `yaml:"chunk_size" json:"chunk_size"`
	MaxRedirects      int           `yaml:"max_redirects" json:"max_redirects"`
	RequestsPerSecond float64       `yaml:"requests_per_second" json:"requests_per_second"`
}

// UIConfig holds console output preferences
type UIConfig struct {
	Progress bool `yaml:"progress" json:"progress"`
	Color    bool `yaml:"color" json:"color"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			BaseDirectory: "out",
			ImagesDir:     "images",
			LogsDir:       "logs",
			StitchedDir:   "stitched_images",
		},
		Fetch: FetchConfig{
			Timeout:           2 * time.Second,
			UserAgent:         DefaultUserAgent,
			ChunkSize:         1024,
			MaxRedirects:      30,
			RequestsPerSecond: 0, // 0 means no pacing
		},
		UI: UIConfig{
			Progress: true,
			Color:    true,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// ImagesPath returns the directory downloaded images are written to
func (c *Config) ImagesPath() string {
	return filepath.Join(c.Output.BaseDirectory, c.Output.ImagesDir)
}

// LogsPath returns the directory holding the checkpoint, failure and mismatch logs
func (c *Config) LogsPath() string {
	return filepath.Join(c.Output.BaseDirectory, c.Output.LogsDir)
}

// StitchedPath returns the default destination of the stitch command
func (c *Config) StitchedPath() string {
	return filepath.Join(c.Output.BaseDirectory, c.Output.StitchedDir)
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if manifest := os.Getenv("PAIRFETCH_MANIFEST"); manifest != "" {
		c.Input.Manifest = manifest
	}
	if hashFile := os.Getenv("PAIRFETCH_HASH_FILE"); hashFile != "" {
		c.Input.HashFile = hashFile
	}
	if outDir := os.Getenv("PAIRFETCH_OUT_DIR"); outDir != "" {
		c.Output.BaseDirectory = outDir
	}
	if timeout := os.Getenv("PAIRFETCH_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			errs = append(errs, fmt.Errorf("PAIRFETCH_TIMEOUT: %w", err))
		} else {
			c.Fetch.Timeout = d
		}
	}
	if userAgent := os.Getenv("PAIRFETCH_USER_AGENT"); userAgent != "" {
		c.Fetch.UserAgent = userAgent
	}
	if rps := os.Getenv("PAIRFETCH_REQUESTS_PER_SECOND"); rps != "" {
		val, err := strconv.ParseFloat(rps, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("PAIRFETCH_REQUESTS_PER_SECOND: %w", err))
		} else {
			c.Fetch.RequestsPerSecond = val
		}
	}
	if progress := os.Getenv("PAIRFETCH_PROGRESS"); progress != "" {
		c.UI.Progress = strings.ToLower(progress) == "true"
	}
	if logLevel := os.Getenv("PAIRFETCH_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv("PAIRFETCH_LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
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

// findConfigFile searches for a config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		"pairfetch.yaml",
		"pairfetch.yml",
		".pairfetch.yaml",
		filepath.Join(os.Getenv("HOME"), ".config", "pairfetch", "config.yaml"),
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

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Output.ImagesDir == "" || c.Output.LogsDir == "" {
		errs = append(errs, errors.New("images and logs directory names are required"))
	}

	if c.Fetch.Timeout <= 0 {
		errs = append(errs, errors.New("fetch timeout must be positive"))
	}
	if c.Fetch.ChunkSize <= 0 {
		errs = append(errs, errors.New("chunk size must be positive"))
	}
	if c.Fetch.MaxRedirects < 0 {
		errs = append(errs, errors.New("max redirects cannot be negative"))
	}
	if c.Fetch.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("requests per second cannot be negative"))
	}
	if strings.TrimSpace(c.Fetch.UserAgent) == "" {
		errs = append(errs, errors.New("user agent is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// RequireManifest reports an error when no manifest path has been configured
func (c *Config) RequireManifest() error {
	if strings.TrimSpace(c.Input.Manifest) == "" {
		return errors.New("input manifest path is required")
	}
	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map are applied.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if manifest, ok := flags["manifest"].(string); ok && manifest != "" {
		c.Input.Manifest = manifest
	}
	if hashFile, ok := flags["hash-file"].(string); ok && hashFile != "" {
		c.Input.HashFile = hashFile
	}
	if outDir, ok := flags["out-dir"].(string); ok && outDir != "" {
		c.Output.BaseDirectory = outDir
	}
	if timeout, ok := flags["timeout"].(time.Duration); ok && timeout > 0 {
		c.Fetch.Timeout = timeout
	}
	if userAgent, ok := flags["user-agent"].(string); ok && userAgent != "" {
		c.Fetch.UserAgent = userAgent
	}
	if rps, ok := flags["rate"].(float64); ok && rps >= 0 {
		c.Fetch.RequestsPerSecond = rps
	}
	if progress, ok := flags["progress"].(bool); ok {
		c.UI.Progress = progress
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".pairfetch.env"))

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
