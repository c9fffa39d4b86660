// Package config loads tool configuration from a YAML file with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the tool
type Config struct {
	SparkPost SparkPostConfig `yaml:"sparkpost"`
	Suppress  SuppressConfig  `yaml:"suppress"`
}

// SparkPostConfig holds SparkPost API configuration
type SparkPostConfig struct {
	APIKey         string `yaml:"api_key"`
	Host           string `yaml:"host"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Subaccount     int    `yaml:"subaccount"`
}

// Timeout returns the configured per-call timeout as a duration
func (c SparkPostConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BaseURL returns the endpoint base, normalized to an https URL
func (c SparkPostConfig) BaseURL() string {
	host := strings.TrimSpace(c.Host)
	if strings.HasPrefix(host, "https://") || strings.HasPrefix(host, "http://") {
		return strings.TrimRight(host, "/")
	}
	return "https://" + strings.TrimRight(host, "/")
}

// SuppressConfig holds suppression-list processing configuration
type SuppressConfig struct {
	Timezone               string   `yaml:"timezone"`
	Properties             []string `yaml:"properties"`
	BatchSize              int      `yaml:"batch_size"`
	TypeDefault            string   `yaml:"type_default"`
	DescriptionDefault     string   `yaml:"description_default"`
	FileCharacterEncodings []string `yaml:"file_character_encodings"`
	DeleteThreads          int      `yaml:"delete_threads"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.SparkPost.Host == "" {
		cfg.SparkPost.Host = "api.sparkpost.com"
	}
	if cfg.SparkPost.TimeoutSeconds == 0 {
		cfg.SparkPost.TimeoutSeconds = 60
	}
	if cfg.Suppress.Timezone == "" {
		cfg.Suppress.Timezone = "UTC"
	}
	if len(cfg.Suppress.Properties) == 0 {
		cfg.Suppress.Properties = []string{"recipient", "type", "description"}
	}
	if cfg.Suppress.BatchSize == 0 {
		cfg.Suppress.BatchSize = 10000
	}
	if cfg.Suppress.TypeDefault == "" {
		cfg.Suppress.TypeDefault = "non_transactional"
	}
	if len(cfg.Suppress.FileCharacterEncodings) == 0 {
		cfg.Suppress.FileCharacterEncodings = []string{"utf-8"}
	}
	if cfg.Suppress.DeleteThreads == 0 {
		cfg.Suppress.DeleteThreads = 10
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so the API key can live in .env locally and in real env vars elsewhere.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if apiKey := os.Getenv("SPARKPOST_API_KEY"); apiKey != "" {
		cfg.SparkPost.APIKey = apiKey
	}
	if host := os.Getenv("SPARKPOST_HOST"); host != "" {
		cfg.SparkPost.Host = host
	}
	if sub := os.Getenv("SPARKPOST_SUBACCOUNT"); sub != "" {
		n, err := strconv.Atoi(sub)
		if err != nil {
			return nil, fmt.Errorf("SPARKPOST_SUBACCOUNT: %w", err)
		}
		cfg.SparkPost.Subaccount = n
	}
	if tz := os.Getenv("SUPPRESS_TIMEZONE"); tz != "" {
		cfg.Suppress.Timezone = tz
	}

	return cfg, nil
}

// Validate checks the configuration for values that would make any run fail.
func (c *Config) Validate() error {
	if c.SparkPost.APIKey == "" {
		return fmt.Errorf("missing SparkPost API key (api_key or SPARKPOST_API_KEY)")
	}
	host := strings.TrimPrefix(strings.TrimPrefix(c.SparkPost.Host, "https://"), "http://")
	if host == "" || !strings.Contains(host, ".") {
		return fmt.Errorf("malformed SparkPost host %q", c.SparkPost.Host)
	}
	switch c.Suppress.TypeDefault {
	case "transactional", "non_transactional":
	default:
		return fmt.Errorf("type_default must be transactional or non_transactional, got %q", c.Suppress.TypeDefault)
	}
	if c.SparkPost.Subaccount < 0 {
		return fmt.Errorf("subaccount must be >= 0, got %d", c.SparkPost.Subaccount)
	}
	if c.SparkPost.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must be >= 0, got %d", c.SparkPost.TimeoutSeconds)
	}
	if c.Suppress.BatchSize < 0 {
		return fmt.Errorf("batch_size must be >= 0, got %d", c.Suppress.BatchSize)
	}
	if c.Suppress.DeleteThreads < 0 {
		return fmt.Errorf("delete_threads must be >= 0, got %d", c.Suppress.DeleteThreads)
	}
	return nil
}
