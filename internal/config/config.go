// Package config provides configuration management for the gcp-bulk CLI.
//
// It implements the disciplined Viper pattern where Viper stays contained
// in this package and the rest of the codebase receives explicit Config structs.
// Configuration sources are resolved in this order: flags > env > config file > defaults.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the explicit configuration struct
// This is what the rest of the codebase sees
type Config struct {
	Concurrency       int
	RetryAttempts     int
	BackoffBase       time.Duration
	BackoffJitter     time.Duration
	SettleDelay       time.Duration
	HeartbeatInterval time.Duration
	GcloudBin         string
	Output            OutputConfig
	Verbosity         int
}

// OutputConfig defines where extracted key strings are written
type OutputConfig struct {
	KeysFile       string
	JoinedKeysFile string
	Separator      string
}

// Init initializes viper with defaults and config file paths
func Init() error {
	// Set config file name and type
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Add config file search paths
	viper.AddConfigPath("$HOME/.gcp-bulk")
	viper.AddConfigPath(".")

	// Set defaults
	viper.SetDefault("concurrency", 5)
	viper.SetDefault("retry-attempts", 3)
	viper.SetDefault("backoff-base", "5s")
	viper.SetDefault("backoff-jitter", "2s")
	viper.SetDefault("settle-delay", "75s")
	viper.SetDefault("heartbeat-interval", "30s")
	viper.SetDefault("gcloud-bin", "gcloud")
	viper.SetDefault("keys-file", "./keys.txt")
	viper.SetDefault("joined-keys-file", "./keys-joined.txt")
	viper.SetDefault("key-separator", ",")
	viper.SetDefault("verbosity", 0)

	// Bind environment variables with prefix
	viper.SetEnvPrefix("GCP_BULK")
	viper.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return nil
}

// Load reads from all sources and returns explicit Config
func Load() (*Config, error) {
	cfg := &Config{
		Concurrency:       viper.GetInt("concurrency"),
		RetryAttempts:     viper.GetInt("retry-attempts"),
		BackoffBase:       viper.GetDuration("backoff-base"),
		BackoffJitter:     viper.GetDuration("backoff-jitter"),
		SettleDelay:       viper.GetDuration("settle-delay"),
		HeartbeatInterval: viper.GetDuration("heartbeat-interval"),
		GcloudBin:         viper.GetString("gcloud-bin"),
		Output: OutputConfig{
			KeysFile:       viper.GetString("keys-file"),
			JoinedKeysFile: viper.GetString("joined-keys-file"),
			Separator:      viper.GetString("key-separator"),
		},
		Verbosity: viper.GetInt("verbosity"),
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures config is sane
func (c *Config) Validate() error {
	if c.Concurrency < 1 || c.Concurrency > 64 {
		return fmt.Errorf("invalid concurrency: %d (must be between 1 and 64)", c.Concurrency)
	}

	if c.RetryAttempts < 1 || c.RetryAttempts > 10 {
		return fmt.Errorf("invalid retry-attempts: %d (must be between 1 and 10)", c.RetryAttempts)
	}

	if c.BackoffBase <= 0 {
		return fmt.Errorf("invalid backoff-base: %s (must be positive)", c.BackoffBase)
	}

	if c.BackoffJitter < 0 {
		return fmt.Errorf("invalid backoff-jitter: %s (must not be negative)", c.BackoffJitter)
	}

	if c.SettleDelay < 0 {
		return fmt.Errorf("invalid settle-delay: %s (must not be negative)", c.SettleDelay)
	}

	if c.GcloudBin == "" {
		return fmt.Errorf("gcloud-bin must not be empty")
	}

	if c.Output.KeysFile == "" || c.Output.JoinedKeysFile == "" {
		return fmt.Errorf("output file paths must not be empty")
	}

	if len(c.Output.Separator) != 1 {
		return fmt.Errorf("invalid key-separator: %q (must be a single character)", c.Output.Separator)
	}

	return nil
}

// Save writes current config to file
func Save(cfg *Config) error {
	viper.Set("concurrency", cfg.Concurrency)
	viper.Set("retry-attempts", cfg.RetryAttempts)
	viper.Set("backoff-base", cfg.BackoffBase.String())
	viper.Set("backoff-jitter", cfg.BackoffJitter.String())
	viper.Set("settle-delay", cfg.SettleDelay.String())
	viper.Set("heartbeat-interval", cfg.HeartbeatInterval.String())
	viper.Set("gcloud-bin", cfg.GcloudBin)
	viper.Set("keys-file", cfg.Output.KeysFile)
	viper.Set("joined-keys-file", cfg.Output.JoinedKeysFile)
	viper.Set("key-separator", cfg.Output.Separator)
	viper.Set("verbosity", cfg.Verbosity)

	return viper.WriteConfig()
}

// Display shows current config (for gcp-bulk config get)
func Display() (string, error) {
	cfg, err := Load()
	if err != nil {
		return "", err
	}

	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = "(not found)"
	}

	return fmt.Sprintf(`Configuration:
  concurrency:        %d
  retry-attempts:     %d
  backoff-base:       %s
  backoff-jitter:     %s
  settle-delay:       %s
  heartbeat-interval: %s
  gcloud-bin:         %s
  verbosity:          %d

Output:
  keys-file:          %s
  joined-keys-file:   %s
  key-separator:      %q

Sources:
  Config file:        %s
  Environment:        GCP_BULK_*
  Flags:              (per command)
`,
		cfg.Concurrency,
		cfg.RetryAttempts,
		cfg.BackoffBase,
		cfg.BackoffJitter,
		cfg.SettleDelay,
		cfg.HeartbeatInterval,
		cfg.GcloudBin,
		cfg.Verbosity,
		cfg.Output.KeysFile,
		cfg.Output.JoinedKeysFile,
		cfg.Output.Separator,
		configFile,
	), nil
}
