package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/ytd-go/ytd/internal/domain"
	"github.com/ytd-go/ytd/pkg/ytd"
)

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	// Start with default config
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.ytd")
		v.AddConfigPath("/etc/ytd")
	}

	// Environment overrides, e.g. YTD_DOWNLOADER_BINARY
	v.SetEnvPrefix("YTD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// bindEnvKeys registers keys so AutomaticEnv applies to Unmarshal
// even when no config file sets them.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"server.host", "server.port",
		"downloader.binary", "downloader.output_dir", "downloader.default_args", "downloader.allowed_args",
		"downloader.concurrent_limit",
		"history.enabled", "history.database_path",
		"logging.level", "logging.format", "logging.output_path",
	} {
		_ = v.BindEnv(key)
	}
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Downloader.OutputDir = expandPath(config.Downloader.OutputDir)
	config.History.DatabasePath = expandPath(config.History.DatabasePath)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Downloader.Binary == "" {
		config.Downloader.Binary = ytd.DefaultBinary
	}

	if config.Downloader.ConcurrentLimit < 1 {
		return fmt.Errorf("concurrent limit must be at least 1")
	}

	if config.History.Enabled && config.History.DatabasePath == "" {
		return fmt.Errorf("history database path not configured")
	}

	for _, arg := range config.Downloader.DefaultArgs {
		if strings.TrimSpace(arg) == "" {
			return fmt.Errorf("empty default argument")
		}
	}

	for _, name := range config.Downloader.AllowedArgs {
		if name == "" || strings.ContainsAny(name, " \t") {
			return fmt.Errorf("invalid allowed argument name: %q", name)
		}
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("server.host", config.Server.Host)
	v.Set("server.port", config.Server.Port)
	v.Set("downloader.binary", config.Downloader.Binary)
	v.Set("downloader.output_dir", config.Downloader.OutputDir)
	v.Set("downloader.default_args", config.Downloader.DefaultArgs)
	v.Set("downloader.allowed_args", config.Downloader.AllowedArgs)
	v.Set("downloader.concurrent_limit", config.Downloader.ConcurrentLimit)
	v.Set("history.enabled", config.History.Enabled)
	v.Set("history.database_path", config.History.DatabasePath)
	v.Set("logging.level", config.Logging.Level)
	v.Set("logging.format", config.Logging.Format)
	v.Set("logging.output_path", config.Logging.OutputPath)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
