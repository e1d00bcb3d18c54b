package domain

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Downloader DownloaderConfig `mapstructure:"downloader"`
	History    HistoryConfig    `mapstructure:"history"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DownloaderConfig contains downloader invocation settings
type DownloaderConfig struct {
	Binary          string   `mapstructure:"binary"`           // youtube-dl, yt-dlp, youtube-dlc or a path
	OutputDir       string   `mapstructure:"output_dir"`       // used when a request names no directory
	DefaultArgs     []string `mapstructure:"default_args"`     // "name value" strings, prepended to request args
	AllowedArgs     []string `mapstructure:"allowed_args"`     // option names HTTP clients may pass, e.g. "--format"
	ConcurrentLimit int      `mapstructure:"concurrent_limit"` // simultaneous downloader processes
}

// HistoryConfig contains download history settings
type HistoryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	DatabasePath string `mapstructure:"database_path"`
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Downloader: DownloaderConfig{
			Binary:          "youtube-dl",
			OutputDir:       ".",
			DefaultArgs:     []string{},
			AllowedArgs:     []string{},
			ConcurrentLimit: 1,
		},
		History: HistoryConfig{
			Enabled:      true,
			DatabasePath: "$HOME/.ytd/history.db",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stderr",
		},
	}
}
