// Package config handles the configuration directory, file paths and runtime settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	// AppName is the application directory name.
	AppName = "todosync"

	// OAuthClientFile is the OAuth client credentials filename (Google Tasks backend).
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored OAuth token filename (Google Tasks backend).
	TokenFile = "token.json"

	// StateFile is the default local task list filename.
	StateFile = "todo_list.json"

	// SettingsFile is the optional settings file read from the config dir.
	SettingsFile = "config.yml"

	// EnvFile is the optional dotenv file read from the config dir.
	EnvFile = ".env"

	// LogFile is the log filename inside the log directory.
	LogFile = "todosync.log"
)

// Backend names.
const (
	BackendTodoist     = "todoist"
	BackendGoogleTasks = "googletasks"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string `yaml:"-"`

	// Debug enables debug logging to stderr.
	Debug bool `yaml:"-"`

	// Quiet suppresses informational output.
	Quiet bool `yaml:"-"`

	Backend     string        `yaml:"backend" env:"TODOSYNC_BACKEND" env-default:"todoist"`
	APIURL      string        `yaml:"api_url" env:"TODOSYNC_API_URL" env-default:"https://api.todoist.com/rest/v2/tasks"`
	APIToken    string        `yaml:"api_token" env:"TODOSYNC_API_TOKEN"`
	ProjectID   string        `yaml:"project_id" env:"TODOSYNC_PROJECT_ID"`
	StateFile   string        `yaml:"state_file" env:"TODOSYNC_STATE_FILE"`
	LogDir      string        `yaml:"log_dir" env:"TODOSYNC_LOG_DIR"`
	LogLevel    string        `yaml:"log_level" env:"TODOSYNC_LOG_LEVEL" env-default:"info"`
	LogEncoding string        `yaml:"log_encoding" env:"TODOSYNC_LOG_ENCODING" env-default:"json"`
	Timeout     time.Duration `yaml:"timeout" env:"TODOSYNC_TIMEOUT" env-default:"10s"`
}

// New creates a new Config with the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/todosync or $HOME/.config/todosync.
// Runtime settings are left at their zero values; use Load to read them.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{Dir: dir}, nil
}

// Load creates a Config for configDir and reads runtime settings.
// Sources, lowest precedence first: <dir>/.env, <dir>/config.yml, environment.
func Load(configDir string) (*Config, error) {
	cfg, err := New(configDir)
	if err != nil {
		return nil, err
	}

	// Missing .env is the normal case.
	_ = godotenv.Load(filepath.Join(cfg.Dir, EnvFile))

	settings := filepath.Join(cfg.Dir, SettingsFile)
	if err := cleanenv.ReadConfig(settings, cfg); err != nil {
		var pe *os.PathError
		if !errors.As(err, &pe) {
			return nil, fmt.Errorf("invalid %s: %w", SettingsFile, err)
		}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("read env: %w", err)
		}
	}

	switch cfg.Backend {
	case BackendTodoist, BackendGoogleTasks:
	default:
		return nil, fmt.Errorf("unknown backend: %s", cfg.Backend)
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive: %s", cfg.Timeout)
	}

	return cfg, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// StatePath returns the path to the local task list file.
func (c *Config) StatePath() string {
	if c.StateFile != "" {
		return c.StateFile
	}
	return filepath.Join(c.Dir, StateFile)
}

// LogPath returns the path to the log file.
func (c *Config) LogPath() string {
	dir := c.LogDir
	if dir == "" {
		dir = filepath.Join(c.Dir, "logs")
	}
	return filepath.Join(dir, LogFile)
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}
