package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/Cyclone1070/opal/internal/errutil"
)

const (
	// ConfigDir is the directory name under ~/.config
	ConfigDir = "opal"
	// ConfigFile is the config file name
	ConfigFile = "config.json"
	// dataDirName is the default state directory under ~/.local/share
	dataDirName = "opal"
)

// FileSystem abstracts file operations for testability
type FileSystem interface {
	UserHomeDir() (string, error)
	ReadFile(path string) ([]byte, error)
}

// ConfigFileReader implements FileSystem using the real OS for config loading
type ConfigFileReader struct{}

func (ConfigFileReader) UserHomeDir() (string, error) {
	return os.UserHomeDir()
}

func (ConfigFileReader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Loader handles configuration loading with injected dependencies
type Loader struct {
	fs FileSystem
}

// NewLoader creates a production Loader using the real filesystem
func NewLoader() *Loader {
	return &Loader{fs: ConfigFileReader{}}
}

// NewLoaderWithFS creates a Loader with a custom filesystem (for testing)
func NewLoaderWithFS(fs FileSystem) *Loader {
	return &Loader{fs: fs}
}

// Load reads configuration from ~/.config/opal/config.json and merges it
// with defaults. Dotfile values override defaults, including explicit zero
// values; missing keys keep their defaults. Returns the default config if
// the dotfile doesn't exist, and an error only for parse errors, permission
// issues, or validation failures.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	homeDir, err := l.fs.UserHomeDir()
	if err != nil {
		return l.withResolvedState(cfg, "")
	}

	configPath := filepath.Join(homeDir, ".config", ConfigDir, ConfigFile)

	data, err := l.fs.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return l.withResolvedState(cfg, homeDir)
		}
		return nil, errutil.Wrapf(errutil.KindIO, err, "reading config %s", configPath)
	}

	// Unmarshal directly into the default config struct so present keys
	// overwrite defaults (even if zero) while missing keys are untouched.
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errutil.Wrapf(errutil.KindConfig, err, "invalid config %s", configPath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return l.withResolvedState(cfg, homeDir)
}

// withResolvedState fills State.DataDir when the dotfile left it empty.
func (l *Loader) withResolvedState(cfg *Config, homeDir string) (*Config, error) {
	if cfg.State.DataDir != "" {
		return cfg, nil
	}
	if homeDir == "" {
		var err error
		homeDir, err = l.fs.UserHomeDir()
		if err != nil {
			return nil, errutil.Wrap(errutil.KindConfig, err, "cannot resolve home directory for state dir")
		}
	}
	cfg.State.DataDir = filepath.Join(homeDir, ".local", "share", dataDirName)
	return cfg, nil
}

// Load is a convenience function using the default loader
func Load() (*Config, error) {
	return NewLoader().Load()
}
