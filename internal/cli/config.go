package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/meigma/unitypackage"
)

// Config holds defaults loaded from TOML.
//
//	log_level = "info"
//	temp_dir = "/var/tmp"
//	compression_level = 9
//	default_root = "assets"
//	keep_root = false
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`

	// TempDir overrides where staging directories are created.
	TempDir string `toml:"temp_dir"`

	// CompressionLevel is the deflate level for pack; nil keeps the default.
	CompressionLevel *int `toml:"compression_level"`

	// DefaultRoot is the root prefix for pack: none, assets, or packages.
	DefaultRoot string `toml:"default_root"`

	// KeepRoot keeps the first pathname element on unpack.
	KeepRoot bool `toml:"keep_root"`
}

// LoadConfig reads the TOML file at path. A missing file yields the zero
// Config unless required is set.
func LoadConfig(path string, required bool) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String())
	}
	if _, err := unitypackage.ParseRootPrefix(cfg.DefaultRoot); err != nil {
		return cfg, fmt.Errorf("config %s: default_root: %w", path, err)
	}
	return cfg, nil
}

// level parses LogLevel, defaulting to info.
func (c Config) level() (log.Level, error) {
	if c.LogLevel == "" {
		return log.InfoLevel, nil
	}
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel, fmt.Errorf("config: log_level: %w", err)
	}
	return level, nil
}

// defaultConfigPath returns the config path using the XDG standard
// (~/.config/unitypackage/config.toml).
func defaultConfigPath() string {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName, "config.toml")
}
