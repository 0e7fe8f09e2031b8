// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	View   ViewConfig   `toml:"view"`
	Serve  ServeConfig  `toml:"serve"`
	Import ImportConfig `toml:"import"`
	Log    LogConfig    `toml:"log"`
}

// ViewConfig maps dataset and display settings shared by all commands.
type ViewConfig struct {
	Data         *string `toml:"data"`
	DefaultClass *string `toml:"default-class"`
	Locale       *string `toml:"locale"`
}

// ServeConfig maps HTTP server settings.
type ServeConfig struct {
	Addr  *string `toml:"addr"`
	Watch *bool   `toml:"watch"`
}

// ImportConfig maps CSV import settings.
type ImportConfig struct {
	Encoding *string           `toml:"encoding"`
	Aliases  map[string]string `toml:"aliases"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
	File  *string `toml:"file"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
