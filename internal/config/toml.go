// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Practice PracticeConfig `toml:"practice"`
	Stats    StatsConfig    `toml:"stats"`
	Server   ServerConfig   `toml:"server"`
}

// PracticeConfig maps typing test settings.
type PracticeConfig struct {
	Lang           *string `toml:"lang"`
	Difficulty     *string `toml:"difficulty"`
	Mode           *string `toml:"mode"`
	Duration       *int    `toml:"duration"`
	AccuracyTarget *int    `toml:"accuracy-target"`
	Backspace      *bool   `toml:"backspace"`
	Snippets       *string `toml:"snippets"`
}

// StatsConfig maps stats view settings.
type StatsConfig struct {
	Last        *int    `toml:"last"`
	CurveWindow *int    `toml:"curve-window"`
	Database    *string `toml:"database"`
}

// ServerConfig maps the results service settings.
type ServerConfig struct {
	Addr        *string  `toml:"addr"`
	Remote      *string  `toml:"remote"`
	CORSOrigins []string `toml:"cors-origins"`
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
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
