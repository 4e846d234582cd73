package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CODETYPE_"

// LoadEnvFiles loads .env files into the process environment. Variables that are
// already set win, so earlier paths take priority over later ones. Missing files are skipped.
func LoadEnvFiles(paths ...string) error {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}
	return nil
}

// ApplyEnv overlays CODETYPE_* variables onto cfg. Only set variables are applied.
func ApplyEnv(cfg *FileConfig, lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	setString := func(key string, dst **string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			v = strings.TrimSpace(v)
			*dst = &v
		}
	}
	setInt := func(key string, dst **int) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err)
		}
		*dst = &n
		return nil
	}
	setBool := func(key string, dst **bool) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err)
		}
		*dst = &b
		return nil
	}

	setString("LANG", &cfg.Practice.Lang)
	setString("DIFFICULTY", &cfg.Practice.Difficulty)
	setString("MODE", &cfg.Practice.Mode)
	setString("SNIPPETS", &cfg.Practice.Snippets)
	setString("DATABASE", &cfg.Stats.Database)
	setString("ADDR", &cfg.Server.Addr)
	setString("REMOTE", &cfg.Server.Remote)
	if v, ok := lookup(EnvPrefix + "CORS_ORIGINS"); ok {
		cfg.Server.CORSOrigins = splitList(v)
	}

	for _, err := range []error{
		setInt("DURATION", &cfg.Practice.Duration),
		setInt("ACCURACY_TARGET", &cfg.Practice.AccuracyTarget),
		setBool("BACKSPACE", &cfg.Practice.Backspace),
		setInt("LAST", &cfg.Stats.Last),
		setInt("CURVE_WINDOW", &cfg.Stats.CurveWindow),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Load reads the TOML file at path and overlays the process environment.
func Load(path string) (FileConfig, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return FileConfig{}, err
	}
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return FileConfig{}, err
	}
	return cfg, nil
}
