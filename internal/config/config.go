package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// LogCfg controls CLI logging.
type LogCfg struct {
	Level string `koanf:"level"`
	JSON  bool   `koanf:"json"`
}

// Config is the CLI configuration.
type Config struct {
	Log      LogCfg `koanf:"log"`
	Pipeline string `koanf:"pipeline"`
}

// Load merges YAML (if present) with env vars
// (prefix `REWIRE__`, delimiter `__`).
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}

	_ = k.Load(env.Provider("REWIRE__", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "REWIRE__")), "__", ".")
	}), nil)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, err
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	return cfg, nil
}
