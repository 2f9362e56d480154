package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	// GlobalConfigDir is the directory under $XDG_CONFIG_HOME.
	GlobalConfigDir = "mindmesh"
	// GlobalConfigFile is the file name inside GlobalConfigDir.
	GlobalConfigFile = "config.yaml"
	// ProjectConfigDir marks a project and holds its config and state.
	ProjectConfigDir = ".mindmesh"
	// ProjectConfigFile is the file name inside ProjectConfigDir.
	ProjectConfigFile = "config.yaml"
)

// configLayer is one YAML file merged over the defaults.
type configLayer struct {
	name     string
	path     string
	required bool
}

// LoadConfig builds the effective configuration. Sources, lowest first:
//
//	Default()
//	$XDG_CONFIG_HOME/mindmesh/config.yaml
//	<project root>/.mindmesh/config.yaml
//	the file named by the "config" key (--config or MINDMESH_CONFIG)
//	MINDMESH_* environment variables and bound flags
//
// Optional files that do not exist are skipped. The result is validated.
func LoadConfig(v *viper.Viper) (*Config, error) {
	cfg := Default()

	defaults, err := toSettings(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode defaults: %w", err)
	}
	if err := v.MergeConfigMap(defaults); err != nil {
		return nil, fmt.Errorf("merge defaults: %w", err)
	}

	layers := []configLayer{
		{name: "global", path: globalConfigPath()},
		{name: "project", path: projectConfigPath()},
		{name: "explicit", path: v.GetString("config"), required: true},
	}
	for _, layer := range layers {
		if layer.path == "" {
			continue
		}
		if err := mergeFile(v, layer.path, layer.required); err != nil {
			return nil, fmt.Errorf("%s config %s: %w", layer.name, layer.path, err)
		}
	}

	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// globalConfigPath returns the user's config file, or "" if there is none.
func globalConfigPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, ".config")
	}
	return existing(filepath.Join(base, GlobalConfigDir, GlobalConfigFile))
}

// projectConfigPath returns the config file of the enclosing project, or ""
// if there is none.
func projectConfigPath() string {
	return existing(filepath.Join(FindProjectRoot(""), ProjectConfigDir, ProjectConfigFile))
}

func existing(path string) string {
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return path
	}
	return ""
}

// mergeFile reads a YAML file into a scratch viper and merges its settings
// over v.
func mergeFile(v *viper.Viper, path string, required bool) error {
	file, err := os.Open(path)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	defer func() { _ = file.Close() }()

	layer := viper.New()
	layer.SetConfigType("yaml")
	if err := layer.ReadConfig(file); err != nil {
		return err
	}
	return v.MergeConfigMap(layer.AllSettings())
}

// toSettings flattens cfg into the nested map viper merges. Durations are
// written as strings so they decode the same way as values from YAML.
func toSettings(cfg *Config) (map[string]any, error) {
	settings := make(map[string]any)
	durationType := reflect.TypeOf(time.Duration(0))

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "mapstructure",
		Result:  &settings,
		DecodeHook: func(from, _ reflect.Type, data any) (any, error) {
			if from == durationType {
				return data.(time.Duration).String(), nil
			}
			return data, nil
		},
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(cfg); err != nil {
		return nil, err
	}
	return settings, nil
}
