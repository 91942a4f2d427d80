package labmatcher

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jinzhu/copier"
	"github.com/kelseyhightower/envconfig"
	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const defaultConfigFile = "config.json"

// envOverrides are read from the environment after the config file.
type envOverrides struct {
	DataPath    string `envconfig:"LABMATCH_DATA"`
	ProfilePath string `envconfig:"LABMATCH_ICC_PROFILE"`
	Tool        string `envconfig:"LABMATCH_XICCLU"`
	TopN        int    `envconfig:"LABMATCH_TOP_N"`
}

// LoadConfig loads configuration from the given path or the default
// config.json. The format follows the extension: .json, .yaml/.yml or .toml.
// A missing file yields the defaults.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		path = defaultConfigFile
	}
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := unmarshalConfig(path, data, &cfg); err != nil {
			return cfg, fmt.Errorf("decode config: %w", err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	cfg.ApplyDefaults()
	if err := cfg.expandPaths(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SaveConfig persists configuration to disk.
func SaveConfig(path string, cfg Config) error {
	if path == "" {
		path = defaultConfigFile
	}
	tmp := path + ".tmp"
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	cfg.ApplyDefaults()
	data, err := marshalConfig(path, cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// Clone creates a deep copy of the configuration so callers can mutate safely.
func (c Config) Clone() Config {
	var out Config
	if err := copier.CopyWithOption(&out, &c, copier.Option{DeepCopy: true}); err != nil {
		out = c
		out.Columns.Formula = cloneStrings(c.Columns.Formula)
		out.Columns.Excluded = cloneStrings(c.Columns.Excluded)
	}
	return out
}

func configFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	default:
		return "json"
	}
}

func unmarshalConfig(path string, data []byte, cfg *Config) error {
	switch configFormat(path) {
	case "yaml":
		return yaml.Unmarshal(data, cfg)
	case "toml":
		return toml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

func marshalConfig(path string, cfg Config) ([]byte, error) {
	switch configFormat(path) {
	case "yaml":
		return yaml.Marshal(cfg)
	case "toml":
		return toml.Marshal(cfg)
	default:
		return json.MarshalIndent(cfg, "", "  ")
	}
}

func applyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	if env.DataPath != "" {
		cfg.DataPath = env.DataPath
	}
	if env.ProfilePath != "" {
		cfg.Conversion.ProfilePath = env.ProfilePath
	}
	if env.Tool != "" {
		cfg.Conversion.Tool = env.Tool
	}
	if env.TopN > 0 {
		cfg.TopN = env.TopN
	}
	return nil
}

func (c *Config) expandPaths() error {
	var err error
	if c.DataPath, err = ExpandPath(c.DataPath); err != nil {
		return err
	}
	if c.Conversion.ProfilePath, err = ExpandPath(c.Conversion.ProfilePath); err != nil {
		return err
	}
	if c.ExportPath, err = ExpandPath(c.ExportPath); err != nil {
		return err
	}
	return nil
}

// ExpandPath resolves a leading ~ to the user's home directory.
func ExpandPath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", nil
	}
	expanded, err := homedir.Expand(p)
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", p, err)
	}
	return expanded, nil
}
