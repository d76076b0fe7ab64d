package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/vsinha/moplan/pkg/application/dto"
)

// EnvPrefix is the prefix of environment variables overriding file values.
// MOPLAN_PLANNING__HORIZON_WEEKS=6 sets planning.horizon_weeks.
const EnvPrefix = "MOPLAN_"

// Config is the complete configuration of a planning run
type Config struct {
	Planning PlanningConfig `json:"planning"`
	Calendar CalendarConfig `json:"calendar"`
	Inputs   InputsConfig   `json:"inputs"`
	Output   OutputConfig   `json:"output"`
	Logging  LoggingConfig  `json:"logging"`
	Metrics  MetricsConfig  `json:"metrics"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	var cfg Config
	cfg.Planning.AdvanceWeeks = dto.DefaultAdvanceWeeks
	cfg.SetDefaults()
	return cfg
}

// Load reads the configuration file at path, when path is not empty, then
// applies environment overrides. Values absent from both keep their defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment overrides: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills empty values of every section
func (c *Config) SetDefaults() {
	c.Planning.SetDefaults()
	c.Calendar.SetDefaults()
	c.Output.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks every section. Inputs are checked separately once command
// line flags have been merged in.
func (c Config) Validate() error {
	if err := c.Planning.Validate(); err != nil {
		return fmt.Errorf("planning: %w", err)
	}
	if err := c.Calendar.Validate(); err != nil {
		return fmt.Errorf("calendar: %w", err)
	}
	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}
