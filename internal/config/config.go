// Package config loads the assistant configuration from a YAML or JSON file
// with ASSIST_ environment overrides.
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

	"github.com/ZanzyTHEbar/dragonscale-assist/internal/search"
)

// EnvPrefix marks environment overrides, e.g. ASSIST_SEARCH__FLOOR_METERS=3000.
const EnvPrefix = "ASSIST_"

type Config struct {
	Dispatcher DispatcherConfig `json:"dispatcher"`
	Cache      CacheConfig      `json:"cache"`
	Search     search.Config    `json:"search"`
	LLM        LLMConfig        `json:"llm"`
	EventBus   EventBusConfig   `json:"event_bus"`
	Metrics    MetricsConfig    `json:"metrics"`
	Fixtures   FixturesConfig   `json:"fixtures"`
}

// Load reads path, applies environment overrides, fills defaults and
// validates every section. An empty path loads defaults and environment only.
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
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every section defaulted.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

// SetDefaults fills unset fields in every section.
func (c *Config) SetDefaults() {
	c.Dispatcher.SetDefaults()
	c.Cache.SetDefaults()
	setSearchDefaults(&c.Search)
	c.LLM.SetDefaults()
	c.EventBus.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Dispatcher.Validate(); err != nil {
		return fmt.Errorf("dispatcher: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.Search.Validate(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := c.EventBus.Validate(); err != nil {
		return fmt.Errorf("event_bus: %w", err)
	}
	return nil
}

func setSearchDefaults(c *search.Config) {
	d := search.DefaultConfig()
	if c.FloorMeters == 0 {
		c.FloorMeters = d.FloorMeters
	}
	if c.CeilingMeters == 0 {
		c.CeilingMeters = d.CeilingMeters
	}
	if c.BaseLimit == 0 {
		c.BaseLimit = d.BaseLimit
	}
	if c.MaxLimit == 0 {
		c.MaxLimit = d.MaxLimit
	}
	if c.ProximityMeters == 0 {
		c.ProximityMeters = d.ProximityMeters
	}
	if c.NameSimilarity == 0 {
		c.NameSimilarity = d.NameSimilarity
	}
}
