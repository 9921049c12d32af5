package config

import (
	"fmt"
	"strings"
	"time"

	assist "github.com/ZanzyTHEbar/dragonscale-assist"
	"github.com/ZanzyTHEbar/dragonscale-assist/internal/llm"
)

// DispatcherConfig bounds action execution.
type DispatcherConfig struct {
	// ActionTimeout is the deadline of a single action, e.g. "45s".
	ActionTimeout time.Duration `json:"action_timeout"`
	// HistoryLimit caps the finished executions kept for status queries.
	HistoryLimit int `json:"history_limit"`
}

func (c *DispatcherConfig) SetDefaults() {
	d := assist.DefaultConfig()
	if c.ActionTimeout == 0 {
		c.ActionTimeout = d.ActionTimeout
	}
	if c.HistoryLimit == 0 {
		c.HistoryLimit = d.HistoryLimit
	}
}

func (c DispatcherConfig) Validate() error {
	if c.ActionTimeout < 0 {
		return fmt.Errorf("action_timeout must not be negative, got %s", c.ActionTimeout)
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("history_limit must not be negative, got %d", c.HistoryLimit)
	}
	return nil
}

// CacheConfig defines the expiry policies of the shared cache.
type CacheConfig struct {
	// TTL is the maximum entry age. Zero disables the TTL policy.
	TTL time.Duration `json:"ttl"`
	// EpochWeekday starts each week, e.g. "monday". Empty disables the epoch policy.
	EpochWeekday string `json:"epoch_weekday"`
	// EpochTimezone is an IANA zone name the week is computed in.
	EpochTimezone string `json:"epoch_timezone"`
}

func (c *CacheConfig) SetDefaults() {
	if c.TTL == 0 && c.EpochWeekday == "" {
		c.TTL = 7 * 24 * time.Hour
		c.EpochWeekday = "monday"
	}
	if c.EpochTimezone == "" {
		c.EpochTimezone = "UTC"
	}
}

func (c CacheConfig) Validate() error {
	if c.TTL < 0 {
		return fmt.Errorf("ttl must not be negative, got %s", c.TTL)
	}
	if c.EpochWeekday != "" {
		if _, err := c.Weekday(); err != nil {
			return err
		}
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// EpochEnabled reports whether entries expire at the weekly boundary.
func (c CacheConfig) EpochEnabled() bool { return c.EpochWeekday != "" }

// Weekday parses EpochWeekday. It defaults to Monday when unset.
func (c CacheConfig) Weekday() (time.Weekday, error) {
	if c.EpochWeekday == "" {
		return time.Monday, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(c.EpochWeekday, d.String()) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown epoch_weekday %q", c.EpochWeekday)
}

// Location loads EpochTimezone.
func (c CacheConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.EpochTimezone)
	if err != nil {
		return nil, fmt.Errorf("epoch_timezone: %w", err)
	}
	return loc, nil
}

// LLMConfig selects the text generator.
type LLMConfig struct {
	// Provider is one of "genkit", "gemini" or "template".
	Provider string `json:"provider"`
	Model    string `json:"model"`
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `json:"api_key_env"`
	// FlowName is the Genkit flow registered for generation.
	FlowName string `json:"flow_name"`
}

func (c *LLMConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = llm.ProviderTemplate
	}
	if c.Model == "" {
		c.Model = llm.DefaultGeminiModel
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = "GEMINI_API_KEY"
	}
	if c.FlowName == "" {
		c.FlowName = "generateText"
	}
}

func (c LLMConfig) Validate() error {
	switch c.Provider {
	case llm.ProviderGenkit, llm.ProviderGemini, llm.ProviderTemplate:
		return nil
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
}

// EventBusConfig configures the lifecycle event bus.
type EventBusConfig struct {
	Enabled     bool `json:"enabled"`
	BufferSize  int  `json:"buffer_size"`
	WorkerCount int  `json:"worker_count"`
}

func (c *EventBusConfig) SetDefaults() {
	d := assist.DefaultConfig()
	if c.BufferSize == 0 {
		c.BufferSize = d.EventBusBufferSize
	}
	if c.WorkerCount == 0 {
		c.WorkerCount = d.EventBusWorkerCount
	}
}

func (c EventBusConfig) Validate() error {
	if c.BufferSize < 0 || c.WorkerCount < 0 {
		return fmt.Errorf("buffer_size and worker_count must not be negative")
	}
	return nil
}

// MetricsConfig exposes Prometheus metrics when Listen is set, e.g. ":9090".
type MetricsConfig struct {
	Listen string `json:"listen"`
}

// FixturesConfig points at the YAML world used by the offline collaborators.
type FixturesConfig struct {
	Path string `json:"path"`
}

// DispatcherOptions converts the dispatcher and event bus sections.
func (c Config) DispatcherOptions() assist.Config {
	return assist.Config{
		ActionTimeout:       c.Dispatcher.ActionTimeout,
		HistoryLimit:        c.Dispatcher.HistoryLimit,
		EnableEventBus:      c.EventBus.Enabled,
		EventBusBufferSize:  c.EventBus.BufferSize,
		EventBusWorkerCount: c.EventBus.WorkerCount,
	}
}
