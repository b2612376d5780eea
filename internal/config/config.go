// Package config loads the askrepo configuration from disk and the
// environment. All components read their tunables from here.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete askrepo configuration
type Config struct {
	Redis    RedisConfig    `json:"redis" mapstructure:"redis"`
	Budget   BudgetConfig   `json:"budget" mapstructure:"budget"`
	Selector SelectorConfig `json:"selector" mapstructure:"selector"`
	Scan     ScanConfig     `json:"scan" mapstructure:"scan"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
}

// RedisConfig contains cache store connection settings
type RedisConfig struct {
	Addr     string `json:"addr" mapstructure:"addr"`
	Password string `json:"password" mapstructure:"password"`
	DB       int    `json:"db" mapstructure:"db"`
}

// BudgetConfig contains token budget settings for context assembly
type BudgetConfig struct {
	MaxContextTokens int `json:"maxContextTokens" mapstructure:"maxContextTokens"`
}

// SelectorConfig contains file selection caps
type SelectorConfig struct {
	MaxMentionFiles    int `json:"maxMentionFiles" mapstructure:"maxMentionFiles"`
	MaxSelectedFiles   int `json:"maxSelectedFiles" mapstructure:"maxSelectedFiles"`
	MaxCandidatesForAI int `json:"maxCandidatesForAI" mapstructure:"maxCandidatesForAI"`
	PrefilterThreshold int `json:"prefilterThreshold" mapstructure:"prefilterThreshold"`
}

// ScanConfig contains security scan caps per depth
type ScanConfig struct {
	QuickMaxFiles   int    `json:"quickMaxFiles" mapstructure:"quickMaxFiles"`
	QuickMaxAIFiles int    `json:"quickMaxAiFiles" mapstructure:"quickMaxAiFiles"`
	DeepMaxFiles    int    `json:"deepMaxFiles" mapstructure:"deepMaxFiles"`
	DeepMaxAIFiles  int    `json:"deepMaxAiFiles" mapstructure:"deepMaxAiFiles"`
	PolicyPath      string `json:"policyPath" mapstructure:"policyPath"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Redis: RedisConfig{
			Addr: "localhost:6379",
			DB:   0,
		},
		Budget: BudgetConfig{
			MaxContextTokens: 30000,
		},
		Selector: SelectorConfig{
			MaxMentionFiles:    10,
			MaxSelectedFiles:   50,
			MaxCandidatesForAI: 300,
			PrefilterThreshold: 1000,
		},
		Scan: ScanConfig{
			QuickMaxFiles:   50,
			QuickMaxAIFiles: 10,
			DeepMaxFiles:    200,
			DeepMaxAIFiles:  30,
		},
		Logging: LoggingConfig{
			Format: "text",
			Level:  "info",
		},
	}
}

// Load reads configuration from the given file path, falling back to
// defaults when the file is absent. Environment variables prefixed with
// ASKREPO_ override file values (ASKREPO_REDIS_ADDR, ASKREPO_LOGGING_LEVEL, ...).
func Load(path string) (*Config, error) {
	v := viper.New()

	def := DefaultConfig()
	v.SetDefault("redis.addr", def.Redis.Addr)
	v.SetDefault("redis.db", def.Redis.DB)
	v.SetDefault("budget.maxContextTokens", def.Budget.MaxContextTokens)
	v.SetDefault("selector.maxMentionFiles", def.Selector.MaxMentionFiles)
	v.SetDefault("selector.maxSelectedFiles", def.Selector.MaxSelectedFiles)
	v.SetDefault("selector.maxCandidatesForAI", def.Selector.MaxCandidatesForAI)
	v.SetDefault("selector.prefilterThreshold", def.Selector.PrefilterThreshold)
	v.SetDefault("scan.quickMaxFiles", def.Scan.QuickMaxFiles)
	v.SetDefault("scan.quickMaxAiFiles", def.Scan.QuickMaxAIFiles)
	v.SetDefault("scan.deepMaxFiles", def.Scan.DeepMaxFiles)
	v.SetDefault("scan.deepMaxAiFiles", def.Scan.DeepMaxAIFiles)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("logging.level", def.Logging.Level)

	v.SetEnvPrefix("ASKREPO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("askrepo")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Budget.MaxContextTokens <= 0 {
		return fmt.Errorf("budget.maxContextTokens must be positive")
	}
	if c.Selector.MaxSelectedFiles <= 0 {
		return fmt.Errorf("selector.maxSelectedFiles must be positive")
	}
	return nil
}
