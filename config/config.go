// Package config loads settings shared by the switchboard binaries from an
// optional config file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is read from a YAML or .env file, with environment variables taking
// precedence. Flags in cmd/* override both.
type Config struct {
	APIKey  string `mapstructure:"OPENROUTER_API_KEY"`
	BaseURL string `mapstructure:"OPENROUTER_BASE_URL"`

	RedModel    string `mapstructure:"RED_MODEL"`
	BlueModel   string `mapstructure:"BLUE_MODEL"`
	Referee     string `mapstructure:"REFEREE_MODEL"`
	ReviewModel string `mapstructure:"REVIEW_MODEL"`
	NoReferee   bool   `mapstructure:"NO_REFEREE"`

	Games    int `mapstructure:"GAMES"`
	Parallel int `mapstructure:"PARALLEL"`
	MaxTurns int `mapstructure:"MAX_TURNS"`

	WordsFile    string `mapstructure:"WORDS_FILE"`
	MappingsFile string `mapstructure:"MODEL_MAPPINGS_FILE"`
	PromptDir    string `mapstructure:"PROMPT_DIR"`
	LogDir       string `mapstructure:"LOG_DIR"`

	ServerAddr string `mapstructure:"SERVER_ADDR"`
	DBPath     string `mapstructure:"DB_PATH"`
	CookieKeys string `mapstructure:"COOKIE_KEY_DIR"`
	// OperatorToken is what the server's operator logs in with. Starting games
	// over HTTP is disabled when it's empty.
	OperatorToken string `mapstructure:"OPERATOR_TOKEN"`
}

var defaults = map[string]any{
	"OPENROUTER_API_KEY":  "",
	"OPENROUTER_BASE_URL": "https://openrouter.ai/api/v1",
	"RED_MODEL":           "",
	"BLUE_MODEL":          "",
	"REFEREE_MODEL":       "gemini-flash",
	"REVIEW_MODEL":        "gemini-2.5",
	"NO_REFEREE":          false,
	"GAMES":               1,
	"PARALLEL":            1,
	"MAX_TURNS":           0,
	"WORDS_FILE":          "",
	"MODEL_MAPPINGS_FILE": "inputs/model_mappings.yml",
	"PROMPT_DIR":          "prompts",
	"LOG_DIR":             "logs",
	"SERVER_ADDR":         ":8080",
	"DB_PATH":             "switchboard.db",
	"COOKIE_KEY_DIR":      ".",
	"OPERATOR_TOKEN":      "",
}

// Load reads the config file at path, if one is given, and overlays the
// environment. OPENROUTER_API_KEY is read as is, every other key can also be
// set with a SWITCHBOARD_ prefix.
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
		if err := v.BindEnv(k, "SWITCHBOARD_"+k, k); err != nil {
			return nil, fmt.Errorf("failed to bind env var %q: %w", k, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that don't depend on which binary is running.
func (c *Config) Validate() error {
	var errs []error
	if c.Games < 1 {
		errs = append(errs, fmt.Errorf("GAMES must be at least 1, got %d", c.Games))
	}
	if c.Parallel < 1 {
		errs = append(errs, fmt.Errorf("PARALLEL must be at least 1, got %d", c.Parallel))
	}
	if c.MaxTurns < 0 {
		errs = append(errs, fmt.Errorf("MAX_TURNS can't be negative, got %d", c.MaxTurns))
	}
	return errors.Join(errs...)
}

// PromptFile is where the prompt template for a role lives, e.g.
// "prompts/red_coach.md".
func (c *Config) PromptFile(role string) string {
	return strings.TrimSuffix(c.PromptDir, "/") + "/" + role + ".md"
}
