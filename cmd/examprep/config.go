package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/examprep/internal/compose"
	"github.com/pavelanni/examprep/internal/grading"
	"github.com/pavelanni/examprep/internal/llm"
	"github.com/pavelanni/examprep/internal/scoring"
	"github.com/pavelanni/examprep/internal/store"
)

// appConfig is the structured part of the configuration file.
type appConfig struct {
	Store      store.Config
	Scoring    scoring.Config
	Grading    grading.Config
	LLM        llm.Config
	Blueprints map[string]compose.Blueprint
	Title      string
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env file")
	}

	v := newViper()
	_ = v.BindPFlags(cmd.Flags())

	v.SetConfigName("examprep")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/examprep")
	v.AddConfigPath("/etc/examprep")
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// newViper returns a viper instance reading EXAMPREP_ environment
// variables. Nested keys map with dots and dashes replaced by underscores,
// so llm.openai.api_key reads EXAMPREP_LLM_OPENAI_API_KEY.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("EXAMPREP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

var decodeHook = viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
	mapstructure.StringToTimeDurationHookFunc(),
	mapstructure.StringToSliceHookFunc(","),
))

// llmOverrides are the nested llm keys that may also come from the
// environment. AutomaticEnv only applies to keys read one by one.
var llmOverrides = []string{
	"llm.provider",
	"llm.prompt",
	"llm.openai.api_key",
	"llm.openai.base_url",
	"llm.openai.model",
	"llm.anthropic.api_key",
	"llm.anthropic.model",
	"llm.gemini.api_key",
	"llm.gemini.model",
}

// loadConfig decodes the structured sections on top of their defaults.
// Command-line flags win over file and environment values.
func loadConfig(v *viper.Viper) (appConfig, error) {
	cfg := appConfig{
		Store:   store.Config{Driver: v.GetString("driver"), DSN: v.GetString("db")},
		Scoring: scoring.DefaultConfig(),
		Grading: grading.DefaultConfig(),
		LLM:     llm.DefaultConfig(),
		Title:   v.GetString("title"),
	}

	if err := v.UnmarshalKey("grading", &cfg.Scoring, decodeHook); err != nil {
		return cfg, fmt.Errorf("decode grading section: %w", err)
	}
	if err := v.UnmarshalKey("grading", &cfg.Grading, decodeHook); err != nil {
		return cfg, fmt.Errorf("decode grading section: %w", err)
	}
	if err := v.UnmarshalKey("llm", &cfg.LLM, decodeHook); err != nil {
		return cfg, fmt.Errorf("decode llm section: %w", err)
	}
	applyLLMOverrides(v, &cfg.LLM)

	var blueprints []compose.Blueprint
	if err := v.UnmarshalKey("blueprints", &blueprints, decodeHook); err != nil {
		return cfg, fmt.Errorf("decode blueprints: %w", err)
	}
	cfg.Blueprints = make(map[string]compose.Blueprint, len(blueprints))
	for _, bp := range blueprints {
		if err := bp.Validate(); err != nil {
			return cfg, err
		}
		if _, dup := cfg.Blueprints[bp.Name]; dup {
			return cfg, fmt.Errorf("duplicate blueprint %q", bp.Name)
		}
		cfg.Blueprints[bp.Name] = bp
	}

	if p := v.GetString("llm-provider"); p != "" {
		cfg.LLM.Provider = p
	}
	if p := v.GetString("prompt-variant"); p != "" {
		cfg.LLM.Prompt = strings.ToLower(strings.TrimSpace(p))
	}
	return cfg, nil
}

func applyLLMOverrides(v *viper.Viper, cfg *llm.Config) {
	targets := map[string]*string{
		"llm.provider":          &cfg.Provider,
		"llm.prompt":            &cfg.Prompt,
		"llm.openai.api_key":    &cfg.OpenAI.APIKey,
		"llm.openai.base_url":   &cfg.OpenAI.BaseURL,
		"llm.openai.model":      &cfg.OpenAI.Model,
		"llm.anthropic.api_key": &cfg.Anthropic.APIKey,
		"llm.anthropic.model":   &cfg.Anthropic.Model,
		"llm.gemini.api_key":    &cfg.Gemini.APIKey,
		"llm.gemini.model":      &cfg.Gemini.Model,
	}
	for _, key := range llmOverrides {
		if s := v.GetString(key); s != "" {
			*targets[key] = s
		}
	}
}
