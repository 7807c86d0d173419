package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"chatterbot/internal/llm"
)

// EnvPrefix prefixes every environment variable read through viper.
const EnvPrefix = "CHATTERBOT"

type Config struct {
	TelegramToken string
	// Allowlist of telegram user ids; empty allows everyone.
	Allowlist   map[int64]struct{}
	LogUnknown  bool
	SetCommands bool

	LLM LLMConfig

	PersonaFile string

	StorageDriver string
	StoragePath   string
	FlushInterval time.Duration

	StateTTL      time.Duration
	SweepInterval time.Duration

	LogLevel  string
	LogFormat string
}

type LLMConfig struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("telegram.log_unknown", false)
	v.SetDefault("telegram.set_commands", true)
	v.SetDefault("llm.provider", "groq")
	v.SetDefault("llm.temperature", 0.9)
	v.SetDefault("llm.max_tokens", 300)
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", "data/chatterbot.db")
	v.SetDefault("storage.flush_interval", "30s")
	v.SetDefault("state.ttl", "30m")
	v.SetDefault("state.sweep_interval", "1m")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// BindEnv wires CHATTERBOT_* variables to their dotted keys.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
}

// Load reads a Config out of v and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config

	cfg.TelegramToken = strings.TrimSpace(v.GetString("telegram.bot_token"))
	if cfg.TelegramToken == "" {
		return cfg, errors.New("missing telegram.bot_token (set CHATTERBOT_TELEGRAM_BOT_TOKEN)")
	}
	al, err := parseAllowlist(v.GetStringSlice("telegram.allowlist"))
	if err != nil {
		return cfg, fmt.Errorf("telegram.allowlist: %w", err)
	}
	cfg.Allowlist = al
	cfg.LogUnknown = v.GetBool("telegram.log_unknown")
	cfg.SetCommands = v.GetBool("telegram.set_commands")

	cfg.LLM, err = loadLLM(v)
	if err != nil {
		return cfg, err
	}

	cfg.PersonaFile = strings.TrimSpace(v.GetString("persona.file"))

	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(v.GetString("storage.driver")))
	switch cfg.StorageDriver {
	case "sqlite", "json", "memory":
	default:
		return cfg, fmt.Errorf("storage.driver: unknown driver %q", cfg.StorageDriver)
	}
	cfg.StoragePath = strings.TrimSpace(v.GetString("storage.path"))
	cfg.FlushInterval = durationOr(v, "storage.flush_interval", 30*time.Second)

	cfg.StateTTL = durationOr(v, "state.ttl", 30*time.Minute)
	cfg.SweepInterval = durationOr(v, "state.sweep_interval", time.Minute)

	cfg.LogLevel = v.GetString("logging.level")
	cfg.LogFormat = v.GetString("logging.format")
	return cfg, nil
}

func loadLLM(v *viper.Viper) (LLMConfig, error) {
	c := LLMConfig{
		Provider:    strings.ToLower(strings.TrimSpace(v.GetString("llm.provider"))),
		BaseURL:     strings.TrimSpace(v.GetString("llm.base_url")),
		APIKey:      strings.TrimSpace(v.GetString("llm.api_key")),
		Model:       strings.TrimSpace(v.GetString("llm.model")),
		Temperature: v.GetFloat64("llm.temperature"),
		MaxTokens:   v.GetInt("llm.max_tokens"),
		Timeout:     durationOr(v, "llm.timeout", 60*time.Second),
	}
	p, ok := llm.LookupProvider(c.Provider)
	if !ok {
		return c, fmt.Errorf("llm.provider: unknown provider %q (want groq or deepseek)", c.Provider)
	}
	if c.BaseURL == "" {
		c.BaseURL = p.BaseURL
	}
	if c.Model == "" {
		c.Model = p.Model
	}
	if c.APIKey == "" {
		return c, errors.New("missing llm.api_key (set CHATTERBOT_LLM_API_KEY)")
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 300
	}
	return c, nil
}

// parseAllowlist accepts list entries that may themselves be comma separated,
// since env values arrive as one string.
func parseAllowlist(items []string) (map[int64]struct{}, error) {
	out := make(map[int64]struct{})
	for _, item := range items {
		for _, p := range strings.Split(item, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			id, err := strconv.ParseInt(p, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("bad id %q", p)
			}
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func durationOr(v *viper.Viper, key string, def time.Duration) time.Duration {
	d := v.GetDuration(key)
	if d <= 0 {
		return def
	}
	return d
}

// Allowed reports whether userID may use the bot.
func (c Config) Allowed(userID int64) bool {
	if len(c.Allowlist) == 0 {
		return true
	}
	_, ok := c.Allowlist[userID]
	return ok
}
