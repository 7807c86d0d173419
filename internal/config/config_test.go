package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.Set("telegram.bot_token", "123:abc")
	v.Set("llm.api_key", "key")
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(baseViper())
	require.NoError(t, err)
	assert.Equal(t, "groq", cfg.LLM.Provider)
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.LLM.BaseURL)
	assert.NotEmpty(t, cfg.LLM.Model)
	assert.Equal(t, 300, cfg.LLM.MaxTokens)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "sqlite", cfg.StorageDriver)
	assert.Equal(t, 30*time.Second, cfg.FlushInterval)
	assert.Equal(t, 30*time.Minute, cfg.StateTTL)
	assert.True(t, cfg.SetCommands)
	assert.True(t, cfg.Allowed(99), "empty allowlist admits everyone")
}

func TestLoad_RequiredKeys(t *testing.T) {
	v := baseViper()
	v.Set("telegram.bot_token", "")
	_, err := Load(v)
	assert.ErrorContains(t, err, "telegram.bot_token")

	v = baseViper()
	v.Set("llm.api_key", "")
	_, err = Load(v)
	assert.ErrorContains(t, err, "llm.api_key")
}

func TestLoad_ProviderPresetAndOverrides(t *testing.T) {
	v := baseViper()
	v.Set("llm.provider", "DeepSeek")
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "https://api.deepseek.com/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "deepseek-chat", cfg.LLM.Model)

	v.Set("llm.base_url", "http://localhost:8080/v1")
	v.Set("llm.model", "local")
	cfg, err = Load(v)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "local", cfg.LLM.Model)

	v.Set("llm.provider", "openrouter")
	_, err = Load(v)
	assert.ErrorContains(t, err, "unknown provider")
}

func TestLoad_Allowlist(t *testing.T) {
	v := baseViper()
	v.Set("telegram.allowlist", "1, 2,3")
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Len(t, cfg.Allowlist, 3)
	assert.True(t, cfg.Allowed(2))
	assert.False(t, cfg.Allowed(4))

	v.Set("telegram.allowlist", []string{"10", "x"})
	_, err = Load(v)
	assert.ErrorContains(t, err, `bad id "x"`)
}

func TestLoad_StorageDriver(t *testing.T) {
	v := baseViper()
	v.Set("storage.driver", "mongo")
	_, err := Load(v)
	assert.ErrorContains(t, err, "storage.driver")
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("CHATTERBOT_TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("CHATTERBOT_LLM_API_KEY", "env-key")
	t.Setenv("CHATTERBOT_STATE_TTL", "5m")

	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.TelegramToken)
	assert.Equal(t, "env-key", cfg.LLM.APIKey)
	assert.Equal(t, 5*time.Minute, cfg.StateTTL)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(p, []byte("# comment\nCHATTERBOT_TEST_A=from-file\nCHATTERBOT_TEST_B=\"quoted\"\n"), 0o644))

	t.Setenv("CHATTERBOT_TEST_A", "preset")
	t.Setenv("CHATTERBOT_TEST_B", "")
	require.NoError(t, os.Unsetenv("CHATTERBOT_TEST_B"))

	require.NoError(t, LoadDotEnv(p))
	assert.Equal(t, "preset", os.Getenv("CHATTERBOT_TEST_A"), "existing values win")
	assert.Equal(t, "quoted", os.Getenv("CHATTERBOT_TEST_B"))

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}

func TestLoadPersona(t *testing.T) {
	p, err := LoadPersona("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPersona(), p)

	dir := t.TempDir()
	path := filepath.Join(dir, "persona.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: Lola\nfallbacks:\n  - \"one\"\n  - \"  \"\n  - two\n"), 0o644))
	p, err = LoadPersona(path)
	require.NoError(t, err)
	assert.Equal(t, "Lola", p.Name)
	assert.Equal(t, DefaultPersona().SystemPrompt, p.SystemPrompt)
	assert.Equal(t, []string{"one", "two"}, p.Fallbacks)
	assert.Equal(t, "two", p.Fallback(3))
	assert.Equal(t, "two", p.Fallback(-1))

	require.NoError(t, os.WriteFile(path, []byte("fallbacks: [unclosed"), 0o644))
	_, err = LoadPersona(path)
	assert.Error(t, err)
}

func TestPersonaFallback_AnySeed(t *testing.T) {
	p := Persona{Fallbacks: []string{"a", "b", "c"}}
	for _, seed := range []int{0, 1, 2, 3, -1, -3, math.MaxInt, math.MinInt, math.MinInt + 1} {
		assert.NotPanics(t, func() { assert.Contains(t, p.Fallbacks, p.Fallback(seed)) }, seed)
	}
	assert.Equal(t, "c", p.Fallback(-1))
	assert.Empty(t, Persona{}.Fallback(5))
}
