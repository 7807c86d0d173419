package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// LoadDotEnv loads KEY=VALUE pairs from a .env file into the process environment.
// It does not override already-set environment variables unless
// DOTENV_OVERRIDE is truthy.
func LoadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		path = ".env"
	}
	path = filepath.Clean(path)
	if _, err := os.Stat(path); err != nil {
		// Missing .env is fine.
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	env := viper.New()
	env.SetConfigFile(path)
	env.SetConfigType("env")
	if err := env.ReadInConfig(); err != nil {
		return err
	}

	override := envBool("DOTENV_OVERRIDE", false)
	for _, k := range env.AllKeys() {
		// viper lowercases keys; env names are conventionally upper case.
		name := strings.ToUpper(k)
		if _, exists := os.LookupEnv(name); exists && !override {
			continue
		}
		if err := os.Setenv(name, env.GetString(k)); err != nil {
			return err
		}
	}
	return nil
}

func envBool(key string, def bool) bool {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def
	}
	switch strings.ToLower(s) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}
