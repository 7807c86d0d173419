package llm

import (
	"context"
	"errors"
)

// ErrUnavailable wraps every upstream failure: transport errors, non-2xx
// responses and empty completions.
var ErrUnavailable = errors.New("llm: upstream unavailable")

// Client completes a prompt. system may be empty.
type Client interface {
	Complete(ctx context.Context, prompt, system string) (string, error)
}

// Provider presets for OpenAI-compatible endpoints.
type Provider struct {
	Name    string
	BaseURL string
	Model   string
}

var providers = map[string]Provider{
	"groq": {
		Name:    "groq",
		BaseURL: "https://api.groq.com/openai/v1",
		Model:   "llama-3.3-70b-versatile",
	},
	"deepseek": {
		Name:    "deepseek",
		BaseURL: "https://api.deepseek.com/v1",
		Model:   "deepseek-chat",
	},
}

// LookupProvider returns the preset for name.
func LookupProvider(name string) (Provider, bool) {
	p, ok := providers[name]
	return p, ok
}
