// Package llmutils is the llm utility package
package llmutils

import (
	"fmt"
	"os"

	"github.com/corpusd/corpusd/pkg/llm"
	"github.com/corpusd/corpusd/pkg/llm/ollama"
	"github.com/corpusd/corpusd/pkg/llm/openai"
)

type NewProviderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
}

// NewProvider builds the completion provider named by opts.
func NewProvider(o *NewProviderOpts) (llm.Provider, error) {
	switch o.ProviderType {
	case "ollama":
		return ollama.NewProvider(ollama.Config{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	case "openai":
		return openai.NewProvider(openai.Config{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", o.ProviderType)
	}
}
