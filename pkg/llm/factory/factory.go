// Package factory maps the LLM_PROVIDER config value onto a concrete
// backend. It exists so the container never imports provider packages
// directly.
package factory

import (
	"ai-testgen-be/pkg/llm"
	"ai-testgen-be/pkg/llm/huggingface"
	"ai-testgen-be/pkg/llm/ollama"
	"fmt"
)

// NewLLMProvider builds the provider named by providerType. Unused
// arguments are ignored per backend: ollama has no apiKey, huggingface
// defaults its own baseURL.
func NewLLMProvider(providerType, modelName, baseURL, apiKey string) (llm.LLMProvider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	case "huggingface":
		return huggingface.NewHuggingFaceProvider(apiKey, baseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
