//go:build ignore

package main

import (
	"ai-testgen-be/internal/config"
	"ai-testgen-be/pkg/embedding"
	"fmt"
	"log"
)

// Smoke test for a local Ollama embedding setup. The prompt_embeddings
// table is declared vector(768), so anything other than 768 dimensions
// here means inserts will fail once the consumer starts indexing.
func main() {
	cfg := config.Load()
	fmt.Printf("Loaded Config > Embedding Provider: %s\n", cfg.Ai.EmbeddingProvider)
	fmt.Printf("Loaded Config > Ollama URL: %s\n", cfg.Ai.OllamaBaseURL)
	fmt.Printf("Loaded Config > Ollama Model: %s\n", cfg.Ai.OllamaModel)

	// Always build the Ollama provider directly; this script checks the
	// local model, not whichever provider the config currently selects
	provider := embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)

	text := "Users upload invoices and approve them through a review queue."
	fmt.Printf("\nGenerating embedding for: \"%s\"\n", text)

	resp, err := provider.Generate(text, "RETRIEVAL_QUERY")
	if err != nil {
		log.Fatalf("Error generating embedding: %v", err)
	}

	dims := len(resp.Embedding.Values)
	fmt.Printf("Success! Generated Embedding Dimensions: %d\n", dims)

	if dims > 5 {
		fmt.Printf("First 5 values: %v...\n", resp.Embedding.Values[:5])
	}

	if dims == 768 {
		fmt.Println("✅ Dimensions match the vector(768) column.")
	} else {
		fmt.Printf("⚠️  Got %d dimensions, column expects 768. (Different model pulled?)\n", dims)
	}
}
