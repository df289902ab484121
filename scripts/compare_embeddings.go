//go:build ignore

package main

import (
	"ai-testgen-be/internal/config"
	"ai-testgen-be/pkg/embedding"
	"fmt"
	"log"
	"math"
)

// cosineSimilarity compares two vectors on angle alone.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0.0
	}
	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Manual check that both embedding backends rank a paraphrase closer
// than an unrelated prompt. Run it before switching EMBEDDING_PROVIDER
// in an existing deployment: vectors from different models are not
// comparable, so the similar-session search only works if the whole
// table was indexed by the provider being queried with.
func main() {
	cfg := config.Load()

	fmt.Println("--- Initializing Providers ---")
	if cfg.Keys.GoogleGemini == "" {
		fmt.Println("(GOOGLE_GEMINI_API_KEY not set; the Gemini half will error)")
	}
	gemini := embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
	nomic := embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)

	// Business prompts shaped like the ones users start sessions with
	text1 := "Customers add items to a cart and pay online with a credit card" // Original
	text2 := "Shoppers place products in a basket and check out by card"       // Semantically similar
	text3 := "The compiler performs register allocation on the IR"             // Completely different

	fmt.Println("\n--- Generating Embeddings ---")

	generate := func(name string, p embedding.EmbeddingProvider, t1, t2, t3 string) ([]float32, []float32, []float32) {
		fmt.Printf("\n[%s] Generating...\n", name)

		v1, err := p.Generate(t1, "RETRIEVAL_DOCUMENT")
		if err != nil {
			log.Printf("Error %s (Text 1): %v", name, err)
			return nil, nil, nil
		}
		fmt.Printf("[%s] Text 1 Dimensions: %d\n", name, len(v1.Embedding.Values))

		v2, err := p.Generate(t2, "RETRIEVAL_DOCUMENT")
		if err != nil {
			log.Printf("Error %s (Text 2): %v", name, err)
			return nil, nil, nil
		}

		v3, err := p.Generate(t3, "RETRIEVAL_DOCUMENT")
		if err != nil {
			log.Printf("Error %s (Text 3): %v", name, err)
			return nil, nil, nil
		}

		return v1.Embedding.Values, v2.Embedding.Values, v3.Embedding.Values
	}

	g1, g2, g3 := generate("GEMINI", gemini, text1, text2, text3)
	n1, n2, n3 := generate("NOMIC", nomic, text1, text2, text3)

	fmt.Println("\n--- Semantic Similarity Comparison ---")
	fmt.Println("(Higher is better, 1.0 = identical)")

	if g1 != nil && g2 != nil && g3 != nil {
		fmt.Printf("\n[GEMINI] (%d dims)\n", len(g1))
		fmt.Printf("Similarity (Text 1 vs Text 2 - Similar): %.4f\n", cosineSimilarity(g1, g2))
		fmt.Printf("Similarity (Text 1 vs Text 3 - Different): %.4f\n", cosineSimilarity(g1, g3))
	}

	if n1 != nil && n2 != nil && n3 != nil {
		fmt.Printf("\n[NOMIC] (%d dims)\n", len(n1))
		fmt.Printf("Similarity (Text 1 vs Text 2 - Similar): %.4f\n", cosineSimilarity(n1, n2))
		fmt.Printf("Similarity (Text 1 vs Text 3 - Different): %.4f\n", cosineSimilarity(n1, n3))
	}

	fmt.Println("\n--- Conclusion ---")
	fmt.Println("Both backends should score Text 1 vs 2 clearly above Text 1 vs 3.")
}
