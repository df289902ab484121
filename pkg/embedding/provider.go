package embedding

// EmbeddingProvider turns text into a vector for pgvector storage and
// similarity search. taskType hints the intended use to providers that
// distinguish ("RETRIEVAL_DOCUMENT" when indexing business prompt
// chunks, "RETRIEVAL_QUERY" when probing); providers without the notion
// ignore it.
type EmbeddingProvider interface {
	Generate(text string, taskType string) (*EmbeddingResponse, error)
}

// EmbeddingResponse is the provider-neutral result shape. The field
// nesting mirrors the Gemini embedContent response, the first provider
// this was built against.
type EmbeddingResponse struct {
	Embedding EmbeddingResponseEmbedding `json:"embedding"`
}

type EmbeddingResponseEmbedding struct {
	Values []float32 `json:"values"`
}
