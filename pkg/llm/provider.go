// Package llm abstracts the chat backends the generation engine runs
// on. The engine only ever sees LLMProvider; which backend serves it is
// a config decision made once in the factory.
package llm

import (
	"context"
)

// Message is one turn of a conversation in provider-neutral form. Each
// provider maps Role onto whatever its wire format calls it.
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// Option tweaks a single call without touching the provider's defaults.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

// WithMaxTokens caps the response length. Short structured outputs like
// session titles set this low so a rambling model gets cut off.
func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// StreamFunc receives one content fragment at a time during a streaming
// call. Returning an error aborts the stream.
type StreamFunc func(token string) error

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)

	// ChatStream sends a chat history and delivers the response
	// incrementally through fn. The returned string is the complete
	// concatenated response, identical to what Chat would return for
	// the same exchange.
	ChatStream(ctx context.Context, history []Message, fn StreamFunc, options ...Option) (string, error)
}
