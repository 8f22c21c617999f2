// Package completion provides access to hosted chat-completion models.
// It defines a provider-agnostic Client interface with a concrete implementation
// for OpenAI and a deterministic mock for testing. Callers pass a fully built
// prompt and the generation parameters for that call site.
package completion

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrService marks failures of the external completion service: transport
	// errors, error statuses, and responses without usable content.
	ErrService = errors.New("completion service request failed")

	// ErrInvalidConfig marks a client that cannot be constructed.
	ErrInvalidConfig = errors.New("invalid completion client configuration")
)

// Params are the per-call generation parameters.
type Params struct {
	// MaxTokens limits the length of the generated text.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 2.0 = very random).
	Temperature float64

	// TopP is the nucleus sampling threshold.
	TopP float64
}

// Client generates text for a prompt.
// Implementations must be stateless and safe for concurrent use.
type Client interface {
	// Generate sends the prompt as a single user message and returns the text
	// of the first generated choice.
	Generate(ctx context.Context, prompt string, params Params) (string, error)
}

// Config holds the settings a client is built with. The model is fixed for
// the lifetime of the client.
type Config struct {
	// APIKey is the credential for the provider
	APIKey string

	// Model specifies the model identifier (e.g., "gpt-3.5-turbo")
	Model string

	// BaseURL overrides the provider endpoint; empty uses the provider default
	BaseURL string

	// Timeout bounds a single request; zero leaves requests unbounded
	Timeout time.Duration
}

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-3.5-turbo"
