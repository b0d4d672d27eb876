package domain

import "context"

// Completer is the generative text model contract: one prompt in, free text out.
// Implementations must fail with ErrGenerationUnavailable on upstream errors.
type Completer interface {
	Complete(ctx context.Context, prompt string) (CompletionResult, error)
}

// CompletionResult carries the model text and token usage.
type CompletionResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}
