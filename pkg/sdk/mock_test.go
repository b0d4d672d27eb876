package talentmatch

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"unicode"
)

// keywordEmbedder maps text to [python count, go count, 0.2].
type keywordEmbedder struct {
	calls atomic.Int32
	fail  string // texts containing this word fail
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	e.calls.Add(1)
	var python, golang float32
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool { return !unicode.IsLetter(r) }) {
		switch w {
		case "python":
			python++
		case "go":
			golang++
		case e.fail:
			return EmbeddingResult{}, errors.New("provider down")
		}
	}
	return EmbeddingResult{Embedding: []float32{python, golang, 0.2}, PromptTokens: 4, TotalTokens: 4}, nil
}

type mockCompleter struct {
	text   string
	err    error
	health error
}

func (m *mockCompleter) Complete(context.Context, string) (CompletionResult, error) {
	if m.err != nil {
		return CompletionResult{}, m.err
	}
	return CompletionResult{Text: m.text, PromptTokens: 10, CompletionTokens: 5}, nil
}

func (m *mockCompleter) HealthCheck(context.Context) error { return m.health }
