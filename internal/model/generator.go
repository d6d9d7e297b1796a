package model

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// TextGenerator produces a completion for a single prompt. Implementations
// are stateless with respect to prior calls; no conversation state is kept
// between invocations.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GenkitGenerator adapts genkit.Generate to the TextGenerator interface.
type GenkitGenerator struct {
	g         *genkit.Genkit
	modelName string
}

// NewGenkitGenerator creates a GenkitGenerator for the provider-qualified
// model name (e.g., "ollama/llama3.2:3b").
func NewGenkitGenerator(g *genkit.Genkit, modelName string) *GenkitGenerator {
	return &GenkitGenerator{g: g, modelName: modelName}
}

// Generate invokes the model synchronously with the given prompt and returns
// its raw text output. Backend failures surface as ErrModelUnavailable.
func (gen *GenkitGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := genkit.Generate(ctx, gen.g,
		ai.WithModelName(gen.modelName),
		ai.WithPrompt(prompt),
	)
	if err != nil {
		return "", fmt.Errorf("%w: generation request failed: %v", ErrModelUnavailable, err)
	}

	return resp.Text(), nil
}
