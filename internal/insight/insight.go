// Package insight turns query results into short narrative summaries via
// an external language model, with a deterministic fallback when the
// model is unreachable or over quota.
//
// Usage:
//
//	gen := insight.WithFallback(insight.NewGemini(cfg, nil))
//	text, err := gen.Generate(ctx, question, resultSummary)
package insight

import "context"

// Generator produces a narrative insight for a question and a compact
// summary of its query result. Implementations must never receive raw
// row data, only the pre-built summary text.
type Generator interface {
	Generate(ctx context.Context, question, resultSummary string) (string, error)
}

// FallbackMessage is returned when the model cannot be reached or the
// request quota is exhausted.
const FallbackMessage = "Sorry, AI insights are currently unavailable due to API quota limits. Please try again later or check your API plan."

type fallbackGenerator struct {
	inner Generator
}

// WithFallback wraps a Generator so that any failure yields the fixed
// apology message instead of an error. Query answering must keep working
// when the insight service is down.
func WithFallback(inner Generator) Generator {
	return &fallbackGenerator{inner: inner}
}

func (f *fallbackGenerator) Generate(ctx context.Context, question, resultSummary string) (string, error) {
	text, err := f.inner.Generate(ctx, question, resultSummary)
	if err != nil {
		return FallbackMessage, nil
	}
	return text, nil
}
