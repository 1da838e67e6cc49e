package similarity

import (
	"context"
	"errors"
	"fmt"
)

// DefaultThreshold classifies score >= threshold as a near-duplicate.
const DefaultThreshold = 0.85

// Scorer computes a symmetric similarity score in [0,1] between two texts.
// score(a,b) == score(b,a) and score(a,a) == 1.0 for normalized-equal inputs.
type Scorer interface {
	Score(ctx context.Context, a, b string) (float64, error)
}

// VectorScorer is implemented by scorers that can reuse a cached embedding for
// one side of the comparison instead of re-embedding stored text.
type VectorScorer interface {
	ScoreVector(ctx context.Context, text string, vec []float32) (float64, error)
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingScorer scores via the embedding provider and cosine similarity.
type EmbeddingScorer struct {
	provider Provider
}

func NewEmbeddingScorer(provider Provider) *EmbeddingScorer {
	return &EmbeddingScorer{provider: provider}
}

func (s *EmbeddingScorer) Score(ctx context.Context, a, b string) (float64, error) {
	u, err := s.provider.Embed(ctx, a)
	if err != nil {
		return 0, fmt.Errorf("failed to embed first text: %w", err)
	}
	v, err := s.provider.Embed(ctx, b)
	if err != nil {
		return 0, fmt.Errorf("failed to embed second text: %w", err)
	}
	return CosineSimilarity(u, v), nil
}

func (s *EmbeddingScorer) ScoreVector(ctx context.Context, text string, vec []float32) (float64, error) {
	u, err := s.provider.Embed(ctx, text)
	if err != nil {
		return 0, fmt.Errorf("failed to embed text: %w", err)
	}
	return CosineSimilarity(u, vec), nil
}

func (s *EmbeddingScorer) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return s.provider.Embed(ctx, text)
}

// FallbackScorer tries the primary scorer and, when scoring is unavailable,
// degrades to the lexical scorer. Any other error propagates.
type FallbackScorer struct {
	primary  Scorer
	fallback Scorer
}

func NewFallbackScorer(primary, fallback Scorer) *FallbackScorer {
	return &FallbackScorer{primary: primary, fallback: fallback}
}

// Primary exposes the preferred scorer so callers can observe a degrade
// instead of having it absorbed here.
func (s *FallbackScorer) Primary() Scorer { return s.primary }

// Fallback exposes the scorer used when the primary is unavailable.
func (s *FallbackScorer) Fallback() Scorer { return s.fallback }

func (s *FallbackScorer) Score(ctx context.Context, a, b string) (float64, error) {
	score, err := s.primary.Score(ctx, a, b)
	if err == nil {
		return score, nil
	}
	if errors.Is(err, ErrScoringUnavailable) {
		return s.fallback.Score(ctx, a, b)
	}
	return 0, err
}

func (s *FallbackScorer) ScoreVector(ctx context.Context, text string, vec []float32) (float64, error) {
	if vs, ok := s.primary.(VectorScorer); ok {
		return vs.ScoreVector(ctx, text, vec)
	}
	return 0, fmt.Errorf("%w: primary scorer has no vector support", ErrScoringUnavailable)
}

func (s *FallbackScorer) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if vs, ok := s.primary.(VectorScorer); ok {
		return vs.EmbedText(ctx, text)
	}
	return nil, fmt.Errorf("%w: primary scorer has no vector support", ErrScoringUnavailable)
}
