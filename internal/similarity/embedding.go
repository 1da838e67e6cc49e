package similarity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

// ErrScoringUnavailable signals that the embedding backend could not produce a
// vector. Callers either fall back to lexical scoring or fail closed; the
// near-duplicate check is never silently skipped.
var ErrScoringUnavailable = errors.New("similarity scoring unavailable")

// Provider maps normalized text to a fixed-length vector. Implementations may
// be slow or unavailable; every call must honor the context deadline.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// HTTPProvider calls an external embedding service (a sentence-transformers
// style endpoint accepting {"text": ...} and answering {"embedding": [...]}).
type HTTPProvider struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
}

func NewHTTPProvider(endpoint string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		timeout:  timeout,
	}
}

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (p *HTTPProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Text: Normalize(text)})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScoringUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: embedding service returned status %d", ErrScoringUnavailable, resp.StatusCode)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: failed to decode embedding: %v", ErrScoringUnavailable, err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("%w: embedding service returned empty vector", ErrScoringUnavailable)
	}

	return out.Embedding, nil
}

// CosineSimilarity returns dot(u,v) / (|u|*|v|), or 0 when either vector has
// zero norm or the lengths differ.
func CosineSimilarity(u, v []float32) float64 {
	if len(u) != len(v) || len(u) == 0 {
		return 0
	}
	var dot, nu, nv float64
	for i := range u {
		dot += float64(u[i]) * float64(v[i])
		nu += float64(u[i]) * float64(u[i])
		nv += float64(v[i]) * float64(v[i])
	}
	if nu == 0 || nv == 0 {
		return 0
	}
	return dot / (math.Sqrt(nu) * math.Sqrt(nv))
}
