package similarity

import "context"

// LexicalScorer computes a bigram Dice coefficient on normalized text. It has
// lower recall for paraphrases than the embedding backend but never fails, so
// it doubles as the fallback when the embedding service is unreachable.
type LexicalScorer struct{}

func NewLexicalScorer() *LexicalScorer { return &LexicalScorer{} }

func (s *LexicalScorer) Score(_ context.Context, a, b string) (float64, error) {
	return DiceCoefficient(Normalize(a), Normalize(b)), nil
}

// DiceCoefficient returns 2*|bigrams(a) ∩ bigrams(b)| / (|bigrams(a)| + |bigrams(b)|).
// Equal non-empty strings score 1.0; strings shorter than two runes only match
// when equal.
func DiceCoefficient(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}

	ra, rb := []rune(a), []rune(b)
	if len(ra) < 2 || len(rb) < 2 {
		return 0
	}

	counts := make(map[[2]rune]int, len(ra)-1)
	for i := 0; i < len(ra)-1; i++ {
		counts[[2]rune{ra[i], ra[i+1]}]++
	}

	var overlap int
	for i := 0; i < len(rb)-1; i++ {
		bg := [2]rune{rb[i], rb[i+1]}
		if counts[bg] > 0 {
			counts[bg]--
			overlap++
		}
	}

	return 2 * float64(overlap) / float64(len(ra)-1+len(rb)-1)
}
