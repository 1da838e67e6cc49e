package services

import (
	"errors"
	"fmt"
)

// Error codes surfaced to API clients
const (
	CodeDuplicateInScope   = "DUPLICATE_QUESTION_SAME_COLLEGE"
	CodeSimilarQuestion    = "SIMILAR_QUESTION"
	CodeScoringUnavailable = "SIMILARITY_BACKEND_UNAVAILABLE"
)

var (
	ErrQuestionNotFound = errors.New("question not found")
	ErrUsageNotFound    = errors.New("usage record not found")
)

// DuplicateError reports an exact duplicate inside the caller's college.
// ExistingID points at the active question holding the same fingerprint.
type DuplicateError struct {
	ExistingID  uint   `json:"existing_question_id"`
	College     string `json:"college"`
	Fingerprint string `json:"-"`
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("question already exists in college %s (question %d)", e.College, e.ExistingID)
}

func (e *DuplicateError) Code() string { return CodeDuplicateInScope }

// SimilarQuestionsError reports near-duplicates above the similarity
// threshold within the caller's college. MatchIDs carries at most five ids.
type SimilarQuestionsError struct {
	MatchIDs   []uint    `json:"similar_question_ids"`
	Scores     []float64 `json:"scores,omitempty"`
	MatchCount int       `json:"match_count"`
	Threshold  float64   `json:"threshold"`
}

func (e *SimilarQuestionsError) Error() string {
	return fmt.Sprintf("%d similar questions found above threshold %.2f", e.MatchCount, e.Threshold)
}

func (e *SimilarQuestionsError) Code() string { return CodeSimilarQuestion }

// ScoringUnavailableError signals that similarity could not be computed and
// no fallback was allowed, so the write was refused rather than guessed.
type ScoringUnavailableError struct {
	Cause error
}

func (e *ScoringUnavailableError) Error() string {
	return fmt.Sprintf("similarity scoring unavailable: %v", e.Cause)
}

func (e *ScoringUnavailableError) Unwrap() error { return e.Cause }

func (e *ScoringUnavailableError) Code() string { return CodeScoringUnavailable }

// PartialSyncError reports that a question was created but sibling usage
// counts could not all be brought in line. The reconcile job repairs these.
type PartialSyncError struct {
	QuestionID  uint
	Fingerprint string
	Cause       error
}

func (e *PartialSyncError) Error() string {
	return fmt.Sprintf("question %d created but sibling sync incomplete for fingerprint %s: %v",
		e.QuestionID, e.Fingerprint, e.Cause)
}

func (e *PartialSyncError) Unwrap() error { return e.Cause }

// IsDuplicateError reports whether err is an exact in-college duplicate
func IsDuplicateError(err error) bool {
	var de *DuplicateError
	return errors.As(err, &de)
}

// IsSimilarQuestionsError reports whether err is a near-duplicate rejection
func IsSimilarQuestionsError(err error) bool {
	var se *SimilarQuestionsError
	return errors.As(err, &se)
}

// IsScoringUnavailableError reports whether err means the similarity backend
// was down and no fallback applied
func IsScoringUnavailableError(err error) bool {
	var sue *ScoringUnavailableError
	return errors.As(err, &sue)
}
