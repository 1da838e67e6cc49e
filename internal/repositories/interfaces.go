package repositories

import (
	"github.com/edustack/question-catalog-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type QuestionFilters struct {
	Subject    *string                 `json:"subject"`
	ExamType   *string                 `json:"exam_type"`
	College    *string                 `json:"college"`
	Status     *models.QuestionStatus  `json:"status"`
	Difficulty *models.DifficultyLevel `json:"difficulty"`
	SearchText *string                 `json:"search_text"`
	Limit      int                     `json:"limit"`
	Offset     int                     `json:"offset"`
	SortBy     string                  `json:"sort_by"`    // "created_at", "usage_count", "subject"
	SortOrder  string                  `json:"sort_order"` // "asc", "desc"
}

// ===== SHARED STATISTICS STRUCTS =====

type FingerprintStats struct {
	Fingerprint       string   `json:"fingerprint"`
	MatchingQuestions int      `json:"matching_questions"`
	DistinctColleges  int      `json:"distinct_colleges"`
	Colleges          []string `json:"colleges"`
}
