package validator

import (
	"github.com/edustack/question-catalog-service/internal/models"
)

// QuestionCreateRequest represents the request structure for creating questions
type QuestionCreateRequest struct {
	Text       string                 `json:"text" validate:"required,question_text"`
	Subject    string                 `json:"subject" validate:"required,min=1,max=200"`
	Topic      *string                `json:"topic" validate:"omitempty,max=200"`
	Difficulty models.DifficultyLevel `json:"difficulty_level" validate:"required,difficulty_level"`
	Marks      int                    `json:"marks" validate:"required,marks_range"`
	ExamType   string                 `json:"exam_type" validate:"required,min=1,max=100"`
	College    string                 `json:"college" validate:"required,min=1,max=200"`
	Embedding  []float32              `json:"embedding" validate:"omitempty"`
}

// QuestionUpdateRequest represents the request structure for updating questions
type QuestionUpdateRequest struct {
	Text       *string                 `json:"text" validate:"omitempty,question_text"`
	Subject    *string                 `json:"subject" validate:"omitempty,min=1,max=200"`
	Topic      *string                 `json:"topic" validate:"omitempty,max=200"`
	Difficulty *models.DifficultyLevel `json:"difficulty_level" validate:"omitempty,difficulty_level"`
	Marks      *int                    `json:"marks" validate:"omitempty,marks_range"`
	ExamType   *string                 `json:"exam_type" validate:"omitempty,min=1,max=100"`
	Status     *models.QuestionStatus  `json:"status" validate:"omitempty,question_status"`
}

// SimilarityCheckRequest represents a dry-run duplicate check
type SimilarityCheckRequest struct {
	Text      string  `json:"text" validate:"required,question_text"`
	College   string  `json:"college" validate:"required,min=1,max=200"`
	ExcludeID *uint   `json:"exclude_id"`
	Threshold float64 `json:"threshold" validate:"omitempty,gt=0,lte=1"`
}

// UsageRecordRequest represents recording a usage event against a question
type UsageRecordRequest struct {
	ExamName     string `json:"exam_name" validate:"required,min=1,max=200"`
	ExamType     string `json:"exam_type" validate:"required,min=1,max=100"`
	AcademicYear string `json:"academic_year" validate:"required,min=4,max=20"`
}

// UsageByTextRequest resolves a question by its text before recording usage
type UsageByTextRequest struct {
	Text         string `json:"text" validate:"required,question_text"`
	College      string `json:"college" validate:"required,min=1,max=200"`
	ExamName     string `json:"exam_name" validate:"required,min=1,max=200"`
	ExamType     string `json:"exam_type" validate:"required,min=1,max=100"`
	AcademicYear string `json:"academic_year" validate:"required,min=4,max=20"`
}
