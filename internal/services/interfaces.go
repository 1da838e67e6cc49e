package services

import (
	"context"
	"time"

	"github.com/edustack/question-catalog-service/internal/models"
	"github.com/edustack/question-catalog-service/internal/repositories"
	"github.com/edustack/question-catalog-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type CreateQuestionRequest = validator.QuestionCreateRequest
type UpdateQuestionRequest = validator.QuestionUpdateRequest
type SimilarityCheckRequest = validator.SimilarityCheckRequest
type RecordUsageRequest = validator.UsageRecordRequest
type UsageByTextRequest = validator.UsageByTextRequest

type QuestionResponse struct {
	*models.Question
	SiblingColleges []string `json:"sibling_colleges,omitempty"`
}

type QuestionListResponse struct {
	Questions []*QuestionResponse `json:"questions"`
	Total     int64               `json:"total"`
	Page      int                 `json:"page"`
	Size      int                 `json:"size"`
}

// SimilarityCandidate is one near-duplicate match above the threshold
type SimilarityCandidate struct {
	QuestionID uint    `json:"question_id"`
	Score      float64 `json:"score"`
}

type SimilarityCheckResponse struct {
	IsDuplicate  bool                  `json:"is_duplicate"`
	ExactMatchID *uint                 `json:"exact_match_id,omitempty"`
	Candidates   []SimilarityCandidate `json:"candidates,omitempty"`
	TotalMatches int                   `json:"total_matches"`
	Threshold    float64               `json:"threshold"`
	UsedFallback bool                  `json:"used_fallback"`
}

type UsageEntry struct {
	College      string    `json:"college"`
	ExamName     string    `json:"exam_name"`
	ExamType     string    `json:"exam_type"`
	AcademicYear string    `json:"academic_year"`
	UsedAt       time.Time `json:"date_used"`
}

type UsageSummaryResponse struct {
	Fingerprint       string       `json:"question_hash"`
	UsageCount        int          `json:"usage_count"`
	MatchingQuestions int          `json:"matching_questions_count"`
	Colleges          []string     `json:"colleges"`
	History           []UsageEntry `json:"history"`
}

// ===== SERVICE INTERFACES =====

// QuestionService owns question lifecycle and duplicate resolution
type QuestionService interface {
	Create(ctx context.Context, req *CreateQuestionRequest) (*QuestionResponse, error)
	GetByID(ctx context.Context, id uint) (*QuestionResponse, error)
	Update(ctx context.Context, id uint, req *UpdateQuestionRequest) (*QuestionResponse, error)
	Delete(ctx context.Context, id uint) error
	Archive(ctx context.Context, id uint) error
	List(ctx context.Context, filters repositories.QuestionFilters) (*QuestionListResponse, error)

	CheckSimilarity(ctx context.Context, req *SimilarityCheckRequest) (*SimilarityCheckResponse, error)
	ReconcileUsageCounts(ctx context.Context, fingerprint string) error
}

// UsageService owns the usage ledger
type UsageService interface {
	RecordUsage(ctx context.Context, questionID uint, req *RecordUsageRequest) (*models.QuestionUsage, error)
	RecordUsageByText(ctx context.Context, req *UsageByTextRequest) (*models.QuestionUsage, error)
	GetUsageSummary(ctx context.Context, fingerprint string) (*UsageSummaryResponse, error)
	GetUsageSummaryByText(ctx context.Context, text string) (*UsageSummaryResponse, error)
	ListByQuestion(ctx context.Context, questionID uint) ([]*models.QuestionUsage, error)
}

// ExportService streams filtered questions to spreadsheet form
type ExportService interface {
	ExportQuestions(ctx context.Context, filters repositories.QuestionFilters) ([]byte, string, error)
}

// ServiceManager provides access to all services
type ServiceManager interface {
	Question() QuestionService
	Usage() UsageService
	Export() ExportService

	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
	HealthCheck(ctx context.Context) error
}
