package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/edustack/question-catalog-service/internal/events"
	"github.com/edustack/question-catalog-service/internal/models"
	"github.com/edustack/question-catalog-service/internal/repositories"
	"github.com/edustack/question-catalog-service/internal/similarity"
	"github.com/edustack/question-catalog-service/internal/validator"
	"gorm.io/gorm"
)

type usageService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.Publisher
}

func NewUsageService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.Publisher) UsageService {
	return &usageService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

// RecordUsage records that a question went into an exam. Idempotent per
// (fingerprint, college): a repeat recording refreshes usedAt and the exam
// metadata on the single existing record. Usage counts are never touched
// here; they measure colleges holding the fingerprint, not event volume.
func (s *usageService) RecordUsage(ctx context.Context, questionID uint, req *RecordUsageRequest) (*models.QuestionUsage, error) {
	if errs := s.validator.GetBusinessValidator().ValidateUsageRecord(req); len(errs) > 0 {
		return nil, errs
	}

	question, err := s.repo.Question().GetByID(ctx, nil, questionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	meta := models.ExamMetadata{
		ExamName:     req.ExamName,
		ExamType:     req.ExamType,
		AcademicYear: req.AcademicYear,
	}

	usage, err := s.recordForQuestion(ctx, question, meta, time.Now())
	if err != nil {
		return nil, err
	}

	if err := s.publisher.PublishUsageRecorded(ctx, events.UsageRecordedEvent{
		QuestionID:  question.ID,
		Fingerprint: question.Fingerprint,
		College:     question.College,
		ExamName:    req.ExamName,
		UsedAt:      usage.UsedAt,
	}); err != nil {
		s.logger.Warn("Failed to publish usage.recorded event", "question_id", question.ID, "error", err)
	}

	return usage, nil
}

// RecordUsageByText resolves the question by normalized text fingerprint
// within the caller's college, then records usage against it.
func (s *usageService) RecordUsageByText(ctx context.Context, req *UsageByTextRequest) (*models.QuestionUsage, error) {
	if errs := s.validator.GetBusinessValidator().ValidateUsageByText(req); len(errs) > 0 {
		return nil, errs
	}

	question, err := s.findByTextAndCollege(ctx, req.Text, req.College)
	if err != nil {
		return nil, err
	}

	return s.RecordUsage(ctx, question.ID, &RecordUsageRequest{
		ExamName:     req.ExamName,
		ExamType:     req.ExamType,
		AcademicYear: req.AcademicYear,
	})
}

// GetUsageSummary aggregates the ledger across every active sibling of a
// fingerprint. Siblings without a usage record get one backfilled from their
// own college and creation time, so summaries self-heal legacy data.
func (s *usageService) GetUsageSummary(ctx context.Context, fingerprint string) (*UsageSummaryResponse, error) {
	siblings, err := s.repo.Question().FindByFingerprint(ctx, nil, fingerprint, true)
	if err != nil {
		return nil, fmt.Errorf("sibling lookup failed: %w", err)
	}
	if len(siblings) == 0 {
		return nil, ErrQuestionNotFound
	}

	usages, err := s.repo.Usage().ListByFingerprint(ctx, nil, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage records: %w", err)
	}

	covered := make(map[string]bool, len(usages))
	for _, u := range usages {
		covered[u.College] = true
	}

	for _, sibling := range siblings {
		if covered[sibling.College] {
			continue
		}
		backfill := &models.QuestionUsage{
			QuestionID:   sibling.ID,
			Fingerprint:  fingerprint,
			College:      sibling.College,
			ExamName:     sibling.Subject,
			ExamType:     sibling.ExamType,
			AcademicYear: academicYear(sibling.CreatedAt),
			UsedAt:       sibling.CreatedAt,
		}
		if err := s.repo.Usage().Create(ctx, nil, backfill); err != nil {
			if repositories.IsDuplicateKeyError(err) {
				continue
			}
			return nil, fmt.Errorf("failed to backfill usage record: %w", err)
		}
		s.logger.Info("Backfilled usage record", "fingerprint", fingerprint, "college", sibling.College)
		usages = append(usages, backfill)
		covered[sibling.College] = true
	}

	sort.Slice(usages, func(i, j int) bool {
		return usages[i].UsedAt.After(usages[j].UsedAt)
	})

	colleges := make([]string, 0, len(covered))
	history := make([]UsageEntry, 0, len(usages))
	seen := make(map[string]bool, len(covered))
	for _, u := range usages {
		history = append(history, UsageEntry{
			College:      u.College,
			ExamName:     u.ExamName,
			ExamType:     u.ExamType,
			AcademicYear: u.AcademicYear,
			UsedAt:       u.UsedAt,
		})
		if !seen[u.College] {
			seen[u.College] = true
			colleges = append(colleges, u.College)
		}
	}

	return &UsageSummaryResponse{
		Fingerprint:       fingerprint,
		UsageCount:        len(seen),
		MatchingQuestions: len(siblings),
		Colleges:          colleges,
		History:           history,
	}, nil
}

// GetUsageSummaryByText is the text-resolved front end entry point
func (s *usageService) GetUsageSummaryByText(ctx context.Context, text string) (*UsageSummaryResponse, error) {
	return s.GetUsageSummary(ctx, similarity.Fingerprint(text))
}

func (s *usageService) ListByQuestion(ctx context.Context, questionID uint) ([]*models.QuestionUsage, error) {
	if _, err := s.repo.Question().GetByID(ctx, nil, questionID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return s.repo.Usage().ListByQuestion(ctx, nil, questionID)
}

// recordForQuestion performs the touch-or-insert against the ledger
func (s *usageService) recordForQuestion(ctx context.Context, question *models.Question, meta models.ExamMetadata, usedAt time.Time) (*models.QuestionUsage, error) {
	var result *models.QuestionUsage

	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		existing, err := txRepo.Usage().FindByFingerprintCollege(ctx, nil, question.Fingerprint, question.College)
		if err == nil {
			touched, err := txRepo.Usage().Touch(ctx, nil, existing.ID, meta, usedAt)
			if err != nil {
				return err
			}
			result = touched
		} else if repositories.IsNotFoundError(err) {
			usage := &models.QuestionUsage{
				QuestionID:   question.ID,
				Fingerprint:  question.Fingerprint,
				College:      question.College,
				ExamName:     meta.ExamName,
				ExamType:     meta.ExamType,
				AcademicYear: meta.AcademicYear,
				UsedAt:       usedAt,
			}
			if err := txRepo.Usage().Create(ctx, nil, usage); err != nil {
				return err
			}
			result = usage
		} else {
			return fmt.Errorf("failed to look up usage record: %w", err)
		}

		return txRepo.Question().TouchLastUsed(ctx, nil, question.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Usage recorded",
		"question_id", question.ID, "college", question.College, "exam", meta.ExamName)

	return result, nil
}

// findByTextAndCollege resolves the active question holding a text within a
// college via the fingerprint index.
func (s *usageService) findByTextAndCollege(ctx context.Context, text, college string) (*models.Question, error) {
	fingerprint := similarity.Fingerprint(text)
	siblings, err := s.repo.Question().FindByFingerprint(ctx, nil, fingerprint, true)
	if err != nil {
		return nil, fmt.Errorf("sibling lookup failed: %w", err)
	}
	for _, sibling := range siblings {
		if sibling.College == college {
			return sibling, nil
		}
	}
	return nil, ErrQuestionNotFound
}
