package repositories

import (
	"context"
	"time"

	"github.com/edustack/question-catalog-service/internal/models"
	"gorm.io/gorm"
)

// UsageRepository interface for usage-record operations.
type UsageRepository interface {
	// FindByFingerprintCollege returns the single counting-relevant record for
	// a (fingerprint, college) pair, or a not-found error.
	FindByFingerprintCollege(ctx context.Context, tx *gorm.DB, fingerprint, college string) (*models.QuestionUsage, error)

	Create(ctx context.Context, tx *gorm.DB, usage *models.QuestionUsage) error

	// Touch refreshes usedAt and the exam metadata of an existing record.
	Touch(ctx context.Context, tx *gorm.DB, id uint, meta models.ExamMetadata, usedAt time.Time) (*models.QuestionUsage, error)

	ListByFingerprint(ctx context.Context, tx *gorm.DB, fingerprint string) ([]*models.QuestionUsage, error)
	ListByQuestion(ctx context.Context, tx *gorm.DB, questionID uint) ([]*models.QuestionUsage, error)
	DeleteByQuestion(ctx context.Context, tx *gorm.DB, questionID uint) error
}
