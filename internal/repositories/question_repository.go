package repositories

import (
	"context"

	"github.com/edustack/question-catalog-service/internal/models"
	"gorm.io/gorm"
)

// QuestionRepository interface for question-specific operations.
//
// The tx parameter lets the service run several calls inside one transaction
// obtained through Repository.WithTransaction; nil means the default handle.
type QuestionRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, question *models.Question) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)
	Update(ctx context.Context, tx *gorm.DB, question *models.Question) error
	SoftDelete(ctx context.Context, tx *gorm.DB, id uint, status models.QuestionStatus) (bool, error)
	HardDelete(ctx context.Context, tx *gorm.DB, id uint) (bool, error) // cascades usage records

	// Fingerprint queries
	FindByFingerprint(ctx context.Context, tx *gorm.DB, fingerprint string, activeOnly bool) ([]*models.Question, error)
	FindByCollege(ctx context.Context, tx *gorm.DB, college string, activeOnly bool) ([]*models.Question, error)
	UpdateUsageCount(ctx context.Context, tx *gorm.DB, id uint, count int) error
	UpdateUsageCounts(ctx context.Context, tx *gorm.DB, ids []uint, count int) error
	TouchLastUsed(ctx context.Context, tx *gorm.DB, id uint) error

	// Query operations
	List(ctx context.Context, tx *gorm.DB, filters QuestionFilters) ([]*models.Question, int64, error)

	// Statistics
	GetFingerprintStats(ctx context.Context, tx *gorm.DB, fingerprint string) (*FingerprintStats, error)
}
