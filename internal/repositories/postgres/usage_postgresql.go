package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edustack/question-catalog-service/internal/cache"
	"github.com/edustack/question-catalog-service/internal/models"
	"github.com/edustack/question-catalog-service/internal/repositories"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type UsagePostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewUsagePostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.UsageRepository {
	return &UsagePostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (u *UsagePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return u.db
}

// FindByFingerprintCollege returns the counting-relevant record for a
// (fingerprint, college) pair. At most one exists per pair.
func (u *UsagePostgreSQL) FindByFingerprintCollege(ctx context.Context, tx *gorm.DB, fingerprint, college string) (*models.QuestionUsage, error) {
	db := u.getDB(tx)

	var usage models.QuestionUsage
	if err := db.WithContext(ctx).
		Where("fingerprint = ? AND college = ?", fingerprint, college).
		First(&usage).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("usage record not found for fingerprint %s in college %s", fingerprint, college)
		}
		return nil, fmt.Errorf("failed to find usage record: %w", err)
	}
	return &usage, nil
}

// Create inserts a usage record and invalidates the fingerprint's usage cache
func (u *UsagePostgreSQL) Create(ctx context.Context, tx *gorm.DB, usage *models.QuestionUsage) error {
	db := u.getDB(tx)
	if err := db.WithContext(ctx).Create(usage).Error; err != nil {
		if repositories.IsDuplicateKeyError(err) {
			return fmt.Errorf("usage record already exists for fingerprint %s in college %s: %w",
				usage.Fingerprint, usage.College, repositories.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to create usage record: %w", err)
	}

	cache.InvalidateUsageCache(ctx, u.cacheManager, usage.Fingerprint)

	return nil
}

// Touch refreshes an existing record's timestamp and exam metadata
func (u *UsagePostgreSQL) Touch(ctx context.Context, tx *gorm.DB, id uint, meta models.ExamMetadata, usedAt time.Time) (*models.QuestionUsage, error) {
	db := u.getDB(tx)

	updates := map[string]interface{}{
		"used_at": usedAt,
	}
	if meta.ExamName != "" {
		updates["exam_name"] = meta.ExamName
	}
	if meta.ExamType != "" {
		updates["exam_type"] = meta.ExamType
	}
	if meta.AcademicYear != "" {
		updates["academic_year"] = meta.AcademicYear
	}

	if err := db.WithContext(ctx).Model(&models.QuestionUsage{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to touch usage record: %w", err)
	}

	var usage models.QuestionUsage
	if err := db.WithContext(ctx).First(&usage, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("usage record not found with ID %d", id)
		}
		return nil, fmt.Errorf("failed to reload usage record: %w", err)
	}

	cache.InvalidateUsageCache(ctx, u.cacheManager, usage.Fingerprint)

	return &usage, nil
}

// ListByFingerprint returns usage records across every college, newest first
func (u *UsagePostgreSQL) ListByFingerprint(ctx context.Context, tx *gorm.DB, fingerprint string) ([]*models.QuestionUsage, error) {
	db := u.getDB(tx)

	var usages []*models.QuestionUsage
	if err := db.WithContext(ctx).
		Where("fingerprint = ?", fingerprint).
		Order("used_at DESC").
		Find(&usages).Error; err != nil {
		return nil, fmt.Errorf("failed to list usage records by fingerprint: %w", err)
	}
	return usages, nil
}

func (u *UsagePostgreSQL) ListByQuestion(ctx context.Context, tx *gorm.DB, questionID uint) ([]*models.QuestionUsage, error) {
	db := u.getDB(tx)

	var usages []*models.QuestionUsage
	if err := db.WithContext(ctx).
		Where("question_id = ?", questionID).
		Order("used_at DESC").
		Find(&usages).Error; err != nil {
		return nil, fmt.Errorf("failed to list usage records by question: %w", err)
	}
	return usages, nil
}

// DeleteByQuestion removes every usage record that points at a question
func (u *UsagePostgreSQL) DeleteByQuestion(ctx context.Context, tx *gorm.DB, questionID uint) error {
	db := u.getDB(tx)

	var fingerprints []string
	if err := db.WithContext(ctx).Model(&models.QuestionUsage{}).
		Where("question_id = ?", questionID).
		Distinct("fingerprint").
		Pluck("fingerprint", &fingerprints).Error; err != nil {
		return fmt.Errorf("failed to collect fingerprints before delete: %w", err)
	}

	if err := db.WithContext(ctx).
		Where("question_id = ?", questionID).
		Delete(&models.QuestionUsage{}).Error; err != nil {
		return fmt.Errorf("failed to delete usage records: %w", err)
	}

	for _, fp := range fingerprints {
		cache.InvalidateUsageCache(ctx, u.cacheManager, fp)
	}

	return nil
}
