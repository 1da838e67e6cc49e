package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/edustack/question-catalog-service/internal/cache"
	"github.com/edustack/question-catalog-service/internal/models"
	"github.com/edustack/question-catalog-service/internal/repositories"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type QuestionPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewQuestionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.QuestionRepository {
	return &QuestionPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// getDB returns the transaction handle when one is supplied, otherwise the
// default connection.
func (q *QuestionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return q.db
}

// ===== BASIC CRUD OPERATIONS =====

// Create inserts a new question and invalidates related cache entries
func (q *QuestionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	db := q.getDB(tx)
	if err := db.WithContext(ctx).Create(question).Error; err != nil {
		if repositories.IsDuplicateKeyError(err) {
			return fmt.Errorf("question with fingerprint %s already active in college %s: %w",
				question.Fingerprint, question.College, repositories.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to create question: %w", err)
	}

	cache.SafeInvalidatePattern(ctx, q.cacheManager.Question, fmt.Sprintf("fp:%s:*", question.Fingerprint))
	cache.SafeInvalidatePattern(ctx, q.cacheManager.Question, "list:*")
	cache.SafeInvalidatePattern(ctx, q.cacheManager.Stats, fmt.Sprintf("fp:%s:*", question.Fingerprint))

	return nil
}

// GetByID retrieves a question by ID with caching
func (q *QuestionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	db := q.getDB(tx)
	cacheKey := fmt.Sprintf("id:%d", id)
	var question models.Question

	err := q.cacheManager.Question.CacheOrExecute(ctx, cacheKey, &question, cache.QuestionCacheConfig.TTL, func() (interface{}, error) {
		var dbQuestion models.Question
		if err := db.WithContext(ctx).First(&dbQuestion, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("question not found with ID %d", id)
			}
			return nil, fmt.Errorf("failed to get question: %w", err)
		}
		return &dbQuestion, nil
	})

	if err != nil {
		return nil, err
	}

	return &question, nil
}

// Update saves a question and invalidates its cache entries
func (q *QuestionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	db := q.getDB(tx)
	if err := db.WithContext(ctx).Save(question).Error; err != nil {
		if repositories.IsDuplicateKeyError(err) {
			return fmt.Errorf("question with fingerprint %s already active in college %s: %w",
				question.Fingerprint, question.College, repositories.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to update question: %w", err)
	}

	cache.InvalidateQuestionCache(ctx, q.cacheManager, question.ID, question.Fingerprint)

	return nil
}

// SoftDelete transitions a question to the given terminal status
func (q *QuestionPostgreSQL) SoftDelete(ctx context.Context, tx *gorm.DB, id uint, status models.QuestionStatus) (bool, error) {
	db := q.getDB(tx)

	var question models.Question
	if err := db.WithContext(ctx).Select("id, fingerprint").First(&question, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get question before status change: %w", err)
	}

	result := db.WithContext(ctx).Model(&models.Question{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return false, fmt.Errorf("failed to change question status: %w", result.Error)
	}

	cache.InvalidateQuestionCache(ctx, q.cacheManager, id, question.Fingerprint)

	return result.RowsAffected > 0, nil
}

// HardDelete removes a question and its usage records
func (q *QuestionPostgreSQL) HardDelete(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	db := q.getDB(tx)

	var question models.Question
	if err := db.WithContext(ctx).Select("id, fingerprint").First(&question, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get question before delete: %w", err)
	}

	var deleted bool
	err := db.Transaction(func(tx *gorm.DB) error {
		// usage records first due to the foreign key constraint
		if err := tx.WithContext(ctx).Where("question_id = ?", id).Delete(&models.QuestionUsage{}).Error; err != nil {
			return fmt.Errorf("failed to delete usage records: %w", err)
		}

		result := tx.WithContext(ctx).Delete(&models.Question{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete question: %w", result.Error)
		}
		deleted = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}

	cache.InvalidateQuestionCache(ctx, q.cacheManager, id, question.Fingerprint)
	cache.InvalidateUsageCache(ctx, q.cacheManager, question.Fingerprint)

	return deleted, nil
}

// ===== FINGERPRINT QUERIES =====

// FindByFingerprint returns every question sharing a fingerprint, ordered by
// creation time so sibling scans are deterministic.
func (q *QuestionPostgreSQL) FindByFingerprint(ctx context.Context, tx *gorm.DB, fingerprint string, activeOnly bool) ([]*models.Question, error) {
	db := q.getDB(tx)

	query := db.WithContext(ctx).Where("fingerprint = ?", fingerprint)
	if activeOnly {
		query = query.Where("status = ?", models.StatusActive)
	}

	var questions []*models.Question
	if err := query.Order("created_at ASC").Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to find questions by fingerprint: %w", err)
	}
	return questions, nil
}

func (q *QuestionPostgreSQL) FindByCollege(ctx context.Context, tx *gorm.DB, college string, activeOnly bool) ([]*models.Question, error) {
	db := q.getDB(tx)

	query := db.WithContext(ctx).Where("college = ?", college)
	if activeOnly {
		query = query.Where("status = ?", models.StatusActive)
	}

	var questions []*models.Question
	if err := query.Order("created_at ASC").Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to find questions by college: %w", err)
	}
	return questions, nil
}

// UpdateUsageCount sets the usage count for a single question
func (q *QuestionPostgreSQL) UpdateUsageCount(ctx context.Context, tx *gorm.DB, id uint, count int) error {
	db := q.getDB(tx)

	if err := db.WithContext(ctx).Model(&models.Question{}).
		Where("id = ?", id).
		Update("usage_count", count).Error; err != nil {
		return fmt.Errorf("failed to update usage count: %w", err)
	}

	cache.SafeDelete(ctx, q.cacheManager.Question, fmt.Sprintf("id:%d", id))

	return nil
}

// UpdateUsageCounts sets the usage count for every question in ids at once so
// fingerprint siblings stay in sync.
func (q *QuestionPostgreSQL) UpdateUsageCounts(ctx context.Context, tx *gorm.DB, ids []uint, count int) error {
	if len(ids) == 0 {
		return nil
	}
	db := q.getDB(tx)

	if err := db.WithContext(ctx).Model(&models.Question{}).
		Where("id IN ?", ids).
		Update("usage_count", count).Error; err != nil {
		return fmt.Errorf("failed to update usage counts: %w", err)
	}

	for _, id := range ids {
		cache.SafeDelete(ctx, q.cacheManager.Question, fmt.Sprintf("id:%d", id))
	}

	return nil
}

// TouchLastUsed refreshes the last-used timestamp of a question
func (q *QuestionPostgreSQL) TouchLastUsed(ctx context.Context, tx *gorm.DB, id uint) error {
	db := q.getDB(tx)

	if err := db.WithContext(ctx).Model(&models.Question{}).
		Where("id = ?", id).
		Update("last_used_at", gorm.Expr("NOW()")).Error; err != nil {
		return fmt.Errorf("failed to touch last used: %w", err)
	}

	cache.SafeDelete(ctx, q.cacheManager.Question, fmt.Sprintf("id:%d", id))

	return nil
}

// ===== QUERY OPERATIONS =====

// List returns questions matching the filters together with the total count
func (q *QuestionPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	db := q.getDB(tx)

	query := db.WithContext(ctx).Model(&models.Question{})
	query = q.helpers.ApplyQuestionFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count questions: %w", err)
	}

	query = q.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	var questions []*models.Question
	if err := query.Find(&questions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list questions: %w", err)
	}

	return questions, total, nil
}

// ===== STATISTICS =====

// GetFingerprintStats reports how many active questions share a fingerprint
// and across how many distinct colleges, with caching.
func (q *QuestionPostgreSQL) GetFingerprintStats(ctx context.Context, tx *gorm.DB, fingerprint string) (*repositories.FingerprintStats, error) {
	db := q.getDB(tx)

	cacheKey := fmt.Sprintf("fp:%s:stats", fingerprint)
	var stats repositories.FingerprintStats

	err := q.cacheManager.Stats.CacheOrExecute(ctx, cacheKey, &stats, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		var rows []struct {
			College string
			Total   int
		}
		if err := db.WithContext(ctx).Model(&models.Question{}).
			Select("college, COUNT(*) as total").
			Where("fingerprint = ? AND status = ?", fingerprint, models.StatusActive).
			Group("college").
			Scan(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to get fingerprint stats: %w", err)
		}

		result := repositories.FingerprintStats{Fingerprint: fingerprint}
		for _, row := range rows {
			result.MatchingQuestions += row.Total
			result.Colleges = append(result.Colleges, row.College)
		}
		result.DistinctColleges = len(result.Colleges)
		return &result, nil
	})

	if err != nil {
		return nil, err
	}

	return &stats, nil
}
