package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/edustack/question-catalog-service/internal/models"
	"github.com/edustack/question-catalog-service/internal/repositories"
	"gorm.io/gorm"
)

// MockRepository is an in-memory Repository for service tests. The unique
// index on active (fingerprint, college) pairs is enforced the way the
// database enforces it.
type MockRepository struct {
	mu sync.Mutex
	// txMu serializes WithTransaction calls
	txMu sync.Mutex

	questions map[uint]*models.Question
	usages    map[uint]*models.QuestionUsage
	nextQID   uint
	nextUID   uint

	// Failure injection
	UpdateUsageCountsErr error

	question *MockQuestionRepository
	usage    *MockUsageRepository
}

func NewMockRepository() *MockRepository {
	m := &MockRepository{
		questions: make(map[uint]*models.Question),
		usages:    make(map[uint]*models.QuestionUsage),
		nextQID:   1,
		nextUID:   1,
	}
	m.question = &MockQuestionRepository{repo: m}
	m.usage = &MockUsageRepository{repo: m}
	return m
}

func (m *MockRepository) Question() repositories.QuestionRepository { return m.question }
func (m *MockRepository) Usage() repositories.UsageRepository       { return m.usage }

func (m *MockRepository) WithTransaction(_ context.Context, fn func(repositories.Repository) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(m)
}

func (m *MockRepository) Ping(context.Context) error { return nil }
func (m *MockRepository) Close() error               { return nil }

// QuestionByID is a test helper that reads directly from the store
func (m *MockRepository) QuestionByID(id uint) *models.Question {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q, ok := m.questions[id]; ok {
		copied := *q
		return &copied
	}
	return nil
}

type MockQuestionRepository struct {
	repo *MockRepository
}

func (r *MockQuestionRepository) Create(_ context.Context, _ *gorm.DB, question *models.Question) error {
	m := r.repo
	m.mu.Lock()
	defer m.mu.Unlock()

	if question.Status == "" {
		question.Status = models.StatusActive
	}
	for _, existing := range m.questions {
		if existing.Fingerprint == question.Fingerprint &&
			existing.College == question.College &&
			existing.Status == models.StatusActive &&
			question.Status == models.StatusActive {
			return fmt.Errorf("insert violates index: %w", repositories.ErrDuplicateKey)
		}
	}

	question.ID = m.nextQID
	m.nextQID++
	now := time.Now()
	if question.CreatedAt.IsZero() {
		question.CreatedAt = now
	}
	question.UpdatedAt = now

	copied := *question
	m.questions[question.ID] = &copied
	return nil
}

func (r *MockQuestionRepository) GetByID(_ context.Context, _ *gorm.DB, id uint) (*models.Question, error) {
	m := r.repo
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.questions[id]
	if !ok {
		return nil, fmt.Errorf("question not found with ID %d", id)
	}
	copied := *q
	return &copied, nil
}

func (r *MockQuestionRepository) Update(_ context.Context, _ *gorm.DB, question *models.Question) error {
	m := r.repo
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.questions[question.ID]; !ok {
		return fmt.Errorf("question not found with ID %d", question.ID)
	}
	for _, existing := range m.questions {
		if existing.ID != question.ID &&
			existing.Fingerprint == question.Fingerprint &&
			existing.College == question.College &&
			existing.Status == models.StatusActive &&
			question.Status == models.StatusActive {
			return fmt.Errorf("update violates index: %w", repositories.ErrDuplicateKey)
		}
	}
	question.UpdatedAt = time.Now()
	copied := *question
	m.questions[question.ID] = &copied
	return nil
}

func (r *MockQuestionRepository) SoftDelete(_ context.Context, _ *gorm.DB, id uint, status models.QuestionStatus) (bool, error) {
	m := r.repo
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.questions[id]
	if !ok {
		return false, nil
	}
	q.Status = status
	q.UpdatedAt = time.Now()
	return true, nil
}

func (r *MockQuestionRepository) HardDelete(_ context.Context, _ *gorm.DB, id uint) (bool, error) {
	m := r.repo
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.questions[id]; !ok {
		return false, nil
	}
	delete(m.questions, id)
	for uid, u := range m.usages {
		if u.QuestionID == id {
			delete(m.usages, uid)
		}
	}
	return true, nil
}

func (r *MockQuestionRepository) FindByFingerprint(_ context.Context, _ *gorm.DB, fingerprint string, activeOnly bool) ([]*models.Question, error) {
	m := r.repo
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*models.Question
	for _, q := range m.questions {
		if q.Fingerprint != fingerprint {
			continue
		}
		if activeOnly && q.Status != models.StatusActive {
			continue
		}
		copied := *q
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *MockQuestionRepository) FindByCollege(_ context.Context, _ *gorm.DB, college string, activeOnly bool) ([]*models.Question, error) {
	m := r.repo
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*models.Question
	for _, q := range m.questions {
		if q.College != college {
			continue
		}
		if activeOnly && q.Status != models.StatusActive {
			continue
		}
		copied := *q
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *MockQuestionRepository) UpdateUsageCount(_ context.Context, _ *gorm.DB, id uint, count int) error {
	m := r.repo
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.questions[id]
	if !ok {
		return fmt.Errorf("question not found with ID %d", id)
	}
	q.UsageCount = count
	return nil
}

func (r *MockQuestionRepository) UpdateUsageCounts(_ context.Context, _ *gorm.DB, ids []uint, count int) error {
	m := r.repo
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.UpdateUsageCountsErr != nil {
		return m.UpdateUsageCountsErr
	}
	for _, id := range ids {
		if q, ok := m.questions[id]; ok {
			q.UsageCount = count
		}
	}
	return nil
}

func (r *MockQuestionRepository) TouchLastUsed(_ context.Context, _ *gorm.DB, id uint) error {
	m := r.repo
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.questions[id]
	if !ok {
		return fmt.Errorf("question not found with ID %d", id)
	}
	now := time.Now()
	q.LastUsedAt = &now
	return nil
}

func (r *MockQuestionRepository) List(_ context.Context, _ *gorm.DB, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	m := r.repo
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*models.Question
	for _, q := range m.questions {
		if filters.College != nil && q.College != *filters.College {
			continue
		}
		if filters.Subject != nil && q.Subject != *filters.Subject {
			continue
		}
		if filters.Status != nil && q.Status != *filters.Status {
			continue
		}
		if filters.Difficulty != nil && q.Difficulty != *filters.Difficulty {
			continue
		}
		copied := *q
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := int64(len(matched))
	if filters.Offset > 0 {
		if filters.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[filters.Offset:]
		}
	}
	if filters.Limit > 0 && len(matched) > filters.Limit {
		matched = matched[:filters.Limit]
	}
	return matched, total, nil
}

func (r *MockQuestionRepository) GetFingerprintStats(_ context.Context, _ *gorm.DB, fingerprint string) (*repositories.FingerprintStats, error) {
	m := r.repo
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &repositories.FingerprintStats{Fingerprint: fingerprint}
	seen := make(map[string]bool)
	for _, q := range m.questions {
		if q.Fingerprint != fingerprint || q.Status != models.StatusActive {
			continue
		}
		stats.MatchingQuestions++
		if !seen[q.College] {
			seen[q.College] = true
			stats.Colleges = append(stats.Colleges, q.College)
		}
	}
	stats.DistinctColleges = len(seen)
	return stats, nil
}

type MockUsageRepository struct {
	repo *MockRepository
}

func (r *MockUsageRepository) FindByFingerprintCollege(_ context.Context, _ *gorm.DB, fingerprint, college string) (*models.QuestionUsage, error) {
	m := r.repo
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.usages {
		if u.Fingerprint == fingerprint && u.College == college {
			copied := *u
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("usage record not found for fingerprint %s in college %s", fingerprint, college)
}

func (r *MockUsageRepository) Create(_ context.Context, _ *gorm.DB, usage *models.QuestionUsage) error {
	m := r.repo
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.usages {
		if existing.Fingerprint == usage.Fingerprint && existing.College == usage.College {
			return fmt.Errorf("insert violates index: %w", repositories.ErrDuplicateKey)
		}
	}
	usage.ID = m.nextUID
	m.nextUID++
	copied := *usage
	m.usages[usage.ID] = &copied
	return nil
}

func (r *MockUsageRepository) Touch(_ context.Context, _ *gorm.DB, id uint, meta models.ExamMetadata, usedAt time.Time) (*models.QuestionUsage, error) {
	m := r.repo
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.usages[id]
	if !ok {
		return nil, fmt.Errorf("usage record not found with ID %d", id)
	}
	if meta.ExamName != "" {
		u.ExamName = meta.ExamName
	}
	if meta.ExamType != "" {
		u.ExamType = meta.ExamType
	}
	if meta.AcademicYear != "" {
		u.AcademicYear = meta.AcademicYear
	}
	u.UsedAt = usedAt
	copied := *u
	return &copied, nil
}

func (r *MockUsageRepository) ListByFingerprint(_ context.Context, _ *gorm.DB, fingerprint string) ([]*models.QuestionUsage, error) {
	m := r.repo
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*models.QuestionUsage
	for _, u := range m.usages {
		if u.Fingerprint == fingerprint {
			copied := *u
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UsedAt.After(result[j].UsedAt) })
	return result, nil
}

func (r *MockUsageRepository) ListByQuestion(_ context.Context, _ *gorm.DB, questionID uint) ([]*models.QuestionUsage, error) {
	m := r.repo
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*models.QuestionUsage
	for _, u := range m.usages {
		if u.QuestionID == questionID {
			copied := *u
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UsedAt.After(result[j].UsedAt) })
	return result, nil
}

func (r *MockUsageRepository) DeleteByQuestion(_ context.Context, _ *gorm.DB, questionID uint) error {
	m := r.repo
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, u := range m.usages {
		if u.QuestionID == questionID {
			delete(m.usages, id)
		}
	}
	return nil
}
