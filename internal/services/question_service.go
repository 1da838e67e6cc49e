package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/edustack/question-catalog-service/internal/events"
	"github.com/edustack/question-catalog-service/internal/models"
	"github.com/edustack/question-catalog-service/internal/repositories"
	"github.com/edustack/question-catalog-service/internal/similarity"
	"github.com/edustack/question-catalog-service/internal/validator"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// maxSimilarIDs caps how many near-duplicate ids a rejection carries
const maxSimilarIDs = 5

type questionService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	scorer    similarity.Scorer
	publisher events.Publisher
	threshold float64
	locks     *fingerprintLocks
}

func NewQuestionService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, scorer similarity.Scorer, publisher events.Publisher, threshold float64) QuestionService {
	if threshold <= 0 || threshold > 1 {
		threshold = similarity.DefaultThreshold
	}
	return &questionService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		scorer:    scorer,
		publisher: publisher,
		threshold: threshold,
		locks:     newFingerprintLocks(),
	}
}

// ===== CORE CRUD OPERATIONS =====

// Create runs the full duplicate resolution flow before inserting. An exact
// sibling in the same college rejects; exact siblings in other colleges are
// accepted and every sibling's usage count converges to the distinct college
// count. The near-duplicate scan only runs when no sibling exists anywhere.
func (s *questionService) Create(ctx context.Context, req *CreateQuestionRequest) (*QuestionResponse, error) {
	s.logger.Info("Creating question", "college", req.College, "subject", req.Subject)

	if errs := s.validator.GetBusinessValidator().ValidateQuestionCreate(req); len(errs) > 0 {
		return nil, errs
	}

	fingerprint := similarity.Fingerprint(req.Text)

	// Serialize sibling lookup, insert and count sync per fingerprint so
	// concurrent cross-college creations cannot race on the shared count.
	unlock := s.locks.Lock(fingerprint)
	defer unlock()

	embedding, err := s.computeEmbedding(ctx, req)
	if err != nil {
		return nil, err
	}

	var created *models.Question
	var siblingColleges []string
	var siblingIDs []uint

	txErr := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		siblings, err := txRepo.Question().FindByFingerprint(ctx, nil, fingerprint, true)
		if err != nil {
			return fmt.Errorf("sibling lookup failed: %w", err)
		}

		for _, sibling := range siblings {
			if sibling.College == req.College {
				return &DuplicateError{
					ExistingID:  sibling.ID,
					College:     sibling.College,
					Fingerprint: fingerprint,
				}
			}
		}

		if len(siblings) == 0 {
			if err := s.scanForNearDuplicates(ctx, txRepo, req.Text, req.College, nil); err != nil {
				return err
			}
		}

		question := &models.Question{
			Text:        req.Text,
			Fingerprint: fingerprint,
			Subject:     req.Subject,
			Topic:       req.Topic,
			Difficulty:  req.Difficulty,
			Marks:       req.Marks,
			ExamType:    req.ExamType,
			College:     req.College,
			Embedding:   embedding,
			Status:      models.StatusActive,
		}

		// Distinct colleges now holding this fingerprint, including ours
		colleges := make(map[string]bool, len(siblings)+1)
		for _, sibling := range siblings {
			colleges[sibling.College] = true
			siblingColleges = append(siblingColleges, sibling.College)
			siblingIDs = append(siblingIDs, sibling.ID)
		}
		colleges[req.College] = true
		question.UsageCount = len(colleges)

		if err := txRepo.Question().Create(ctx, nil, question); err != nil {
			return err
		}

		// Adding a question to a college's bank counts as a usage in that
		// college, recorded with the creation's own metadata.
		usage := &models.QuestionUsage{
			QuestionID:   question.ID,
			Fingerprint:  fingerprint,
			College:      req.College,
			ExamName:     req.Subject,
			ExamType:     req.ExamType,
			AcademicYear: academicYear(time.Now()),
			UsedAt:       time.Now(),
		}
		if err := txRepo.Usage().Create(ctx, nil, usage); err != nil {
			if !repositories.IsDuplicateKeyError(err) {
				return fmt.Errorf("failed to record creation usage: %w", err)
			}
		}

		created = question
		return nil
	})

	if txErr != nil {
		// The partial unique index catches the check-then-insert race when a
		// competing transaction committed the same (fingerprint, college)
		// between our lookup and insert.
		if repositories.IsDuplicateKeyError(txErr) {
			return nil, s.duplicateFromIndex(ctx, fingerprint, req.College)
		}
		return nil, txErr
	}

	// Sibling counts sync after the commit, still under the fingerprint lock,
	// so a sync failure leaves the created row and its usage record in place
	// for ReconcileUsageCounts to repair.
	if len(siblingIDs) > 0 {
		if err := s.repo.Question().UpdateUsageCounts(ctx, nil, siblingIDs, created.UsageCount); err != nil {
			pse := &PartialSyncError{
				QuestionID:  created.ID,
				Fingerprint: fingerprint,
				Cause:       err,
			}
			s.logger.Error("Sibling usage count sync failed",
				"fingerprint", fingerprint, "question_id", pse.QuestionID, "error", pse.Cause)
			return nil, pse
		}
	}

	s.logger.Info("Question created", "id", created.ID, "fingerprint", fingerprint, "usage_count", created.UsageCount)

	if err := s.publisher.PublishQuestionCreated(ctx, events.QuestionCreatedEvent{
		QuestionID:  created.ID,
		Fingerprint: created.Fingerprint,
		College:     created.College,
		UsageCount:  created.UsageCount,
		CreatedAt:   created.CreatedAt,
	}); err != nil {
		s.logger.Warn("Failed to publish question.created event", "id", created.ID, "error", err)
	}

	return &QuestionResponse{Question: created, SiblingColleges: siblingColleges}, nil
}

func (s *questionService) GetByID(ctx context.Context, id uint) (*QuestionResponse, error) {
	question, err := s.repo.Question().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return &QuestionResponse{Question: question}, nil
}

// Update applies a patch. A text change recomputes the fingerprint and
// embedding and re-derives usage counts for both the fingerprint group the
// row leaves and the one it joins. Duplicate resolution is not re-run; the
// partial unique index still rejects a collision with an active same-college
// row.
func (s *questionService) Update(ctx context.Context, id uint, req *UpdateQuestionRequest) (*QuestionResponse, error) {
	question, err := s.repo.Question().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	if errs := s.validator.GetBusinessValidator().ValidateQuestionUpdate(req, question); len(errs) > 0 {
		return nil, errs
	}

	oldFingerprint := question.Fingerprint
	newFingerprint := oldFingerprint
	if req.Text != nil && *req.Text != question.Text {
		newFingerprint = similarity.Fingerprint(*req.Text)
	}
	// A text change moves the row between fingerprint groups; a status change
	// moves it in or out of the active sibling set. Either way the affected
	// groups re-derive their counts.
	reconcile := newFingerprint != oldFingerprint ||
		(req.Status != nil && *req.Status != question.Status)

	// Hold the affected group locks in a fixed order so concurrent creations
	// cannot race either count.
	if reconcile {
		first, second := oldFingerprint, newFingerprint
		if second < first {
			first, second = second, first
		}
		unlockFirst := s.locks.Lock(first)
		defer unlockFirst()
		if second != first {
			unlockSecond := s.locks.Lock(second)
			defer unlockSecond()
		}
	}

	if req.Text != nil && *req.Text != question.Text {
		question.Text = *req.Text
		question.Fingerprint = newFingerprint
		question.Embedding = nil
		if vs, ok := s.scorer.(similarity.VectorScorer); ok {
			if vec, err := vs.EmbedText(ctx, *req.Text); err == nil {
				if raw, err := json.Marshal(vec); err == nil {
					question.Embedding = datatypes.JSON(raw)
				}
			} else {
				s.logger.Warn("Embedding recompute failed on update", "id", id, "error", err)
			}
		}
	}
	if req.Subject != nil {
		question.Subject = *req.Subject
	}
	if req.Topic != nil {
		question.Topic = req.Topic
	}
	if req.Difficulty != nil {
		question.Difficulty = *req.Difficulty
	}
	if req.Marks != nil {
		question.Marks = *req.Marks
	}
	if req.ExamType != nil {
		question.ExamType = *req.ExamType
	}
	if req.Status != nil {
		question.Status = *req.Status
	}

	if err := s.repo.Question().Update(ctx, nil, question); err != nil {
		if repositories.IsDuplicateKeyError(err) {
			return nil, s.duplicateFromIndex(ctx, question.Fingerprint, question.College)
		}
		return nil, fmt.Errorf("failed to update question: %w", err)
	}

	if reconcile {
		if err := s.reconcileLocked(ctx, oldFingerprint); err != nil {
			return nil, err
		}
		if newFingerprint != oldFingerprint {
			if err := s.reconcileLocked(ctx, newFingerprint); err != nil {
				return nil, err
			}
		}
		if fresh, err := s.repo.Question().GetByID(ctx, nil, id); err == nil {
			question = fresh
		}
	}

	s.logger.Info("Question updated", "id", id)

	return &QuestionResponse{Question: question}, nil
}

// Delete removes a question and its usage records, then re-derives sibling
// counts since the fingerprint may have lost a college.
func (s *questionService) Delete(ctx context.Context, id uint) error {
	question, err := s.repo.Question().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to get question: %w", err)
	}

	unlock := s.locks.Lock(question.Fingerprint)
	defer unlock()

	deleted, err := s.repo.Question().HardDelete(ctx, nil, id)
	if err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}
	if !deleted {
		return ErrQuestionNotFound
	}

	s.logger.Info("Question deleted", "id", id, "fingerprint", question.Fingerprint)

	return s.reconcileLocked(ctx, question.Fingerprint)
}

// Archive transitions a question out of Active without deleting it
func (s *questionService) Archive(ctx context.Context, id uint) error {
	question, err := s.repo.Question().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to get question: %w", err)
	}

	unlock := s.locks.Lock(question.Fingerprint)
	defer unlock()

	archived, err := s.repo.Question().SoftDelete(ctx, nil, id, models.StatusArchived)
	if err != nil {
		return fmt.Errorf("failed to archive question: %w", err)
	}
	if !archived {
		return ErrQuestionNotFound
	}

	s.logger.Info("Question archived", "id", id)

	// Archived rows leave the active sibling set, so counts shrink
	return s.reconcileLocked(ctx, question.Fingerprint)
}

func (s *questionService) List(ctx context.Context, filters repositories.QuestionFilters) (*QuestionListResponse, error) {
	questions, total, err := s.repo.Question().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	responses := make([]*QuestionResponse, len(questions))
	for i, q := range questions {
		responses[i] = &QuestionResponse{Question: q}
	}

	page := 1
	if filters.Limit > 0 {
		page = filters.Offset/filters.Limit + 1
	}

	return &QuestionListResponse{
		Questions: responses,
		Total:     total,
		Page:      page,
		Size:      len(responses),
	}, nil
}

// ===== SIMILARITY =====

// CheckSimilarity is the read-only variant of duplicate resolution. It never
// mutates state and reports both exact and near matches.
func (s *questionService) CheckSimilarity(ctx context.Context, req *SimilarityCheckRequest) (*SimilarityCheckResponse, error) {
	if errs := s.validator.GetBusinessValidator().ValidateSimilarityCheck(req); len(errs) > 0 {
		return nil, errs
	}

	threshold := s.threshold
	if req.Threshold > 0 {
		threshold = req.Threshold
	}

	fingerprint := similarity.Fingerprint(req.Text)
	resp := &SimilarityCheckResponse{Threshold: threshold}

	siblings, err := s.repo.Question().FindByFingerprint(ctx, nil, fingerprint, true)
	if err != nil {
		return nil, fmt.Errorf("sibling lookup failed: %w", err)
	}
	for _, sibling := range siblings {
		if req.ExcludeID != nil && sibling.ID == *req.ExcludeID {
			continue
		}
		if sibling.College == req.College {
			id := sibling.ID
			resp.IsDuplicate = true
			resp.ExactMatchID = &id
			return resp, nil
		}
	}

	candidates, usedFallback, err := s.scoreCollege(ctx, req.Text, req.College, threshold, req.ExcludeID)
	if err != nil {
		return nil, err
	}

	resp.UsedFallback = usedFallback
	resp.TotalMatches = len(candidates)
	if len(candidates) > maxSimilarIDs {
		candidates = candidates[:maxSimilarIDs]
	}
	resp.Candidates = candidates
	resp.IsDuplicate = len(candidates) > 0

	return resp, nil
}

// ReconcileUsageCounts re-derives every active sibling's usage count from the
// distinct college count. Used by the repair path after a PartialSyncError.
func (s *questionService) ReconcileUsageCounts(ctx context.Context, fingerprint string) error {
	unlock := s.locks.Lock(fingerprint)
	defer unlock()

	return s.reconcileLocked(ctx, fingerprint)
}

func (s *questionService) reconcileLocked(ctx context.Context, fingerprint string) error {
	return s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		siblings, err := txRepo.Question().FindByFingerprint(ctx, nil, fingerprint, true)
		if err != nil {
			return fmt.Errorf("sibling lookup failed: %w", err)
		}
		if len(siblings) == 0 {
			return nil
		}

		colleges := make(map[string]bool, len(siblings))
		ids := make([]uint, 0, len(siblings))
		for _, sibling := range siblings {
			colleges[sibling.College] = true
			ids = append(ids, sibling.ID)
		}

		target := len(colleges)
		if err := txRepo.Question().UpdateUsageCounts(ctx, nil, ids, target); err != nil {
			return fmt.Errorf("failed to reconcile usage counts: %w", err)
		}

		s.logger.Info("Usage counts reconciled", "fingerprint", fingerprint, "count", target, "rows", len(ids))
		return nil
	})
}

// ===== HELPERS =====

// scanForNearDuplicates rejects when any active question in the college
// scores at or above the threshold against the incoming text.
func (s *questionService) scanForNearDuplicates(ctx context.Context, txRepo repositories.Repository, text, college string, excludeID *uint) error {
	candidates, _, err := s.scoreCandidates(ctx, txRepo, text, college, s.threshold, excludeID)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return nil
	}

	matchErr := &SimilarQuestionsError{
		MatchCount: len(candidates),
		Threshold:  s.threshold,
	}
	if len(candidates) > maxSimilarIDs {
		candidates = candidates[:maxSimilarIDs]
	}
	for _, c := range candidates {
		matchErr.MatchIDs = append(matchErr.MatchIDs, c.QuestionID)
		matchErr.Scores = append(matchErr.Scores, c.Score)
	}
	return matchErr
}

func (s *questionService) scoreCollege(ctx context.Context, text, college string, threshold float64, excludeID *uint) ([]SimilarityCandidate, bool, error) {
	return s.scoreCandidates(ctx, s.repo, text, college, threshold, excludeID)
}

// scoreCandidates scores the incoming text against every active question in
// the college. Stored embeddings are reused through ScoreVector when the
// scorer consumes vectors; rows without one fall back to pairwise scoring.
// The bool result reports whether the degraded scorer had to be used.
func (s *questionService) scoreCandidates(ctx context.Context, repo repositories.Repository, text, college string, threshold float64, excludeID *uint) ([]SimilarityCandidate, bool, error) {
	existing, err := repo.Question().FindByCollege(ctx, nil, college, true)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load college questions: %w", err)
	}

	primary := s.scorer
	var fallback similarity.Scorer
	if fb, ok := s.scorer.(*similarity.FallbackScorer); ok {
		primary = fb.Primary()
		fallback = fb.Fallback()
	}

	usedFallback := false
	var candidates []SimilarityCandidate
	for _, q := range existing {
		if excludeID != nil && q.ID == *excludeID {
			continue
		}
		score, err := s.scorePair(ctx, primary, text, q)
		if err != nil && fallback != nil && errors.Is(err, similarity.ErrScoringUnavailable) {
			usedFallback = true
			score, err = fallback.Score(ctx, text, q.Text)
		}
		if err != nil {
			if errors.Is(err, similarity.ErrScoringUnavailable) {
				return nil, usedFallback, &ScoringUnavailableError{Cause: err}
			}
			return nil, usedFallback, fmt.Errorf("similarity scoring failed: %w", err)
		}
		if score >= threshold {
			candidates = append(candidates, SimilarityCandidate{QuestionID: q.ID, Score: score})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].QuestionID < candidates[j].QuestionID
	})

	return candidates, usedFallback, nil
}

// scorePair compares the incoming text against one stored question, feeding
// the candidate's cached embedding to the scorer when both sides support it.
func (s *questionService) scorePair(ctx context.Context, scorer similarity.Scorer, text string, q *models.Question) (float64, error) {
	if vs, ok := scorer.(similarity.VectorScorer); ok && len(q.Embedding) > 0 {
		var vec []float32
		if err := json.Unmarshal(q.Embedding, &vec); err == nil && len(vec) > 0 {
			return vs.ScoreVector(ctx, text, vec)
		}
	}
	return scorer.Score(ctx, text, q.Text)
}

func (s *questionService) computeEmbedding(ctx context.Context, req *CreateQuestionRequest) (datatypes.JSON, error) {
	if len(req.Embedding) > 0 {
		raw, err := json.Marshal(req.Embedding)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal embedding: %w", err)
		}
		return datatypes.JSON(raw), nil
	}

	vs, ok := s.scorer.(similarity.VectorScorer)
	if !ok {
		return nil, nil
	}
	vec, err := vs.EmbedText(ctx, req.Text)
	if err != nil {
		// Missing vectors degrade near-dup scans to pairwise scoring, they
		// never block creation.
		s.logger.Warn("Embedding computation failed", "error", err)
		return nil, nil
	}
	raw, err := json.Marshal(vec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding: %w", err)
	}
	return datatypes.JSON(raw), nil
}

// duplicateFromIndex builds the duplicate rejection after the unique index
// fired, looking up the surviving row for its id.
func (s *questionService) duplicateFromIndex(ctx context.Context, fingerprint, college string) error {
	siblings, err := s.repo.Question().FindByFingerprint(ctx, nil, fingerprint, true)
	if err == nil {
		for _, sibling := range siblings {
			if sibling.College == college {
				return &DuplicateError{
					ExistingID:  sibling.ID,
					College:     college,
					Fingerprint: fingerprint,
				}
			}
		}
	}
	return &DuplicateError{College: college, Fingerprint: fingerprint}
}

// academicYear formats a July-to-June academic year label for a timestamp
func academicYear(t time.Time) string {
	year := t.Year()
	if t.Month() >= time.July {
		return fmt.Sprintf("%d-%d", year, year+1)
	}
	return fmt.Sprintf("%d-%d", year-1, year)
}
