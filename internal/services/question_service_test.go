package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/edustack/question-catalog-service/internal/events"
	"github.com/edustack/question-catalog-service/internal/models"
	"github.com/edustack/question-catalog-service/internal/similarity"
	"github.com/edustack/question-catalog-service/internal/validator"
)

func newTestQuestionService(repo *MockRepository, publisher events.Publisher) QuestionService {
	if publisher == nil {
		publisher = events.NewMockPublisher()
	}
	logger := slog.New(slog.DiscardHandler)
	return NewQuestionService(repo, nil, logger, validator.New(), similarity.NewLexicalScorer(), publisher, 0.85)
}

func validCreateRequest(text, college string) *CreateQuestionRequest {
	return &CreateQuestionRequest{
		Text:       text,
		Subject:    "Mathematics",
		Difficulty: models.DifficultyMedium,
		Marks:      5,
		ExamType:   "Final",
		College:    college,
	}
}

func TestCreateFirstQuestion(t *testing.T) {
	repo := NewMockRepository()
	svc := newTestQuestionService(repo, nil)

	resp, err := svc.Create(context.Background(), validCreateRequest("What is the derivative of x squared?", "CollegeA"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if resp.UsageCount != 1 {
		t.Errorf("usage count = %d, want 1", resp.UsageCount)
	}
	if resp.Fingerprint == "" {
		t.Error("fingerprint not set")
	}
	if resp.Status != models.StatusActive {
		t.Errorf("status = %s, want Active", resp.Status)
	}
}

func TestCreateRejectsSameCollegeDuplicate(t *testing.T) {
	repo := NewMockRepository()
	svc := newTestQuestionService(repo, nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, validCreateRequest("What is the derivative of x squared?", "CollegeA"))
	if err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	// Same text modulo case and whitespace is still the same fingerprint
	_, err = svc.Create(ctx, validCreateRequest("  WHAT IS THE DERIVATIVE OF X SQUARED?  ", "CollegeA"))
	var dupErr *DuplicateError
	if !errors.As(err, &dupErr) {
		t.Fatalf("expected DuplicateError, got %v", err)
	}
	if dupErr.ExistingID != first.ID {
		t.Errorf("existing id = %d, want %d", dupErr.ExistingID, first.ID)
	}
	if dupErr.Code() != CodeDuplicateInScope {
		t.Errorf("code = %s, want %s", dupErr.Code(), CodeDuplicateInScope)
	}
}

func TestCreateCrossCollegeSyncsUsageCounts(t *testing.T) {
	repo := NewMockRepository()
	svc := newTestQuestionService(repo, nil)
	ctx := context.Background()
	text := "Explain the second law of thermodynamics."

	a, err := svc.Create(ctx, validCreateRequest(text, "CollegeA"))
	if err != nil {
		t.Fatalf("CollegeA Create failed: %v", err)
	}

	b, err := svc.Create(ctx, validCreateRequest(text, "CollegeB"))
	if err != nil {
		t.Fatalf("CollegeB Create failed: %v", err)
	}
	if b.UsageCount != 2 {
		t.Errorf("CollegeB usage count = %d, want 2", b.UsageCount)
	}
	if got := repo.QuestionByID(a.ID).UsageCount; got != 2 {
		t.Errorf("CollegeA usage count after second create = %d, want 2", got)
	}

	c, err := svc.Create(ctx, validCreateRequest(text, "CollegeC"))
	if err != nil {
		t.Fatalf("CollegeC Create failed: %v", err)
	}
	if c.UsageCount != 3 {
		t.Errorf("CollegeC usage count = %d, want 3", c.UsageCount)
	}
	for _, id := range []uint{a.ID, b.ID} {
		if got := repo.QuestionByID(id).UsageCount; got != 3 {
			t.Errorf("question %d usage count = %d, want 3", id, got)
		}
	}
}

func TestCreateRejectsNearDuplicateInSameCollege(t *testing.T) {
	repo := NewMockRepository()
	svc := newTestQuestionService(repo, nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, validCreateRequest("Explain the process of photosynthesis in plants.", "CollegeA"))
	if err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	// Near-identical wording, different fingerprint
	_, err = svc.Create(ctx, validCreateRequest("Explain the process of photosynthesis in plants!", "CollegeA"))
	var simErr *SimilarQuestionsError
	if !errors.As(err, &simErr) {
		t.Fatalf("expected SimilarQuestionsError, got %v", err)
	}
	if len(simErr.MatchIDs) != 1 || simErr.MatchIDs[0] != first.ID {
		t.Errorf("match ids = %v, want [%d]", simErr.MatchIDs, first.ID)
	}
	if simErr.Code() != CodeSimilarQuestion {
		t.Errorf("code = %s, want %s", simErr.Code(), CodeSimilarQuestion)
	}
}

func TestCreateNearDuplicateScanIsScopedToCollege(t *testing.T) {
	repo := NewMockRepository()
	svc := newTestQuestionService(repo, nil)
	ctx := context.Background()

	if _, err := svc.Create(ctx, validCreateRequest("Explain the process of photosynthesis in plants.", "CollegeA")); err != nil {
		t.Fatalf("CollegeA Create failed: %v", err)
	}

	// A near-duplicate in a different college must not be blocked
	resp, err := svc.Create(ctx, validCreateRequest("Explain the process of photosynthesis in plants!", "CollegeB"))
	if err != nil {
		t.Fatalf("CollegeB Create failed: %v", err)
	}
	// Different fingerprints, so each stands alone
	if resp.UsageCount != 1 {
		t.Errorf("usage count = %d, want 1", resp.UsageCount)
	}
}

func TestCreateSkipsNearDupScanWhenExactSiblingExists(t *testing.T) {
	repo := NewMockRepository()
	svc := newTestQuestionService(repo, nil)
	ctx := context.Background()
	text := "Describe the causes of the French Revolution."

	if _, err := svc.Create(ctx, validCreateRequest(text, "CollegeA")); err != nil {
		t.Fatalf("CollegeA Create failed: %v", err)
	}
	// Plant a highly similar but distinct question in CollegeB; the exact
	// sibling in CollegeA must route the create down the accept branch
	// without scanning CollegeB for near matches.
	if _, err := svc.Create(ctx, validCreateRequest("Describe the causes of the French Revolution!!", "CollegeB")); err != nil {
		t.Fatalf("CollegeB near-dup Create failed: %v", err)
	}

	resp, err := svc.Create(ctx, validCreateRequest(text, "CollegeB"))
	if err != nil {
		t.Fatalf("exact cross-college Create failed: %v", err)
	}
	if resp.UsageCount != 2 {
		t.Errorf("usage count = %d, want 2", resp.UsageCount)
	}
}

func TestCreateValidation(t *testing.T) {
	repo := NewMockRepository()
	svc := newTestQuestionService(repo, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *CreateQuestionRequest
	}{
		{
			name: "short text",
			req:  validCreateRequest("short", "CollegeA"),
		},
		{
			name: "zero marks",
			req: &CreateQuestionRequest{
				Text:       "What is the capital of France?",
				Subject:    "Geography",
				Difficulty: models.DifficultyEasy,
				Marks:      0,
				ExamType:   "Quiz",
				College:    "CollegeA",
			},
		},
		{
			name: "bad difficulty",
			req: &CreateQuestionRequest{
				Text:       "What is the capital of France?",
				Subject:    "Geography",
				Difficulty: "Impossible",
				Marks:      2,
				ExamType:   "Quiz",
				College:    "CollegeA",
			},
		},
		{
			name: "missing college",
			req: &CreateQuestionRequest{
				Text:       "What is the capital of France?",
				Subject:    "Geography",
				Difficulty: models.DifficultyEasy,
				Marks:      2,
				ExamType:   "Quiz",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.req)
			var valErrs validator.ValidationErrors
			if !errors.As(err, &valErrs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
		})
	}
}

func TestCreatePublishesEvent(t *testing.T) {
	repo := NewMockRepository()
	publisher := events.NewMockPublisher()
	svc := newTestQuestionService(repo, publisher)

	resp, err := svc.Create(context.Background(), validCreateRequest("What is the derivative of x squared?", "CollegeA"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(publisher.QuestionCreated) != 1 {
		t.Fatalf("published events = %d, want 1", len(publisher.QuestionCreated))
	}
	event := publisher.QuestionCreated[0]
	if event.QuestionID != resp.ID || event.College != "CollegeA" || event.UsageCount != 1 {
		t.Errorf("unexpected event payload: %+v", event)
	}
}

func TestCreateRecordsImplicitUsage(t *testing.T) {
	repo := NewMockRepository()
	svc := newTestQuestionService(repo, nil)

	resp, err := svc.Create(context.Background(), validCreateRequest("What is the derivative of x squared?", "CollegeA"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	usage, err := repo.Usage().FindByFingerprintCollege(context.Background(), nil, resp.Fingerprint, "CollegeA")
	if err != nil {
		t.Fatalf("implicit usage record missing: %v", err)
	}
	if usage.QuestionID != resp.ID {
		t.Errorf("usage question id = %d, want %d", usage.QuestionID, resp.ID)
	}
}

func TestCreatePartialSyncSurfaced(t *testing.T) {
	repo := NewMockRepository()
	svc := newTestQuestionService(repo, nil)
	ctx := context.Background()
	text := "Explain the second law of thermodynamics."

	if _, err := svc.Create(ctx, validCreateRequest(text, "CollegeA")); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	repo.UpdateUsageCountsErr = fmt.Errorf("connection reset")
	_, err := svc.Create(ctx, validCreateRequest(text, "CollegeB"))
	var pse *PartialSyncError
	if !errors.As(err, &pse) {
		t.Fatalf("expected PartialSyncError, got %v", err)
	}
	repo.UpdateUsageCountsErr = nil

	// The sync runs after the commit, so the failed sync leaves the new row
	// and its usage record in place
	siblings, err := repo.Question().FindByFingerprint(ctx, nil, pse.Fingerprint, true)
	if err != nil {
		t.Fatalf("FindByFingerprint failed: %v", err)
	}
	if len(siblings) != 2 {
		t.Fatalf("sibling count after failed sync = %d, want 2", len(siblings))
	}
	if _, err := repo.Usage().FindByFingerprintCollege(ctx, nil, pse.Fingerprint, "CollegeB"); err != nil {
		t.Errorf("usage record missing after failed sync: %v", err)
	}

	// Reconciliation repairs whatever the failed sync left behind
	if err := svc.ReconcileUsageCounts(ctx, pse.Fingerprint); err != nil {
		t.Fatalf("ReconcileUsageCounts failed: %v", err)
	}
	siblings, err = repo.Question().FindByFingerprint(ctx, nil, pse.Fingerprint, true)
	if err != nil {
		t.Fatalf("FindByFingerprint failed: %v", err)
	}
	colleges := make(map[string]bool)
	for _, s := range siblings {
		colleges[s.College] = true
	}
	for _, s := range siblings {
		if s.UsageCount != len(colleges) {
			t.Errorf("question %d usage count = %d, want %d", s.ID, s.UsageCount, len(colleges))
		}
	}
}

func TestConcurrentCrossCollegeCreatesConverge(t *testing.T) {
	repo := NewMockRepository()
	svc := newTestQuestionService(repo, nil)
	text := "Explain the difference between mitosis and meiosis."
	const n = 8

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(context.Background(), validCreateRequest(text, fmt.Sprintf("College%d", i)))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("create %d failed: %v", i, err)
		}
	}

	fingerprint := similarity.Fingerprint(text)
	siblings, err := repo.Question().FindByFingerprint(context.Background(), nil, fingerprint, true)
	if err != nil {
		t.Fatalf("FindByFingerprint failed: %v", err)
	}
	if len(siblings) != n {
		t.Fatalf("sibling count = %d, want %d", len(siblings), n)
	}
	for _, s := range siblings {
		if s.UsageCount != n {
			t.Errorf("question %d usage count = %d, want %d", s.ID, s.UsageCount, n)
		}
	}
}

func TestConcurrentSameCollegeCreatesOneWinner(t *testing.T) {
	repo := NewMockRepository()
	svc := newTestQuestionService(repo, nil)
	text := "State and prove the Pythagorean theorem."
	const n = 6

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(context.Background(), validCreateRequest(text, "CollegeA"))
		}(i)
	}
	wg.Wait()

	var created, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case IsDuplicateError(err):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if created != 1 {
		t.Errorf("created = %d, want exactly 1", created)
	}
	if rejected != n-1 {
		t.Errorf("rejected = %d, want %d", rejected, n-1)
	}
}

func TestCheckSimilarity(t *testing.T) {
	repo := NewMockRepository()
	svc := newTestQuestionService(repo, nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, validCreateRequest("Explain the process of photosynthesis in plants.", "CollegeA"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	t.Run("exact match", func(t *testing.T) {
		resp, err := svc.CheckSimilarity(ctx, &SimilarityCheckRequest{
			Text:    "explain the process of photosynthesis in plants.",
			College: "CollegeA",
		})
		if err != nil {
			t.Fatalf("CheckSimilarity failed: %v", err)
		}
		if !resp.IsDuplicate || resp.ExactMatchID == nil || *resp.ExactMatchID != first.ID {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("near match", func(t *testing.T) {
		resp, err := svc.CheckSimilarity(ctx, &SimilarityCheckRequest{
			Text:    "Explain the process of photosynthesis in plants!",
			College: "CollegeA",
		})
		if err != nil {
			t.Fatalf("CheckSimilarity failed: %v", err)
		}
		if !resp.IsDuplicate || len(resp.Candidates) != 1 || resp.Candidates[0].QuestionID != first.ID {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("different college clean", func(t *testing.T) {
		resp, err := svc.CheckSimilarity(ctx, &SimilarityCheckRequest{
			Text:    "Explain the process of photosynthesis in plants!",
			College: "CollegeB",
		})
		if err != nil {
			t.Fatalf("CheckSimilarity failed: %v", err)
		}
		if resp.IsDuplicate {
			t.Errorf("unexpected duplicate: %+v", resp)
		}
	})

	t.Run("exclude self", func(t *testing.T) {
		resp, err := svc.CheckSimilarity(ctx, &SimilarityCheckRequest{
			Text:      "Explain the process of photosynthesis in plants.",
			College:   "CollegeA",
			ExcludeID: &first.ID,
		})
		if err != nil {
			t.Fatalf("CheckSimilarity failed: %v", err)
		}
		if resp.IsDuplicate {
			t.Errorf("self match not excluded: %+v", resp)
		}
	})
}

func TestNearDuplicateScanReusesStoredEmbedding(t *testing.T) {
	repo := NewMockRepository()
	provider := &countingProvider{}
	logger := slog.New(slog.DiscardHandler)
	scorer := similarity.NewEmbeddingScorer(provider)
	svc := NewQuestionService(repo, nil, logger, validator.New(), scorer, events.NewMockPublisher(), 0.85)
	ctx := context.Background()

	first, err := svc.Create(ctx, validCreateRequest("Explain the process of photosynthesis in plants.", "CollegeA"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(first.Embedding) == 0 {
		t.Fatal("embedding not stored on create")
	}
	afterCreate := provider.Calls()

	resp, err := svc.CheckSimilarity(ctx, &SimilarityCheckRequest{
		Text:    "Explain the process of photosynthesis in green plants.",
		College: "CollegeA",
	})
	if err != nil {
		t.Fatalf("CheckSimilarity failed: %v", err)
	}
	if !resp.IsDuplicate || len(resp.Candidates) != 1 || resp.Candidates[0].QuestionID != first.ID {
		t.Fatalf("unexpected response: %+v", resp)
	}
	// Only the incoming text is embedded; the candidate's stored vector is
	// reused instead of re-embedding its text
	if got := provider.Calls() - afterCreate; got != 1 {
		t.Errorf("provider calls during check = %d, want 1", got)
	}
}

type countingProvider struct {
	mu    sync.Mutex
	calls int
}

func (p *countingProvider) Embed(context.Context, string) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return []float32{1, 0}, nil
}

func (p *countingProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func TestCheckSimilarityReportsFallbackUse(t *testing.T) {
	repo := NewMockRepository()
	logger := slog.New(slog.DiscardHandler)
	scorer := similarity.NewFallbackScorer(
		similarity.NewEmbeddingScorer(failingProvider{}),
		similarity.NewLexicalScorer(),
	)
	svc := NewQuestionService(repo, nil, logger, validator.New(), scorer, events.NewMockPublisher(), 0.85)
	ctx := context.Background()

	first, err := svc.Create(ctx, validCreateRequest("Explain the process of photosynthesis in plants.", "CollegeA"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	resp, err := svc.CheckSimilarity(ctx, &SimilarityCheckRequest{
		Text:    "Explain the process of photosynthesis in plants!",
		College: "CollegeA",
	})
	if err != nil {
		t.Fatalf("CheckSimilarity failed: %v", err)
	}
	if !resp.UsedFallback {
		t.Error("fallback use not reported")
	}
	if !resp.IsDuplicate || len(resp.Candidates) != 1 || resp.Candidates[0].QuestionID != first.ID {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestCheckSimilarityFailsClosedWithoutFallback(t *testing.T) {
	repo := NewMockRepository()
	logger := slog.New(slog.DiscardHandler)
	scorer := similarity.NewEmbeddingScorer(failingProvider{})
	svc := NewQuestionService(repo, nil, logger, validator.New(), scorer, events.NewMockPublisher(), 0.85)
	ctx := context.Background()

	// Seed a candidate directly so the scan has something to score
	seed := &models.Question{
		Text:        "Explain the process of photosynthesis in plants.",
		Fingerprint: similarity.Fingerprint("Explain the process of photosynthesis in plants."),
		Subject:     "Biology",
		Difficulty:  models.DifficultyMedium,
		Marks:       5,
		ExamType:    "Final",
		College:     "CollegeA",
		Status:      models.StatusActive,
	}
	if err := repo.Question().Create(ctx, nil, seed); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	_, err := svc.CheckSimilarity(ctx, &SimilarityCheckRequest{
		Text:    "Explain the process of photosynthesis in plants!",
		College: "CollegeA",
	})
	if !IsScoringUnavailableError(err) {
		t.Fatalf("expected ScoringUnavailableError, got %v", err)
	}
}

type failingProvider struct{}

func (failingProvider) Embed(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("%w: backend down", similarity.ErrScoringUnavailable)
}

func TestArchiveShrinksSiblingCounts(t *testing.T) {
	repo := NewMockRepository()
	svc := newTestQuestionService(repo, nil)
	ctx := context.Background()
	text := "Explain the second law of thermodynamics."

	a, err := svc.Create(ctx, validCreateRequest(text, "CollegeA"))
	if err != nil {
		t.Fatalf("CollegeA Create failed: %v", err)
	}
	b, err := svc.Create(ctx, validCreateRequest(text, "CollegeB"))
	if err != nil {
		t.Fatalf("CollegeB Create failed: %v", err)
	}

	if err := svc.Archive(ctx, a.ID); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}

	if got := repo.QuestionByID(b.ID).UsageCount; got != 1 {
		t.Errorf("remaining sibling usage count = %d, want 1", got)
	}
	if got := repo.QuestionByID(a.ID).Status; got != models.StatusArchived {
		t.Errorf("status = %s, want Archived", got)
	}
}

func TestDeleteCascadesAndReconciles(t *testing.T) {
	repo := NewMockRepository()
	svc := newTestQuestionService(repo, nil)
	ctx := context.Background()
	text := "Explain the second law of thermodynamics."

	a, err := svc.Create(ctx, validCreateRequest(text, "CollegeA"))
	if err != nil {
		t.Fatalf("CollegeA Create failed: %v", err)
	}
	b, err := svc.Create(ctx, validCreateRequest(text, "CollegeB"))
	if err != nil {
		t.Fatalf("CollegeB Create failed: %v", err)
	}

	if err := svc.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if repo.QuestionByID(a.ID) != nil {
		t.Error("question still present after delete")
	}
	usages, err := repo.Usage().ListByQuestion(ctx, nil, a.ID)
	if err != nil {
		t.Fatalf("ListByQuestion failed: %v", err)
	}
	if len(usages) != 0 {
		t.Errorf("usage records after delete = %d, want 0", len(usages))
	}
	if got := repo.QuestionByID(b.ID).UsageCount; got != 1 {
		t.Errorf("remaining sibling usage count = %d, want 1", got)
	}
}

func TestUpdateTextRecomputesFingerprint(t *testing.T) {
	repo := NewMockRepository()
	svc := newTestQuestionService(repo, nil)
	ctx := context.Background()

	resp, err := svc.Create(ctx, validCreateRequest("What is the derivative of x squared?", "CollegeA"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	newText := "What is the integral of x squared?"
	updated, err := svc.Update(ctx, resp.ID, &UpdateQuestionRequest{Text: &newText})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Fingerprint == resp.Fingerprint {
		t.Error("fingerprint unchanged after text change")
	}
	if updated.Fingerprint != similarity.Fingerprint(newText) {
		t.Error("fingerprint does not match new text")
	}
}

func TestUpdateTextReconcilesUsageCounts(t *testing.T) {
	repo := NewMockRepository()
	svc := newTestQuestionService(repo, nil)
	ctx := context.Background()
	text := "Explain the second law of thermodynamics."

	a, err := svc.Create(ctx, validCreateRequest(text, "CollegeA"))
	if err != nil {
		t.Fatalf("CollegeA Create failed: %v", err)
	}
	b, err := svc.Create(ctx, validCreateRequest(text, "CollegeB"))
	if err != nil {
		t.Fatalf("CollegeB Create failed: %v", err)
	}

	// Rewording CollegeA's copy splits the pair into two single-college groups
	newText := "Explain the third law of thermodynamics."
	updated, err := svc.Update(ctx, a.ID, &UpdateQuestionRequest{Text: &newText})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.UsageCount != 1 {
		t.Errorf("updated row usage count = %d, want 1", updated.UsageCount)
	}
	if got := repo.QuestionByID(b.ID).UsageCount; got != 1 {
		t.Errorf("sibling left behind usage count = %d, want 1", got)
	}

	// Rewording it back rejoins CollegeB's group and both counts grow again
	back := text
	rejoined, err := svc.Update(ctx, a.ID, &UpdateQuestionRequest{Text: &back})
	if err != nil {
		t.Fatalf("second Update failed: %v", err)
	}
	if rejoined.UsageCount != 2 {
		t.Errorf("rejoined row usage count = %d, want 2", rejoined.UsageCount)
	}
	if got := repo.QuestionByID(b.ID).UsageCount; got != 2 {
		t.Errorf("sibling usage count after rejoin = %d, want 2", got)
	}
}

func TestUpdateCollidingTextRejected(t *testing.T) {
	repo := NewMockRepository()
	svc := newTestQuestionService(repo, nil)
	ctx := context.Background()

	if _, err := svc.Create(ctx, validCreateRequest("What is the derivative of x squared?", "CollegeA")); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	second, err := svc.Create(ctx, validCreateRequest("What is the integral of x squared?", "CollegeA"))
	if err != nil {
		t.Fatalf("second Create failed: %v", err)
	}

	collide := "What is the derivative of x squared?"
	_, err = svc.Update(ctx, second.ID, &UpdateQuestionRequest{Text: &collide})
	if !IsDuplicateError(err) {
		t.Fatalf("expected DuplicateError, got %v", err)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	repo := NewMockRepository()
	svc := newTestQuestionService(repo, nil)

	_, err := svc.GetByID(context.Background(), 999)
	if !errors.Is(err, ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
}
