package run

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/streetrush/backend/internal/models"
	"github.com/streetrush/backend/internal/rating"
)

// ── In-memory fakes ───────────────────────────────────

type fakeRatings struct {
	ratings map[int64]*models.Rating
}

func newFakeRatings() *fakeRatings {
	return &fakeRatings{ratings: make(map[int64]*models.Rating)}
}

func (f *fakeRatings) GetOrCreate(_ context.Context, userID int64) (*models.Rating, error) {
	if r, ok := f.ratings[userID]; ok {
		cp := *r
		return &cp, nil
	}
	r := &models.Rating{
		UserID:          userID,
		MarketValue:     rating.DefaultMarketValue,
		PeakMarketValue: rating.DefaultMarketValue,
		Title:           rating.TitleFor(rating.DefaultMarketValue),
	}
	f.ratings[userID] = r
	cp := *r
	return &cp, nil
}

type fakeRepo struct {
	runs     map[string]*models.Run
	answers  map[string]map[int64]*models.Answer
	ratings  *fakeRatings
	finished int
}

func newFakeRepo(ratings *fakeRatings) *fakeRepo {
	return &fakeRepo{
		runs:    make(map[string]*models.Run),
		answers: make(map[string]map[int64]*models.Answer),
		ratings: ratings,
	}
}

func (f *fakeRepo) Create(_ context.Context, r *models.Run) error {
	cp := *r
	f.runs[r.ID] = &cp
	f.answers[r.ID] = make(map[int64]*models.Answer)
	return nil
}

func (f *fakeRepo) Get(_ context.Context, runID string) (*models.Run, error) {
	r, ok := f.runs[runID]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRepo) ListByUser(_ context.Context, userID int64, limit int) ([]models.RunSummary, error) {
	out := []models.RunSummary{}
	for _, r := range f.runs {
		if r.UserID == userID && len(out) < limit {
			out = append(out, r.Summary())
		}
	}
	return out, nil
}

func (f *fakeRepo) ApplyAnswer(_ context.Context, ans *models.Answer, expectedAnswered int, p Progress) error {
	if _, ok := f.answers[ans.RunID][ans.QuestionID]; ok {
		return models.ErrDuplicateAnswer
	}
	r, ok := f.runs[ans.RunID]
	if !ok || r.Status != models.RunActive || r.QuestionsAnswered != expectedAnswered {
		return models.ErrConflict
	}
	cp := *ans
	f.answers[ans.RunID][ans.QuestionID] = &cp
	r.LivesRemaining = p.LivesRemaining
	r.Streak = p.Streak
	r.CurrentDifficulty = p.CurrentDifficulty
	r.TotalMoney = p.TotalMoney
	r.QuestionsAnswered = p.QuestionsAnswered
	r.QuestionsCorrect = p.QuestionsCorrect
	r.HighestDifficulty = p.HighestDifficulty
	r.AvgDifficulty = p.AvgDifficulty
	return nil
}

func (f *fakeRepo) Complete(_ context.Context, runID string, userID int64, observedAnswered int, observedMarketValue int64, out rating.Outcome) (bool, error) {
	r, ok := f.runs[runID]
	if !ok {
		return false, models.ErrNotFound
	}
	if r.Status != models.RunActive {
		return false, nil
	}
	if r.QuestionsAnswered != observedAnswered {
		return false, nil
	}
	if f.ratings.ratings[userID].MarketValue != observedMarketValue {
		return false, nil
	}
	r.Status = models.RunCompleted
	delta, mv, title := out.CompensationDelta, out.NewMarketValue, out.NewTitle
	r.CompensationDelta = &delta
	r.MarketValueAfter = &mv
	r.TitleAfter = &title
	r.TitleChange = out.TitleChange

	rt := f.ratings.ratings[userID]
	rt.MarketValue = out.NewMarketValue
	rt.PeakMarketValue = out.NewPeak
	rt.Title = out.NewTitle
	rt.PlacementRunsCompleted++
	f.finished++
	return true, nil
}

type fakeCatalog struct {
	questions    map[int64]*models.Question
	lastSubtopic string
}

func (f *fakeCatalog) GetQuestion(_ context.Context, id int64) (*models.Question, error) {
	q, ok := f.questions[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return q, nil
}

func (f *fakeCatalog) LastAnsweredSubtopic(_ context.Context, _ string) (string, error) {
	return f.lastSubtopic, nil
}

type fakeSampler struct {
	next           *models.QuestionView
	lastDifficulty int
	lastExclude    string
}

func (f *fakeSampler) Sample(_ context.Context, _ int64, difficulty int, excludeSubtopic string) (*models.QuestionView, error) {
	f.lastDifficulty = difficulty
	f.lastExclude = excludeSubtopic
	if f.next == nil {
		return nil, models.ErrNoCandidates
	}
	return f.next, nil
}

type harness struct {
	service *Service
	repo    *fakeRepo
	ratings *fakeRatings
	catalog *fakeCatalog
	sampler *fakeSampler
}

func newHarness() *harness {
	ratings := newFakeRatings()
	repo := newFakeRepo(ratings)
	catalog := &fakeCatalog{questions: make(map[int64]*models.Question)}
	sampler := &fakeSampler{next: &models.QuestionView{ID: 1, Difficulty: 2}}
	service := NewService(repo, catalog, sampler, ratings, nil, DefaultEconomyConfig())
	return &harness{service: service, repo: repo, ratings: ratings, catalog: catalog, sampler: sampler}
}

func (h *harness) addQuestion(q *models.Question) {
	h.catalog.questions[q.ID] = q
}

func singleChoiceQuestion(id int64, difficulty int, correct string) *models.Question {
	return &models.Question{
		ID:              id,
		Topic:           "markets",
		Subtopic:        "equities",
		Difficulty:      difficulty,
		Format:          models.FormatSingleChoice,
		CorrectKey:      correct,
		ExpectedTimeSec: 30,
	}
}

func secs(v float64) *float64 {
	return &v
}

// ── Tests ─────────────────────────────────────────────

func TestStartRunDefaults(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	resp, err := h.service.StartRun(ctx, 7)
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	if resp.Run.LivesRemaining != models.DefaultLivesTotal {
		t.Errorf("lives = %d, want %d", resp.Run.LivesRemaining, models.DefaultLivesTotal)
	}
	if resp.Run.CurrentDifficulty != models.DefaultDifficulty {
		t.Errorf("difficulty = %d, want %d", resp.Run.CurrentDifficulty, models.DefaultDifficulty)
	}
	if resp.Run.TotalMoney != 0 {
		t.Errorf("total money = %d, want 0", resp.Run.TotalMoney)
	}
	if resp.Run.Status != models.RunActive {
		t.Errorf("status = %s, want active", resp.Run.Status)
	}
	if resp.FirstQuestion == nil {
		t.Error("expected a first question")
	}

	// Starting a run must create the default rating.
	rt := h.ratings.ratings[7]
	if rt == nil || rt.MarketValue != rating.DefaultMarketValue {
		t.Errorf("rating not initialized with default market value")
	}
}

func TestStartRunWithEmptyCatalog(t *testing.T) {
	h := newHarness()
	h.sampler.next = nil

	resp, err := h.service.StartRun(context.Background(), 7)
	if err != nil {
		t.Fatalf("StartRun should tolerate an empty catalog: %v", err)
	}
	if resp.FirstQuestion != nil {
		t.Error("expected no first question")
	}
}

func TestSubmitCorrectAnswer(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.addQuestion(singleChoiceQuestion(10, 3, "B"))

	start, _ := h.service.StartRun(ctx, 7)
	run := h.repo.runs[start.RunID]
	run.Streak = 2
	run.CurrentDifficulty = 3

	resp, err := h.service.SubmitAnswer(ctx, 7, start.RunID, models.SubmitAnswerRequest{
		QuestionID:   10,
		Response:     json.RawMessage(`"b"`),
		TimeTakenSec: secs(10),
	})
	if err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}

	if !resp.Correct {
		t.Error("answer should be correct")
	}
	if resp.MoneyAwarded <= 0 {
		t.Errorf("moneyAwarded = %d, want > 0", resp.MoneyAwarded)
	}
	if resp.MoneyPenalty != 0 {
		t.Errorf("moneyPenalty = %d, want 0", resp.MoneyPenalty)
	}
	if resp.Streak != 3 {
		t.Errorf("streak = %d, want 3", resp.Streak)
	}
	if resp.LivesRemaining != models.DefaultLivesTotal {
		t.Errorf("lives = %d, a correct answer must not cost a life", resp.LivesRemaining)
	}
	if resp.CurrentDifficulty != 4 {
		t.Errorf("difficulty = %d, want 4", resp.CurrentDifficulty)
	}

	stored := h.repo.runs[start.RunID]
	if stored.QuestionsAnswered != 1 || stored.QuestionsCorrect != 1 {
		t.Errorf("aggregates = (%d answered, %d correct), want (1, 1)", stored.QuestionsAnswered, stored.QuestionsCorrect)
	}
	if stored.AvgDifficulty != 3.0 {
		t.Errorf("avg difficulty = %f, want 3.0", stored.AvgDifficulty)
	}
	if stored.HighestDifficulty != 3 {
		t.Errorf("highest difficulty = %d, want 3", stored.HighestDifficulty)
	}
}

func TestSubmitWrongAnswer(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.addQuestion(singleChoiceQuestion(10, 2, "B"))

	start, _ := h.service.StartRun(ctx, 7)
	run := h.repo.runs[start.RunID]
	run.LivesRemaining = 1
	run.Streak = 5

	resp, err := h.service.SubmitAnswer(ctx, 7, start.RunID, models.SubmitAnswerRequest{
		QuestionID:   10,
		Response:     json.RawMessage(`"A"`),
		TimeTakenSec: secs(10),
	})
	if err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}

	if resp.Correct {
		t.Error("answer should be wrong")
	}
	if resp.MoneyAwarded != 0 {
		t.Errorf("moneyAwarded = %d, want 0", resp.MoneyAwarded)
	}
	if resp.MoneyPenalty <= 0 {
		t.Errorf("moneyPenalty = %d, want > 0", resp.MoneyPenalty)
	}
	if resp.LivesRemaining != 0 {
		t.Errorf("lives = %d, want 0", resp.LivesRemaining)
	}
	if resp.Streak != 0 {
		t.Errorf("streak = %d, want 0", resp.Streak)
	}
	if resp.TotalMoney >= 0 {
		t.Errorf("total money = %d, penalties from zero should go negative", resp.TotalMoney)
	}

	// Losing the last life does not auto-complete the run.
	if h.repo.runs[start.RunID].Status != models.RunActive {
		t.Error("run should stay active until finalize")
	}
}

func TestSubmitPartialCreditCountsAsHit(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.addQuestion(&models.Question{
		ID:              11,
		Topic:           "markets",
		Subtopic:        "bonds",
		Difficulty:      3,
		Format:          models.FormatMultiSelect,
		CorrectKey:      "A,C",
		ExpectedTimeSec: 30,
	})

	start, _ := h.service.StartRun(ctx, 7)
	resp, err := h.service.SubmitAnswer(ctx, 7, start.RunID, models.SubmitAnswerRequest{
		QuestionID:   11,
		Response:     json.RawMessage(`["A"]`),
		TimeTakenSec: secs(30),
	})
	if err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}

	if !resp.Correct {
		t.Error("partial credit should count as a hit")
	}
	if resp.MoneyAwarded <= 0 {
		t.Errorf("moneyAwarded = %d, want > 0 for partial credit", resp.MoneyAwarded)
	}
	if resp.MoneyPenalty != 0 {
		t.Errorf("moneyPenalty = %d, want 0", resp.MoneyPenalty)
	}
	if resp.LivesRemaining != models.DefaultLivesTotal {
		t.Errorf("lives = %d, partial credit must not cost a life", resp.LivesRemaining)
	}
	if resp.Streak != 1 {
		t.Errorf("streak = %d, want 1", resp.Streak)
	}
	if h.repo.runs[start.RunID].QuestionsCorrect != 1 {
		t.Error("partial credit should count toward questions_correct")
	}
}

func TestSubmitDuplicateQuestion(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.addQuestion(singleChoiceQuestion(10, 2, "B"))

	start, _ := h.service.StartRun(ctx, 7)
	req := models.SubmitAnswerRequest{QuestionID: 10, Response: json.RawMessage(`"B"`), TimeTakenSec: secs(5)}

	if _, err := h.service.SubmitAnswer(ctx, 7, start.RunID, req); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}

	before := *h.repo.runs[start.RunID]
	_, err := h.service.SubmitAnswer(ctx, 7, start.RunID, req)
	if !errors.Is(err, models.ErrDuplicateAnswer) {
		t.Fatalf("second submit err = %v, want ErrDuplicateAnswer", err)
	}
	after := *h.repo.runs[start.RunID]
	if before != after {
		t.Error("duplicate submit must not change run state")
	}
}

func TestSubmitInvalidResponseShape(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.addQuestion(singleChoiceQuestion(10, 2, "B"))

	start, _ := h.service.StartRun(ctx, 7)
	_, err := h.service.SubmitAnswer(ctx, 7, start.RunID, models.SubmitAnswerRequest{
		QuestionID:   10,
		Response:     json.RawMessage(`["B"]`),
		TimeTakenSec: secs(12),
	})
	if !errors.Is(err, models.ErrInvalidResponse) {
		t.Fatalf("err = %v, want ErrInvalidResponse", err)
	}
}

func TestSubmitOnCompletedRun(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.addQuestion(singleChoiceQuestion(10, 2, "B"))

	start, _ := h.service.StartRun(ctx, 7)
	if _, err := h.service.Finalize(ctx, 7, start.RunID); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	_, err := h.service.SubmitAnswer(ctx, 7, start.RunID, models.SubmitAnswerRequest{
		QuestionID: 10, Response: json.RawMessage(`"B"`),
	})
	if !errors.Is(err, models.ErrRunNotActive) {
		t.Fatalf("err = %v, want ErrRunNotActive", err)
	}
}

func TestRunOwnership(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	start, _ := h.service.StartRun(ctx, 7)

	if _, err := h.service.GetRun(ctx, 8, start.RunID); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("other user's GetRun err = %v, want ErrForbidden", err)
	}
	if _, err := h.service.GetRun(ctx, 7, "missing-run"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("unknown run err = %v, want ErrNotFound", err)
	}
}

func TestNextQuestionUsesRunDifficultyAndExcludesLastSubtopic(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	start, _ := h.service.StartRun(ctx, 7)
	h.repo.runs[start.RunID].CurrentDifficulty = 4
	h.catalog.lastSubtopic = "equities"

	if _, err := h.service.NextQuestion(ctx, 7, start.RunID); err != nil {
		t.Fatalf("NextQuestion failed: %v", err)
	}
	if h.sampler.lastDifficulty != 4 {
		t.Errorf("sampled at difficulty %d, want 4", h.sampler.lastDifficulty)
	}
	if h.sampler.lastExclude != "equities" {
		t.Errorf("excluded subtopic %q, want equities", h.sampler.lastExclude)
	}
}

func TestFinalizeIdempotent(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.addQuestion(singleChoiceQuestion(10, 4, "B"))

	start, _ := h.service.StartRun(ctx, 7)
	if _, err := h.service.SubmitAnswer(ctx, 7, start.RunID, models.SubmitAnswerRequest{
		QuestionID: 10, Response: json.RawMessage(`"B"`), TimeTakenSec: secs(5),
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	first, err := h.service.Finalize(ctx, 7, start.RunID)
	if err != nil {
		t.Fatalf("first finalize failed: %v", err)
	}
	if first.Idempotent {
		t.Error("first finalize must not be idempotent")
	}
	if first.CompensationDelta <= 0 {
		t.Errorf("delta = %d, a profitable perfect run must raise market value", first.CompensationDelta)
	}
	if first.NewMarketValue != rating.DefaultMarketValue+first.CompensationDelta {
		t.Errorf("market value = %d, want %d", first.NewMarketValue, rating.DefaultMarketValue+first.CompensationDelta)
	}

	second, err := h.service.Finalize(ctx, 7, start.RunID)
	if err != nil {
		t.Fatalf("second finalize failed: %v", err)
	}
	if !second.Idempotent {
		t.Error("replayed finalize must set idempotent")
	}
	if second.TotalMoney != first.TotalMoney ||
		second.CompensationDelta != first.CompensationDelta ||
		second.NewMarketValue != first.NewMarketValue ||
		second.NewTitle != first.NewTitle {
		t.Errorf("replay differs: first %+v, second %+v", first, second)
	}

	// The rating settles exactly once.
	if h.repo.finished != 1 {
		t.Errorf("rating settled %d times, want 1", h.repo.finished)
	}
	if h.ratings.ratings[7].PlacementRunsCompleted != 1 {
		t.Errorf("placement runs = %d, want 1", h.ratings.ratings[7].PlacementRunsCompleted)
	}
}

func TestFinalizeEmptyRun(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	start, _ := h.service.StartRun(ctx, 7)
	resp, err := h.service.Finalize(ctx, 7, start.RunID)
	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	// No answers means zero accuracy and no rating movement.
	if resp.CompensationDelta != 0 {
		t.Errorf("delta = %d, want 0 for a run with no answers", resp.CompensationDelta)
	}
	if resp.NewMarketValue != rating.DefaultMarketValue {
		t.Errorf("market value = %d, want unchanged default", resp.NewMarketValue)
	}
	if resp.TitleChange != nil {
		t.Errorf("title change = %v, want nil", *resp.TitleChange)
	}
}

func TestSubmitMissingTimeTaken(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.addQuestion(singleChoiceQuestion(10, 2, "B"))

	start, _ := h.service.StartRun(ctx, 7)
	_, err := h.service.SubmitAnswer(ctx, 7, start.RunID, models.SubmitAnswerRequest{
		QuestionID: 10,
		Response:   json.RawMessage(`"B"`),
	})
	if !errors.Is(err, models.ErrInvalidResponse) {
		t.Fatalf("err = %v, want ErrInvalidResponse", err)
	}
	if h.repo.runs[start.RunID].QuestionsAnswered != 0 {
		t.Error("a rejected submit must not advance the run")
	}
}

func TestSubmitNegativeTimeTaken(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.addQuestion(singleChoiceQuestion(10, 2, "B"))

	start, _ := h.service.StartRun(ctx, 7)
	_, err := h.service.SubmitAnswer(ctx, 7, start.RunID, models.SubmitAnswerRequest{
		QuestionID:   10,
		Response:     json.RawMessage(`"B"`),
		TimeTakenSec: secs(-1),
	})
	if !errors.Is(err, models.ErrInvalidResponse) {
		t.Fatalf("err = %v, want ErrInvalidResponse", err)
	}
}

// raceRepo delegates to fakeRepo but runs inject once, right before the
// first Complete, to model work landing between the finalize read and its
// commit.
type raceRepo struct {
	*fakeRepo
	inject   func()
	injected bool
}

func (r *raceRepo) Complete(ctx context.Context, runID string, userID int64, observedAnswered int, observedMarketValue int64, out rating.Outcome) (bool, error) {
	if r.inject != nil && !r.injected {
		r.injected = true
		r.inject()
	}
	return r.fakeRepo.Complete(ctx, runID, userID, observedAnswered, observedMarketValue, out)
}

func newRaceHarness() (*Service, *raceRepo, *fakeRatings, *fakeCatalog) {
	ratings := newFakeRatings()
	repo := &raceRepo{fakeRepo: newFakeRepo(ratings)}
	catalog := &fakeCatalog{questions: make(map[int64]*models.Question)}
	sampler := &fakeSampler{next: &models.QuestionView{ID: 1, Difficulty: 2}}
	service := NewService(repo, catalog, sampler, ratings, nil, DefaultEconomyConfig())
	return service, repo, ratings, catalog
}

func TestFinalizeRecomputesAfterLateAnswer(t *testing.T) {
	service, repo, _, catalog := newRaceHarness()
	ctx := context.Background()
	catalog.questions[10] = singleChoiceQuestion(10, 3, "B")

	start, _ := service.StartRun(ctx, 7)
	repo.inject = func() {
		if _, err := service.SubmitAnswer(ctx, 7, start.RunID, models.SubmitAnswerRequest{
			QuestionID: 10, Response: json.RawMessage(`"B"`), TimeTakenSec: secs(10),
		}); err != nil {
			t.Fatalf("late submit failed: %v", err)
		}
	}

	first, err := service.Finalize(ctx, 7, start.RunID)
	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if first.Idempotent {
		t.Error("winning finalize must not be idempotent")
	}
	if first.TotalMoney == 0 {
		t.Error("finalize must account for the answer that landed before commit")
	}
	if got := repo.runs[start.RunID].TotalMoney; first.TotalMoney != got {
		t.Errorf("totalMoney = %d, want the settled run total %d", first.TotalMoney, got)
	}
	if first.CompensationDelta <= 0 {
		t.Errorf("delta = %d, a profitable run must raise market value", first.CompensationDelta)
	}

	second, err := service.Finalize(ctx, 7, start.RunID)
	if err != nil {
		t.Fatalf("replay finalize failed: %v", err)
	}
	if !second.Idempotent {
		t.Error("replayed finalize must set idempotent")
	}
	if second.TotalMoney != first.TotalMoney ||
		second.CompensationDelta != first.CompensationDelta ||
		second.NewMarketValue != first.NewMarketValue ||
		second.NewTitle != first.NewTitle {
		t.Errorf("replay differs: first %+v, second %+v", first, second)
	}
	if repo.finished != 1 {
		t.Errorf("rating settled %d times, want 1", repo.finished)
	}
}

func TestFinalizeGuardsRatingAgainstParallelRun(t *testing.T) {
	service, repo, ratings, catalog := newRaceHarness()
	ctx := context.Background()
	catalog.questions[10] = singleChoiceQuestion(10, 3, "B")
	catalog.questions[11] = singleChoiceQuestion(11, 3, "C")

	runA, _ := service.StartRun(ctx, 7)
	runB, _ := service.StartRun(ctx, 7)
	if _, err := service.SubmitAnswer(ctx, 7, runA.RunID, models.SubmitAnswerRequest{
		QuestionID: 10, Response: json.RawMessage(`"B"`), TimeTakenSec: secs(10),
	}); err != nil {
		t.Fatalf("submit to first run failed: %v", err)
	}
	if _, err := service.SubmitAnswer(ctx, 7, runB.RunID, models.SubmitAnswerRequest{
		QuestionID: 11, Response: json.RawMessage(`"C"`), TimeTakenSec: secs(10),
	}); err != nil {
		t.Fatalf("submit to second run failed: %v", err)
	}

	var respB *models.FinalizeResponse
	repo.inject = func() {
		var err error
		respB, err = service.Finalize(ctx, 7, runB.RunID)
		if err != nil {
			t.Fatalf("parallel finalize failed: %v", err)
		}
	}

	respA, err := service.Finalize(ctx, 7, runA.RunID)
	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	// Neither settlement may clobber the other's delta.
	if respA.NewMarketValue != respB.NewMarketValue+respA.CompensationDelta {
		t.Errorf("market value = %d, want %d applied on top of the parallel run's %d",
			respA.NewMarketValue, respA.CompensationDelta, respB.NewMarketValue)
	}
	if got := ratings.ratings[7].MarketValue; got != respA.NewMarketValue {
		t.Errorf("stored market value = %d, want %d", got, respA.NewMarketValue)
	}
	if repo.finished != 2 {
		t.Errorf("rating settled %d times, want 2", repo.finished)
	}
	if got := ratings.ratings[7].PlacementRunsCompleted; got != 2 {
		t.Errorf("placement runs = %d, want 2", got)
	}
}
