package run

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/streetrush/backend/internal/messaging"
	"github.com/streetrush/backend/internal/models"
	"github.com/streetrush/backend/internal/rating"
)

// Repository is the run storage the service depends on. *Store implements
// it against Postgres; tests supply fakes.
type Repository interface {
	Create(ctx context.Context, r *models.Run) error
	Get(ctx context.Context, runID string) (*models.Run, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.RunSummary, error)
	ApplyAnswer(ctx context.Context, ans *models.Answer, expectedAnswered int, p Progress) error
	Complete(ctx context.Context, runID string, userID int64, observedAnswered int, observedMarketValue int64, out rating.Outcome) (bool, error)
}

// QuestionCatalog resolves questions and answer history.
type QuestionCatalog interface {
	GetQuestion(ctx context.Context, questionID int64) (*models.Question, error)
	LastAnsweredSubtopic(ctx context.Context, runID string) (string, error)
}

// QuestionSampler picks the next question for a user at a difficulty.
type QuestionSampler interface {
	Sample(ctx context.Context, userID int64, difficulty int, excludeSubtopic string) (*models.QuestionView, error)
}

// RatingRepository resolves a user's current rating, creating the default
// one on first contact.
type RatingRepository interface {
	GetOrCreate(ctx context.Context, userID int64) (*models.Rating, error)
}

// EventPublisher emits a run.completed event. May be nil when messaging is
// not configured.
type EventPublisher interface {
	PublishRunCompleted(ctx context.Context, event messaging.RunCompletedEvent) error
}

type Service struct {
	runs      Repository
	catalog   QuestionCatalog
	sampler   QuestionSampler
	ratings   RatingRepository
	publisher EventPublisher
	econ      EconomyConfig
}

func NewService(runs Repository, catalog QuestionCatalog, sampler QuestionSampler, ratings RatingRepository, publisher EventPublisher, econ EconomyConfig) *Service {
	return &Service{
		runs:      runs,
		catalog:   catalog,
		sampler:   sampler,
		ratings:   ratings,
		publisher: publisher,
		econ:      econ,
	}
}

// StartRun creates a fresh active run with default lives and difficulty and
// samples its first question. A user with no rating row gets the default
// rating here, so every run has a rating to settle against.
func (s *Service) StartRun(ctx context.Context, userID int64) (*models.StartRunResponse, error) {
	if _, err := s.ratings.GetOrCreate(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to resolve rating: %w", err)
	}

	r := &models.Run{
		ID:                uuid.NewString(),
		UserID:            userID,
		Status:            models.RunActive,
		LivesTotal:        models.DefaultLivesTotal,
		LivesRemaining:    models.DefaultLivesTotal,
		Streak:            0,
		CurrentDifficulty: models.DefaultDifficulty,
		TotalMoney:        0,
		HighestDifficulty: models.DefaultDifficulty,
		AvgDifficulty:     models.DefaultDifficulty,
		DurationSec:       models.DefaultRunDuration,
		StartedAt:         time.Now(),
	}

	if err := s.runs.Create(ctx, r); err != nil {
		return nil, err
	}

	first, err := s.sampler.Sample(ctx, userID, r.CurrentDifficulty, "")
	if err != nil && !errors.Is(err, models.ErrNoCandidates) {
		return nil, err
	}
	if first == nil {
		log.Printf("[run] no first question available for user %d", userID)
	}

	return &models.StartRunResponse{
		RunID:         r.ID,
		StartedAt:     r.StartedAt,
		Run:           r.Summary(),
		FirstQuestion: first,
	}, nil
}

// GetRun returns the current state of a run owned by userID.
func (s *Service) GetRun(ctx context.Context, userID int64, runID string) (*models.GetRunResponse, error) {
	r, err := s.ownedRun(ctx, userID, runID)
	if err != nil {
		return nil, err
	}
	return &models.GetRunResponse{
		RunID:             r.ID,
		StartedAt:         r.StartedAt,
		DurationSec:       r.DurationSec,
		LivesTotal:        r.LivesTotal,
		LivesRemaining:    r.LivesRemaining,
		CurrentDifficulty: r.CurrentDifficulty,
		Streak:            r.Streak,
		TotalMoney:        r.TotalMoney,
		Status:            r.Status,
	}, nil
}

// ListRuns returns the user's recent runs, newest first.
func (s *Service) ListRuns(ctx context.Context, userID int64, limit int) ([]models.RunSummary, error) {
	return s.runs.ListByUser(ctx, userID, limit)
}

// NextQuestion samples a question at the run's current difficulty. The
// subtopic of the most recently answered question is excluded when other
// subtopics have candidates, to avoid serving the same theme twice in a row.
func (s *Service) NextQuestion(ctx context.Context, userID int64, runID string) (*models.QuestionView, error) {
	r, err := s.ownedRun(ctx, userID, runID)
	if err != nil {
		return nil, err
	}
	if r.Status != models.RunActive {
		return nil, models.ErrRunNotActive
	}

	exclude, err := s.catalog.LastAnsweredSubtopic(ctx, runID)
	if err != nil {
		log.Printf("[run] failed to resolve last subtopic for run %s: %v", runID, err)
		exclude = ""
	}

	return s.sampler.Sample(ctx, userID, r.CurrentDifficulty, exclude)
}

// SubmitAnswer scores a response against the question's correct key, applies
// the money and run-state consequences, and persists everything atomically.
// Submitting the same question twice in one run returns ErrDuplicateAnswer;
// a concurrent submit against the same run state returns ErrConflict with no
// partial effects.
func (s *Service) SubmitAnswer(ctx context.Context, userID int64, runID string, req models.SubmitAnswerRequest) (*models.SubmitAnswerResponse, error) {
	r, err := s.ownedRun(ctx, userID, runID)
	if err != nil {
		return nil, err
	}
	if r.Status != models.RunActive {
		return nil, models.ErrRunNotActive
	}

	q, err := s.catalog.GetQuestion(ctx, req.QuestionID)
	if err != nil {
		return nil, err
	}

	if req.TimeTakenSec == nil || *req.TimeTakenSec < 0 {
		return nil, fmt.Errorf("%w: timeTakenSec must be a non-negative number", models.ErrInvalidResponse)
	}
	timeTaken := *req.TimeTakenSec

	response, err := NormalizeResponse(q.Format, req.Response)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidResponse, err)
	}
	key := NormalizeKey(q.Format, q.CorrectKey)

	score := s.econ.Score(q.Format, key, response)
	// Any credit counts as a hit; only a zero score costs a life.
	correct := score > 0

	rt, err := s.ratings.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve rating: %w", err)
	}

	awarded := s.econ.MoneyAwarded(score, q.Difficulty, timeTaken, float64(q.ExpectedTimeSec), r.Streak)
	penalty := s.econ.MoneyPenalty(score, q.Difficulty, r.Streak, rt.Title)

	newStreak, newLives, newDifficulty := NextRunState(correct, r.Streak, r.LivesRemaining, r.CurrentDifficulty)

	answered := r.QuestionsAnswered
	p := Progress{
		LivesRemaining:    newLives,
		Streak:            newStreak,
		CurrentDifficulty: newDifficulty,
		TotalMoney:        r.TotalMoney + awarded - penalty,
		QuestionsAnswered: answered + 1,
		QuestionsCorrect:  r.QuestionsCorrect,
		HighestDifficulty: r.HighestDifficulty,
		AvgDifficulty:     (r.AvgDifficulty*float64(answered) + float64(q.Difficulty)) / float64(answered+1),
	}
	if correct {
		p.QuestionsCorrect++
	}
	if q.Difficulty > p.HighestDifficulty {
		p.HighestDifficulty = q.Difficulty
	}

	ans := &models.Answer{
		RunID:        runID,
		QuestionID:   q.ID,
		Response:     response,
		Correct:      correct,
		Score:        score,
		Difficulty:   q.Difficulty,
		MoneyAwarded: awarded,
		MoneyPenalty: penalty,
		TimeTakenSec: timeTaken,
	}
	if err := s.runs.ApplyAnswer(ctx, ans, answered, p); err != nil {
		return nil, err
	}

	return &models.SubmitAnswerResponse{
		Correct:           correct,
		MoneyAwarded:      awarded,
		MoneyPenalty:      penalty,
		LivesRemaining:    p.LivesRemaining,
		Streak:            p.Streak,
		TotalMoney:        p.TotalMoney,
		CurrentDifficulty: p.CurrentDifficulty,
	}, nil
}

// finalizeAttempts bounds the optimistic retry loop in Finalize. Each retry
// re-reads the run and rating, so losing a guard only costs one round trip.
const finalizeAttempts = 5

// Finalize settles a run against the user's rating. The first call computes
// and stamps the outcome; every later call, including concurrent losers of
// the completion race, replays the stamped outcome byte for byte with
// idempotent set to true. The outcome is only stamped when the aggregates
// and rating it was computed from are still current, so a submit or another
// run's settlement landing mid-finalize forces a recompute, never a stale
// stamp.
func (s *Service) Finalize(ctx context.Context, userID int64, runID string) (*models.FinalizeResponse, error) {
	for attempt := 0; attempt < finalizeAttempts; attempt++ {
		r, err := s.ownedRun(ctx, userID, runID)
		if err != nil {
			return nil, err
		}
		if r.Status == models.RunCompleted {
			return replayFinalize(r), nil
		}

		rt, err := s.ratings.GetOrCreate(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve rating: %w", err)
		}

		out := rating.Finalize(r.TotalMoney, r.QuestionsCorrect, r.QuestionsAnswered,
			r.AvgDifficulty, rt.MarketValue, rt.PeakMarketValue)

		completedNow, err := s.runs.Complete(ctx, runID, userID, r.QuestionsAnswered, rt.MarketValue, out)
		if err != nil {
			return nil, err
		}
		if !completedNow {
			// Either another finalize won (next read replays the stamp)
			// or the run/rating moved underneath us (next read recomputes).
			continue
		}

		s.publishCompleted(ctx, r, out)

		return &models.FinalizeResponse{
			Idempotent:        false,
			TotalMoney:        r.TotalMoney,
			CompensationDelta: out.CompensationDelta,
			NewMarketValue:    out.NewMarketValue,
			NewTitle:          out.NewTitle,
			TitleChange:       out.TitleChange,
		}, nil
	}
	return nil, models.ErrConflict
}

func replayFinalize(r *models.Run) *models.FinalizeResponse {
	resp := &models.FinalizeResponse{
		Idempotent: true,
		TotalMoney: r.TotalMoney,
	}
	if r.CompensationDelta != nil {
		resp.CompensationDelta = *r.CompensationDelta
	}
	if r.MarketValueAfter != nil {
		resp.NewMarketValue = *r.MarketValueAfter
	}
	if r.TitleAfter != nil {
		resp.NewTitle = *r.TitleAfter
	}
	resp.TitleChange = r.TitleChange
	return resp
}

func (s *Service) publishCompleted(ctx context.Context, r *models.Run, out rating.Outcome) {
	if s.publisher == nil {
		return
	}
	event := messaging.RunCompletedEvent{
		RunID:             r.ID,
		UserID:            r.UserID,
		TotalMoney:        r.TotalMoney,
		CompensationDelta: out.CompensationDelta,
		NewMarketValue:    out.NewMarketValue,
		NewTitle:          out.NewTitle,
		CompletedAt:       time.Now(),
	}
	if err := s.publisher.PublishRunCompleted(ctx, event); err != nil {
		log.Printf("[run] failed to publish run.completed for %s: %v", r.ID, err)
	}
}

func (s *Service) ownedRun(ctx context.Context, userID int64, runID string) (*models.Run, error) {
	r, err := s.runs.Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	if r.UserID != userID {
		return nil, models.ErrForbidden
	}
	return r, nil
}
