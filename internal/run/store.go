package run

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/streetrush/backend/internal/models"
	"github.com/streetrush/backend/internal/rating"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, r *models.Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, user_id, status, lives_total, lives_remaining,
		                  streak, current_difficulty, total_money,
		                  questions_answered, questions_correct,
		                  highest_difficulty, avg_difficulty, duration_sec, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		r.ID, r.UserID, r.Status, r.LivesTotal, r.LivesRemaining,
		r.Streak, r.CurrentDifficulty, r.TotalMoney,
		r.QuestionsAnswered, r.QuestionsCorrect,
		r.HighestDifficulty, r.AvgDifficulty, r.DurationSec, r.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, runID string) (*models.Run, error) {
	r := &models.Run{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, status, lives_total, lives_remaining,
		       streak, current_difficulty, total_money,
		       questions_answered, questions_correct,
		       highest_difficulty, avg_difficulty, duration_sec,
		       started_at, ended_at,
		       compensation_delta, market_value_after, title_after, title_change
		FROM runs WHERE id = $1`, runID,
	).Scan(
		&r.ID, &r.UserID, &r.Status, &r.LivesTotal, &r.LivesRemaining,
		&r.Streak, &r.CurrentDifficulty, &r.TotalMoney,
		&r.QuestionsAnswered, &r.QuestionsCorrect,
		&r.HighestDifficulty, &r.AvgDifficulty, &r.DurationSec,
		&r.StartedAt, &r.EndedAt,
		&r.CompensationDelta, &r.MarketValueAfter, &r.TitleAfter, &r.TitleChange,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return r, nil
}

func (s *Store) ListByUser(ctx context.Context, userID int64, limit int) ([]models.RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, duration_sec, lives_total, lives_remaining,
		       current_difficulty, streak, total_money, status
		FROM runs
		WHERE user_id = $1
		ORDER BY started_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	summaries := []models.RunSummary{}
	for rows.Next() {
		var sum models.RunSummary
		if err := rows.Scan(&sum.ID, &sum.DurationSec, &sum.LivesTotal, &sum.LivesRemaining,
			&sum.CurrentDifficulty, &sum.Streak, &sum.TotalMoney, &sum.Status); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// Progress carries the run aggregates written by ApplyAnswer.
type Progress struct {
	LivesRemaining    int
	Streak            int
	CurrentDifficulty int
	TotalMoney        int64
	QuestionsAnswered int
	QuestionsCorrect  int
	HighestDifficulty int
	AvgDifficulty     float64
}

// ApplyAnswer records an answer and the resulting run state in a single
// transaction. expectedAnswered is the questions_answered value the caller
// observed; if another submit landed first the update matches zero rows and
// ErrConflict is returned, leaving the database untouched.
func (s *Store) ApplyAnswer(ctx context.Context, ans *models.Answer, expectedAnswered int, p Progress) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO run_answers (run_id, question_id, response, correct, score,
		                         difficulty, money_awarded, money_penalty, time_taken_sec)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (run_id, question_id) DO NOTHING`,
		ans.RunID, ans.QuestionID, ans.Response, ans.Correct, ans.Score,
		ans.Difficulty, ans.MoneyAwarded, ans.MoneyPenalty, ans.TimeTakenSec,
	)
	if err != nil {
		return fmt.Errorf("failed to insert answer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrDuplicateAnswer
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE runs
		SET lives_remaining = $1, streak = $2, current_difficulty = $3,
		    total_money = $4, questions_answered = $5, questions_correct = $6,
		    highest_difficulty = $7, avg_difficulty = $8
		WHERE id = $9 AND status = $10 AND questions_answered = $11`,
		p.LivesRemaining, p.Streak, p.CurrentDifficulty,
		p.TotalMoney, p.QuestionsAnswered, p.QuestionsCorrect,
		p.HighestDifficulty, p.AvgDifficulty,
		ans.RunID, models.RunActive, expectedAnswered,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrConflict
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO question_recency (user_id, question_id, last_seen_at, last_correct, difficulty)
		VALUES ((SELECT user_id FROM runs WHERE id = $1), $2, $3, $4, $5)
		ON CONFLICT (user_id, question_id)
		DO UPDATE SET last_seen_at = $3, last_correct = $4, difficulty = $5`,
		ans.RunID, ans.QuestionID, time.Now(), ans.Correct, ans.Difficulty,
	)
	if err != nil {
		return fmt.Errorf("failed to update recency: %w", err)
	}

	return tx.Commit()
}

// Complete transitions a run to completed and applies the rating outcome in
// one transaction. Both updates carry optimistic guards: the run update is
// conditioned on status = 'active' AND questions_answered = observedAnswered
// (so an answer landing after the caller's read invalidates the outcome it
// computed), and the ratings update on market_value = observedMarketValue
// (so two runs of one user settling concurrently cannot blind-overwrite each
// other's delta). Zero rows on either guard rolls the whole transaction back
// and returns completedNow = false; the caller re-reads and either replays a
// finished run or recomputes against fresh state.
func (s *Store) Complete(ctx context.Context, runID string, userID int64, observedAnswered int, observedMarketValue int64, out rating.Outcome) (completedNow bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	res, err := tx.ExecContext(ctx, `
		UPDATE runs
		SET status = $1, ended_at = $2,
		    compensation_delta = $3, market_value_after = $4,
		    title_after = $5, title_change = $6
		WHERE id = $7 AND status = $8 AND questions_answered = $9`,
		models.RunCompleted, now,
		out.CompensationDelta, out.NewMarketValue,
		out.NewTitle, out.TitleChange,
		runID, models.RunActive, observedAnswered,
	)
	if err != nil {
		return false, fmt.Errorf("failed to complete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Another finalize won, or aggregates moved since the read.
		return false, nil
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE ratings
		SET market_value = $1, peak_market_value = $2, title = $3,
		    placement_runs_completed = placement_runs_completed + 1,
		    updated_at = $4
		WHERE user_id = $5 AND market_value = $6`,
		out.NewMarketValue, out.NewPeak, out.NewTitle, now, userID, observedMarketValue,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update rating: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// The rating moved since the read; abort so nothing is stamped
		// from a stale base.
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}
