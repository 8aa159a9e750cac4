package questions

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/streetrush/backend/internal/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ── Question Access ─────────────────────────────────────

func (s *Store) GetQuestion(ctx context.Context, questionID int64) (*models.Question, error) {
	var q models.Question
	err := s.db.QueryRowContext(ctx,
		`SELECT id, topic, subtopic, difficulty, format, prompt, correct_key,
		        expected_time_sec, active, tags, created_at
		 FROM questions WHERE id = $1`,
		questionID,
	).Scan(&q.ID, &q.Topic, &q.Subtopic, &q.Difficulty, &q.Format, &q.Prompt,
		&q.CorrectKey, &q.ExpectedTimeSec, &q.Active, pq.Array(&q.Tags), &q.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}

	options, err := s.getOptions(ctx, questionID)
	if err != nil {
		return nil, err
	}
	q.Options = options

	return &q, nil
}

func (s *Store) getOptions(ctx context.Context, questionID int64) ([]models.QuestionOption, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT label, option_text FROM question_options WHERE question_id = $1 ORDER BY label`,
		questionID,
	)
	if err != nil {
		return nil, fmt.Errorf("get options: %w", err)
	}
	defer rows.Close()

	var options []models.QuestionOption
	for rows.Next() {
		var o models.QuestionOption
		if err := rows.Scan(&o.Label, &o.Text); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		options = append(options, o)
	}
	return options, rows.Err()
}

// ── Sampling (implements Catalog) ───────────────────────

const candidateFilter = `
	q.active = TRUE
	AND q.difficulty >= $2 AND q.difficulty <= $3
	AND ($4 = '' OR q.subtopic <> $4)
	AND NOT EXISTS (
		SELECT 1 FROM question_recency r
		WHERE r.user_id = $1
		  AND r.question_id = q.id
		  AND r.last_seen_at > NOW() - $5 * INTERVAL '1 second'
	)`

func (s *Store) CountCandidates(ctx context.Context, userID int64, minDiff, maxDiff int, excludeSubtopic string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM questions q WHERE %s`, candidateFilter),
		userID, minDiff, maxDiff, excludeSubtopic, int(RecencyWindow.Seconds()),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count candidates: %w", err)
	}
	return count, nil
}

func (s *Store) CandidateAt(ctx context.Context, userID int64, minDiff, maxDiff int, excludeSubtopic string, offset int) (*models.QuestionView, error) {
	var v models.QuestionView
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT q.id, q.topic, q.subtopic, q.difficulty, q.format, q.prompt, q.expected_time_sec
		 FROM questions q WHERE %s
		 ORDER BY q.id
		 LIMIT 1 OFFSET $6`, candidateFilter),
		userID, minDiff, maxDiff, excludeSubtopic, int(RecencyWindow.Seconds()), offset,
	).Scan(&v.ID, &v.Topic, &v.Subtopic, &v.Difficulty, &v.Format, &v.Prompt, &v.ExpectedTimeSec)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("candidate at offset: %w", err)
	}

	options, err := s.getOptions(ctx, v.ID)
	if err != nil {
		return nil, err
	}
	v.Options = options

	return &v, nil
}

// LastAnsweredSubtopic returns the subtopic of the most recently answered
// question in a run, or "" if nothing has been answered yet.
func (s *Store) LastAnsweredSubtopic(ctx context.Context, runID string) (string, error) {
	var subtopic string
	err := s.db.QueryRowContext(ctx,
		`SELECT q.subtopic
		 FROM run_answers a
		 JOIN questions q ON q.id = a.question_id
		 WHERE a.run_id = $1
		 ORDER BY a.created_at DESC
		 LIMIT 1`,
		runID,
	).Scan(&subtopic)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("last answered subtopic: %w", err)
	}
	return subtopic, nil
}

// ── Import ──────────────────────────────────────────────

func (s *Store) ImportQuestions(ctx context.Context, envelope models.ImportEnvelope) (*models.ImportResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result := &models.ImportResult{TotalInPayload: len(envelope.Questions)}

	for _, q := range envelope.Questions {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM questions WHERE prompt = $1)`, q.Prompt,
		).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check duplicate: %w", err)
		}
		if exists {
			result.Skipped++
			continue
		}

		tags := q.Tags
		if tags == nil {
			tags = []string{}
		}

		var questionID int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO questions (topic, subtopic, difficulty, format, prompt, correct_key, expected_time_sec, active, tags)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8)
			 RETURNING id`,
			q.Topic, q.Subtopic, q.Difficulty, q.Format, q.Prompt, q.CorrectKey,
			q.ExpectedTimeSec, pq.Array(tags),
		).Scan(&questionID)
		if err != nil {
			return nil, fmt.Errorf("insert question: %w", err)
		}

		for _, o := range q.Options {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO question_options (question_id, label, option_text) VALUES ($1, $2, $3)`,
				questionID, o.Label, o.Text,
			); err != nil {
				return nil, fmt.Errorf("insert option: %w", err)
			}
		}

		result.Imported++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}
	return result, nil
}
