package models

import (
	"encoding/json"
	"time"
)

type RunStatus string

const (
	RunActive    RunStatus = "active"
	RunCompleted RunStatus = "completed"
)

const (
	DefaultLivesTotal  = 3
	DefaultDifficulty  = 2
	DefaultRunDuration = 120 // seconds
)

type Run struct {
	ID                string     `json:"id"`
	UserID            int64      `json:"user_id"`
	Status            RunStatus  `json:"status"`
	LivesTotal        int        `json:"lives_total"`
	LivesRemaining    int        `json:"lives_remaining"`
	Streak            int        `json:"streak"`
	CurrentDifficulty int        `json:"current_difficulty"`
	TotalMoney        int64      `json:"total_money"`
	QuestionsAnswered int        `json:"questions_answered"`
	QuestionsCorrect  int        `json:"questions_correct"`
	HighestDifficulty int        `json:"highest_difficulty"`
	AvgDifficulty     float64    `json:"avg_difficulty"`
	DurationSec       int        `json:"duration_sec"`
	StartedAt         time.Time  `json:"started_at"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`

	// Stamped once when the run transitions to completed; replayed verbatim
	// on repeated finalize calls.
	CompensationDelta *int64  `json:"compensation_delta,omitempty"`
	MarketValueAfter  *int64  `json:"market_value_after,omitempty"`
	TitleAfter        *string `json:"title_after,omitempty"`
	TitleChange       *string `json:"title_change,omitempty"`
}

// Answer is one append-only log entry per (run, question) attempt.
type Answer struct {
	RunID        string    `json:"run_id"`
	QuestionID   int64     `json:"question_id"`
	Response     string    `json:"response"`
	Correct      bool      `json:"correct"`
	Score        float64   `json:"score"`
	Difficulty   int       `json:"difficulty"`
	MoneyAwarded int64     `json:"money_awarded"`
	MoneyPenalty int64     `json:"money_penalty"`
	TimeTakenSec float64   `json:"time_taken_sec"`
	CreatedAt    time.Time `json:"created_at"`
}

// ── Request Types ─────────────────────────────────────

// TimeTakenSec is a pointer so a missing field is distinguishable from an
// instant (zero-second) answer.
type SubmitAnswerRequest struct {
	QuestionID   int64           `json:"questionId"`
	Response     json.RawMessage `json:"response"`
	TimeTakenSec *float64        `json:"timeTakenSec"`
}

// ── Response Types ────────────────────────────────────

type RunSummary struct {
	ID                string    `json:"id"`
	DurationSec       int       `json:"duration_sec"`
	LivesTotal        int       `json:"lives_total"`
	LivesRemaining    int       `json:"lives_remaining"`
	CurrentDifficulty int       `json:"current_difficulty"`
	Streak            int       `json:"streak"`
	TotalMoney        int64     `json:"total_money"`
	Status            RunStatus `json:"status"`
}

func (r *Run) Summary() RunSummary {
	return RunSummary{
		ID:                r.ID,
		DurationSec:       r.DurationSec,
		LivesTotal:        r.LivesTotal,
		LivesRemaining:    r.LivesRemaining,
		CurrentDifficulty: r.CurrentDifficulty,
		Streak:            r.Streak,
		TotalMoney:        r.TotalMoney,
		Status:            r.Status,
	}
}

type StartRunResponse struct {
	RunID         string        `json:"runId"`
	StartedAt     time.Time     `json:"started_at"`
	Run           RunSummary    `json:"run"`
	FirstQuestion *QuestionView `json:"first_question"`
}

type GetRunResponse struct {
	RunID             string    `json:"runId"`
	StartedAt         time.Time `json:"started_at"`
	DurationSec       int       `json:"duration_sec"`
	LivesTotal        int       `json:"lives_total"`
	LivesRemaining    int       `json:"lives_remaining"`
	CurrentDifficulty int       `json:"current_difficulty"`
	Streak            int       `json:"streak"`
	TotalMoney        int64     `json:"total_money"`
	Status            RunStatus `json:"status"`
}

type SubmitAnswerResponse struct {
	Correct           bool  `json:"correct"`
	MoneyAwarded      int64 `json:"moneyAwarded"`
	MoneyPenalty      int64 `json:"moneyPenalty"`
	LivesRemaining    int   `json:"livesRemaining"`
	Streak            int   `json:"streak"`
	TotalMoney        int64 `json:"totalMoney"`
	CurrentDifficulty int   `json:"currentDifficulty"`
}

type FinalizeResponse struct {
	Idempotent        bool    `json:"idempotent"`
	TotalMoney        int64   `json:"totalMoney"`
	CompensationDelta int64   `json:"compensationDelta"`
	NewMarketValue    int64   `json:"newMarketValue"`
	NewTitle          string  `json:"newTitle"`
	TitleChange       *string `json:"titleChange"`
}
