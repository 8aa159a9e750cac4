package models

import "time"

type QuestionFormat string

const (
	FormatSingleChoice    QuestionFormat = "single_choice"
	FormatMultiSelect     QuestionFormat = "multi_select"
	FormatFreeFill        QuestionFormat = "free_fill"
	FormatOrderedSequence QuestionFormat = "ordered_sequence"
)

var ValidFormats = map[QuestionFormat]bool{
	FormatSingleChoice:    true,
	FormatMultiSelect:     true,
	FormatFreeFill:        true,
	FormatOrderedSequence: true,
}

const (
	MinDifficulty = 1
	MaxDifficulty = 5
)

// ── Core Structs ───────────────────────────────────────

type Question struct {
	ID              int64            `json:"id"`
	Topic           string           `json:"topic"`
	Subtopic        string           `json:"subtopic"`
	Difficulty      int              `json:"difficulty"`
	Format          QuestionFormat   `json:"format"`
	Prompt          string           `json:"prompt"`
	Options         []QuestionOption `json:"options,omitempty"`
	CorrectKey      string           `json:"correct_key"`
	ExpectedTimeSec int              `json:"expected_time_sec"`
	Active          bool             `json:"active"`
	Tags            []string         `json:"tags,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

type QuestionOption struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// QuestionView is the projection served to clients. It never carries the
// correct key.
type QuestionView struct {
	ID              int64            `json:"id"`
	Topic           string           `json:"topic"`
	Subtopic        string           `json:"subtopic"`
	Difficulty      int              `json:"difficulty"`
	Format          QuestionFormat   `json:"format"`
	Prompt          string           `json:"prompt"`
	Options         []QuestionOption `json:"options,omitempty"`
	ExpectedTimeSec int              `json:"expected_time_sec"`
}

func (q *Question) View() *QuestionView {
	return &QuestionView{
		ID:              q.ID,
		Topic:           q.Topic,
		Subtopic:        q.Subtopic,
		Difficulty:      q.Difficulty,
		Format:          q.Format,
		Prompt:          q.Prompt,
		Options:         q.Options,
		ExpectedTimeSec: q.ExpectedTimeSec,
	}
}

// RecencyRecord tracks when a user last saw a question, so the sampler can
// keep recently seen questions out of rotation.
type RecencyRecord struct {
	UserID      int64     `json:"user_id"`
	QuestionID  int64     `json:"question_id"`
	LastSeenAt  time.Time `json:"last_seen_at"`
	LastCorrect bool      `json:"last_correct"`
	Difficulty  int       `json:"difficulty"`
}

// ── Import Types ──────────────────────────────────────

type ImportEnvelope struct {
	Version   int              `json:"version"`
	Questions []ImportQuestion `json:"questions"`
}

type ImportQuestion struct {
	Topic           string           `json:"topic"`
	Subtopic        string           `json:"subtopic"`
	Difficulty      int              `json:"difficulty"`
	Format          QuestionFormat   `json:"format"`
	Prompt          string           `json:"prompt"`
	Options         []QuestionOption `json:"options"`
	CorrectKey      string           `json:"correct_key"`
	ExpectedTimeSec int              `json:"expected_time_sec"`
	Tags            []string         `json:"tags,omitempty"`
}

type ImportResult struct {
	TotalInPayload int `json:"total_in_payload"`
	Imported       int `json:"imported"`
	Skipped        int `json:"skipped"`
}
