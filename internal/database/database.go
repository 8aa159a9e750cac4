package database

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
)

func Connect() (*sql.DB, error) {
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "streetrush_user")
	password := getEnv("DB_PASSWORD", "streetrush_password")
	dbname := getEnv("DB_NAME", "streetrush")
	sslmode := getEnv("DB_SSLMODE", "disable")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

func Migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email VARCHAR(255) UNIQUE NOT NULL,
		name VARCHAR(255) NOT NULL,
		password VARCHAR(255) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

	CREATE TABLE IF NOT EXISTS questions (
		id                BIGSERIAL PRIMARY KEY,
		topic             VARCHAR(100) NOT NULL,
		subtopic          VARCHAR(100) NOT NULL,
		difficulty        INT NOT NULL CHECK (difficulty >= 1 AND difficulty <= 5),
		format            VARCHAR(20) NOT NULL,
		prompt            TEXT NOT NULL,
		correct_key       TEXT NOT NULL,
		expected_time_sec INT NOT NULL DEFAULT 30,
		active            BOOLEAN NOT NULL DEFAULT TRUE,
		tags              TEXT[] NOT NULL DEFAULT '{}',
		created_at        TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_questions_sampling ON questions(active, difficulty, subtopic);

	CREATE TABLE IF NOT EXISTS question_options (
		id          BIGSERIAL PRIMARY KEY,
		question_id BIGINT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
		label       VARCHAR(1) NOT NULL,
		option_text TEXT NOT NULL,
		UNIQUE(question_id, label)
	);

	CREATE TABLE IF NOT EXISTS runs (
		id                 UUID PRIMARY KEY,
		user_id            BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		status             VARCHAR(20) NOT NULL DEFAULT 'active',
		lives_total        INT NOT NULL,
		lives_remaining    INT NOT NULL CHECK (lives_remaining >= 0),
		streak             INT NOT NULL DEFAULT 0,
		current_difficulty INT NOT NULL CHECK (current_difficulty >= 1 AND current_difficulty <= 5),
		total_money        BIGINT NOT NULL DEFAULT 0,
		questions_answered INT NOT NULL DEFAULT 0,
		questions_correct  INT NOT NULL DEFAULT 0,
		highest_difficulty INT NOT NULL,
		avg_difficulty     DOUBLE PRECISION NOT NULL,
		duration_sec       INT NOT NULL,
		started_at         TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		ended_at           TIMESTAMP WITH TIME ZONE,
		compensation_delta BIGINT,
		market_value_after BIGINT,
		title_after        VARCHAR(30),
		title_change       VARCHAR(20)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_user ON runs(user_id, started_at DESC);

	CREATE TABLE IF NOT EXISTS run_answers (
		id             BIGSERIAL PRIMARY KEY,
		run_id         UUID NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		question_id    BIGINT NOT NULL REFERENCES questions(id),
		response       TEXT NOT NULL,
		correct        BOOLEAN NOT NULL,
		score          DOUBLE PRECISION NOT NULL DEFAULT 0,
		difficulty     INT NOT NULL,
		money_awarded  BIGINT NOT NULL DEFAULT 0,
		money_penalty  BIGINT NOT NULL DEFAULT 0,
		time_taken_sec DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at     TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(run_id, question_id)
	);

	CREATE INDEX IF NOT EXISTS idx_answers_run ON run_answers(run_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS question_recency (
		id           BIGSERIAL PRIMARY KEY,
		user_id      BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		question_id  BIGINT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
		last_seen_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		last_correct BOOLEAN NOT NULL,
		difficulty   INT NOT NULL,
		UNIQUE(user_id, question_id)
	);

	CREATE INDEX IF NOT EXISTS idx_recency_user_seen ON question_recency(user_id, last_seen_at);

	CREATE TABLE IF NOT EXISTS ratings (
		user_id                  BIGINT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		market_value             BIGINT NOT NULL CHECK (market_value >= 0),
		peak_market_value        BIGINT NOT NULL,
		title                    VARCHAR(30) NOT NULL,
		placement_runs_completed INT NOT NULL DEFAULT 0,
		created_at               TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at               TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_ratings_market_value ON ratings(market_value DESC);
	`

	_, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
