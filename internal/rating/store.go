package rating

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/streetrush/backend/internal/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// GetOrCreate returns the user's rating row, lazily creating it with the
// default market value on first use.
func (s *Store) GetOrCreate(ctx context.Context, userID int64) (*models.Rating, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ratings (user_id, market_value, peak_market_value, title)
		 VALUES ($1, $2, $2, $3)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID, DefaultMarketValue, TitleFor(DefaultMarketValue),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert rating: %w", err)
	}

	return s.Get(ctx, userID)
}

func (s *Store) Get(ctx context.Context, userID int64) (*models.Rating, error) {
	var r models.Rating
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, market_value, peak_market_value, title,
		        placement_runs_completed, created_at, updated_at
		 FROM ratings WHERE user_id = $1`,
		userID,
	).Scan(&r.UserID, &r.MarketValue, &r.PeakMarketValue, &r.Title,
		&r.PlacementRunsCompleted, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get rating: %w", err)
	}
	return &r, nil
}

// TopByMarketValue returns the leaderboard, highest market value first.
func (s *Store) TopByMarketValue(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.user_id, u.name, r.market_value, r.title
		 FROM ratings r
		 JOIN users u ON u.id = r.user_id
		 ORDER BY r.market_value DESC, r.user_id ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	rank := 1
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Name, &e.MarketValue, &e.Title); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		e.Rank = rank
		rank++
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
