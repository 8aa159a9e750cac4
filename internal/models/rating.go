package models

import "time"

// Rating is a user's persistent skill rating. market_value never drops below
// zero and peak_market_value never decreases.
type Rating struct {
	UserID                 int64     `json:"user_id"`
	MarketValue            int64     `json:"market_value"`
	PeakMarketValue        int64     `json:"peak_market_value"`
	Title                  string    `json:"title"`
	PlacementRunsCompleted int       `json:"placement_runs_completed"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

const (
	TitleChangePromotion = "promotion"
	TitleChangeDemotion  = "demotion"
)

type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	UserID      int64  `json:"user_id"`
	Name        string `json:"name"`
	MarketValue int64  `json:"market_value"`
	Title       string `json:"title"`
}

type LeaderboardResponse struct {
	Entries []LeaderboardEntry `json:"entries"`
}
