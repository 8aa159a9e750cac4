package rating

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/streetrush/backend/internal/cache"
	"github.com/streetrush/backend/internal/models"
)

const (
	leaderboardCacheKey = "leaderboard:market_value"
	leaderboardCacheTTL = 60 * time.Second
	defaultLeaderboard  = 20
	maxLeaderboard      = 100
)

type Handler struct {
	store *Store
	cache *cache.Client // nil when Redis is not configured
}

func NewHandler(store *Store, cache *cache.Client) *Handler {
	return &Handler{store: store, cache: cache}
}

func (h *Handler) GetRating(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(int64)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	rating, err := h.store.GetOrCreate(r.Context(), userID)
	if err != nil {
		log.Printf("[rating] GetRating error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get rating"})
		return
	}

	writeJSON(w, http.StatusOK, rating)
}

func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := intQueryParam(r.URL.Query(), "limit", defaultLeaderboard)
	if limit > maxLeaderboard {
		limit = maxLeaderboard
	}

	// Only the default page is cached; custom limits go straight to the DB.
	if h.cache != nil && limit == defaultLeaderboard {
		if cached, err := h.cache.Get(r.Context(), leaderboardCacheKey); err == nil && cached != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(cached))
			return
		}
	}

	entries, err := h.store.TopByMarketValue(r.Context(), limit)
	if err != nil {
		log.Printf("[rating] leaderboard error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get leaderboard"})
		return
	}
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}

	resp := models.LeaderboardResponse{Entries: entries}

	if h.cache != nil && limit == defaultLeaderboard {
		if body, err := json.Marshal(resp); err == nil {
			if err := h.cache.Set(r.Context(), leaderboardCacheKey, string(body), leaderboardCacheTTL); err != nil {
				log.Printf("[rating] leaderboard cache set failed: %v", err)
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func intQueryParam(query url.Values, key string, defaultVal int) int {
	s := query.Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return defaultVal
	}
	return v
}
