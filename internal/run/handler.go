package run

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/streetrush/backend/internal/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// StartRun handles POST /runs.
func (h *Handler) StartRun(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	resp, err := h.service.StartRun(r.Context(), userID)
	if err != nil {
		log.Printf("[run] start failed for user %d: %v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to start run"})
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 50
)

// ListRuns handles GET /runs.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	limit := defaultHistoryLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	runs, err := h.service.ListRuns(r.Context(), userID, limit)
	if err != nil {
		log.Printf("[run] list failed for user %d: %v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list runs"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

// GetRun handles GET /runs/{id}.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	resp, err := h.service.GetRun(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, err, "get run")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// NextQuestion handles POST /runs/{id}/next-question.
func (h *Handler) NextQuestion(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	question, err := h.service.NextQuestion(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, err, "next question")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"question": question})
}

// SubmitAnswer handles POST /runs/{id}/submit.
func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req models.SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.QuestionID == 0 || len(req.Response) == 0 || req.TimeTakenSec == nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "questionId, response, and timeTakenSec are required"})
		return
	}
	if *req.TimeTakenSec < 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "timeTakenSec must not be negative"})
		return
	}

	resp, err := h.service.SubmitAnswer(r.Context(), userID, mux.Vars(r)["id"], req)
	if err != nil {
		h.writeServiceError(w, err, "submit answer")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Finalize handles POST /runs/{id}/finalize.
func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	resp, err := h.service.Finalize(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, err, "finalize")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Not found"})
	case errors.Is(err, models.ErrForbidden):
		writeJSON(w, http.StatusForbidden, models.ErrorResponse{Error: "Run belongs to another user"})
	case errors.Is(err, models.ErrRunNotActive):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Run is not active"})
	case errors.Is(err, models.ErrDuplicateAnswer):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Question already answered in this run"})
	case errors.Is(err, models.ErrInvalidResponse):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrNoCandidates):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "No questions available"})
	case errors.Is(err, models.ErrConflict):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "Run was modified concurrently, retry"})
	default:
		log.Printf("[run] %s failed: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
	}
}

func userIDFrom(r *http.Request) (int64, bool) {
	userID, ok := r.Context().Value("user_id").(int64)
	return userID, ok
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
