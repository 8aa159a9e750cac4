package questions

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/streetrush/backend/internal/models"
)

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid question ID"})
		return
	}

	question, err := h.store.GetQuestion(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Question not found"})
		return
	}

	writeJSON(w, http.StatusOK, question)
}

func (h *Handler) ImportQuestions(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20) // 10MB limit

	var envelope models.ImportEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}

	if envelope.Version != 1 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Unsupported envelope version"})
		return
	}
	if len(envelope.Questions) == 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "No questions in payload"})
		return
	}

	for i, q := range envelope.Questions {
		if err := validateImportQuestion(q); err != nil {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("question %d: %v", i+1, err)})
			return
		}
	}

	result, err := h.store.ImportQuestions(r.Context(), envelope)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Import failed: " + err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func validateImportQuestion(q models.ImportQuestion) error {
	if q.Topic == "" || q.Subtopic == "" {
		return fmt.Errorf("topic and subtopic are required")
	}
	if q.Difficulty < models.MinDifficulty || q.Difficulty > models.MaxDifficulty {
		return fmt.Errorf("difficulty must be between %d and %d", models.MinDifficulty, models.MaxDifficulty)
	}
	if !models.ValidFormats[q.Format] {
		return fmt.Errorf("invalid format %q", q.Format)
	}
	if q.Prompt == "" {
		return fmt.Errorf("empty prompt")
	}
	if q.CorrectKey == "" {
		return fmt.Errorf("empty correct_key")
	}
	if q.ExpectedTimeSec <= 0 {
		return fmt.Errorf("expected_time_sec must be positive")
	}
	if len(q.Options) > 4 {
		return fmt.Errorf("at most 4 options allowed, got %d", len(q.Options))
	}
	if q.Format == models.FormatSingleChoice || q.Format == models.FormatMultiSelect {
		if len(q.Options) < 2 {
			return fmt.Errorf("%s questions need at least 2 options", q.Format)
		}
	}
	seen := map[string]bool{}
	for _, o := range q.Options {
		if o.Label == "" || o.Text == "" {
			return fmt.Errorf("options need a label and text")
		}
		if seen[o.Label] {
			return fmt.Errorf("duplicate option label %q", o.Label)
		}
		seen[o.Label] = true
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
