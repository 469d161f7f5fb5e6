package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"quiz-assessment-service/internal/analytics"
	"quiz-assessment-service/internal/domain"
)

// StatsReader is the read API of the aggregation engine.
type StatsReader interface {
	Compute(ctx context.Context, scope analytics.Scope, window analytics.Window) (analytics.Aggregate, error)
	QuizPerformance(ctx context.Context, limit int) ([]domain.QuizPerformance, error)
	History(ctx context.Context, userID string, limit int) ([]domain.Attempt, error)
	QuizAttempts(ctx context.Context, quizID string, limit int) ([]domain.Attempt, error)
	UserSummary(ctx context.Context, userID string) (analytics.UserSummary, error)
}

type StatsHandler struct {
	stats  StatsReader
	logger *slog.Logger
}

func NewStatsHandler(stats StatsReader) *StatsHandler {
	return &StatsHandler{stats: stats, logger: slog.Default()}
}

// Register mounts the JSON endpoints on mux.
func (h *StatsHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/stats", h.serveStats)
	mux.HandleFunc("GET /api/quizzes/performance", h.servePerformance)
	mux.HandleFunc("GET /api/quizzes/{id}/attempts", h.serveQuizAttempts)
	mux.HandleFunc("GET /api/users/{id}/history", h.serveHistory)
}

func (h *StatsHandler) serveStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days, ok := intParam(w, q.Get("days"), analytics.DefaultWindowDays)
	if !ok {
		return
	}
	agg, err := h.stats.Compute(r.Context(), analytics.Scope{
		QuizID: q.Get("quizId"),
		UserID: q.Get("userId"),
	}, analytics.Window{Days: days})
	if err != nil {
		h.fail(w, "compute stats", err)
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

func (h *StatsHandler) servePerformance(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(w, r.URL.Query().Get("limit"), 10)
	if !ok {
		return
	}
	rows, err := h.stats.QuizPerformance(r.Context(), limit)
	if err != nil {
		h.fail(w, "quiz performance", err)
		return
	}
	if rows == nil {
		rows = []domain.QuizPerformance{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *StatsHandler) serveQuizAttempts(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(w, r.URL.Query().Get("limit"), 50)
	if !ok {
		return
	}
	attempts, err := h.stats.QuizAttempts(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		h.fail(w, "quiz attempts", err)
		return
	}
	if attempts == nil {
		attempts = []domain.Attempt{}
	}
	writeJSON(w, http.StatusOK, attempts)
}

type historyResponse struct {
	Summary  analytics.UserSummary `json:"summary"`
	Attempts []domain.Attempt      `json:"attempts"`
}

func (h *StatsHandler) serveHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	limit, ok := intParam(w, r.URL.Query().Get("limit"), 50)
	if !ok {
		return
	}
	summary, err := h.stats.UserSummary(r.Context(), userID)
	if err != nil {
		h.fail(w, "user summary", err)
		return
	}
	attempts, err := h.stats.History(r.Context(), userID, limit)
	if err != nil {
		h.fail(w, "user history", err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Summary: summary, Attempts: attempts})
}

func (h *StatsHandler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op+" failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, errorPayload{Code: "internal", Message: op + " failed"})
}

func intParam(w http.ResponseWriter, raw string, fallback int) (int, bool) {
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		writeJSON(w, http.StatusBadRequest, errorPayload{Code: "invalid_parameter", Message: "expected a positive integer, got " + strconv.Quote(raw)})
		return 0, false
	}
	return v, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
