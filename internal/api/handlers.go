package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/taskchat/internal/assistant"
	"github.com/kalambet/taskchat/internal/failure"
	"github.com/kalambet/taskchat/internal/validate"
)

// healthTimeLayout renders instants as UTC with millisecond precision.
const healthTimeLayout = "2006-01-02T15:04:05.000Z"

type feedbackResponse struct {
	Success   bool `json:"success"`
	IsHelpful bool `json:"isHelpful"`
}

func handleHealth(now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":    "ok",
			"timestamp": now().UTC().Format(healthTimeLayout),
		})
	}
}

func handleChat(svc *assistant.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p validate.ChatPayload
		if err := decodeJSON(w, r, &p); err != nil {
			slog.Warn("invalid chat body", "error", err)
			writeFailure(w, failure.Wrap(failure.InvalidInput, "api.chat", "Input cannot be empty", err))
			return
		}

		res, err := svc.Chat(r.Context(), p)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleFeedback(svc *assistant.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p validate.FeedbackPayload
		if err := decodeJSON(w, r, &p); err != nil {
			slog.Warn("invalid feedback body", "error", err)
			writeFailure(w, failure.Wrap(failure.InvalidID, "api.feedback", "Invalid query ID", err))
			return
		}

		q, err := svc.Feedback(p)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, feedbackResponse{Success: true, IsHelpful: *q.IsHelpful})
	}
}

func handleGetStats(svc *assistant.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Stats(chi.URLParam(r, "sessionId")))
	}
}

func handleUpdateStats(svc *assistant.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionId")

		// An empty body is an update to zero counters.
		var u assistant.StatsUpdate
		if err := decodeJSON(w, r, &u); err != nil && !errors.Is(err, io.EOF) {
			slog.Error("invalid stats body", "session_id", sessionID, "error", err)
			writeFailure(w, failure.Wrap(failure.Internal, "api.update_stats", "Failed to update stats", err))
			return
		}

		sum, err := svc.UpdateStats(sessionID, u)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}
}
