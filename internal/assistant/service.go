// Package assistant owns the query ledger and session stats store and runs the
// chat, feedback and stats flows shared by the HTTP and MCP surfaces.
package assistant

import (
	"context"
	"log/slog"
	"time"

	"github.com/kalambet/taskchat/internal/failure"
	"github.com/kalambet/taskchat/internal/gateway"
	"github.com/kalambet/taskchat/internal/ledger"
	"github.com/kalambet/taskchat/internal/metrics"
	"github.com/kalambet/taskchat/internal/stats"
	"github.com/kalambet/taskchat/internal/task"
	"github.com/kalambet/taskchat/internal/validate"
)

// Completer produces a completion for a validated request.
type Completer interface {
	Complete(ctx context.Context, req gateway.Request) (gateway.Result, error)
}

// Deps holds the collaborators of a Service. Ledger and Stats default to
// fresh empty stores; Metrics may be nil.
type Deps struct {
	Gateway Completer
	Ledger  *ledger.Ledger
	Stats   *stats.Store
	Metrics *metrics.Metrics

	// StrictCounters rejects negative counters and helpful > queries on
	// stats writes. Off by default: client counters are trusted as-is.
	StrictCounters bool
}

// Service is the single owner of the in-memory stores.
type Service struct {
	gateway Completer
	ledger  *ledger.Ledger
	stats   *stats.Store
	metrics *metrics.Metrics
	strict  bool
}

// ChatResult is returned for a successful chat exchange.
type ChatResult struct {
	ID       int64     `json:"id"`
	Response string    `json:"response"`
	TaskType task.Type `json:"taskType"`
}

// StatsUpdate carries client-reported counters.
type StatsUpdate struct {
	QueriesCount int `json:"queriesCount"`
	HelpfulCount int `json:"helpfulCount"`
}

func New(deps Deps) *Service {
	if deps.Gateway == nil {
		panic("assistant: gateway cannot be nil")
	}
	if deps.Ledger == nil {
		deps.Ledger = ledger.New()
	}
	if deps.Stats == nil {
		deps.Stats = stats.New()
	}
	return &Service{
		gateway: deps.Gateway,
		ledger:  deps.Ledger,
		stats:   deps.Stats,
		metrics: deps.Metrics,
		strict:  deps.StrictCounters,
	}
}

// Chat validates p, checks the bracket tag, calls the gateway and records the
// exchange. The query is recorded only when the gateway succeeds.
func (s *Service) Chat(ctx context.Context, p validate.ChatPayload) (ChatResult, error) {
	req, err := validate.Chat(p)
	if err != nil {
		return ChatResult{}, s.fail("chat", "", err)
	}
	if err := validate.Bracket(req); err != nil {
		return ChatResult{}, s.fail("chat", req.TaskType, err)
	}

	start := time.Now()
	res, err := s.gateway.Complete(ctx, gateway.Request{Text: req.Input, TaskType: req.TaskType})
	if !failure.Is(err, failure.MissingCredential) {
		s.metrics.ObserveUpstreamLatency(string(req.TaskType), time.Since(start).Seconds())
	}
	if err != nil {
		return ChatResult{}, s.fail("chat", req.TaskType, err)
	}

	q := s.ledger.Record(req.TaskType, req.Input, res.Text)

	outcome := "ok"
	if res.Fallback {
		outcome = "fallback"
	}
	s.metrics.ObserveChat(string(req.TaskType), outcome)
	slog.Debug("chat recorded", "id", q.ID, "task_type", req.TaskType, "fallback", res.Fallback)

	return ChatResult{ID: q.ID, Response: res.Text, TaskType: res.TaskType}, nil
}

// Feedback validates p and sets the helpful flag on the referenced query.
func (s *Service) Feedback(p validate.FeedbackPayload) (ledger.Query, error) {
	req, err := validate.Feedback(p)
	if err != nil {
		return ledger.Query{}, s.fail("feedback", "", err)
	}

	q, err := s.ledger.SetHelpful(req.ID, req.IsHelpful)
	if err != nil {
		return ledger.Query{}, s.fail("feedback", "", err)
	}
	s.metrics.ObserveFeedback(req.IsHelpful)
	return q, nil
}

// Query looks up a recorded exchange.
func (s *Service) Query(id int64) (ledger.Query, bool) {
	return s.ledger.Get(id)
}

// Recent returns up to n recorded exchanges, newest first.
func (s *Service) Recent(n int) []ledger.Query {
	return s.ledger.Recent(n)
}

// Stats returns the counters for sessionID.
func (s *Service) Stats(sessionID string) stats.Summary {
	return s.stats.Get(sessionID)
}

// UpdateStats overwrites the counters for sessionID.
func (s *Service) UpdateStats(sessionID string, u StatsUpdate) (stats.Summary, error) {
	if s.strict {
		if u.QueriesCount < 0 || u.HelpfulCount < 0 || u.HelpfulCount > u.QueriesCount {
			err := failure.New(failure.InvalidCounters, "stats.upsert",
				"helpfulCount must be between 0 and queriesCount")
			return stats.Summary{}, s.fail("update stats", "", err)
		}
	}
	sum := s.stats.Upsert(sessionID, u.QueriesCount, u.HelpfulCount)
	s.metrics.ObserveStatsWrite()
	return sum, nil
}

// fail logs err with its originating operation and returns it unchanged.
func (s *Service) fail(flow string, tt task.Type, err error) error {
	kind := failure.KindOf(err)
	attrs := []any{"flow", flow, "op", failure.OpOf(err), "kind", kind.String(), "error", err}
	if tt != "" {
		attrs = append(attrs, "task_type", tt)
	}
	if kind.Status() >= 500 {
		slog.Error("request failed", attrs...)
	} else {
		slog.Warn("request rejected", attrs...)
	}

	if flow == "chat" {
		label := string(tt)
		if label == "" {
			label = "unknown"
		}
		s.metrics.ObserveChat(label, kind.String())
	}
	return err
}
