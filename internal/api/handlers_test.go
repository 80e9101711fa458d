package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kalambet/taskchat/internal/assistant"
	"github.com/kalambet/taskchat/internal/failure"
	"github.com/kalambet/taskchat/internal/gateway"
)

type stubCompleter struct {
	mu    sync.Mutex
	calls int
	text  string
	err   error
}

func (s *stubCompleter) Complete(_ context.Context, req gateway.Request) (gateway.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return gateway.Result{}, s.err
	}
	text := s.text
	if text == "" {
		text = "answer"
	}
	return gateway.Result{Text: text, TaskType: req.TaskType}, nil
}

func newTestHandler(t *testing.T, stub *stubCompleter) (http.Handler, *assistant.Service) {
	t.Helper()
	svc := assistant.New(assistant.Deps{Gateway: stub})
	h := NewHandler(Deps{
		Service: svc,
		Now:     func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 123e6, time.UTC) },
	})
	return h, svc
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body %q: %v", rr.Body.String(), err)
	}
	return body
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t, &stubCompleter{})

	rr := do(t, h, http.MethodGet, "/api/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	body := decodeBody(t, rr)
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["timestamp"] != "2024-03-01T12:00:00.123Z" {
		t.Errorf("timestamp = %v", body["timestamp"])
	}
}

func TestChat_Success(t *testing.T) {
	stub := &stubCompleter{text: "Paris"}
	h, svc := newTestHandler(t, stub)

	rr := do(t, h, http.MethodPost, "/api/ai/chat", `{"input":"[question] capital of France?","taskType":"question"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	body := decodeBody(t, rr)
	if body["id"] != float64(1) || body["response"] != "Paris" || body["taskType"] != "question" {
		t.Errorf("body = %v", body)
	}
	if _, ok := svc.Query(1); !ok {
		t.Error("query 1 was not recorded")
	}
}

func TestChat_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty input", `{"input":"   ","taskType":"question"}`, "Input cannot be empty"},
		{"missing input", `{"taskType":"question"}`, "Input cannot be empty"},
		{"non-string input", `{"input":42,"taskType":"question"}`, "Input cannot be empty"},
		{"unknown task type", `{"input":"[poem] roses","taskType":"poem"}`, "Invalid task type"},
		{"bracket mismatch", `{"input":"hello","taskType":"summary"}`, "Input must start with [summary] for the selected task type"},
		{"malformed body", `{"input":`, "Input cannot be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubCompleter{}
			h, _ := newTestHandler(t, stub)

			rr := do(t, h, http.MethodPost, "/api/ai/chat", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rr.Code)
			}
			if got := decodeBody(t, rr)["error"]; got != tt.want {
				t.Errorf("error = %q, want %q", got, tt.want)
			}
			if stub.calls != 0 {
				t.Errorf("gateway called %d times, want 0", stub.calls)
			}
		})
	}
}

func TestChat_GatewayFailureIs500(t *testing.T) {
	stub := &stubCompleter{err: failure.New(failure.MissingCredential, "gateway.complete", "OpenAI API key not configured")}
	h, svc := newTestHandler(t, stub)

	rr := do(t, h, http.MethodPost, "/api/ai/chat", `{"input":"[advice] sleep more?","taskType":"advice"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if got := decodeBody(t, rr)["error"]; got != "OpenAI API key not configured" {
		t.Errorf("error = %q", got)
	}
	if n := len(svc.Recent(10)); n != 0 {
		t.Errorf("recorded %d queries, want 0", n)
	}
}

func TestFeedback(t *testing.T) {
	h, svc := newTestHandler(t, &stubCompleter{})
	do(t, h, http.MethodPost, "/api/ai/chat", `{"input":"[question] q","taskType":"question"}`)

	rr := do(t, h, http.MethodPost, "/api/ai/feedback", `{"id":1,"isHelpful":false}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["success"] != true || body["isHelpful"] != false {
		t.Errorf("body = %v", body)
	}

	q, _ := svc.Query(1)
	if q.IsHelpful == nil || *q.IsHelpful {
		t.Errorf("IsHelpful = %v, want false", q.IsHelpful)
	}
}

func TestFeedback_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		want   string
	}{
		{"unknown id", `{"id":999999,"isHelpful":true}`, http.StatusNotFound, "Query not found"},
		{"zero id", `{"id":0,"isHelpful":true}`, http.StatusBadRequest, "Invalid query ID"},
		{"string id", `{"id":"1","isHelpful":true}`, http.StatusBadRequest, "Invalid query ID"},
		{"string flag", `{"id":1,"isHelpful":"yes"}`, http.StatusBadRequest, "isHelpful must be a boolean"},
		{"missing flag", `{"id":1}`, http.StatusBadRequest, "isHelpful must be a boolean"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(t, &stubCompleter{})
			do(t, h, http.MethodPost, "/api/ai/chat", `{"input":"[question] q","taskType":"question"}`)

			rr := do(t, h, http.MethodPost, "/api/ai/feedback", tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			if got := decodeBody(t, rr)["error"]; got != tt.want {
				t.Errorf("error = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStats(t *testing.T) {
	h, _ := newTestHandler(t, &stubCompleter{})

	rr := do(t, h, http.MethodGet, "/api/stats/abc", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["queriesCount"] != float64(0) || body["helpfulCount"] != float64(0) || body["successRate"] != float64(0) {
		t.Errorf("unknown session body = %v", body)
	}

	rr = do(t, h, http.MethodPost, "/api/stats/abc", `{"queriesCount":3,"helpfulCount":1}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := decodeBody(t, rr)["successRate"]; got != float64(33) {
		t.Errorf("successRate = %v, want 33", got)
	}

	rr = do(t, h, http.MethodGet, "/api/stats/abc", "")
	body = decodeBody(t, rr)
	if body["queriesCount"] != float64(3) || body["helpfulCount"] != float64(1) {
		t.Errorf("body = %v", body)
	}
}

func TestStats_MalformedBody(t *testing.T) {
	h, _ := newTestHandler(t, &stubCompleter{})

	rr := do(t, h, http.MethodPost, "/api/stats/abc", `{"queriesCount":"many"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if _, ok := decodeBody(t, rr)["error"]; !ok {
		t.Error("missing error field")
	}
}

func TestStats_EmptyBodyResetsCounters(t *testing.T) {
	h, _ := newTestHandler(t, &stubCompleter{})

	do(t, h, http.MethodPost, "/api/stats/s", `{"queriesCount":4,"helpfulCount":2}`)

	rr := do(t, h, http.MethodPost, "/api/stats/s", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["queriesCount"] != float64(0) || body["helpfulCount"] != float64(0) || body["successRate"] != float64(0) {
		t.Errorf("body = %v, want zero counters", body)
	}
}

func TestFeedback_WholeNumberID(t *testing.T) {
	h, _ := newTestHandler(t, &stubCompleter{})

	rr := do(t, h, http.MethodPost, "/api/ai/chat", `{"input":"[question] hi","taskType":"question"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("chat status = %d", rr.Code)
	}

	rr = do(t, h, http.MethodPost, "/api/ai/feedback", `{"id":1.0,"isHelpful":true}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	if got := decodeBody(t, rr)["isHelpful"]; got != true {
		t.Errorf("isHelpful = %v", got)
	}
}

func TestOptionsPreflight(t *testing.T) {
	h, _ := newTestHandler(t, &stubCompleter{})

	for _, path := range []string{"/api/ai/chat", "/api/stats/x", "/nowhere"} {
		rr := do(t, h, http.MethodOptions, path, "")
		if rr.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", path, rr.Code)
		}
		if rr.Body.Len() != 0 {
			t.Errorf("%s: body = %q, want empty", path, rr.Body.String())
		}
		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("%s: ACAO = %q", path, got)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler(t, &stubCompleter{})

	rr := do(t, h, http.MethodGet, "/api/ai/chat", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rr.Code)
	}
	if got := decodeBody(t, rr)["error"]; got != "Method not allowed" {
		t.Errorf("error = %q", got)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	h, _ := newTestHandler(t, &stubCompleter{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Request-ID"); got != "req-42" {
		t.Errorf("X-Request-ID = %q, want req-42", got)
	}

	rr = do(t, h, http.MethodGet, "/api/health", "")
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected generated request id")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	svc := assistant.New(assistant.Deps{Gateway: &stubCompleter{}})
	metricsHit := false
	h := NewHandler(Deps{
		Service: svc,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			metricsHit = true
		}),
	})

	do(t, h, http.MethodGet, "/metrics", "")
	if !metricsHit {
		t.Error("metrics handler not invoked")
	}

	h = NewHandler(Deps{Service: svc})
	if rr := do(t, h, http.MethodGet, "/metrics", ""); rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when metrics disabled", rr.Code)
	}
}
