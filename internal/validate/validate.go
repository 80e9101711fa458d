// Package validate checks inbound chat and feedback payloads before they reach
// the completion gateway or the query ledger.
package validate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/kalambet/taskchat/internal/failure"
	"github.com/kalambet/taskchat/internal/task"
)

// ChatPayload is the raw chat body. Fields stay raw so their JSON type can be
// checked exactly.
type ChatPayload struct {
	Input    json.RawMessage `json:"input"`
	TaskType json.RawMessage `json:"taskType"`
}

// ChatRequest is a validated chat request with trimmed input.
type ChatRequest struct {
	Input    string
	TaskType task.Type
}

// FeedbackPayload is the raw feedback body.
type FeedbackPayload struct {
	ID        json.RawMessage `json:"id"`
	IsHelpful json.RawMessage `json:"isHelpful"`
}

// FeedbackRequest is a validated feedback request.
type FeedbackRequest struct {
	ID        int64
	IsHelpful bool
}

// BracketError reports an input that does not start with its task's tag.
type BracketError struct {
	Expected string
}

func (e *BracketError) Error() string {
	return fmt.Sprintf("Input must start with %s for the selected task type", e.Expected)
}

// Chat validates a chat payload.
func Chat(p ChatPayload) (ChatRequest, error) {
	const op = "validate.chat"

	var input string
	if len(p.Input) == 0 || json.Unmarshal(p.Input, &input) != nil || strings.TrimSpace(input) == "" {
		return ChatRequest{}, failure.New(failure.InvalidInput, op, "Input cannot be empty")
	}

	var name string
	if len(p.TaskType) == 0 || json.Unmarshal(p.TaskType, &name) != nil {
		return ChatRequest{}, failure.New(failure.InvalidTaskType, op, "Invalid task type")
	}
	tt, ok := task.Parse(name)
	if !ok {
		return ChatRequest{}, failure.New(failure.InvalidTaskType, op, "Invalid task type")
	}

	return ChatRequest{Input: strings.TrimSpace(input), TaskType: tt}, nil
}

// Bracket checks that the request's input begins with the tag of its task type.
// The returned error wraps a *BracketError naming the expected tag.
func Bracket(req ChatRequest) error {
	tag := req.TaskType.Tag()
	if strings.HasPrefix(strings.TrimSpace(req.Input), tag) {
		return nil
	}
	be := &BracketError{Expected: tag}
	return failure.Wrap(failure.BracketMismatch, "validate.bracket", be.Error(), be)
}

// Feedback validates a feedback payload.
func Feedback(p FeedbackPayload) (FeedbackRequest, error) {
	const op = "validate.feedback"

	id, ok := positiveInt(p.ID)
	if !ok {
		return FeedbackRequest{}, failure.New(failure.InvalidID, op, "Invalid query ID")
	}

	var helpful any
	if len(p.IsHelpful) == 0 || json.Unmarshal(p.IsHelpful, &helpful) != nil {
		return FeedbackRequest{}, failure.New(failure.InvalidHelpfulFlag, op, "isHelpful must be a boolean")
	}
	flag, ok := helpful.(bool)
	if !ok {
		return FeedbackRequest{}, failure.New(failure.InvalidHelpfulFlag, op, "isHelpful must be a boolean")
	}

	return FeedbackRequest{ID: id, IsHelpful: flag}, nil
}

// maxExactID is the largest integer a float64 holds exactly.
const maxExactID = 1 << 53

// positiveInt accepts a bare JSON number holding a positive whole value, so
// 1.0 and 1e2 are ids while 1.5 is not.
func positiveInt(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, false
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	if id, err := n.Int64(); err == nil {
		return id, id > 0
	}
	f, err := n.Float64()
	if err != nil || f <= 0 || f > maxExactID || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}
