package validate

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/taskchat/internal/failure"
	"github.com/kalambet/taskchat/internal/task"
)

func chatPayload(t *testing.T, body string) ChatPayload {
	t.Helper()
	var p ChatPayload
	require.NoError(t, json.Unmarshal([]byte(body), &p))
	return p
}

func feedbackPayload(t *testing.T, body string) FeedbackPayload {
	t.Helper()
	var p FeedbackPayload
	require.NoError(t, json.Unmarshal([]byte(body), &p))
	return p
}

func TestChat_Valid(t *testing.T) {
	req, err := Chat(chatPayload(t, `{"input":"  [summary] hi  ","taskType":"summary"}`))
	require.NoError(t, err)

	assert.Equal(t, "[summary] hi", req.Input)
	assert.Equal(t, task.Summary, req.TaskType)
}

func TestChat_InvalidInput(t *testing.T) {
	bodies := []string{
		`{"taskType":"question"}`,
		`{"input":"","taskType":"question"}`,
		`{"input":"   \n\t","taskType":"question"}`,
		`{"input":42,"taskType":"question"}`,
		`{"input":null,"taskType":"question"}`,
		`{"input":["a"],"taskType":"question"}`,
	}

	for _, body := range bodies {
		_, err := Chat(chatPayload(t, body))
		assert.Equal(t, failure.InvalidInput, failure.KindOf(err), body)
	}
}

func TestChat_InvalidTaskType(t *testing.T) {
	bodies := []string{
		`{"input":"[question] hi"}`,
		`{"input":"[question] hi","taskType":"poem"}`,
		`{"input":"[question] hi","taskType":"QUESTION"}`,
		`{"input":"[question] hi","taskType":1}`,
		`{"input":"[poem] hi","taskType":"poem"}`,
	}

	for _, body := range bodies {
		_, err := Chat(chatPayload(t, body))
		require.Error(t, err, body)
		assert.Equal(t, failure.InvalidTaskType, failure.KindOf(err), body)
		assert.Equal(t, "Invalid task type", err.Error())
	}
}

func TestBracket(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		tt      task.Type
		wantErr bool
	}{
		{"matching tag", "[summary] hi", task.Summary, false},
		{"missing tag", "hi", task.Summary, true},
		{"wrong tag", "[creative] hi", task.Summary, true},
		{"tag not at start", "hi [summary]", task.Summary, true},
		{"creative", "[creative] a poem", task.Creative, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Bracket(ChatRequest{Input: tt.input, TaskType: tt.tt})
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, failure.BracketMismatch, failure.KindOf(err))

			var be *BracketError
			require.True(t, errors.As(err, &be))
			assert.Equal(t, tt.tt.Tag(), be.Expected)
			assert.Equal(t, "Input must start with "+tt.tt.Tag()+" for the selected task type", err.Error())
		})
	}
}

func TestFeedback_Valid(t *testing.T) {
	req, err := Feedback(feedbackPayload(t, `{"id":7,"isHelpful":false}`))
	require.NoError(t, err)

	assert.Equal(t, int64(7), req.ID)
	assert.False(t, req.IsHelpful)
}

func TestFeedback_WholeNumberIDs(t *testing.T) {
	for body, want := range map[string]int64{
		`{"id":1.0,"isHelpful":true}`:    1,
		`{"id":12.000,"isHelpful":true}`: 12,
		`{"id":1e2,"isHelpful":true}`:    100,
	} {
		req, err := Feedback(feedbackPayload(t, body))
		require.NoError(t, err, body)
		assert.Equal(t, want, req.ID, body)
	}
}

func TestFeedback_InvalidID(t *testing.T) {
	bodies := []string{
		`{"isHelpful":true}`,
		`{"id":0,"isHelpful":true}`,
		`{"id":-3,"isHelpful":true}`,
		`{"id":1.5,"isHelpful":true}`,
		`{"id":-1.0,"isHelpful":true}`,
		`{"id":0.0,"isHelpful":true}`,
		`{"id":1e300,"isHelpful":true}`,
		`{"id":"1","isHelpful":true}`,
		`{"id":null,"isHelpful":true}`,
		`{"id":true,"isHelpful":true}`,
	}

	for _, body := range bodies {
		_, err := Feedback(feedbackPayload(t, body))
		assert.Equal(t, failure.InvalidID, failure.KindOf(err), body)
	}
}

func TestFeedback_InvalidHelpfulFlag(t *testing.T) {
	bodies := []string{
		`{"id":1}`,
		`{"id":1,"isHelpful":"true"}`,
		`{"id":1,"isHelpful":1}`,
		`{"id":1,"isHelpful":null}`,
	}

	for _, body := range bodies {
		_, err := Feedback(feedbackPayload(t, body))
		require.Error(t, err, body)
		assert.Equal(t, failure.InvalidHelpfulFlag, failure.KindOf(err), body)
		assert.Equal(t, "isHelpful must be a boolean", err.Error())
	}
}
