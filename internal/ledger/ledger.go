// Package ledger keeps the in-memory record of chat exchanges and their
// feedback flags. Nothing survives a restart.
package ledger

import (
	"sort"
	"sync"
	"time"

	"github.com/kalambet/taskchat/internal/failure"
	"github.com/kalambet/taskchat/internal/task"
)

// Query is one recorded chat exchange. IsHelpful is nil until feedback arrives.
type Query struct {
	ID        int64     `json:"id"`
	TaskType  task.Type `json:"taskType"`
	UserInput string    `json:"userInput"`
	Response  string    `json:"response"`
	IsHelpful *bool     `json:"isHelpful"`
	Timestamp time.Time `json:"timestamp"`
}

// Ledger maps query ids to records. Ids start at 1 and are never reused.
type Ledger struct {
	mu      sync.Mutex
	queries map[int64]*Query
	nextID  int64
	now     func() time.Time
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		queries: make(map[int64]*Query),
		nextID:  1,
		now:     time.Now,
	}
}

// Record stores a new exchange and returns it with its assigned id.
func (l *Ledger) Record(taskType task.Type, userInput, response string) Query {
	l.mu.Lock()
	defer l.mu.Unlock()

	q := &Query{
		ID:        l.nextID,
		TaskType:  taskType,
		UserInput: userInput,
		Response:  response,
		Timestamp: l.now(),
	}
	l.nextID++
	l.queries[q.ID] = q
	return *q
}

// SetHelpful overwrites the feedback flag of query id. The last write wins.
func (l *Ledger) SetHelpful(id int64, helpful bool) (Query, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	q, ok := l.queries[id]
	if !ok {
		return Query{}, failure.New(failure.NotFound, "ledger.set_helpful", "Query not found")
	}
	flag := helpful
	q.IsHelpful = &flag
	return q.copy(), nil
}

// Get looks up query id.
func (l *Ledger) Get(id int64) (Query, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	q, ok := l.queries[id]
	if !ok {
		return Query{}, false
	}
	return q.copy(), true
}

// Recent returns up to n queries, newest first.
func (l *Ledger) Recent(n int) []Query {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Query, 0, len(l.queries))
	for _, q := range l.queries {
		out = append(out, q.copy())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Len returns the number of recorded queries.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queries)
}

// copy detaches the helpful flag so callers cannot mutate stored state.
func (q *Query) copy() Query {
	c := *q
	if q.IsHelpful != nil {
		flag := *q.IsHelpful
		c.IsHelpful = &flag
	}
	return c
}
