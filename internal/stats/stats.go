// Package stats holds client-reported usage counters per session. The store
// lives in process memory and is not derived from the query ledger.
package stats

import (
	"math"
	"sync"
	"time"
)

// Record is the stored counter state for one session.
type Record struct {
	ID           int64
	SessionID    string
	QueriesCount int
	HelpfulCount int
	Timestamp    time.Time
}

// Summary is what callers see: the counters plus the derived success rate.
type Summary struct {
	QueriesCount int `json:"queriesCount"`
	HelpfulCount int `json:"helpfulCount"`
	SuccessRate  int `json:"successRate"`
}

// Store maps session ids to counter records.
//
// Counters are trusted as supplied: neither non-negativity nor
// helpful <= queries is checked here.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Record
	nextID   int64
	now      func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		sessions: make(map[string]*Record),
		nextID:   1,
		now:      time.Now,
	}
}

// Get returns the summary for sessionID, all zero if the session was never written.
func (s *Store) Get(sessionID string) Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[sessionID]
	if !ok {
		return Summary{}
	}
	return summarize(rec)
}

// Upsert overwrites both counters for sessionID, creating the record with the
// next stats id on first write.
func (s *Store) Upsert(sessionID string, queries, helpful int) Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[sessionID]
	if !ok {
		rec = &Record{ID: s.nextID, SessionID: sessionID}
		s.nextID++
		s.sessions[sessionID] = rec
	}
	rec.QueriesCount = queries
	rec.HelpfulCount = helpful
	rec.Timestamp = s.now()
	return summarize(rec)
}

// Lookup returns a copy of the raw record for sessionID.
func (s *Store) Lookup(sessionID string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[sessionID]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

func summarize(rec *Record) Summary {
	return Summary{
		QueriesCount: rec.QueriesCount,
		HelpfulCount: rec.HelpfulCount,
		SuccessRate:  SuccessRate(rec.QueriesCount, rec.HelpfulCount),
	}
}

// SuccessRate returns round(100*helpful/queries), or 0 when queries <= 0.
// Halves round up, toward positive infinity.
func SuccessRate(queries, helpful int) int {
	if queries <= 0 {
		return 0
	}
	return int(math.Floor(float64(helpful)/float64(queries)*100 + 0.5))
}
