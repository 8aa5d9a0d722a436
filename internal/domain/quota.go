package domain

import (
	"sync"
	"time"
)

// QuotaTracker counts application attempts against a daily limit that
// resets at local midnight.
type QuotaTracker struct {
	mu        sync.Mutex
	limit     int
	count     int
	lastReset time.Time
}

// NewQuotaTracker creates a tracker whose current day is the day of now.
func NewQuotaTracker(limit int, now time.Time) *QuotaTracker {
	return &QuotaTracker{limit: limit, lastReset: dayOf(now)}
}

// Remaining returns how many attempts are left today, never negative.
func (q *QuotaTracker) Remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return max(q.limit-q.count, 0)
}

// Consume counts one attempt. It returns false, without counting, when the
// limit is already reached.
func (q *QuotaTracker) Consume() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count >= q.limit {
		return false
	}
	q.count++
	return true
}

// ResetIfNewDay zeroes the count the first time it sees a calendar day
// later than the last reset. It reports whether a reset happened.
func (q *QuotaTracker) ResetIfNewDay(now time.Time) bool {
	day := dayOf(now)
	q.mu.Lock()
	defer q.mu.Unlock()
	if !day.After(q.lastReset) {
		return false
	}
	q.count = 0
	q.lastReset = day
	return true
}

// Count returns the attempts made today.
func (q *QuotaTracker) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Limit returns the daily limit.
func (q *QuotaTracker) Limit() int {
	return q.limit
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
