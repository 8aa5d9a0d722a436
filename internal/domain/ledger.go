package domain

import (
	"context"
	"slices"
	"sync"
)

// ApplicationLedger is the append-only record of application attempts.
type ApplicationLedger struct {
	mu       sync.Mutex
	repo     ApplicationRepository
	records  []Application
	unsynced []Application
	applied  map[string]struct{}
}

// NewApplicationLedger creates an empty ledger backed by repo.
func NewApplicationLedger(repo ApplicationRepository) *ApplicationLedger {
	return &ApplicationLedger{
		repo:    repo,
		applied: make(map[string]struct{}),
	}
}

// Load replaces the in-memory ledger with the persisted one.
func (l *ApplicationLedger) Load(ctx context.Context) error {
	apps, err := l.repo.LoadApplications(ctx)
	if err != nil {
		return persistenceError(err, "load applications")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = apps
	l.unsynced = nil
	l.applied = make(map[string]struct{}, len(apps))
	for _, a := range apps {
		l.applied[a.URL] = struct{}{}
	}
	return nil
}

// Append records app and persists it together with any record a previous
// Append failed to write. The write is not aborted by cancelling ctx. The
// record stays in memory even when the write fails.
func (l *ApplicationLedger) Append(ctx context.Context, app Application) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, app)
	l.applied[app.URL] = struct{}{}
	l.unsynced = append(l.unsynced, app)

	ctx, cancel := detach(ctx)
	defer cancel()
	if err := l.repo.AppendApplications(ctx, l.unsynced); err != nil {
		return persistenceError(err, "append application")
	}
	l.unsynced = nil
	return nil
}

// All returns every record in append order.
func (l *ApplicationLedger) All() []Application {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.records)
}

// IsAlreadyApplied reports whether any attempt, successful or not, was
// recorded for url.
func (l *ApplicationLedger) IsAlreadyApplied(url string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.applied[url]
	return ok
}

// Stats counts records by status.
func (l *ApplicationLedger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := Stats{Total: len(l.records)}
	for _, a := range l.records {
		switch a.Status {
		case ApplicationSuccess:
			st.Successful++
		case ApplicationFailed:
			st.Failed++
		case ApplicationPending:
			st.Pending++
		}
	}
	return st
}
