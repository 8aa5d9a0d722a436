package domain

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
)

func TestApplicationLedger_Append(t *testing.T) {
	repo := &memRepo{}
	l := NewApplicationLedger(repo)
	ctx := context.Background()

	if err := l.Append(ctx, Application{URL: "u1", Status: ApplicationSuccess}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if !l.IsAlreadyApplied("u1") {
		t.Error("IsAlreadyApplied(u1) = false, want true")
	}
	if l.IsAlreadyApplied("u2") {
		t.Error("IsAlreadyApplied(u2) = true, want false")
	}
	if len(repo.apps) != 1 {
		t.Errorf("persisted %d records, want 1", len(repo.apps))
	}
}

func TestApplicationLedger_AppendRetriesUnsynced(t *testing.T) {
	repo := &memRepo{}
	l := NewApplicationLedger(repo)
	ctx := context.Background()

	repo.failWith(errDisk)
	if err := l.Append(ctx, Application{URL: "u1"}); !errors.Is(err, ErrPersistence) {
		t.Fatalf("Append() error = %v, want %v", err, ErrPersistence)
	}
	if len(l.All()) != 1 {
		t.Errorf("All() = %d records, want 1", len(l.All()))
	}

	repo.failWith(nil)
	if err := l.Append(ctx, Application{URL: "u2"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if len(repo.apps) != 2 || repo.apps[0].URL != "u1" {
		t.Errorf("persisted %v, want u1 then u2", repo.apps)
	}
}

func TestApplicationLedger_Stats(t *testing.T) {
	l := NewApplicationLedger(&memRepo{})
	ctx := context.Background()
	l.Append(ctx, Application{URL: "1", Status: ApplicationSuccess})
	l.Append(ctx, Application{URL: "2", Status: ApplicationSuccess})
	l.Append(ctx, Application{URL: "3", Status: ApplicationFailed})

	want := Stats{Total: 3, Successful: 2, Failed: 1}
	if got := l.Stats(); got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
}

func TestApplicationLedger_Load(t *testing.T) {
	repo := &memRepo{apps: []Application{{URL: "old", Status: ApplicationPending}}}
	l := NewApplicationLedger(repo)

	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !l.IsAlreadyApplied("old") {
		t.Error("IsAlreadyApplied(old) = false after Load")
	}
	if l.Stats().Pending != 1 {
		t.Errorf("Stats().Pending = %d, want 1", l.Stats().Pending)
	}
}

func TestApplicationLedger_AppendAfterCancel(t *testing.T) {
	repo := &memRepo{}
	l := NewApplicationLedger(repo)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := l.Append(ctx, Application{URL: "u1", Status: ApplicationSuccess}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if len(repo.apps) != 1 {
		t.Errorf("persisted %d records, want 1", len(repo.apps))
	}
}
