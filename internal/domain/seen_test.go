package domain

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
)

func TestSeenJobRegistry_AddIsIdempotent(t *testing.T) {
	repo := &memRepo{}
	r := NewSeenJobRegistry(repo)
	ctx := context.Background()

	if !r.Add("a") {
		t.Error("first Add() = false, want true")
	}
	if r.Add("a") {
		t.Error("second Add() = true, want false")
	}
	if err := r.Persist(ctx); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	r.Add("a")
	if err := r.Persist(ctx); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
	if len(repo.seen) != 1 {
		t.Errorf("persisted %d fingerprints, want 1", len(repo.seen))
	}
}

func TestSeenJobRegistry_PersistRetriesPending(t *testing.T) {
	repo := &memRepo{}
	r := NewSeenJobRegistry(repo)
	ctx := context.Background()

	repo.failWith(errDisk)
	r.Add("a")
	if err := r.Persist(ctx); !errors.Is(err, ErrPersistence) {
		t.Fatalf("Persist() error = %v, want %v", err, ErrPersistence)
	}
	if !r.Contains("a") {
		t.Error("Contains() = false after failed persist")
	}

	repo.failWith(nil)
	r.Add("b")
	if err := r.Persist(ctx); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	if len(repo.seen) != 2 {
		t.Errorf("persisted %v, want a and b", repo.seen)
	}
}

func TestSeenJobRegistry_Load(t *testing.T) {
	repo := &memRepo{seen: []Fingerprint{"x", "y"}}
	r := NewSeenJobRegistry(repo)

	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !r.Contains("x") || r.Count() != 2 {
		t.Errorf("Load() Count = %d, want 2", r.Count())
	}
	if r.Add("x") {
		t.Error("Add() of loaded fingerprint = true, want false")
	}
}

func TestSeenJobRegistry_PersistAfterCancel(t *testing.T) {
	repo := &memRepo{}
	r := NewSeenJobRegistry(repo)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r.Add("a-b-c")
	if err := r.Persist(ctx); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	if len(repo.seen) != 1 {
		t.Errorf("persisted %d fingerprints, want 1", len(repo.seen))
	}
}
