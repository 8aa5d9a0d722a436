package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwygoda/jobwatch/internal/domain"
)

func setupTestRepo(t *testing.T) (*Repository, func()) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	repo, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	cleanup := func() {
		repo.Close()
		os.Remove(dbPath)
	}
	return repo, cleanup
}

func TestRepository_WatchListRoundTrip(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	ctx := context.Background()
	salary := 120000.0
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	items := []domain.WatchCriteria{
		{
			ID:        "b",
			Keywords:  "golang",
			Location:  "Remote",
			Platforms: []string{"linkedin", "indeed"},
			AutoApply: true,
			Filters:   domain.Filters{Remote: true, MinSalary: &salary},
			Enabled:   true,
			UserEmail: "me@example.com",
			CreatedAt: created,
		},
		{
			ID:        "a",
			Keywords:  "rust",
			Location:  "Berlin",
			Platforms: []string{"indeed"},
			CreatedAt: created,
		},
	}

	if err := repo.SaveWatchList(ctx, items); err != nil {
		t.Fatalf("SaveWatchList() error = %v", err)
	}

	got, err := repo.LoadWatchList(ctx)
	if err != nil {
		t.Fatalf("LoadWatchList() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("LoadWatchList() returned %d items, want 2", len(got))
	}
	if got[0].ID != "b" || got[1].ID != "a" {
		t.Errorf("LoadWatchList() order = %s,%s, want b,a", got[0].ID, got[1].ID)
	}
	if !got[0].Filters.Remote || got[0].Filters.MinSalary == nil || *got[0].Filters.MinSalary != salary {
		t.Errorf("LoadWatchList() filters = %+v", got[0].Filters)
	}
	if len(got[0].Platforms) != 2 || !got[0].AutoApply || !got[0].Enabled {
		t.Errorf("LoadWatchList() item = %+v", got[0])
	}
	if got[1].AutoApply || got[1].Enabled {
		t.Errorf("LoadWatchList() flags of second item = %v,%v, want false,false", got[1].AutoApply, got[1].Enabled)
	}
	if !got[0].CreatedAt.Equal(created) {
		t.Errorf("LoadWatchList() CreatedAt = %v, want %v", got[0].CreatedAt, created)
	}
}

func TestRepository_SaveWatchListReplaces(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	ctx := context.Background()
	repo.SaveWatchList(ctx, []domain.WatchCriteria{{ID: "a", Keywords: "go", Location: "x"}})
	if err := repo.SaveWatchList(ctx, nil); err != nil {
		t.Fatalf("SaveWatchList() error = %v", err)
	}

	got, _ := repo.LoadWatchList(ctx)
	if len(got) != 0 {
		t.Errorf("LoadWatchList() returned %d items, want 0", len(got))
	}
}

func TestRepository_SeenIsIdempotent(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	ctx := context.Background()
	if err := repo.SaveSeen(ctx, []domain.Fingerprint{"a", "b"}); err != nil {
		t.Fatalf("SaveSeen() error = %v", err)
	}
	if err := repo.SaveSeen(ctx, []domain.Fingerprint{"b", "c"}); err != nil {
		t.Fatalf("SaveSeen() error = %v", err)
	}

	fps, err := repo.LoadSeen(ctx)
	if err != nil {
		t.Fatalf("LoadSeen() error = %v", err)
	}
	if len(fps) != 3 {
		t.Errorf("LoadSeen() returned %d fingerprints, want 3", len(fps))
	}
}

func TestRepository_Applications(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	ctx := context.Background()
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	first := domain.Application{
		ID: "1", Title: "Go Dev", Company: "Acme", Location: "Remote", Platform: "LinkedIn",
		URL: "https://x/1", Status: domain.ApplicationSuccess, Message: "Applied", Timestamp: at,
		AutoApplied: true, WatchCriteriaID: "w1",
	}
	second := domain.Application{
		ID: "2", Title: "SRE", Company: "Beta", Location: "Berlin", Platform: "Indeed",
		URL: "https://x/2", Status: domain.ApplicationFailed, Timestamp: at,
	}

	if err := repo.AppendApplications(ctx, []domain.Application{first}); err != nil {
		t.Fatalf("AppendApplications() error = %v", err)
	}
	// Retried batch containing an already written record.
	if err := repo.AppendApplications(ctx, []domain.Application{first, second}); err != nil {
		t.Fatalf("AppendApplications() error = %v", err)
	}

	apps, err := repo.LoadApplications(ctx)
	if err != nil {
		t.Fatalf("LoadApplications() error = %v", err)
	}
	if len(apps) != 2 {
		t.Fatalf("LoadApplications() returned %d records, want 2", len(apps))
	}
	if apps[0].ID != "1" || apps[1].ID != "2" {
		t.Errorf("LoadApplications() order = %s,%s, want 1,2", apps[0].ID, apps[1].ID)
	}
	if !apps[0].AutoApplied || apps[0].WatchCriteriaID != "w1" || apps[0].Status != domain.ApplicationSuccess {
		t.Errorf("LoadApplications() first = %+v", apps[0])
	}
	if apps[1].WatchCriteriaID != "" || apps[1].AutoApplied {
		t.Errorf("LoadApplications() second = %+v", apps[1])
	}
}

func TestRepository_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "jobwatch.db")
	ctx := context.Background()

	repo, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	repo.SaveSeen(ctx, []domain.Fingerprint{"a"})
	repo.Close()

	repo, err = New(dbPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer repo.Close()

	fps, _ := repo.LoadSeen(ctx)
	if len(fps) != 1 || fps[0] != "a" {
		t.Errorf("LoadSeen() after reopen = %v, want [a]", fps)
	}
}

func TestNew_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "subdir", "nested", "test.db")

	repo, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer repo.Close()

	// Verify directory was created
	if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
		t.Error("New() did not create parent directory")
	}
}
