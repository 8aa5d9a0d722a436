package connector

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/cwygoda/jobwatch/internal/config"
	"github.com/cwygoda/jobwatch/internal/domain"
)

type nopConnector struct{}

func (nopConnector) Initialize(ctx context.Context) error { return nil }
func (nopConnector) Search(ctx context.Context, k, l string) ([]domain.Job, error) {
	return nil, nil
}
func (nopConnector) Apply(ctx context.Context, u, r, c string) (domain.ApplyResult, error) {
	return domain.ApplyResult{}, nil
}
func (nopConnector) Close() error { return nil }

func nopFactory() (domain.Connector, error) { return nopConnector{}, nil }

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	if err := r.Register("LinkedIn", nopFactory); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register("indeed", nopFactory); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register("linkedin", nopFactory); err == nil {
		t.Error("Register() duplicate error = nil")
	}
	if err := r.Register(" ", nopFactory); err == nil {
		t.Error("Register() empty id error = nil")
	}

	got := r.Platforms()
	if len(got) != 2 || got[0] != "linkedin" || got[1] != "indeed" {
		t.Errorf("Platforms() = %v, want [linkedin indeed]", got)
	}
}

func TestRegistry_Acquire(t *testing.T) {
	r := NewRegistry()
	r.Register("linkedin", nopFactory)

	tests := []struct {
		platform string
		wantErr  error
	}{
		{"linkedin", nil},
		{"LinkedIn", nil},
		{"monster", domain.ErrUnknownPlatform},
	}

	for _, tt := range tests {
		t.Run(tt.platform, func(t *testing.T) {
			c, err := r.Acquire(tt.platform)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Acquire() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && c == nil {
				t.Error("Acquire() returned nil connector")
			}
		})
	}
}

func TestFromConfig(t *testing.T) {
	script := writeScript(t)
	r, err := FromConfig([]config.ConnectorConfig{
		{Platform: "linkedin", Name: "LinkedIn", Command: script},
		{Platform: "indeed", Name: "Indeed", Command: script},
	})
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}

	c, err := r.Acquire("indeed")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer c.Close()
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	jobs, err := c.Search(context.Background(), "go", "Remote")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(jobs) == 0 || jobs[0].Platform != "Indeed" {
		t.Errorf("Search() = %+v, want jobs from Indeed", jobs)
	}

	if _, err := FromConfig([]config.ConnectorConfig{{Platform: "x", Command: `"bad`}}); err == nil {
		t.Error("FromConfig() error = nil for bad command line")
	}
}
