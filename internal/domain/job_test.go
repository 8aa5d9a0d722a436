package domain

import "testing"

func TestJob_Fingerprint(t *testing.T) {
	tests := []struct {
		name string
		job  Job
		want Fingerprint
	}{
		{
			name: "simple",
			job:  Job{Platform: "LinkedIn", Company: "Acme", Title: "Go Dev", Location: "Remote"},
			want: "linkedin-acme-go-dev-remote",
		},
		{
			name: "punctuation replaced per character",
			job:  Job{Platform: "Indeed", Company: "A&B, Inc.", Title: "SRE", Location: "New York, NY"},
			want: "indeed-a-b--inc--sre-new-york--ny",
		},
		{
			name: "multi-byte letter is one character",
			job:  Job{Platform: "StepStone", Company: "Café Müller", Title: "Barista", Location: "Köln"},
			want: "stepstone-caf--m-ller-barista-k-ln",
		},
		{
			name: "url does not matter",
			job:  Job{Platform: "indeed", Company: "acme", Title: "go dev", Location: "remote", URL: "https://x"},
			want: "indeed-acme-go-dev-remote",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.job.Fingerprint(); got != tt.want {
				t.Errorf("Fingerprint() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestApplyFilters_Remote(t *testing.T) {
	jobs := []Job{
		{Title: "a", Location: "Remote"},
		{Title: "b", Location: "New York, NY"},
		{Title: "c", Location: "Remote - US"},
	}

	got := ApplyFilters(jobs, Filters{Remote: true})
	if len(got) != 2 {
		t.Fatalf("ApplyFilters() returned %d jobs, want 2", len(got))
	}
	if got[0].Title != "a" || got[1].Title != "c" {
		t.Errorf("ApplyFilters() = %v, want jobs a and c", got)
	}
}

func TestApplyFilters_NoRemote(t *testing.T) {
	jobs := []Job{{Location: "Berlin"}, {Location: "Remote"}}
	salary := 100000.0

	got := ApplyFilters(jobs, Filters{MinSalary: &salary, JobType: "full-time"})
	if len(got) != 2 {
		t.Errorf("ApplyFilters() returned %d jobs, want 2", len(got))
	}
}
