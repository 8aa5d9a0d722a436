package domain

import "strings"

// Job is a posting returned by a platform search.
type Job struct {
	Title    string `json:"title"`
	Company  string `json:"company"`
	Location string `json:"location"`
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

// Fingerprint identifies a posting across searches.
type Fingerprint string

// Fingerprint derives the dedup key: platform, company, title and location
// joined by '-', lower-cased, with every character outside [a-z0-9]
// replaced by a single '-'.
func (j Job) Fingerprint() Fingerprint {
	raw := strings.ToLower(strings.Join([]string{j.Platform, j.Company, j.Title, j.Location}, "-"))
	return Fingerprint(strings.Map(func(r rune) rune {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return '-'
		}
		return r
	}, raw))
}

// ApplyFilters returns the jobs that satisfy f. Only the remote flag is
// evaluated; salary, experience level and job type are carried on the
// criteria but postings do not expose them.
func ApplyFilters(jobs []Job, f Filters) []Job {
	if !f.Remote {
		return jobs
	}
	var out []Job
	for _, j := range jobs {
		if strings.Contains(strings.ToLower(j.Location), "remote") {
			out = append(out, j)
		}
	}
	return out
}
