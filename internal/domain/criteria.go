package domain

import (
	"slices"
	"strings"
	"time"
)

// Filters narrows the jobs a watch item acts on.
type Filters struct {
	MinSalary       *float64 `json:"minSalary,omitempty"`
	Remote          bool     `json:"remote"`
	ExperienceLevel string   `json:"experienceLevel,omitempty"`
	JobType         string   `json:"jobType,omitempty"`
}

// WatchCriteria is a saved search the monitor runs on every tick.
type WatchCriteria struct {
	ID         string
	Keywords   string
	Location   string
	Platforms  []string
	AutoApply  bool
	Filters    Filters
	Enabled    bool
	UserEmail  string
	ResumePath string
	CreatedAt  time.Time
}

func (c WatchCriteria) clone() WatchCriteria {
	c.Platforms = slices.Clone(c.Platforms)
	if c.Filters.MinSalary != nil {
		v := *c.Filters.MinSalary
		c.Filters.MinSalary = &v
	}
	return c
}

// NewWatchCriteria is the input for WatchListStore.Add. A nil AutoApply
// means true; empty Platforms means every registered platform.
type NewWatchCriteria struct {
	Keywords   string
	Location   string
	Platforms  []string
	AutoApply  *bool
	Filters    Filters
	UserEmail  string
	ResumePath string
}

// WatchUpdate is a partial update. Nil fields are left unchanged.
type WatchUpdate struct {
	Keywords   *string
	Location   *string
	Platforms  []string
	AutoApply  *bool
	Filters    *Filters
	Enabled    *bool
	UserEmail  *string
	ResumePath *string
}

func (u WatchUpdate) apply(c *WatchCriteria) {
	if u.Keywords != nil {
		c.Keywords = *u.Keywords
	}
	if u.Location != nil {
		c.Location = *u.Location
	}
	if u.Platforms != nil {
		c.Platforms = slices.Clone(u.Platforms)
	}
	if u.AutoApply != nil {
		c.AutoApply = *u.AutoApply
	}
	if u.Filters != nil {
		c.Filters = *u.Filters
	}
	if u.Enabled != nil {
		c.Enabled = *u.Enabled
	}
	if u.UserEmail != nil {
		c.UserEmail = *u.UserEmail
	}
	if u.ResumePath != nil {
		c.ResumePath = *u.ResumePath
	}
}

func normalizePlatforms(platforms []string) []string {
	out := make([]string, 0, len(platforms))
	for _, p := range platforms {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}
