package domain

import "time"

// ApplicationStatus is the outcome of an application attempt.
type ApplicationStatus string

const (
	ApplicationSuccess ApplicationStatus = "success"
	ApplicationFailed  ApplicationStatus = "failed"
	// ApplicationPending is accepted when reading stored records but never
	// assigned by this package.
	ApplicationPending ApplicationStatus = "pending"
	// ApplicationSkipped is only reported by the manual apply path and is
	// never recorded in the ledger.
	ApplicationSkipped ApplicationStatus = "skipped"
)

// Application is one entry in the append-only ledger.
type Application struct {
	ID              string
	Title           string
	Company         string
	Location        string
	Platform        string
	URL             string
	Status          ApplicationStatus
	Message         string
	Timestamp       time.Time
	AutoApplied     bool
	WatchCriteriaID string
}

// ApplyResult is what a connector reports for one submission.
type ApplyResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Stats summarizes the ledger.
type Stats struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Pending    int `json:"pending"`
}
