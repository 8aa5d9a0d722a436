package domain

import "context"

// WatchRepository persists the watch list as a whole.
type WatchRepository interface {
	LoadWatchList(ctx context.Context) ([]WatchCriteria, error)
	SaveWatchList(ctx context.Context, items []WatchCriteria) error
}

// SeenJobRepository persists seen fingerprints. SaveSeen must be idempotent.
type SeenJobRepository interface {
	LoadSeen(ctx context.Context) ([]Fingerprint, error)
	SaveSeen(ctx context.Context, fps []Fingerprint) error
}

// ApplicationRepository persists the application ledger.
type ApplicationRepository interface {
	LoadApplications(ctx context.Context) ([]Application, error)
	AppendApplications(ctx context.Context, apps []Application) error
}

// Connector drives one job platform. Callers Initialize before use and
// always Close afterwards; Close is idempotent.
type Connector interface {
	Initialize(ctx context.Context) error
	Search(ctx context.Context, keywords, location string) ([]Job, error)
	Apply(ctx context.Context, url, resumePath, coverLetter string) (ApplyResult, error)
	Close() error
}

// ConnectorProvider hands out a fresh connector per platform id.
type ConnectorProvider interface {
	Acquire(platform string) (Connector, error)
	Platforms() []string
}

// Notifier delivers user notifications. Results report delivery; failures
// never propagate to the caller.
type Notifier interface {
	SendNewJobAlert(ctx context.Context, email string, jobs []Job) bool
	SendApplicationNotification(ctx context.Context, email string, app Application, status ApplicationStatus) bool
}
