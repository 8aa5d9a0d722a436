package domain

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ApplyOutcome is the per-job result of a manual apply.
type ApplyOutcome struct {
	Job     string            `json:"job"`
	Company string            `json:"company"`
	Status  ApplicationStatus `json:"status"`
	Message string            `json:"message"`
}

// ApplicationService serves user-initiated searches and applications.
// It records applications in the shared ledger but does not draw from the
// daily quota, which belongs to the monitor.
type ApplicationService struct {
	connectors ConnectorProvider
	ledger     *ApplicationLedger
	log        *zap.SugaredLogger

	delayMin, delayMax time.Duration
	now                func() time.Time
}

// NewApplicationService creates a service waiting between delayMin and
// delayMax after each submission.
func NewApplicationService(connectors ConnectorProvider, ledger *ApplicationLedger, log *zap.SugaredLogger, delayMin, delayMax time.Duration) *ApplicationService {
	return &ApplicationService{
		connectors: connectors,
		ledger:     ledger,
		log:        log,
		delayMin:   delayMin,
		delayMax:   delayMax,
		now:        time.Now,
	}
}

// Search queries each requested platform, or all of them when platforms is
// empty. A failing platform is logged and skipped.
func (s *ApplicationService) Search(ctx context.Context, keywords, location string, platforms []string) ([]Job, error) {
	if strings.TrimSpace(keywords) == "" || strings.TrimSpace(location) == "" {
		return nil, errors.WithHint(ErrInvalidRequest, "keywords and location are required")
	}
	platforms = normalizePlatforms(platforms)
	if len(platforms) == 0 {
		platforms = s.connectors.Platforms()
	}
	for _, p := range platforms {
		if !slices.Contains(s.connectors.Platforms(), p) {
			return nil, errors.Wrapf(ErrUnknownPlatform, "%q", p)
		}
	}

	var all []Job
	for _, p := range platforms {
		jobs, err := SearchPlatform(ctx, s.connectors, p, keywords, location)
		if err != nil {
			s.log.Warnw("search failed", "platform", p, "error", err)
			continue
		}
		all = append(all, jobs...)
	}
	return all, nil
}

// Apply submits to each job in order. Jobs whose URL is already in the
// ledger are reported as skipped.
func (s *ApplicationService) Apply(ctx context.Context, jobs []Job, resumePath, coverLetter string) ([]ApplyOutcome, error) {
	if len(jobs) == 0 {
		return nil, errors.WithHint(ErrInvalidRequest, "jobs array is required")
	}

	results := make([]ApplyOutcome, 0, len(jobs))
	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if s.ledger.IsAlreadyApplied(job.URL) {
			results = append(results, ApplyOutcome{
				Job:     job.Title,
				Company: job.Company,
				Status:  ApplicationSkipped,
				Message: "Already applied to this position",
			})
			continue
		}

		res, err := ApplyPlatform(ctx, s.connectors, job, resumePath, coverLetter)
		if errors.Is(err, ErrUnknownPlatform) || errors.Is(err, ErrConnectorInit) {
			s.log.Warnw("apply skipped", "url", job.URL, "platform", job.Platform, "error", err)
			results = append(results, ApplyOutcome{
				Job:     job.Title,
				Company: job.Company,
				Status:  ApplicationFailed,
				Message: err.Error(),
			})
			continue
		}
		app := NewApplication(job, res, err, s.now())
		if err := s.ledger.Append(ctx, app); err != nil {
			s.log.Errorw("record application", "url", job.URL, "error", err)
		}
		results = append(results, ApplyOutcome{
			Job:     job.Title,
			Company: job.Company,
			Status:  app.Status,
			Message: app.Message,
		})

		if i < len(jobs)-1 {
			if err := Sleep(ctx, Jitter(s.delayMin, s.delayMax)); err != nil {
				return results, err
			}
		}
	}
	return results, nil
}

// Applications returns the ledger contents.
func (s *ApplicationService) Applications() []Application {
	return s.ledger.All()
}

// Stats summarizes the ledger.
func (s *ApplicationService) Stats() Stats {
	return s.ledger.Stats()
}

// NewApplication builds the ledger record for one connector apply call. An
// apply error becomes a failed record carrying the error text.
func NewApplication(job Job, res ApplyResult, applyErr error, at time.Time) Application {
	app := Application{
		ID:        uuid.NewString(),
		Title:     job.Title,
		Company:   job.Company,
		Location:  job.Location,
		Platform:  job.Platform,
		URL:       job.URL,
		Status:    ApplicationFailed,
		Message:   res.Message,
		Timestamp: at,
	}
	switch {
	case applyErr != nil:
		app.Message = applyErr.Error()
	case res.Success:
		app.Status = ApplicationSuccess
	}
	return app
}

// SearchPlatform runs one search with a fresh connector. The connector is
// closed on every path.
func SearchPlatform(ctx context.Context, provider ConnectorProvider, platform, keywords, location string) ([]Job, error) {
	conn, err := provider.Acquire(platform)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := conn.Initialize(ctx); err != nil {
		return nil, errors.Mark(err, ErrConnectorInit)
	}
	jobs, err := conn.Search(ctx, keywords, location)
	if err != nil {
		return nil, errors.Mark(err, ErrSearch)
	}
	return jobs, nil
}

// ApplyPlatform submits one application with a fresh connector for the
// job's platform. Unknown platforms and initialization failures are
// returned as errors marked ErrUnknownPlatform or ErrConnectorInit; an
// error from the apply call itself is marked ErrApply.
func ApplyPlatform(ctx context.Context, provider ConnectorProvider, job Job, resumePath, coverLetter string) (ApplyResult, error) {
	conn, err := provider.Acquire(strings.ToLower(job.Platform))
	if err != nil {
		return ApplyResult{}, err
	}
	defer conn.Close()

	if err := conn.Initialize(ctx); err != nil {
		return ApplyResult{}, errors.Mark(err, ErrConnectorInit)
	}
	res, err := conn.Apply(ctx, job.URL, resumePath, coverLetter)
	if err != nil {
		return ApplyResult{}, errors.Mark(err, ErrApply)
	}
	return res, nil
}
