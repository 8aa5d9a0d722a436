package monitor

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cwygoda/jobwatch/internal/domain"
	"github.com/cwygoda/jobwatch/internal/metrics"
)

// Tick runs one pass over the enabled watch items. It never runs
// concurrently with itself. Cancellation is honored between items, between
// jobs and during delays; the returned Summary reports it.
func (o *Orchestrator) Tick(ctx context.Context) (Summary, error) {
	if !o.tickMu.TryLock() {
		return Summary{}, ErrTickInProgress
	}
	defer o.tickMu.Unlock()
	o.busy.Store(true)
	defer o.busy.Store(false)

	var sum Summary
	defer func() { metrics.QuotaRemaining.Set(float64(o.deps.Quota.Remaining())) }()

	if o.deps.Quota.Remaining() <= 0 {
		o.log.Infow("daily application limit reached, skipping check", "limit", o.deps.Quota.Limit())
		sum.QuotaExhausted = true
		return sum, nil
	}

	o.log.Infow("checking for new jobs")
	for _, c := range o.deps.WatchList.List() {
		if !c.Enabled {
			continue
		}
		if sum.Items > 0 {
			if err := domain.Sleep(ctx, o.opts.ItemDelay); err != nil {
				sum.Cancelled = true
				break
			}
		}
		if ctx.Err() != nil {
			sum.Cancelled = true
			break
		}
		sum.Items++
		o.processItem(ctx, c, &sum)
	}
	if ctx.Err() != nil {
		sum.Cancelled = true
	}

	o.log.Infow("check finished",
		"items", sum.Items, "newJobs", sum.NewJobs, "applied", sum.Applied,
		"remaining", o.deps.Quota.Remaining(), "cancelled", sum.Cancelled)
	return sum, nil
}

func (o *Orchestrator) processItem(ctx context.Context, c domain.WatchCriteria, sum *Summary) {
	log := o.log.With("watchId", c.ID, "keywords", c.Keywords, "location", c.Location)

	var found []domain.Job
	for _, p := range c.Platforms {
		jobs, err := domain.SearchPlatform(ctx, o.deps.Connectors, p, c.Keywords, c.Location)
		if err != nil {
			log.Warnw("platform search failed", "platform", p, "error", err)
			metrics.ConnectorErrors.WithLabelValues(p, operation(err)).Inc()
			continue
		}
		found = append(found, jobs...)
	}

	fresh := o.registerNew(ctx, found)
	sum.NewJobs += len(fresh)
	if len(fresh) == 0 {
		log.Debugw("no new jobs", "found", len(found))
		return
	}

	matched := domain.ApplyFilters(fresh, c.Filters)
	log.Infow("new jobs found", "new", len(fresh), "matched", len(matched))
	if len(matched) == 0 {
		return
	}

	if c.UserEmail != "" {
		o.deps.Notifier.SendNewJobAlert(ctx, c.UserEmail, matched[:min(alertLimit, len(matched))])
	}
	if c.AutoApply {
		o.autoApply(ctx, c, matched, sum)
	}
}

// registerNew returns the jobs whose fingerprint was not seen before and
// registers them at once, then persists the batch. Registration happens
// before any alert or apply: a crash after this point drops these jobs
// instead of acting on them twice.
func (o *Orchestrator) registerNew(ctx context.Context, jobs []domain.Job) []domain.Job {
	var fresh []domain.Job
	for _, j := range jobs {
		if o.deps.Seen.Add(j.Fingerprint()) {
			fresh = append(fresh, j)
			metrics.JobsDiscovered.WithLabelValues(strings.ToLower(j.Platform)).Inc()
		}
	}
	if len(fresh) > 0 {
		if err := o.deps.Seen.Persist(ctx); err != nil {
			o.log.Errorw("persist seen jobs", "error", err)
		}
	}
	return fresh
}

func (o *Orchestrator) autoApply(ctx context.Context, c domain.WatchCriteria, jobs []domain.Job, sum *Summary) {
	for _, job := range jobs {
		if o.deps.Quota.Remaining() <= 0 {
			o.log.Infow("daily application limit reached", "limit", o.deps.Quota.Limit())
			return
		}
		if ctx.Err() != nil {
			return
		}
		log := o.log.With("watchId", c.ID, "url", job.URL, "platform", job.Platform)
		if o.deps.Ledger.IsAlreadyApplied(job.URL) {
			log.Infow("already applied, skipping")
			continue
		}

		res, err := domain.ApplyPlatform(ctx, o.deps.Connectors, job, c.ResumePath, "")
		if errors.Is(err, domain.ErrUnknownPlatform) || errors.Is(err, domain.ErrConnectorInit) {
			log.Warnw("cannot apply", "error", err)
			metrics.ConnectorErrors.WithLabelValues(strings.ToLower(job.Platform), operation(err)).Inc()
			continue
		}
		if err != nil {
			log.Warnw("apply failed", "error", err)
			metrics.ConnectorErrors.WithLabelValues(strings.ToLower(job.Platform), "apply").Inc()
		}

		app := domain.NewApplication(job, res, err, o.now())
		app.AutoApplied = true
		app.WatchCriteriaID = c.ID
		if err := o.deps.Ledger.Append(ctx, app); err != nil {
			log.Errorw("record application", "error", err)
		}
		o.deps.Quota.Consume()
		sum.Applied++
		metrics.Applications.WithLabelValues(string(app.Status), "auto").Inc()
		log.Infow("applied", "status", app.Status, "message", app.Message)

		if c.UserEmail != "" {
			o.deps.Notifier.SendApplicationNotification(ctx, c.UserEmail, app, app.Status)
		}
		if err := domain.Sleep(ctx, domain.Jitter(o.opts.ApplyDelayMin, o.opts.ApplyDelayMax)); err != nil {
			return
		}
	}
}

func operation(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnknownPlatform):
		return "acquire"
	case errors.Is(err, domain.ErrConnectorInit):
		return "initialize"
	case errors.Is(err, domain.ErrSearch):
		return "search"
	case errors.Is(err, domain.ErrApply):
		return "apply"
	}
	return "other"
}
