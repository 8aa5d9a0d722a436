// Package notify implements domain.Notifier over email, redis events and
// the log.
package notify

import (
	"context"

	"github.com/cwygoda/jobwatch/internal/domain"
	"github.com/cwygoda/jobwatch/internal/metrics"
	"go.uber.org/zap"
)

// LogNotifier writes notifications to the log. It is used when no other
// transport is configured.
type LogNotifier struct {
	log *zap.SugaredLogger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log *zap.SugaredLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendNewJobAlert(ctx context.Context, email string, jobs []domain.Job) bool {
	n.log.Infow("new jobs found", "email", email, "count", len(jobs))
	return true
}

func (n *LogNotifier) SendApplicationNotification(ctx context.Context, email string, app domain.Application, status domain.ApplicationStatus) bool {
	n.log.Infow("application finished", "email", email, "title", app.Title, "company", app.Company, "status", status)
	return true
}

// Multi fans a notification out to every sink. It reports success when at
// least one sink delivered.
type Multi struct {
	sinks []domain.Notifier
}

// NewMulti creates a fan-out over sinks.
func NewMulti(sinks ...domain.Notifier) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) SendNewJobAlert(ctx context.Context, email string, jobs []domain.Job) bool {
	ok := false
	for _, s := range m.sinks {
		if s.SendNewJobAlert(ctx, email, jobs) {
			ok = true
		}
	}
	metrics.Notifications.WithLabelValues("new_jobs", metrics.Result(ok)).Inc()
	return ok
}

func (m *Multi) SendApplicationNotification(ctx context.Context, email string, app domain.Application, status domain.ApplicationStatus) bool {
	ok := false
	for _, s := range m.sinks {
		if s.SendApplicationNotification(ctx, email, app, status) {
			ok = true
		}
	}
	metrics.Notifications.WithLabelValues("application", metrics.Result(ok)).Inc()
	return ok
}
