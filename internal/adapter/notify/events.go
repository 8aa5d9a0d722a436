package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cwygoda/jobwatch/internal/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Event types published by EventPublisher.
const (
	EventNewJobs     = "new_jobs"
	EventApplication = "application"
)

// Event is the JSON payload published on the redis channels.
type Event struct {
	Type        string              `json:"type"`
	Email       string              `json:"email"`
	Jobs        []domain.Job        `json:"jobs,omitempty"`
	Application *applicationPayload `json:"application,omitempty"`
	Status      string              `json:"status,omitempty"`
	At          time.Time           `json:"at"`
}

type applicationPayload struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Company         string `json:"company"`
	Location        string `json:"location"`
	Platform        string `json:"platform"`
	URL             string `json:"url"`
	Message         string `json:"message"`
	AutoApplied     bool   `json:"autoApplied"`
	WatchCriteriaID string `json:"watchCriteriaId,omitempty"`
}

// EventPublisher publishes notifications on redis pub/sub so other
// services can relay them. Channels are "<prefix>.new_jobs" and
// "<prefix>.application".
type EventPublisher struct {
	rdb    *redis.Client
	prefix string
	log    *zap.SugaredLogger
	now    func() time.Time
}

// NewEventPublisher creates a publisher using channel prefix.
func NewEventPublisher(rdb *redis.Client, prefix string, log *zap.SugaredLogger) *EventPublisher {
	if prefix == "" {
		prefix = "jobwatch"
	}
	return &EventPublisher{rdb: rdb, prefix: prefix, log: log, now: time.Now}
}

// Channel returns the channel name for an event type.
func (p *EventPublisher) Channel(eventType string) string {
	return p.prefix + "." + eventType
}

func (p *EventPublisher) SendNewJobAlert(ctx context.Context, email string, jobs []domain.Job) bool {
	return p.publish(ctx, Event{Type: EventNewJobs, Email: email, Jobs: jobs, At: p.now()})
}

func (p *EventPublisher) SendApplicationNotification(ctx context.Context, email string, app domain.Application, status domain.ApplicationStatus) bool {
	return p.publish(ctx, Event{
		Type:  EventApplication,
		Email: email,
		Application: &applicationPayload{
			ID:              app.ID,
			Title:           app.Title,
			Company:         app.Company,
			Location:        app.Location,
			Platform:        app.Platform,
			URL:             app.URL,
			Message:         app.Message,
			AutoApplied:     app.AutoApplied,
			WatchCriteriaID: app.WatchCriteriaID,
		},
		Status: string(status),
		At:     p.now(),
	})
}

func (p *EventPublisher) publish(ctx context.Context, ev Event) bool {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.log.Errorw("encode event", "type", ev.Type, "error", err)
		return false
	}
	if err := p.rdb.Publish(ctx, p.Channel(ev.Type), payload).Err(); err != nil {
		p.log.Warnw("publish event failed", "type", ev.Type, "error", err)
		return false
	}
	return true
}
