package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/go-playground/validator/v10"
	"github.com/maxaizer/job-alerts/internal/entities"
	"github.com/maxaizer/job-alerts/internal/events"
	"github.com/maxaizer/job-alerts/internal/logger"
	"github.com/maxaizer/job-alerts/internal/metrics"
	"github.com/nats-io/nats.go/jetstream"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type Outcome string

const (
	OutcomePublished Outcome = "published"
	OutcomeSkipped   Outcome = "skipped"
)

const jobCreatedPublishTimeout = 10 * time.Second

// Publisher enqueues job posting events. An unavailable broker never fails
// the caller: the publish is skipped and logged.
type Publisher struct {
	conn        jetStreamProvider
	subject     string
	validate    *validator.Validate
	rateLimiter *rate.Limiter
}

func NewPublisher(conn jetStreamProvider, subject string) *Publisher {
	return &Publisher{conn: conn, subject: subject, validate: validator.New()}
}

func (p *Publisher) SetRateLimit(maxPublishesPerSecond float32) {
	if maxPublishesPerSecond <= 0 {
		p.rateLimiter = nil
		return
	}
	p.rateLimiter = rate.NewLimiter(rate.Limit(maxPublishesPerSecond), 1)
}

// SubscribeToJobCreated forwards every JobCreated event on the bus to the broker.
func (p *Publisher) SubscribeToJobCreated(bus EventBus.Bus) error {
	return bus.SubscribeAsync(events.JobCreatedTopic, p.onJobCreated, false)
}

func (p *Publisher) onJobCreated(event events.JobCreated) {
	ctx, cancel := context.WithTimeout(context.Background(), jobCreatedPublishTimeout)
	defer cancel()

	if _, err := p.PublishJob(ctx, event.Job); err != nil {
		log.Warnf("job %q was not published: %v", event.Job.ID, err)
	}
}

// PublishJob normalizes the job into the wire schema and publishes it.
func (p *Publisher) PublishJob(ctx context.Context, job entities.Job) (Outcome, error) {
	return p.Publish(ctx, entities.NewJobPostingEvent(job))
}

func (p *Publisher) Publish(ctx context.Context, event entities.JobPostingEvent) (Outcome, error) {
	if err := p.validate.Struct(event); err != nil {
		metrics.PublishedJobsCounter.WithLabelValues("invalid").Inc()
		return OutcomeSkipped, fmt.Errorf("invalid job posting event: %w", err)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return OutcomeSkipped, fmt.Errorf("marshaling job posting event: %w", err)
	}

	if p.rateLimiter != nil {
		if err = p.rateLimiter.Wait(ctx); err != nil {
			return OutcomeSkipped, err
		}
	}

	js, err := p.conn.JetStream(ctx)
	if err != nil {
		return p.skip(event, err), nil
	}

	ack, err := js.Publish(ctx, p.subject, data, jetstream.WithMsgID(event.ID))
	if err != nil {
		return p.skip(event, err), nil
	}

	if ack.Duplicate {
		log.Debugf("job %v was already enqueued, broker dropped the duplicate", event.ID)
	}
	metrics.PublishedJobsCounter.WithLabelValues(string(OutcomePublished)).Inc()
	log.Debugf("published job %v to %s, stream sequence %d", event.ID, p.subject, ack.Sequence)
	return OutcomePublished, nil
}

func (p *Publisher) skip(event entities.JobPostingEvent, err error) Outcome {
	log.WithField(logger.ErrorTypeField, logger.ErrorTypeBroker).
		Warnf("broker unavailable, notifications for job %v are skipped: %v", event.ID, err)
	metrics.PublishedJobsCounter.WithLabelValues(string(OutcomeSkipped)).Inc()
	return OutcomeSkipped
}
