package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/go-playground/validator/v10"
	"github.com/maxaizer/job-alerts/internal/config"
	"github.com/maxaizer/job-alerts/internal/entities"
	"github.com/maxaizer/job-alerts/internal/events"
	"github.com/maxaizer/job-alerts/internal/logger"
	"github.com/maxaizer/job-alerts/internal/metrics"
	"github.com/maxaizer/job-alerts/internal/services"
	"github.com/nats-io/nats.go/jetstream"
	gocache "github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"
)

type ConsumerState int32

const (
	ConsumerDisconnected ConsumerState = iota
	ConsumerConnecting
	ConsumerConsuming
)

func (s ConsumerState) String() string {
	switch s {
	case ConsumerConnecting:
		return "connecting"
	case ConsumerConsuming:
		return "consuming"
	default:
		return "disconnected"
	}
}

type notifier interface {
	Notify(ctx context.Context, job entities.JobPostingEvent) (services.DeliveryReport, error)
}

type deadLetterRepository interface {
	Add(ctx context.Context, delivery entities.FailedDelivery) error
}

// message is the part of jetstream.Msg the worker relies on.
type message interface {
	Data() []byte
	Subject() string
	Metadata() (*jetstream.MsgMetadata, error)
	Ack() error
	NakWithDelay(delay time.Duration) error
	Term() error
}

// Consumer is the notification worker. A message is acknowledged only after
// its deliveries are persisted; failures are redelivered with backoff until
// MaxDeliver is reached, after which the message is dead-lettered.
type Consumer struct {
	conn        jetStreamProvider
	cfg         config.BrokerConfig
	notifier    notifier
	deadLetters deadLetterRepository
	validate    *validator.Validate
	completed   *gocache.Cache
	state       atomic.Int32

	mu         sync.Mutex
	consumeCtx jetstream.ConsumeContext
	runCtx     context.Context
	cancel     context.CancelFunc

	handlersMu sync.Mutex
	stopping   bool
	inFlight   sync.WaitGroup
}

func NewConsumer(conn jetStreamProvider, bus EventBus.Bus, cfg config.BrokerConfig,
	notifier notifier, deadLetters deadLetterRepository) (*Consumer, error) {

	runCtx, cancel := context.WithCancel(context.Background())
	c := &Consumer{
		conn:        conn,
		cfg:         cfg,
		notifier:    notifier,
		deadLetters: deadLetters,
		validate:    validator.New(),
		completed:   gocache.New(cfg.DuplicatesWindow, 2*cfg.DuplicatesWindow),
		runCtx:      runCtx,
		cancel:      cancel,
	}

	if err := bus.Subscribe(events.BrokerDisconnectedTopic, c.onBrokerDisconnected); err != nil {
		cancel()
		return nil, err
	}
	if err := bus.Subscribe(events.BrokerReconnectedTopic, c.onBrokerReconnected); err != nil {
		cancel()
		return nil, err
	}
	return c, nil
}

func (c *Consumer) State() ConsumerState {
	return ConsumerState(c.state.Load())
}

// Start attaches the durable consumer and begins processing. On failure the
// consumer stays disconnected and the error is returned to the caller.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.consumeCtx != nil {
		return nil
	}
	if c.runCtx.Err() != nil {
		return errors.New("consumer is stopped")
	}

	c.state.Store(int32(ConsumerConnecting))
	consumeCtx, err := c.attach(ctx)
	if err != nil {
		c.state.Store(int32(ConsumerDisconnected))
		return err
	}

	c.consumeCtx = consumeCtx
	c.state.Store(int32(ConsumerConsuming))
	log.Infof("consuming %s as %s", c.cfg.Subject, c.cfg.Durable)
	return nil
}

func (c *Consumer) attach(ctx context.Context) (jetstream.ConsumeContext, error) {
	js, err := c.conn.JetStream(ctx)
	if err != nil {
		return nil, err
	}

	consumer, err := js.CreateOrUpdateConsumer(ctx, c.cfg.Stream, jetstream.ConsumerConfig{
		Durable:       c.cfg.Durable,
		FilterSubject: c.cfg.Subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       c.cfg.AckWait(),
		// the worker dead-letters after cfg.MaxDeliver attempts itself, so a
		// message nak'd during shutdown is still redelivered
		MaxDeliver:    -1,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("creating consumer %s: %w", c.cfg.Durable, err)
	}

	consumeCtx, err := consumer.Consume(
		func(msg jetstream.Msg) { c.process(msg) },
		jetstream.ConsumeErrHandler(func(_ jetstream.ConsumeContext, err error) {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeBroker).Warnf("consume error: %v", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("consuming %s: %w", c.cfg.Subject, err)
	}
	return consumeCtx, nil
}

// Stop stops pulling messages, cancels the one in flight and waits for its
// handler to return. The cancelled message is handed back to the broker for
// redelivery. A stopped consumer cannot be started again.
func (c *Consumer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handlersMu.Lock()
	c.stopping = true
	c.handlersMu.Unlock()

	if c.consumeCtx != nil {
		c.consumeCtx.Stop()
		c.consumeCtx = nil
	}
	c.cancel()
	c.inFlight.Wait()
	c.state.Store(int32(ConsumerDisconnected))
}

// process runs handle unless the consumer is stopping. A message refused here
// stays unacknowledged and is redelivered after AckWait.
func (c *Consumer) process(msg message) {
	c.handlersMu.Lock()
	if c.stopping {
		c.handlersMu.Unlock()
		return
	}
	c.inFlight.Add(1)
	c.handlersMu.Unlock()
	defer c.inFlight.Done()

	c.handle(msg)
}

func (c *Consumer) handle(msg message) {
	start := time.Now()
	defer func() { metrics.ProcessingDuration.Observe(time.Since(start).Seconds()) }()

	attempt := deliveryAttempt(msg)

	var event entities.JobPostingEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDecode).Errorf("malformed job posting message: %v", err)
		c.deadLetter(msg, "", attempt, fmt.Errorf("decoding message: %w", err))
		return
	}
	if err := c.validate.Struct(event); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDecode).Errorf("invalid job posting %q: %v", event.ID, err)
		c.deadLetter(msg, event.ID, attempt, fmt.Errorf("validating message: %w", err))
		return
	}

	if _, found := c.completed.Get(event.ID); found {
		log.Infof("job %v was already delivered, acknowledging duplicate", event.ID)
		c.ack(msg, event.ID, "duplicate")
		return
	}

	ctx, cancel := context.WithTimeout(c.runCtx, c.cfg.ProcessingTimeout)
	defer cancel()

	if _, err := c.notifier.Notify(ctx, event); err != nil {
		c.retryOrDeadLetter(msg, event.ID, attempt, err)
		return
	}

	if c.ack(msg, event.ID, "acked") {
		c.completed.SetDefault(event.ID, struct{}{})
	}
}

func (c *Consumer) retryOrDeadLetter(msg message, jobID string, attempt uint64, err error) {
	if c.runCtx.Err() != nil {
		log.Infof("worker is stopping, job %v is returned to the queue: %v", jobID, err)
		if nakErr := msg.NakWithDelay(c.cfg.RedeliveryDelay); nakErr != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeBroker).Errorf("failed to nak job %v: %v", jobID, nakErr)
		}
		metrics.ConsumedMessagesCounter.WithLabelValues("nacked").Inc()
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("processing timed out after %v: %w", c.cfg.ProcessingTimeout, err)
	}

	if attempt >= uint64(c.cfg.MaxDeliver) {
		log.Errorf("giving up on job %v after %d attempts: %v", jobID, attempt, err)
		c.deadLetter(msg, jobID, attempt, err)
		return
	}

	delay := c.redeliveryDelay(attempt)
	log.Warnf("delivery of job %v failed on attempt %d, retrying in %v: %v", jobID, attempt, delay, err)
	if nakErr := msg.NakWithDelay(delay); nakErr != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeBroker).Errorf("failed to nak job %v: %v", jobID, nakErr)
	}
	metrics.ConsumedMessagesCounter.WithLabelValues("nacked").Inc()
}

// deadLetter records the message and terminates its redelivery. If the
// record cannot be stored the message is handed back to the broker instead.
func (c *Consumer) deadLetter(msg message, jobID string, attempt uint64, reason error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ProcessingTimeout)
	defer cancel()

	err := c.deadLetters.Add(ctx, entities.FailedDelivery{
		JobID:    jobID,
		Subject:  msg.Subject(),
		Payload:  string(msg.Data()),
		Reason:   reason.Error(),
		Attempts: int(attempt),
	})
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to dead-letter job %q: %v", jobID, err)
		if nakErr := msg.NakWithDelay(c.redeliveryDelay(attempt)); nakErr != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeBroker).Errorf("failed to nak job %q: %v", jobID, nakErr)
		}
		metrics.ConsumedMessagesCounter.WithLabelValues("nacked").Inc()
		return
	}

	if err = msg.Term(); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeBroker).Errorf("failed to terminate job %q: %v", jobID, err)
	}
	metrics.ConsumedMessagesCounter.WithLabelValues("dead_lettered").Inc()
}

func (c *Consumer) ack(msg message, jobID, result string) bool {
	if err := msg.Ack(); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeBroker).Errorf("failed to ack job %v: %v", jobID, err)
		return false
	}
	metrics.ConsumedMessagesCounter.WithLabelValues(result).Inc()
	return true
}

func (c *Consumer) redeliveryDelay(attempt uint64) time.Duration {
	delay := c.cfg.RedeliveryDelay
	for i := uint64(1); i < attempt && delay < c.cfg.MaxRedeliveryDelay; i++ {
		delay *= 2
	}
	if c.cfg.MaxRedeliveryDelay > 0 && delay > c.cfg.MaxRedeliveryDelay {
		delay = c.cfg.MaxRedeliveryDelay
	}
	return delay
}

func (c *Consumer) onBrokerDisconnected(event events.BrokerDisconnected) {
	if c.state.CompareAndSwap(int32(ConsumerConsuming), int32(ConsumerDisconnected)) {
		log.Warnf("notification worker paused, broker disconnected: %v", event.Err)
	}
}

func (c *Consumer) onBrokerReconnected(event events.BrokerReconnected) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.consumeCtx != nil && c.state.CompareAndSwap(int32(ConsumerDisconnected), int32(ConsumerConsuming)) {
		log.Infof("notification worker resumed on %s", event.URL)
	}
}

func deliveryAttempt(msg message) uint64 {
	md, err := msg.Metadata()
	if err != nil || md == nil || md.NumDelivered == 0 {
		return 1
	}
	return md.NumDelivered
}
