// Package broker moves job posting events between job creation and the
// notification worker over a durable NATS JetStream stream.
package broker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/job-alerts/internal/config"
	"github.com/maxaizer/job-alerts/internal/events"
	"github.com/maxaizer/job-alerts/internal/logger"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	log "github.com/sirupsen/logrus"
)

type ConnectionState int32

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

type jetStreamProvider interface {
	JetStream(ctx context.Context) (jetstream.JetStream, error)
}

// Connection owns the broker connection shared by the publisher and the
// consumer. It is created once per process and connects on first use.
type Connection struct {
	cfg   config.BrokerConfig
	bus   EventBus.Bus
	mu    sync.Mutex
	nc    *nats.Conn
	js    jetstream.JetStream
	state atomic.Int32
}

func NewConnection(cfg config.BrokerConfig, bus EventBus.Bus) *Connection {
	return &Connection{cfg: cfg, bus: bus}
}

func (c *Connection) State() ConnectionState {
	return ConnectionState(c.state.Load())
}

// JetStream returns the JetStream context, connecting and declaring the
// stream if that has not happened yet.
func (c *Connection) JetStream(ctx context.Context) (jetstream.JetStream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.js != nil && !c.nc.IsClosed() {
		return c.js, nil
	}

	c.state.Store(int32(Connecting))

	nc, err := nats.Connect(c.cfg.URL,
		nats.Name(c.cfg.Durable),
		nats.Timeout(c.cfg.ConnectTimeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(c.onDisconnect),
		nats.ReconnectHandler(c.onReconnect),
	)
	if err != nil {
		c.state.Store(int32(Disconnected))
		return nil, fmt.Errorf("connecting to broker %s: %w", c.cfg.URL, err)
	}

	js, err := jetstream.New(nc)
	if err == nil {
		_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:       c.cfg.Stream,
			Subjects:   []string{c.cfg.Subject},
			Storage:    jetstream.FileStorage,
			Retention:  jetstream.WorkQueuePolicy,
			Duplicates: c.cfg.DuplicatesWindow,
		})
	}
	if err != nil {
		nc.Close()
		c.state.Store(int32(Disconnected))
		return nil, fmt.Errorf("declaring stream %s: %w", c.cfg.Stream, err)
	}

	c.nc, c.js = nc, js
	c.state.Store(int32(Connected))
	log.Infof("connected to broker %s, stream %s", nc.ConnectedUrl(), c.cfg.Stream)
	return js, nil
}

func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.nc != nil {
		c.nc.Close()
	}
	c.nc, c.js = nil, nil
	c.state.Store(int32(Disconnected))
}

func (c *Connection) onDisconnect(_ *nats.Conn, err error) {
	c.state.Store(int32(Disconnected))
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeBroker).Errorf("broker connection lost: %v", err)
	}
	c.bus.Publish(events.BrokerDisconnectedTopic, events.BrokerDisconnected{Err: err})
}

func (c *Connection) onReconnect(nc *nats.Conn) {
	c.state.Store(int32(Connected))
	log.Infof("reconnected to broker %s", nc.ConnectedUrl())
	c.bus.Publish(events.BrokerReconnectedTopic, events.BrokerReconnected{URL: nc.ConnectedUrl()})
}
