package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/nats-io/nats.go"
)

var ErrNotConnected = errors.New("nats publisher not connected")

// NATSPublisher publishes display events on a NATS connection opened at Start.
type NATSPublisher struct {
	url    string
	logger aqm.Logger

	mu   sync.RWMutex
	conn *nats.Conn
}

func NewNATSPublisher(url string, logger aqm.Logger) *NATSPublisher {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &NATSPublisher{url: url, logger: logger}
}

func (p *NATSPublisher) Start(ctx context.Context) error {
	p.logger.Info("connecting to NATS", "url", p.url)

	conn, err := nats.Connect(p.url,
		nats.Name("cocina"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				p.logger.Error("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			p.logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	p.mu.Lock()
	p.conn = conn
	p.mu.Unlock()
	return nil
}

func (p *NATSPublisher) Stop(ctx context.Context) error {
	p.mu.Lock()
	conn := p.conn
	p.conn = nil
	p.mu.Unlock()

	if conn == nil {
		return nil
	}
	p.logger.Info("closing NATS connection")
	if err := conn.Drain(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	return nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	p.mu.RLock()
	conn := p.conn
	p.mu.RUnlock()

	if conn == nil {
		return ErrNotConnected
	}
	return conn.Publish(topic, msg)
}
