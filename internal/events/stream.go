package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	DefaultStreamName   = "KITCHEN_DISPLAY"
	DefaultStreamMaxAge = 24 * time.Hour
)

// NATSStreamConfig configures a NATSStream.
type NATSStreamConfig struct {
	URL        string
	StreamName string
	Topic      string
	MaxAge     time.Duration
	MaxMsgs    int64
}

// NATSStream publishes display events into a JetStream stream so consumers
// that connect later can replay the recent snapshots.
type NATSStream struct {
	cfg    NATSStreamConfig
	logger aqm.Logger

	mu   sync.RWMutex
	conn *nats.Conn
	js   jetstream.JetStream
}

func NewNATSStream(cfg NATSStreamConfig, logger aqm.Logger) *NATSStream {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	if cfg.StreamName == "" {
		cfg.StreamName = DefaultStreamName
	}
	if cfg.Topic == "" {
		cfg.Topic = DisplayTopic
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultStreamMaxAge
	}
	return &NATSStream{cfg: cfg, logger: logger}
}

// Start connects and creates or updates the stream.
func (s *NATSStream) Start(ctx context.Context) error {
	s.logger.Info("connecting to NATS JetStream", "url", s.cfg.URL, "stream", s.cfg.StreamName)

	conn, err := nats.Connect(s.cfg.URL, nats.Name("cocina"))
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	streamConfig := jetstream.StreamConfig{
		Name:     s.cfg.StreamName,
		Subjects: []string{s.cfg.Topic},
		MaxAge:   s.cfg.MaxAge,
	}
	if s.cfg.MaxMsgs > 0 {
		streamConfig.MaxMsgs = s.cfg.MaxMsgs
	}

	if _, err := js.CreateOrUpdateStream(ctx, streamConfig); err != nil {
		conn.Close()
		return fmt.Errorf("failed to create/update stream %s: %w", s.cfg.StreamName, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.js = js
	s.mu.Unlock()
	return nil
}

func (s *NATSStream) Stop(ctx context.Context) error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.js = nil
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	return nil
}

// Publish stores a message in the stream.
func (s *NATSStream) Publish(ctx context.Context, topic string, msg []byte) error {
	s.mu.RLock()
	js := s.js
	s.mu.RUnlock()

	if js == nil {
		return ErrNotConnected
	}
	if _, err := js.Publish(ctx, topic, msg); err != nil {
		return fmt.Errorf("failed to publish to stream: %w", err)
	}
	return nil
}
