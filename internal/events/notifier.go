package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/appetiteclub/cocina/internal/feed"
	"github.com/aquamarinepk/aqm"
	aqmevents "github.com/aquamarinepk/aqm/events"
)

const (
	// DisplayTopic is the default subject for display events.
	DisplayTopic = "kitchen.display"

	// EventSnapshotChanged identifies a new distinct feed snapshot.
	EventSnapshotChanged = "kitchen.display.snapshot_changed"
	// EventFeedFailed identifies the feed switching into failure.
	EventFeedFailed = "kitchen.display.feed_failed"

	subscriberID = "events-notifier"
)

// SnapshotEvent is the payload published for feed changes.
type SnapshotEvent struct {
	EventType   string    `json:"event_type"`
	Seq         uint64    `json:"seq"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Orders      int       `json:"orders"`
	Error       string    `json:"error,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// UpdateSource fans feed updates out to subscribers.
type UpdateSource interface {
	Subscribe(subscriberID string) <-chan feed.Update
	Unsubscribe(subscriberID string)
}

// Notifier republishes feed updates as events. Recoveries that do not change
// the snapshot are not published.
type Notifier struct {
	source    UpdateSource
	publisher aqmevents.Publisher
	topic     string
	logger    aqm.Logger

	lastFingerprint string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewNotifier(source UpdateSource, publisher aqmevents.Publisher, topic string, logger aqm.Logger) *Notifier {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	if topic == "" {
		topic = DisplayTopic
	}
	return &Notifier{
		source:    source,
		publisher: publisher,
		topic:     topic,
		logger:    logger,
	}
}

func (n *Notifier) Start(ctx context.Context) error {
	n.logger.Info("starting display event notifier", "topic", n.topic)

	updates := n.source.Subscribe(subscriberID)
	runCtx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel

	n.wg.Add(1)
	go n.run(runCtx, updates)
	return nil
}

func (n *Notifier) Stop(ctx context.Context) error {
	n.logger.Info("stopping display event notifier")

	if n.cancel != nil {
		n.cancel()
	}
	n.source.Unsubscribe(subscriberID)

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Notifier) run(ctx context.Context, updates <-chan feed.Update) {
	defer n.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			n.handle(ctx, u)
		}
	}
}

func (n *Notifier) handle(ctx context.Context, u feed.Update) {
	event := SnapshotEvent{
		Seq:         u.Seq,
		Fingerprint: u.Fingerprint,
		Orders:      u.Orders,
		OccurredAt:  u.At,
	}

	switch {
	case u.Err != nil:
		event.EventType = EventFeedFailed
		event.Error = u.Err.Error()
	case u.Fingerprint != n.lastFingerprint:
		event.EventType = EventSnapshotChanged
		n.lastFingerprint = u.Fingerprint
	default:
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		n.logger.Errorf("Failed to encode %s event: %v", event.EventType, err)
		return
	}
	if err := n.publisher.Publish(ctx, n.topic, data); err != nil {
		n.logger.Errorf("Failed to publish %s event: %v", event.EventType, err)
	}
}
