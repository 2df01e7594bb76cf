package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/appetiteclub/cocina/internal/feed"
	"github.com/aquamarinepk/aqm"
	"go.uber.org/goleak"
)

func nextEvent(t *testing.T, pub *MockPublisher) (PublishedEvent, SnapshotEvent) {
	t.Helper()

	select {
	case evt := <-pub.published:
		var decoded SnapshotEvent
		if err := json.Unmarshal(evt.Data, &decoded); err != nil {
			t.Fatalf("cannot decode event: %v", err)
		}
		return evt, decoded
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return PublishedEvent{}, SnapshotEvent{}
}

func TestNotifierPublishesDistinctSnapshots(t *testing.T) {
	defer goleak.VerifyNone(t)

	source := NewMockUpdateSource()
	pub := NewMockPublisher()
	n := NewNotifier(source, pub, "", aqm.NewNoopLogger())

	if err := n.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	source.Updates <- feed.Update{Seq: 1, Fingerprint: "aaa", Orders: 2}
	source.Updates <- feed.Update{Seq: 2, Fingerprint: "aaa", Orders: 2, Err: errors.New("feed unreachable")}
	source.Updates <- feed.Update{Seq: 3, Fingerprint: "aaa", Orders: 2}
	source.Updates <- feed.Update{Seq: 4, Fingerprint: "bbb", Orders: 3}

	evt, first := nextEvent(t, pub)
	if evt.Topic != DisplayTopic {
		t.Errorf("Topic = %q, want %q", evt.Topic, DisplayTopic)
	}
	if first.EventType != EventSnapshotChanged || first.Seq != 1 || first.Orders != 2 {
		t.Errorf("first event = %+v", first)
	}

	_, second := nextEvent(t, pub)
	if second.EventType != EventFeedFailed || second.Error != "feed unreachable" {
		t.Errorf("second event = %+v", second)
	}

	_, third := nextEvent(t, pub)
	if third.EventType != EventSnapshotChanged || third.Seq != 4 || third.Fingerprint != "bbb" {
		t.Errorf("third event = %+v, recovery without change must not be published", third)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := n.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestNotifierPublishErrorIsLogged(t *testing.T) {
	defer goleak.VerifyNone(t)

	source := NewMockUpdateSource()
	calls := make(chan struct{}, 1)
	pub := NewMockPublisher()
	pub.PublishFunc = func(ctx context.Context, topic string, data []byte) error {
		calls <- struct{}{}
		return ErrNotConnected
	}

	n := NewNotifier(source, pub, "custom.topic", nil)
	if err := n.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	source.Updates <- feed.Update{Seq: 1, Fingerprint: "x"}

	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher was not called")
	}

	if err := n.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestNATSPublisherNotConnected(t *testing.T) {
	p := NewNATSPublisher("nats://127.0.0.1:1", nil)

	if err := p.Publish(context.Background(), DisplayTopic, []byte("{}")); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
	if err := p.Stop(context.Background()); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestNATSPublisherStartFails(t *testing.T) {
	p := NewNATSPublisher("nats://127.0.0.1:1", aqm.NewNoopLogger())

	if err := p.Start(context.Background()); err == nil {
		t.Error("Start() error = nil, want connection error")
	}
}

func TestNATSStreamDefaults(t *testing.T) {
	s := NewNATSStream(NATSStreamConfig{URL: "nats://127.0.0.1:1"}, nil)

	if s.cfg.StreamName != DefaultStreamName {
		t.Errorf("StreamName = %q, want %q", s.cfg.StreamName, DefaultStreamName)
	}
	if s.cfg.Topic != DisplayTopic {
		t.Errorf("Topic = %q, want %q", s.cfg.Topic, DisplayTopic)
	}
	if s.cfg.MaxAge != DefaultStreamMaxAge {
		t.Errorf("MaxAge = %v, want %v", s.cfg.MaxAge, DefaultStreamMaxAge)
	}
	if err := s.Publish(context.Background(), DisplayTopic, []byte("{}")); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
	if err := s.Start(context.Background()); err == nil {
		t.Error("Start() error = nil, want connection error")
	}
}
