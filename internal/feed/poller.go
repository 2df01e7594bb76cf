package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aquamarinepk/aqm"
)

const MaxBodyBytes = 8 << 20

var (
	ErrNoEndpoint      = errors.New("feed endpoint not configured")
	ErrFeedUnreachable = errors.New("feed unreachable")
	ErrFeedStatus      = errors.New("feed returned an error status")
	ErrFeedMalformed   = errors.New("feed payload malformed")
)

// Update is sent to subscribers whenever the visible state of the feed
// changes: a distinct snapshot was applied, polling started failing, or it
// recovered.
type Update struct {
	Seq         uint64
	Fingerprint string
	Orders      int
	Err         error
	At          time.Time
}

// Snapshot is a copy of the poller state at one point in time.
type Snapshot struct {
	Seq         uint64
	Fingerprint string
	Orders      []Order
	FetchedAt   time.Time
	Err         error
}

type PollerConfig struct {
	Descriptor string
	Interval   time.Duration
	Location   *time.Location
	Client     *http.Client
}

// Poller keeps the most recent distinct snapshot of the order feed.
type Poller struct {
	client     *http.Client
	descriptor string
	interval   time.Duration
	loc        *time.Location
	logger     aqm.Logger
	now        func() time.Time

	seq atomic.Uint64

	mu          sync.RWMutex
	endpoint    string
	fingerprint string
	orders      []Order
	fetchedAt   time.Time
	lastErr     error
	appliedSeq  uint64

	subMu       sync.RWMutex
	subscribers map[string]chan Update

	cancel context.CancelFunc
	done   chan struct{}
}

func NewPoller(cfg PollerConfig, logger aqm.Logger) *Poller {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Poller{
		client:      cfg.Client,
		descriptor:  cfg.Descriptor,
		interval:    cfg.Interval,
		loc:         cfg.Location,
		logger:      logger,
		now:         time.Now,
		subscribers: make(map[string]chan Update),
	}
}

// Start resolves the feed endpoint and begins polling in the background.
// A descriptor failure is logged and leaves polling disabled; it does not
// stop the rest of the service.
func (p *Poller) Start(ctx context.Context) error {
	p.logger.Info("starting order feed poller", "descriptor", p.descriptor, "interval", p.interval)

	endpoint, err := LoadEndpoint(ctx, p.client, p.descriptor)
	if err != nil {
		p.logger.Error("cannot load feed descriptor, polling disabled", "descriptor", p.descriptor, "error", err)
		return nil
	}
	p.SetEndpoint(endpoint)
	p.logger.Info("order feed endpoint resolved", "endpoint", endpoint)

	runCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(runCtx)

	return nil
}

// Stop ends polling and closes every subscriber channel.
func (p *Poller) Stop(ctx context.Context) error {
	p.logger.Info("stopping order feed poller")

	if p.cancel != nil {
		p.cancel()
		select {
		case <-p.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	p.subMu.Lock()
	for id, ch := range p.subscribers {
		close(ch)
		delete(p.subscribers, id)
	}
	p.subMu.Unlock()

	return nil
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	p.Poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Endpoint returns the resolved feed URL, or "" before the descriptor loaded.
func (p *Poller) Endpoint() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.endpoint
}

func (p *Poller) SetEndpoint(endpoint string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.endpoint = endpoint
}

// Poll fetches the feed once. Completions older than an already applied
// poll are discarded, so a slow request can never overwrite newer data.
func (p *Poller) Poll(ctx context.Context) error {
	seq := p.seq.Add(1)

	endpoint := p.Endpoint()
	if endpoint == "" {
		return ErrNoEndpoint
	}

	body, err := p.fetch(ctx, endpoint)
	if err == nil {
		err = p.apply(seq, body)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		p.fail(seq, err)
		return err
	}
	return nil
}

func (p *Poller) fetch(ctx context.Context, endpoint string) ([]byte, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFeedUnreachable, err)
	}
	q := u.Query()
	q.Set("t", strconv.FormatInt(p.now().UnixMilli(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFeedUnreachable, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache, no-store")
	req.Header.Set("Pragma", "no-cache")

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", ErrFeedUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrFeedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFeedUnreachable, err)
	}
	return body, nil
}

func (p *Poller) apply(seq uint64, body []byte) error {
	fingerprint, err := Fingerprint(body)
	if err != nil {
		return err
	}

	p.mu.Lock()
	if seq < p.appliedSeq {
		p.mu.Unlock()
		p.logger.Debug("discarding stale poll result", "seq", seq, "applied_seq", p.appliedSeq)
		return nil
	}

	recovered := p.lastErr != nil
	if fingerprint == p.fingerprint {
		p.appliedSeq = seq
		p.lastErr = nil
		count := len(p.orders)
		p.mu.Unlock()
		if recovered {
			p.logger.Info("order feed recovered", "seq", seq)
			p.broadcast(Update{Seq: seq, Fingerprint: fingerprint, Orders: count, At: p.now()})
		}
		return nil
	}

	orders, err := DecodeOrders(body, p.loc)
	if err != nil {
		p.mu.Unlock()
		return err
	}

	p.appliedSeq = seq
	p.lastErr = nil
	p.fingerprint = fingerprint
	p.orders = orders
	p.fetchedAt = p.now()
	at := p.fetchedAt
	p.mu.Unlock()

	p.logger.Info("order feed snapshot changed", "seq", seq, "orders", len(orders))
	p.broadcast(Update{Seq: seq, Fingerprint: fingerprint, Orders: len(orders), At: at})
	return nil
}

func (p *Poller) fail(seq uint64, err error) {
	p.mu.Lock()
	if seq < p.appliedSeq {
		p.mu.Unlock()
		return
	}
	wasFailing := p.lastErr != nil
	p.appliedSeq = seq
	p.lastErr = err
	fingerprint := p.fingerprint
	count := len(p.orders)
	p.mu.Unlock()

	p.logger.Error("cannot load orders", "seq", seq, "error", err)
	if !wasFailing {
		p.broadcast(Update{Seq: seq, Fingerprint: fingerprint, Orders: count, Err: err, At: p.now()})
	}
}

// Snapshot returns a copy of the current state.
func (p *Poller) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	orders := make([]Order, len(p.orders))
	copy(orders, p.orders)

	return Snapshot{
		Seq:         p.appliedSeq,
		Fingerprint: p.fingerprint,
		Orders:      orders,
		FetchedAt:   p.fetchedAt,
		Err:         p.lastErr,
	}
}

// Subscribe registers a listener for feed updates.
func (p *Poller) Subscribe(subscriberID string) <-chan Update {
	p.subMu.Lock()
	defer p.subMu.Unlock()

	ch := make(chan Update, 16)
	p.subscribers[subscriberID] = ch

	p.logger.Debug("new feed subscriber", "subscriber_id", subscriberID, "total_subscribers", len(p.subscribers))
	return ch
}

func (p *Poller) Unsubscribe(subscriberID string) {
	p.subMu.Lock()
	defer p.subMu.Unlock()

	if ch, ok := p.subscribers[subscriberID]; ok {
		close(ch)
		delete(p.subscribers, subscriberID)
		p.logger.Debug("feed subscriber removed", "subscriber_id", subscriberID, "total_subscribers", len(p.subscribers))
	}
}

func (p *Poller) broadcast(u Update) {
	p.subMu.RLock()
	defer p.subMu.RUnlock()

	for subscriberID, ch := range p.subscribers {
		select {
		case ch <- u:
		default:
			p.logger.Info("subscriber channel full, dropping update", "subscriber_id", subscriberID)
		}
	}
}
