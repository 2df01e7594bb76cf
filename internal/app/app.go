package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/appetiteclub/cocina/internal/config"
	"github.com/appetiteclub/cocina/internal/display"
	"github.com/appetiteclub/cocina/internal/events"
	"github.com/appetiteclub/cocina/internal/feed"
	"github.com/appetiteclub/cocina/internal/filters"
	"github.com/appetiteclub/cocina/internal/health"
	"github.com/appetiteclub/cocina/internal/kv"
	"github.com/appetiteclub/cocina/internal/mongo"
	"github.com/appetiteclub/cocina/internal/render"
	"github.com/appetiteclub/cocina/internal/sqlite"
	"github.com/aquamarinepk/aqm"
	aqmevents "github.com/aquamarinepk/aqm/events"
	"github.com/aquamarinepk/aqm/middleware"
)

const (
	AppName    = "cocina"
	AppVersion = "0.1.0"
)

// App wires the kitchen display service.
type App struct {
	config   *aqm.Config
	logger   aqm.Logger
	settings config.Settings
	micro    *aqm.Micro
}

func New(cfg *aqm.Config, logger aqm.Logger) (*App, error) {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	settings, err := config.Load(cfg)
	if err != nil {
		return nil, fmt.Errorf("cannot load settings: %w", err)
	}
	return &App{
		config:   cfg,
		logger:   logger,
		settings: settings,
	}, nil
}

// Initialize builds every component and the micro service that runs them.
func (a *App) Initialize(ctx context.Context) error {
	s := a.settings
	var lifecycles []interface{}

	prefs, storeLifecycle, err := NewPreferenceStore(s, a.logger)
	if err != nil {
		return err
	}
	if storeLifecycle != nil {
		lifecycles = append(lifecycles, storeLifecycle)
	}

	filterStore := filters.NewStore(prefs, a.logger)
	lifecycles = append(lifecycles, filterStore)

	httpClient := &http.Client{Timeout: s.FeedTimeout}
	poller := feed.NewPoller(feed.PollerConfig{
		Descriptor: s.Descriptor,
		Interval:   s.PollInterval,
		Location:   s.Location,
		Client:     httpClient,
	}, a.logger)
	statusClient := feed.NewStatusClient(httpClient, poller, a.logger)

	healthServer := health.NewServer(poller, AppName, a.logger)
	lifecycles = append(lifecycles, healthServer)

	if s.NATSURL != "" {
		publisher := newEventPublisher(s, a.logger)
		notifier := events.NewNotifier(poller, publisher, s.NATSSubject, a.logger)
		lifecycles = append(lifecycles, publisher, notifier)
	} else {
		a.logger.Info("nats.url not configured; display events disabled")
	}

	// Subscribers are registered above so the first snapshot reaches them.
	lifecycles = append(lifecycles, poller)

	renderer := render.NewRenderer(render.NewRegistry(s.RetainPasses))
	handler := display.NewHandler(display.HandlerDeps{
		Orders:     poller,
		Filters:    filterStore,
		Status:     statusClient,
		Renderer:   renderer,
		Location:   s.Location,
		PrintDelay: s.PrintDelay,
	}, a.logger)
	handler.SetSSEHandler(display.NewSSEHandler(poller, a.logger))

	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger:      a.logger,
		DisableCORS: true,
	})

	options := []aqm.Option{
		aqm.WithConfig(a.config),
		aqm.WithLogger(a.logger),
		aqm.WithHTTPMiddleware(stack...),
		aqm.WithHTTPServerModules("web.port", handler),
		aqm.WithGRPCServerModules("grpc.port", healthServer),
		aqm.WithLifecycle(lifecycles...),
		aqm.WithHealthChecks(AppName),
	}

	a.micro = aqm.NewMicro(options...)
	return nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Infof("Starting %s(%s)", AppName, AppVersion)
	if err := a.micro.Run(ctx); err != nil {
		return err
	}
	a.logger.Infof("%s(%s) stopped", AppName, AppVersion)
	return nil
}

type eventPublisher interface {
	aqmevents.Publisher
	Lifecycle
}

func newEventPublisher(s config.Settings, logger aqm.Logger) eventPublisher {
	if s.StreamEnabled {
		logger.Info("display events go to a JetStream stream", "stream", s.StreamName)
		return events.NewNATSStream(events.NATSStreamConfig{
			URL:        s.NATSURL,
			StreamName: s.StreamName,
			Topic:      s.NATSSubject,
			MaxAge:     s.StreamMaxAge,
		}, logger)
	}
	return events.NewNATSPublisher(s.NATSURL, logger)
}

// Lifecycle is a component started and stopped with the service.
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// NewPreferenceStore returns the key-value backend for the filter state and,
// when it needs one, the lifecycle that opens and closes it.
func NewPreferenceStore(s config.Settings, logger aqm.Logger) (kv.Store, Lifecycle, error) {
	switch s.StoreDriver {
	case "", "memory":
		logger.Info("filter state kept in memory")
		return kv.NewMemoryStore(), nil, nil
	case "sqlite":
		store := sqlite.NewKVStore(s.SQLitePath, logger)
		return store, store, nil
	case "mongo":
		store := mongo.NewKVStore(s.MongoURL, s.MongoName, logger)
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", s.StoreDriver)
	}
}
