package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/aquamarinepk/aqm"
)

const (
	DefaultDescriptor   = "config.json"
	DefaultPollInterval = 2 * time.Second
	DefaultPrintDelay   = 300 * time.Millisecond
	DefaultRetainPasses = 4
	DefaultStoreDriver  = "memory"
	DefaultSQLitePath   = "cocina.db"
	DefaultMongoURL     = "mongodb://localhost:27017"
	DefaultMongoName    = "cocina"
	DefaultNATSSubject  = "kitchen.display"
	DefaultStreamName   = "KITCHEN_DISPLAY"
	DefaultStreamMaxAge = 24 * time.Hour
)

// Settings is the typed view of the service configuration.
type Settings struct {
	Descriptor   string
	PollInterval time.Duration
	FeedTimeout  time.Duration
	Location     *time.Location
	PrintDelay   time.Duration
	RetainPasses int

	StoreDriver string
	SQLitePath  string
	MongoURL    string
	MongoName   string

	NATSURL     string
	NATSSubject string

	// StreamEnabled publishes into a JetStream stream instead of core NATS.
	StreamEnabled bool
	StreamName    string
	StreamMaxAge  time.Duration
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Settings {
	return Settings{
		Descriptor:   DefaultDescriptor,
		PollInterval: DefaultPollInterval,
		Location:     time.Local,
		PrintDelay:   DefaultPrintDelay,
		RetainPasses: DefaultRetainPasses,
		StoreDriver:  DefaultStoreDriver,
		SQLitePath:   DefaultSQLitePath,
		MongoURL:     DefaultMongoURL,
		MongoName:    DefaultMongoName,
		NATSSubject:  DefaultNATSSubject,
		StreamName:   DefaultStreamName,
		StreamMaxAge: DefaultStreamMaxAge,
	}
}

// Load reads the service settings from config, falling back to Defaults for
// every key that is not set.
func Load(config *aqm.Config) (Settings, error) {
	s := Defaults()
	if config == nil {
		return s, nil
	}

	if v, ok := config.GetString("feed.descriptor"); ok && v != "" {
		s.Descriptor = v
	}

	var err error
	if s.PollInterval, err = duration(config, "feed.interval", s.PollInterval); err != nil {
		return s, err
	}
	if s.PollInterval <= 0 {
		return s, fmt.Errorf("feed.interval must be positive")
	}
	if s.FeedTimeout, err = duration(config, "feed.timeout", s.FeedTimeout); err != nil {
		return s, err
	}
	if s.PrintDelay, err = duration(config, "print.delay", s.PrintDelay); err != nil {
		return s, err
	}

	if v, ok := config.GetString("print.retain_passes"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return s, fmt.Errorf("invalid print.retain_passes %q", v)
		}
		s.RetainPasses = n
	}

	if v, ok := config.GetString("display.location"); ok && v != "" {
		loc, err := time.LoadLocation(v)
		if err != nil {
			return s, fmt.Errorf("invalid display.location %q: %w", v, err)
		}
		s.Location = loc
	}

	if v, ok := config.GetString("store.driver"); ok && v != "" {
		switch v {
		case "memory", "sqlite", "mongo":
			s.StoreDriver = v
		default:
			return s, fmt.Errorf("unknown store.driver %q", v)
		}
	}
	if v, ok := config.GetString("store.sqlite.path"); ok && v != "" {
		s.SQLitePath = v
	}
	if v, ok := config.GetString("db.mongo.url"); ok && v != "" {
		s.MongoURL = v
	}
	if v, ok := config.GetString("db.mongo.name"); ok && v != "" {
		s.MongoName = v
	}

	s.NATSURL, _ = config.GetString("nats.url")
	if v, ok := config.GetString("nats.subject"); ok && v != "" {
		s.NATSSubject = v
	}

	if v, ok := config.GetString("nats.stream.enabled"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return s, fmt.Errorf("invalid nats.stream.enabled %q", v)
		}
		s.StreamEnabled = enabled
	}
	if v, ok := config.GetString("nats.stream.name"); ok && v != "" {
		s.StreamName = v
	}
	if s.StreamMaxAge, err = duration(config, "nats.stream.max_age", s.StreamMaxAge); err != nil {
		return s, err
	}

	return s, nil
}

func duration(config *aqm.Config, key string, fallback time.Duration) (time.Duration, error) {
	v, ok := config.GetString(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
