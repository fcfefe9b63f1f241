// Package cli wires configuration into a running service desk: ticketing
// backend, stores, publisher, metrics and the chat loop.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/servicedesk"
	"github.com/aretw0/servicedesk/internal/config"
	"github.com/aretw0/servicedesk/internal/logging"
	"github.com/aretw0/servicedesk/pkg/adapters/file"
	"github.com/aretw0/servicedesk/pkg/adapters/kafka"
	"github.com/aretw0/servicedesk/pkg/adapters/memory"
	"github.com/aretw0/servicedesk/pkg/adapters/postgres"
	"github.com/aretw0/servicedesk/pkg/adapters/redis"
	"github.com/aretw0/servicedesk/pkg/adapters/servicenow"
	"github.com/aretw0/servicedesk/pkg/domain"
	"github.com/aretw0/servicedesk/pkg/observability"
	"github.com/aretw0/servicedesk/pkg/persistence/middleware"
	"github.com/aretw0/servicedesk/pkg/ports"
	"github.com/aretw0/servicedesk/pkg/responses"
	"github.com/aretw0/servicedesk/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	backend "github.com/redis/go-redis/v9"
)

// Stack is a fully wired service desk.
type Stack struct {
	Config   *config.Config
	Engine   *servicedesk.Engine
	Sessions *session.Manager
	Catalog  *responses.Catalog
	Registry *prometheus.Registry
	Logger   *slog.Logger

	redis   *backend.Client
	closers []func() error
}

// NewLogger returns the application logger: debug level when debug is set,
// the configured level otherwise. Quiet callers (the chat) get a no-op
// logger unless debugging.
func NewLogger(cfg *config.Config, debug, quiet bool) *slog.Logger {
	switch {
	case debug:
		return logging.New(slog.LevelDebug)
	case quiet:
		return logging.NewNop()
	default:
		return logging.New(cfg.Level())
	}
}

// Build connects every backend named by cfg. On error, whatever was already
// opened is closed.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Stack, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Stack{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}
	if err := s.build(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Stack) build(ctx context.Context) error {
	cfg := s.Config

	catalog := responses.Default()
	if cfg.Responses != "" {
		var err error
		if catalog, err = responses.Load(cfg.Responses); err != nil {
			return err
		}
	}
	s.Catalog = catalog

	s.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(s.Registry)

	opts := []servicedesk.Option{
		servicedesk.WithLogger(s.Logger),
		servicedesk.WithLifecycleHooks(observability.Chain(metrics.Hooks(), observability.LogHooks(s.Logger))),
		servicedesk.WithLocalMode(cfg.IsLocal()),
	}
	if len(cfg.Priorities) > 0 {
		opts = append(opts, servicedesk.WithVocabulary(domain.PriorityVocabulary(cfg.Priorities)))
	}

	if !cfg.IsLocal() {
		tickets, err := servicenow.NewClient(servicenow.Config{
			Instance:   cfg.ServiceNow.Instance,
			BaseURL:    cfg.ServiceNow.BaseURL,
			User:       cfg.ServiceNow.User,
			Password:   cfg.ServiceNow.Password,
			Timeout:    cfg.ServiceNow.Timeout,
			Priorities: domain.PriorityVocabulary(cfg.Priorities),
		}, servicenow.WithLogger(s.Logger))
		if err != nil {
			return err
		}
		opts = append(opts, servicedesk.WithTicketClient(tickets))
	}

	records, err := s.recordStore(ctx)
	if err != nil {
		return err
	}
	opts = append(opts, servicedesk.WithRecordStore(records))

	if len(cfg.Kafka.Brokers) > 0 {
		pub := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, kafka.WithLogger(s.Logger))
		s.closers = append(s.closers, pub.Close)
		opts = append(opts, servicedesk.WithPublisher(pub))
	}

	s.Engine = servicedesk.New(opts...)

	store, mgrOpts, err := s.sessionStore()
	if err != nil {
		return err
	}
	if store, err = s.sealSessions(store); err != nil {
		return err
	}
	mgrOpts = append(mgrOpts, session.WithLogger(s.Logger))
	s.Sessions = session.NewManager(store, s.Engine, mgrOpts...)

	s.Logger.Info("service desk ready",
		"local_mode", s.Engine.LocalMode(),
		"sessions", cfg.Sessions.Backend,
		"records", cfg.Records.Backend,
		"kafka", len(cfg.Kafka.Brokers) > 0,
	)
	return nil
}

// redisClient opens the shared Redis connection on first use.
func (s *Stack) redisClient() *backend.Client {
	if s.redis == nil {
		s.redis = redis.NewClient(s.Config.Redis.Addr, s.Config.Redis.Password, s.Config.Redis.DB)
		s.closers = append(s.closers, s.redis.Close)
	}
	return s.redis
}

func (s *Stack) recordStore(ctx context.Context) (ports.RecordStore, error) {
	cfg := s.Config
	switch cfg.Records.Backend {
	case "", "memory":
		return memory.NewRecords(), nil
	case "file":
		return file.NewRecords(cfg.Records.Dir), nil
	case "redis":
		return redis.NewRecords(s.redisClient(), cfg.Redis.Prefix), nil
	case "postgres":
		if cfg.Records.PostgresDSN == "" {
			return nil, errors.New("records backend postgres requires a dsn")
		}
		records, err := postgres.Open(ctx, cfg.Records.PostgresDSN, cfg.Records.Table)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() error {
			records.Close()
			return nil
		})
		return records, nil
	default:
		return nil, fmt.Errorf("unknown records backend %q", cfg.Records.Backend)
	}
}

func (s *Stack) sessionStore() (ports.SessionStore, []session.Option, error) {
	cfg := s.Config
	switch cfg.Sessions.Backend {
	case "", "memory":
		return memory.NewStore(), nil, nil
	case "file":
		return file.New(cfg.Sessions.Dir), nil, nil
	case "redis":
		client := s.redisClient()
		store := redis.NewFromClient(client, redis.WithTTL(cfg.Sessions.TTL), redis.WithPrefix(cfg.Redis.Prefix))
		locker := redis.NewLocker(client, cfg.Redis.Prefix)
		return store, []session.Option{session.WithLocker(locker)}, nil
	default:
		return nil, nil, fmt.Errorf("unknown sessions backend %q", cfg.Sessions.Backend)
	}
}

// sealSessions wraps store with at-rest encryption when a key is configured.
func (s *Stack) sealSessions(store ports.SessionStore) (ports.SessionStore, error) {
	cfg := s.Config.Sessions
	if cfg.EncryptionKey == "" {
		return store, nil
	}

	active, err := middleware.ParseKey(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("sessions encryption key: %w", err)
	}
	enc := middleware.EncryptionConfig{ActiveKey: active}
	for i, k := range cfg.FallbackKeys {
		key, err := middleware.ParseKey(k)
		if err != nil {
			return nil, fmt.Errorf("sessions fallback key %d: %w", i, err)
		}
		enc.FallbackKeys = append(enc.FallbackKeys, key)
	}

	mw, err := middleware.NewEncryptionMiddleware(enc)
	if err != nil {
		return nil, err
	}
	return mw(store), nil
}

// Close releases every connection the stack opened, newest first.
func (s *Stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
