// Package engine assembles one finalization engine instance from
// configuration: persistence, registration store, change hub, aggregate view,
// audit trail, finalization service and the HTTP surface.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	// database/sql drivers
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/aggregate"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/changefeed"
	finmetrics "github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/finalization/metrics"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/finalization/handler"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/finalization/service"
	jwttoken "github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/jwt_token"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/persistence"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/platform/config"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/platform/metrics"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/platform/middleware"
	platformredis "github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/platform/redis"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/group"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/index"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/store"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/tariff"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/platform/audit"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/platform/audit/publisher"
	auditmemory "github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/platform/audit/store/memory"
	auditpostgres "github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/platform/audit/store/postgres"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/platform/httputil"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/platform/middleware/requesttime"
)

const tracerName = "github.com/jeanchristophedibi/fanaf-back-next-sub000/finalization"

// Engine is one running instance. Fields are exposed for the CLI and tests;
// treat them as read-only.
type Engine struct {
	Config  config.Config
	Logger  *slog.Logger
	Tariffs *tariff.Resolver
	Store   *store.Store
	Groups  *group.Resolver
	Hub     *changefeed.Hub
	View    *aggregate.View
	Audit   *publisher.Publisher
	Service *service.Service
	Tokens  *jwttoken.JWTService
	Metrics *metrics.Metrics

	guard    *persistence.Guard
	registry *prometheus.Registry
	notifier changefeed.Notifier
	redis    *platformredis.Client
	db       *sql.DB
	closers  []func() error
}

// Option overrides a piece of the wiring, mostly for tests and embedding.
type Option func(*options)

type options struct {
	adapter    persistence.Adapter
	notifier   changefeed.Notifier
	auditStore audit.Store
}

// WithAdapter uses adapter instead of the configured persistence backend.
// Instances given the same in-memory adapter behave like instances sharing a
// database.
func WithAdapter(adapter persistence.Adapter) Option {
	return func(o *options) { o.adapter = adapter }
}

// WithNotifier uses notifier instead of the configured notifier backend.
func WithNotifier(notifier changefeed.Notifier) Option {
	return func(o *options) { o.notifier = notifier }
}

// WithAuditStore records audit events in s instead of the configured backend.
func WithAuditStore(s audit.Store) Option {
	return func(o *options) { o.auditStore = s }
}

// Open wires an engine and loads the registration store from persistence.
// On error every resource opened so far is released.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (_ *Engine, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	e := &Engine{
		Config:   cfg,
		Logger:   logger.With("instance", cfg.InstanceID),
		registry: prometheus.NewRegistry(),
	}
	defer func() {
		if err != nil {
			_ = e.Close()
		}
	}()

	e.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	e.Metrics = metrics.NewWithRegisterer(e.registry)

	schedule, err := cfg.Tariffs.Schedule()
	if err != nil {
		return nil, err
	}
	if e.Tariffs, err = tariff.New(schedule); err != nil {
		return nil, err
	}

	adapter := o.adapter
	if adapter == nil {
		if adapter, err = e.openAdapter(ctx); err != nil {
			return nil, err
		}
	}
	e.guard = persistence.NewGuard("registrations", adapter, persistence.GuardConfig{
		ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
		OpenTimeout:         cfg.Breaker.OpenTimeout,
		HalfOpenRequests:    cfg.Breaker.HalfOpenRequests,
	},
		persistence.WithGuardLogger(e.Logger),
		persistence.WithStateListener(e.Metrics.SetBreakerState),
	)
	e.closers = append(e.closers, e.guard.Close)

	e.Store = store.New(e.guard, index.New(), e.Tariffs, store.WithLogger(e.Logger))
	if err := e.Store.Load(ctx); err != nil {
		return nil, fmt.Errorf("load registrations: %w", err)
	}
	e.Groups = group.New(e.Store, e.Tariffs)

	e.Hub = changefeed.NewHub(
		changefeed.WithBuffer(cfg.Persistence.HubBuffer),
		changefeed.WithLogger(e.Logger),
		changefeed.WithMetrics(e.Metrics),
	)
	e.View = aggregate.NewView(e.Store, e.Tariffs,
		aggregate.WithGauges(e.Metrics),
		aggregate.WithViewLogger(e.Logger),
	)
	e.View.Attach(e.Hub)

	auditStore := o.auditStore
	if auditStore == nil {
		if auditStore, err = e.openAuditStore(ctx); err != nil {
			return nil, err
		}
	}
	e.Audit = publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(cfg.Audit.AsyncBuffer),
		publisher.WithLogger(e.Logger),
	)

	e.Service = service.New(e.Store, e.Store.Index(), e.Groups, e.Hub, e.Tariffs,
		service.WithLogger(e.Logger),
		service.WithMetrics(finmetrics.NewWithRegisterer(e.registry)),
		service.WithTracer(otel.Tracer(tracerName)),
		service.WithAuditor(e.Audit),
		service.WithOrigin(cfg.InstanceID),
		service.WithConflictRetries(cfg.Persistence.ConflictRetries),
	)

	e.notifier = o.notifier
	if e.notifier == nil {
		if e.notifier, err = e.openNotifier(ctx); err != nil {
			return nil, err
		}
	}

	e.Tokens = jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)

	e.Logger.InfoContext(ctx, "engine ready",
		"persistence", cfg.Persistence.Backend,
		"notifier", cfg.Notifier.Backend,
		"registrations", e.Store.Len(),
	)
	return e, nil
}

func (e *Engine) openAdapter(ctx context.Context) (persistence.Adapter, error) {
	cfg := e.Config
	switch cfg.Persistence.Backend {
	case config.BackendMemory, "":
		return persistence.NewMemory(), nil
	case config.BackendRedis:
		client, err := e.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		return persistence.NewRedis(client.Client, persistence.WithKeyPrefix(cfg.Redis.KeyPrefix)), nil
	case config.BackendPostgres:
		db, err := e.postgres(ctx)
		if err != nil {
			return nil, err
		}
		return persistence.NewPostgres(db), nil
	case config.BackendSQLite:
		db, err := sql.Open("sqlite3", cfg.SQLite.Path+"?_busy_timeout=5000&_journal_mode=WAL")
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		db.SetMaxOpenConns(1)
		e.closers = append(e.closers, db.Close)
		return persistence.NewSQLite(ctx, db)
	default:
		return nil, fmt.Errorf("unknown persistence backend %q", cfg.Persistence.Backend)
	}
}

func (e *Engine) openAuditStore(ctx context.Context) (audit.Store, error) {
	switch e.Config.Audit.Backend {
	case config.BackendPostgres:
		db, err := e.postgres(ctx)
		if err != nil {
			return nil, err
		}
		return auditpostgres.New(db), nil
	default:
		return auditmemory.NewInMemoryStore(), nil
	}
}

func (e *Engine) openNotifier(ctx context.Context) (changefeed.Notifier, error) {
	cfg := e.Config.Notifier
	switch cfg.Backend {
	case config.NotifierRedis:
		client, err := e.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		return changefeed.NewRedisNotifier(client.Client, cfg.RedisChannel, e.Logger), nil
	case config.NotifierKafka:
		n, err := changefeed.NewKafkaNotifier(ctx, changefeed.KafkaConfig{
			Brokers:           cfg.KafkaBrokers,
			Topic:             cfg.KafkaTopic,
			Partitions:        cfg.KafkaPartitions,
			ReplicationFactor: cfg.KafkaReplication,
		}, e.Logger)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, n.Close)
		return n, nil
	default:
		return nil, nil
	}
}

// redisClient opens the shared client once; persistence and the notifier use
// the same pool.
func (e *Engine) redisClient(ctx context.Context) (*platformredis.Client, error) {
	if e.redis != nil {
		return e.redis, nil
	}
	client, err := platformredis.New(ctx, e.Config.Redis)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, errors.New("redis.url is not configured")
	}
	e.redis = client
	e.closers = append(e.closers, client.Close)
	return client, nil
}

// postgres opens and migrates the database once; registrations and the
// audit trail share it.
func (e *Engine) postgres(ctx context.Context) (*sql.DB, error) {
	if e.db != nil {
		return e.db, nil
	}
	cfg := e.Config.Postgres
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	e.closers = append(e.closers, db.Close)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := persistence.MigratePostgres(db); err != nil {
		return nil, err
	}
	e.db = db
	return db, nil
}

// Bridge links this instance to its peers, or returns nil when no notifier
// is configured.
func (e *Engine) Bridge() *changefeed.Bridge {
	if e.notifier == nil {
		return nil
	}
	return changefeed.NewBridge(e.Hub, e.notifier, e.Store, e.Tariffs, e.Config.InstanceID, e.Logger,
		changefeed.WithSignalRecorder(e.Metrics),
		changefeed.WithReconcileInterval(e.Config.Notifier.ReconcileInterval),
	)
}

// Router returns the HTTP API.
func (e *Engine) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestContext)
	r.Use(middleware.Logger(e.Logger))
	r.Use(chimw.Recoverer)
	if e.Config.Server.RequestTimeout > 0 {
		r.Use(chimw.Timeout(e.Config.Server.RequestTimeout))
	}
	r.Use(requesttime.Middleware)

	r.Get("/healthz", e.handleHealth)
	r.Post("/tokens", e.handleLogin)

	requireOperator := middleware.RequireOperator(jwttoken.NewJWTServiceAdapter(e.Tokens), e.Logger)
	handler.New(e.Service, e.Store, e.Groups, e.View, e.Logger).Register(r, requireOperator)
	return r
}

// MetricsHandler exposes this engine's Prometheus registry.
func (e *Engine) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{Registry: e.registry})
}

type healthResponse struct {
	Status        string `json:"status"`
	Instance      string `json:"instance"`
	Persistence   string `json:"persistence"`
	Registrations int    `json:"registrations"`
}

func (e *Engine) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:        "ok",
		Instance:      e.Config.InstanceID,
		Persistence:   e.guard.State(),
		Registrations: e.Store.Len(),
	}
	status := http.StatusOK
	if resp.Persistence == "open" {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, resp)
}

// Close releases resources in reverse order of acquisition. Queued audit
// events are flushed first.
func (e *Engine) Close() error {
	if e.View != nil {
		e.View.Detach()
	}
	if e.Hub != nil {
		e.Hub.Close()
	}
	if e.Audit != nil {
		e.Audit.Close()
	}
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}
