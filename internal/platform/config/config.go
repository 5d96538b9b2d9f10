// Package config assembles engine configuration from built-in defaults, an
// optional YAML file and FANAF_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/tariff"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/platform/secrets"
)

// Persistence backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Notifier backends.
const (
	NotifierNone  = "none"
	NotifierRedis = "redis"
	NotifierKafka = "kafka"
)

// Config is the full engine configuration.
type Config struct {
	// InstanceID names this engine in change signals. Generated when empty.
	InstanceID  string         `yaml:"instance_id"`
	Server      Server         `yaml:"server"`
	Persistence Persistence    `yaml:"persistence"`
	Redis       RedisConfig    `yaml:"redis"`
	Postgres    PostgresConfig `yaml:"postgres"`
	SQLite      SQLiteConfig   `yaml:"sqlite"`
	Notifier    NotifierConfig `yaml:"notifier"`
	Tariffs     TariffConfig   `yaml:"tariffs"`
	Breaker     BreakerConfig  `yaml:"breaker"`
	Audit       AuditConfig    `yaml:"audit"`
	Log         LogConfig      `yaml:"log"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `yaml:"addr"`
	MetricsAddr     string        `yaml:"metrics_addr"`
	JWTSigningKey   string        `yaml:"jwt_signing_key"`
	JWTIssuer       string        `yaml:"jwt_issuer"`
	JWTAudience     string        `yaml:"jwt_audience"`
	TokenTTL        time.Duration `yaml:"token_ttl"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Operators maps operator names to bcrypt hashes of their secrets, for
	// POST /tokens.
	Operators map[string]string `yaml:"operators"`
}

// Persistence selects the durable store.
type Persistence struct {
	Backend         string `yaml:"backend"`
	ConflictRetries int    `yaml:"conflict_retries"`
	HubBuffer       int    `yaml:"hub_buffer"`
}

// RedisConfig configures the shared Redis client.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	KeyPrefix    string        `yaml:"key_prefix"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// PostgresConfig configures the database pool.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// SQLiteConfig locates the local database file.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// NotifierConfig selects how instances tell each other about commits.
type NotifierConfig struct {
	Backend          string   `yaml:"backend"`
	RedisChannel     string   `yaml:"redis_channel"`
	KafkaBrokers     []string `yaml:"kafka_brokers"`
	KafkaTopic       string   `yaml:"kafka_topic"`
	KafkaPartitions  int32    `yaml:"kafka_partitions"`
	KafkaReplication int16    `yaml:"kafka_replication"`

	// ReconcileInterval is how often a full refresh catches up on signals
	// this instance missed. Zero disables it.
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
}

// TariffConfig holds amounts as decimal strings.
type TariffConfig struct {
	Member    string `yaml:"member"`
	NonMember string `yaml:"non_member"`
}

// BreakerConfig tunes the persistence circuit breaker.
type BreakerConfig struct {
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
	OpenTimeout         time.Duration `yaml:"open_timeout"`
	HalfOpenRequests    uint32        `yaml:"half_open_requests"`
}

// AuditConfig selects where committed batches are recorded.
type AuditConfig struct {
	Backend     string `yaml:"backend"`
	AsyncBuffer int    `yaml:"async_buffer"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration that runs a single in-memory instance.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			MetricsAddr:     ":9090",
			JWTSigningKey:   "dev-secret-key-change-in-production",
			JWTIssuer:       "fanaf-console",
			JWTAudience:     "finalization",
			TokenTTL:        12 * time.Hour,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Persistence: Persistence{
			Backend:         BackendMemory,
			ConflictRetries: 3,
			HubBuffer:       64,
		},
		Redis: RedisConfig{
			KeyPrefix:    "fanaf:",
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Postgres: PostgresConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		SQLite: SQLiteConfig{Path: "fanaf.db"},
		Notifier: NotifierConfig{
			Backend:          NotifierNone,
			RedisChannel:     "fanaf:registrations:changes",
			KafkaTopic:       "fanaf.registrations.changes",
			KafkaPartitions:  1,
			KafkaReplication: 1,

			ReconcileInterval: 30 * time.Second,
		},
		Tariffs: TariffConfig{
			Member:    tariff.DefaultMember.String(),
			NonMember: tariff.DefaultNonMember.String(),
		},
		Breaker: BreakerConfig{
			ConsecutiveFailures: 5,
			OpenTimeout:         30 * time.Second,
			HalfOpenRequests:    1,
		},
		Audit: AuditConfig{Backend: BackendMemory, AsyncBuffer: 256},
		Log:   LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads path (optional) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("FANAF_INSTANCE_ID", &c.InstanceID)
	str("FANAF_ADDR", &c.Server.Addr)
	str("FANAF_METRICS_ADDR", &c.Server.MetricsAddr)
	str("FANAF_JWT_SIGNING_KEY", &c.Server.JWTSigningKey)
	str("FANAF_PERSISTENCE", &c.Persistence.Backend)
	str("FANAF_REDIS_URL", &c.Redis.URL)
	str("FANAF_REDIS_KEY_PREFIX", &c.Redis.KeyPrefix)
	str("FANAF_POSTGRES_DSN", &c.Postgres.DSN)
	str("FANAF_SQLITE_PATH", &c.SQLite.Path)
	str("FANAF_NOTIFIER", &c.Notifier.Backend)
	str("FANAF_REDIS_CHANNEL", &c.Notifier.RedisChannel)
	str("FANAF_KAFKA_TOPIC", &c.Notifier.KafkaTopic)
	str("FANAF_TARIFF_MEMBER", &c.Tariffs.Member)
	str("FANAF_TARIFF_NON_MEMBER", &c.Tariffs.NonMember)
	str("FANAF_AUDIT", &c.Audit.Backend)
	str("FANAF_LOG_LEVEL", &c.Log.Level)
	str("FANAF_LOG_FORMAT", &c.Log.Format)

	if v, ok := lookup("FANAF_KAFKA_BROKERS"); ok && v != "" {
		var brokers []string
		for b := range strings.SplitSeq(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		c.Notifier.KafkaBrokers = brokers
	}
	if v, ok := lookup("FANAF_TOKEN_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("FANAF_TOKEN_TTL: %w", err)
		}
		c.Server.TokenTTL = d
	}
	if v, ok := lookup("FANAF_CONFLICT_RETRIES"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FANAF_CONFLICT_RETRIES: %w", err)
		}
		c.Persistence.ConflictRetries = n
	}
	return nil
}

// Validate reports every inconsistency at once.
func (c Config) Validate() error {
	var errs []error
	switch c.Persistence.Backend {
	case BackendMemory, BackendSQLite:
	case BackendRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis persistence requires redis.url"))
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("postgres persistence requires postgres.dsn"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown persistence backend %q", c.Persistence.Backend))
	}

	switch c.Notifier.Backend {
	case NotifierNone, "":
	case NotifierRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis notifier requires redis.url"))
		}
	case NotifierKafka:
		if len(c.Notifier.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("kafka notifier requires notifier.kafka_brokers"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown notifier backend %q", c.Notifier.Backend))
	}

	switch c.Audit.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("postgres audit requires postgres.dsn"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown audit backend %q", c.Audit.Backend))
	}

	if c.Server.JWTSigningKey == "" {
		errs = append(errs, errors.New("server.jwt_signing_key is required"))
	}
	for _, name := range slices.Sorted(maps.Keys(c.Server.Operators)) {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, errors.New("server.operators: operator name must not be empty"))
			continue
		}
		if err := secrets.CheckHash(c.Server.Operators[name]); err != nil {
			errs = append(errs, fmt.Errorf("server.operators.%s: %w", name, err))
		}
	}
	if c.Persistence.ConflictRetries < 0 {
		errs = append(errs, errors.New("persistence.conflict_retries must not be negative"))
	}
	if _, err := c.Tariffs.Schedule(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Schedule parses the configured tariffs.
func (t TariffConfig) Schedule() (tariff.Schedule, error) {
	member, err := decimal.NewFromString(t.Member)
	if err != nil {
		return tariff.Schedule{}, fmt.Errorf("tariffs.member: %w", err)
	}
	nonMember, err := decimal.NewFromString(t.NonMember)
	if err != nil {
		return tariff.Schedule{}, fmt.Errorf("tariffs.non_member: %w", err)
	}
	if member.IsNegative() || nonMember.IsNegative() {
		return tariff.Schedule{}, errors.New("tariffs must not be negative")
	}
	return tariff.Schedule{Member: member, NonMember: nonMember}, nil
}
