// Package config reads the settings of both binaries from a .env file and the
// environment, and rejects incomplete configurations before anything connects.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Redis       RedisConfig
	Outbox      OutboxConfig
	WorkerPool  WorkerPoolConfig
	Ledger      LedgerConfig

	// Source is the config file that was read, empty when only the
	// environment and defaults were used
	Source string
}

type ApplicationConfig struct {
	Env  string
	Name string
}

type LoggingConfig struct {
	Level  string
	Format string // json or text
}

// ServerConfig configures the api_gateway HTTP listener
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
}

// KafkaConfig is shared by the outbox relay producer, the reconciliation
// consumer and the DLQ producer
type KafkaConfig struct {
	Brokers             string
	ReconciliationTopic string
	NumPartitions       int
	ReplicationFactor   int
	ConsumerGroup       string
	MinBytes            int
	MaxBytes            int
	MaxWait             time.Duration
	StartOffset         int64
	DLQTopic            string
}

type PostgresConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
}

// MongoDBConfig points at the reconciliation task log
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	IdempotencyTTL time.Duration // How long a completed key replays its result
}

type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int // Relays before a message is parked as FAILED_TO_PUBLISH
}

type WorkerPoolConfig struct {
	Size int
}

// LedgerConfig tunes the ledger core and its store
type LedgerConfig struct {
	ClusterWindow    time.Duration // Max created_at distance of records grouped without an expense reference
	StoreTimeout     time.Duration // Deadline of each unit-of-work attempt
	StoreMaxAttempts int           // Attempts per unit of work, including the first
	StoreBackoff     time.Duration
	ListLimit        int // Default page size for expense listings
}

const maxListLimit = 1000

// violations collects every invalid setting so a misconfigured deployment
// sees all of them in one run
type violations []string

func (v *violations) check(ok bool, format string, args ...any) {
	if !ok {
		*v = append(*v, fmt.Sprintf(format, args...))
	}
}

func (v *violations) required(key, value string) {
	v.check(value != "", "%s is required", key)
}

func (v *violations) positive(key string, ok bool) {
	v.check(ok, "%s must be greater than 0", key)
}

func (c *Config) validate() error {
	var v violations

	v.check(c.Logging.Format == "json" || c.Logging.Format == "text", "LOG_FORMAT must be json or text")

	v.positive("SERVER_PORT", c.Server.Port > 0)
	v.positive("SERVER_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout > 0)
	v.positive("SERVER_READ_TIMEOUT", c.Server.ReadTimeout > 0)
	v.positive("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout > 0)
	v.positive("SERVER_IDLE_TIMEOUT", c.Server.IdleTimeout > 0)

	v.required("KAFKA_BROKERS", c.Kafka.Brokers)
	v.required("KAFKA_RECONCILIATION_TOPIC", c.Kafka.ReconciliationTopic)
	v.required("KAFKA_CONSUMER_GROUP", c.Kafka.ConsumerGroup)
	v.positive("KAFKA_CONSUMER_MIN_BYTES", c.Kafka.MinBytes > 0)
	v.check(c.Kafka.MaxBytes >= c.Kafka.MinBytes, "KAFKA_CONSUMER_MAX_BYTES must not be below KAFKA_CONSUMER_MIN_BYTES")
	v.positive("KAFKA_CONSUMER_MAX_WAIT", c.Kafka.MaxWait > 0)
	v.check(c.Kafka.DLQTopic != c.Kafka.ReconciliationTopic, "KAFKA_DLQ_TOPIC must differ from KAFKA_RECONCILIATION_TOPIC")

	v.required("POSTGRES_URL", c.Postgres.URL)
	v.positive("POSTGRES_MAX_CONNS", c.Postgres.MaxConns > 0)
	v.check(c.Postgres.MinConns >= 0 && c.Postgres.MinConns <= c.Postgres.MaxConns, "POSTGRES_MIN_CONNS must be between 0 and POSTGRES_MAX_CONNS")
	v.positive("POSTGRES_MAX_CONN_LIFETIME", c.Postgres.ConnMaxLifetime > 0)
	v.positive("POSTGRES_MAX_CONN_IDLE_TIME", c.Postgres.ConnMaxIdleTime > 0)
	v.required("POSTGRES_MIGRATIONS_PATH", c.Postgres.MigrationsPath)

	v.required("MONGO_URI", c.MongoDB.URI)
	v.required("MONGO_DATABASE", c.MongoDB.Database)
	v.positive("MONGO_TIMEOUT", c.MongoDB.Timeout > 0)
	v.positive("MONGO_MAX_POOL_SIZE", c.MongoDB.MaxPoolSize > 0)
	v.check(c.MongoDB.MinPoolSize <= c.MongoDB.MaxPoolSize, "MONGO_MIN_POOL_SIZE must not exceed MONGO_MAX_POOL_SIZE")

	v.required("REDIS_ADDR", c.Redis.Addr)
	v.positive("REDIS_IDEMPOTENCY_TTL", c.Redis.IdempotencyTTL > 0)

	v.positive("OUTBOX_POLLING_INTERVAL", c.Outbox.PollingInterval > 0)
	v.positive("OUTBOX_BATCH_SIZE", c.Outbox.BatchSize > 0)
	v.positive("OUTBOX_MAX_RETRY_ATTEMPTS", c.Outbox.MaxRetryAttempts > 0)

	v.positive("WORKER_POOL_SIZE", c.WorkerPool.Size > 0)

	v.check(c.Ledger.ClusterWindow >= 0, "LEDGER_CLUSTER_WINDOW must not be negative")
	v.positive("LEDGER_STORE_TIMEOUT", c.Ledger.StoreTimeout > 0)
	v.positive("LEDGER_STORE_MAX_ATTEMPTS", c.Ledger.StoreMaxAttempts > 0)
	v.check(c.Ledger.StoreBackoff >= 0, "LEDGER_STORE_BACKOFF must not be negative")
	v.check(c.Ledger.ListLimit > 0 && c.Ledger.ListLimit <= maxListLimit, "LEDGER_LIST_LIMIT must be between 1 and %d", maxListLimit)

	if len(v) > 0 {
		return errors.New(strings.Join(v, ", "))
	}
	return nil
}
