package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
)

const envPrefix = "OPENFINANCE_"

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	CacheMemory     = "memory"
	CacheRedis      = "redis"
	EventsLog       = "log"
	EventsKafka     = "kafka"
)

type Config struct {
	Primary     Primary           `koanf:"primary"`
	Server      ServerConfig      `koanf:"server"`
	Storage     StorageConfig     `koanf:"storage"`
	Database    DatabaseConfig    `koanf:"database"`
	Redis       RedisConfig       `koanf:"redis"`
	Kafka       KafkaConfig       `koanf:"kafka"`
	Events      EventsConfig      `koanf:"events"`
	Auth        AuthConfig        `koanf:"auth"`
	Ledger      LedgerConfig      `koanf:"ledger"`
	Retry       RetryConfig       `koanf:"retry"`
	Logger      LoggerConfig      `koanf:"logger"`
	Worker      WorkerConfig      `koanf:"worker"`
	Idempotency IdempotencyConfig `koanf:"idempotency"`
	Cache       CacheConfig       `koanf:"cache"`
	Policy      PolicyConfig      `koanf:"policy"`
	Sandbox     SandboxConfig     `koanf:"sandbox"`
}

type WorkerConfig struct {
	Interval  time.Duration `koanf:"interval" validate:"required"`
	BatchSize int           `koanf:"batch_size" validate:"required,min=1"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port           string        `koanf:"port" validate:"required"`
	ReadTimeout    time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout   time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout    time.Duration `koanf:"idle_timeout" validate:"required"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"required"`
}

type StorageConfig struct {
	Driver string `koanf:"driver" validate:"required,oneof=memory postgres"`
}

// DatabaseConfig is only required when storage.driver is postgres.
type DatabaseConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	Name            string        `koanf:"name"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

type RedisConfig struct {
	URL          string        `koanf:"url"`
	PoolSize     int           `koanf:"pool_size"`
	MinIdleConns int           `koanf:"min_idle_conns"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	KeyPrefix    string        `koanf:"key_prefix"`
}

type KafkaConfig struct {
	Brokers  []string `koanf:"brokers"`
	Topic    string   `koanf:"topic"`
	ClientID string   `koanf:"client_id"`
}

type EventsConfig struct {
	Driver string `koanf:"driver" validate:"required,oneof=log kafka"`
}

type AuthConfig struct {
	Enabled   bool   `koanf:"enabled"`
	JWTSecret string `koanf:"jwt_secret"`
	Issuer    string `koanf:"issuer"`
}

type LedgerConfig struct {
	BaseURL     string        `koanf:"base_url"`
	ConnTimeout time.Duration `koanf:"conn_timeout" validate:"required"`
}

type RetryConfig struct {
	BaseDelay  time.Duration `koanf:"base_delay"`
	MaxRetries int32         `koanf:"max_retries" validate:"min=1"`
}

type LoggerConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"omitempty,oneof=text json"`
}

// SandboxConfig seeds the in-process ledger and payee directory used when
// no external ledger is configured. Entries are "key=value".
type SandboxConfig struct {
	Balances        []string `koanf:"balances"`
	Payees          []string `koanf:"payees"`
	DeniedCreditors []string `koanf:"denied_creditors"`
}

type IdempotencyConfig struct {
	TTL         time.Duration `koanf:"ttl" validate:"required"`
	Capacity    int           `koanf:"capacity" validate:"required,min=1"`
	LockTimeout time.Duration `koanf:"lock_timeout" validate:"required"`
}

type CacheConfig struct {
	Driver   string        `koanf:"driver" validate:"required,oneof=memory redis"`
	TTL      time.Duration `koanf:"ttl" validate:"required"`
	Capacity int           `koanf:"capacity" validate:"required,min=1"`
}

type PolicyConfig struct {
	CloseMatchThreshold       int           `koanf:"close_match_threshold" validate:"min=1,max=99"`
	BulkMaxFileBytes          int           `koanf:"bulk_max_file_bytes" validate:"required,min=1"`
	BulkStatusPollsToComplete int           `koanf:"bulk_status_polls_to_complete" validate:"required,min=1"`
	FXQuoteValidity           time.Duration `koanf:"fx_quote_validity" validate:"required"`
	InsuranceQuoteValidity    time.Duration `koanf:"insurance_quote_validity" validate:"required"`
	VRPLockTimeout            time.Duration `koanf:"vrp_lock_timeout" validate:"required"`
	RiskSinglePaymentLimit    string        `koanf:"risk_single_payment_limit" validate:"required"`
}

// defaults are loaded before the environment so a bare environment boots
// the single-instance in-memory deployment.
var defaults = map[string]any{
	"primary.env":                          "development",
	"server.port":                          "8080",
	"server.read_timeout":                  "10s",
	"server.write_timeout":                 "10s",
	"server.idle_timeout":                  "60s",
	"server.request_timeout":               "30s",
	"storage.driver":                       StorageMemory,
	"database.ssl_mode":                    "disable",
	"database.max_open_conns":              10,
	"database.max_idle_conns":              2,
	"database.conn_max_lifetime":           "1h",
	"database.conn_max_idle_time":          "30m",
	"redis.pool_size":                      10,
	"redis.dial_timeout":                   "5s",
	"redis.read_timeout":                   "3s",
	"redis.write_timeout":                  "3s",
	"redis.key_prefix":                     "openfinance:",
	"kafka.topic":                          "openfinance.events",
	"kafka.client_id":                      "openfinance-gateway",
	"events.driver":                        EventsLog,
	"ledger.conn_timeout":                  "10s",
	"retry.base_delay":                     "1s",
	"retry.max_retries":                    3,
	"logger.level":                         "info",
	"logger.format":                        "text",
	"worker.interval":                      "1m",
	"worker.batch_size":                    100,
	"idempotency.ttl":                      "24h",
	"idempotency.capacity":                 100000,
	"idempotency.lock_timeout":             "5s",
	"cache.driver":                         CacheMemory,
	"cache.ttl":                            "60s",
	"cache.capacity":                       10000,
	"policy.close_match_threshold":         85,
	"policy.bulk_max_file_bytes":           1 << 20,
	"policy.bulk_status_polls_to_complete": 2,
	"policy.fx_quote_validity":             "5m",
	"policy.insurance_quote_validity":      "24h",
	"policy.vrp_lock_timeout":              "5s",
	"policy.risk_single_payment_limit":     "50000",
}

// listSeparators names the keys read from the environment as lists. Payee
// names may contain commas, so the sandbox lists use semicolons.
var listSeparators = map[string]string{
	"kafka.brokers":            ",",
	"sandbox.balances":         ",",
	"sandbox.payees":           ";",
	"sandbox.denied_creditors": ";",
}

func splitList(value, sep string) []string {
	var out []string
	for _, part := range strings.Split(value, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		logger.Error("failed to load config defaults", "error", err)
		return nil, err
	}

	err := k.Load(env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, any) {
		key = strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(key, envPrefix)),
			"__",
			".",
		)
		if sep, ok := listSeparators[key]; ok {
			return key, splitList(value, sep)
		}
		return key, value
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	if err := mainConfig.Validate(); err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}

// Validate runs the struct tag rules and the checks that depend on which
// drivers are selected.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}

	if c.Storage.Driver == StoragePostgres {
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("database host and name are required for the postgres storage driver")
		}
	}
	if c.Cache.Driver == CacheRedis && c.Redis.URL == "" {
		return fmt.Errorf("redis.url is required for the redis cache driver")
	}
	if c.Events.Driver == EventsKafka && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("kafka.brokers and kafka.topic are required for the kafka events driver")
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required when auth is enabled")
	}
	return nil
}
