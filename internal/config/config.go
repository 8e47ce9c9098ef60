package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Name     string `yaml:"name" envconfig:"APP_NAME"`
	Port     string `yaml:"port" envconfig:"APP_PORT"`
	Env      string `yaml:"env" envconfig:"APP_ENV"`
	LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL"`
}

type PostgresConfig struct {
	Host            string        `yaml:"host" envconfig:"DB_HOST"`
	Port            string        `yaml:"port" envconfig:"DB_PORT"`
	User            string        `yaml:"user" envconfig:"DB_USER"`
	Password        string        `yaml:"password" envconfig:"DB_PASSWORD"`
	DBName          string        `yaml:"dbname" envconfig:"DB_NAME"`
	SSLMode         string        `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConns        int32         `yaml:"max_conns" envconfig:"DB_MAX_CONNS"`
	MinConns        int32         `yaml:"min_conns" envconfig:"DB_MIN_CONNS"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" envconfig:"DB_MAX_CONN_LIFETIME"`
	MigrationsPath  string        `yaml:"migrations_path" envconfig:"DB_MIGRATIONS_PATH"`
}

// TxConfig bounds retries of a transaction that failed on a serialization
// failure or deadlock.
type TxConfig struct {
	MaxAttempts     uint          `yaml:"max_attempts" envconfig:"TX_MAX_ATTEMPTS"`
	InitialInterval time.Duration `yaml:"initial_interval" envconfig:"TX_RETRY_INTERVAL"`
}

type KafkaConfig struct {
	Enabled    bool     `yaml:"enabled" envconfig:"KAFKA_ENABLED"`
	Brokers    []string `yaml:"brokers" envconfig:"KAFKA_BROKERS"`
	OrderTopic string   `yaml:"order_topic" envconfig:"KAFKA_ORDER_TOPIC"`
	AdminTopic string   `yaml:"admin_topic" envconfig:"KAFKA_ADMIN_TOPIC"`
}

type NotifyConfig struct {
	Timeout time.Duration `yaml:"timeout" envconfig:"NOTIFY_TIMEOUT"`
}

type Config struct {
	App      AppConfig      `yaml:"app"`
	Postgres PostgresConfig `yaml:"postgres"`
	Tx       TxConfig       `yaml:"tx"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Notify   NotifyConfig   `yaml:"notify"`
}

func defaults() *Config {
	cfg := &Config{}
	cfg.App.Name = "storefront"
	cfg.App.Port = "8080"
	cfg.App.Env = "development"
	cfg.App.LogLevel = "debug"
	cfg.Postgres.SSLMode = "disable"
	cfg.Postgres.MaxConns = 10
	cfg.Postgres.MinConns = 2
	cfg.Postgres.MaxConnLifetime = 30 * time.Minute
	cfg.Postgres.MigrationsPath = "migrations"
	cfg.Tx.MaxAttempts = 3
	cfg.Tx.InitialInterval = 50 * time.Millisecond
	cfg.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Kafka.OrderTopic = "orders.placed"
	cfg.Kafka.AdminTopic = "orders.admin"
	cfg.Notify.Timeout = 10 * time.Second
	return cfg
}

// NewConfig builds the configuration from defaults, an optional YAML file
// named by CONFIG_FILE, and the environment (an optional .env is loaded
// first). Environment variables win over the file.
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	sections := []any{&cfg.App, &cfg.Postgres, &cfg.Tx, &cfg.Kafka, &cfg.Notify}
	for _, section := range sections {
		if err := envconfig.Process("", section); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return nil
}

func (c *Config) validate() error {
	required := map[string]string{
		"DB_HOST":     c.Postgres.Host,
		"DB_PORT":     c.Postgres.Port,
		"DB_USER":     c.Postgres.User,
		"DB_PASSWORD": c.Postgres.Password,
		"DB_NAME":     c.Postgres.DBName,
	}
	for _, key := range []string{"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME"} {
		if required[key] == "" {
			return fmt.Errorf("%s is required", key)
		}
	}

	if c.Tx.MaxAttempts == 0 {
		return errors.New("TX_MAX_ATTEMPTS must be at least 1")
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("KAFKA_BROKERS is required when kafka is enabled")
	}

	return nil
}
