// SPDX-License-Identifier: MIT

// Package config loads the service configuration with precedence
// ENV > YAML file > defaults. YAML is parsed strictly: unknown keys fail.
package config

import "time"

// AppConfig is the effective configuration.
type AppConfig struct {
	Version string `yaml:"-"`

	ListenAddr      string        `yaml:"listenAddr"`
	LogLevel        string        `yaml:"logLevel"`
	LogService      string        `yaml:"logService"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`

	Actor     ActorConfig     `yaml:"actor"`
	SSE       SSEConfig       `yaml:"sse"`
	Store     StoreConfig     `yaml:"store"`
	Bus       BusConfig       `yaml:"bus"`
	API       APIConfig       `yaml:"api"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ActorConfig sizes the event loop.
type ActorConfig struct {
	QueueSize       int           `yaml:"queueSize"`
	CacheCapacity   int           `yaml:"cacheCapacity"`
	SessionBuffer   int           `yaml:"sessionBuffer"`
	SubmitTimeout   time.Duration `yaml:"submitTimeout"`
	DeliveryTimeout time.Duration `yaml:"deliveryTimeout"`
	StoreTimeout    time.Duration `yaml:"storeTimeout"`
	DrainTimeout    time.Duration `yaml:"drainTimeout"`
}

// SSEConfig tunes the push stream.
type SSEConfig struct {
	KeepAliveInterval time.Duration `yaml:"keepAliveInterval"`
	KeepAliveText     string        `yaml:"keepAliveText"`
}

// StoreConfig selects the report store.
type StoreConfig struct {
	Backend  string         `yaml:"backend"`
	DynamoDB DynamoDBConfig `yaml:"dynamodb"`
	Redis    RedisConfig    `yaml:"redis"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Badger   BadgerConfig   `yaml:"badger"`
}

type DynamoDBConfig struct {
	Region          string `yaml:"region"`
	Table           string `yaml:"table"`
	UserIndex       string `yaml:"userIndex"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"accessKeyId,omitempty"`
	SecretAccessKey string `yaml:"secretAccessKey,omitempty"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password,omitempty"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"keyPrefix"`
}

type SQLiteConfig struct {
	Path        string        `yaml:"path"`
	BusyTimeout time.Duration `yaml:"busyTimeout"`
}

type BadgerConfig struct {
	Dir      string `yaml:"dir"`
	InMemory bool   `yaml:"inMemory"`
}

// BusConfig selects the message transport.
type BusConfig struct {
	Backend    string      `yaml:"backend"`
	Topic      string      `yaml:"topic"`
	OutboxSize int         `yaml:"outboxSize"`
	Kafka      KafkaConfig `yaml:"kafka"`
}

type KafkaConfig struct {
	Brokers        []string      `yaml:"brokers"`
	GroupID        string        `yaml:"groupId"`
	ClientID       string        `yaml:"clientId"`
	SessionTimeout time.Duration `yaml:"sessionTimeout"`
	MessageTimeout time.Duration `yaml:"messageTimeout"`
}

// APIConfig covers the HTTP ingress stack.
type APIConfig struct {
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

type RateLimitConfig struct {
	Enabled bool `yaml:"enabled"`
	RPS     int  `yaml:"rps"`
	Burst   int  `yaml:"burst"`
}

// TelemetryConfig configures OTLP tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	Environment  string  `yaml:"environment"`
	SamplingRate float64 `yaml:"samplingRate"`
}
