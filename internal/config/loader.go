// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/ManuGH/reportstream/internal/log"
	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader. An empty path skips the file.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func (l *Loader) envList(key string, defaultVal []string) []string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseList(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults, then
// validates the result.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)
	for _, key := range l.UnknownEnvKeys() {
		logger := log.WithComponent("config")
		logger.Warn().
			Str("key", key).
			Msg("ignoring unknown environment variable")
	}

	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes path over cfg with STRICT parsing. Keys absent from the
// file keep their current value.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	return decodeStrict(data, cfg)
}

func decodeStrict(data []byte, cfg *AppConfig) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("%w: %w", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return ErrMultipleDocuments
	}
	return nil
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	p := EnvPrefix

	cfg.ListenAddr = l.envString(p+"LISTEN_ADDR", cfg.ListenAddr)
	cfg.LogLevel = l.envString(p+"LOG_LEVEL", cfg.LogLevel)
	cfg.LogService = l.envString(p+"LOG_SERVICE", cfg.LogService)
	cfg.ShutdownTimeout = l.envDuration(p+"SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)

	a := &cfg.Actor
	a.QueueSize = l.envInt(p+"ACTOR_QUEUE_SIZE", a.QueueSize)
	a.CacheCapacity = l.envInt(p+"ACTOR_CACHE_CAPACITY", a.CacheCapacity)
	a.SessionBuffer = l.envInt(p+"ACTOR_SESSION_BUFFER", a.SessionBuffer)
	a.SubmitTimeout = l.envDuration(p+"ACTOR_SUBMIT_TIMEOUT", a.SubmitTimeout)
	a.DeliveryTimeout = l.envDuration(p+"ACTOR_DELIVERY_TIMEOUT", a.DeliveryTimeout)
	a.StoreTimeout = l.envDuration(p+"ACTOR_STORE_TIMEOUT", a.StoreTimeout)
	a.DrainTimeout = l.envDuration(p+"ACTOR_DRAIN_TIMEOUT", a.DrainTimeout)

	cfg.SSE.KeepAliveInterval = l.envDuration(p+"SSE_KEEPALIVE_INTERVAL", cfg.SSE.KeepAliveInterval)
	cfg.SSE.KeepAliveText = l.envString(p+"SSE_KEEPALIVE_TEXT", cfg.SSE.KeepAliveText)

	s := &cfg.Store
	s.Backend = l.envString(p+"STORE_BACKEND", s.Backend)
	s.DynamoDB.Region = l.envString(p+"DYNAMODB_REGION", s.DynamoDB.Region)
	s.DynamoDB.Table = l.envString(p+"DYNAMODB_TABLE", s.DynamoDB.Table)
	s.DynamoDB.UserIndex = l.envString(p+"DYNAMODB_USER_INDEX", s.DynamoDB.UserIndex)
	s.DynamoDB.Endpoint = l.envString(p+"DYNAMODB_ENDPOINT", s.DynamoDB.Endpoint)
	s.DynamoDB.AccessKeyID = l.envString(p+"DYNAMODB_ACCESS_KEY_ID", s.DynamoDB.AccessKeyID)
	s.DynamoDB.SecretAccessKey = l.envString(p+"DYNAMODB_SECRET_ACCESS_KEY", s.DynamoDB.SecretAccessKey)
	s.Redis.Addr = l.envString(p+"REDIS_ADDR", s.Redis.Addr)
	s.Redis.Password = l.envString(p+"REDIS_PASSWORD", s.Redis.Password)
	s.Redis.DB = l.envInt(p+"REDIS_DB", s.Redis.DB)
	s.Redis.KeyPrefix = l.envString(p+"REDIS_KEY_PREFIX", s.Redis.KeyPrefix)
	s.SQLite.Path = l.envString(p+"SQLITE_PATH", s.SQLite.Path)
	s.SQLite.BusyTimeout = l.envDuration(p+"SQLITE_BUSY_TIMEOUT", s.SQLite.BusyTimeout)
	s.Badger.Dir = l.envString(p+"BADGER_DIR", s.Badger.Dir)
	s.Badger.InMemory = l.envBool(p+"BADGER_IN_MEMORY", s.Badger.InMemory)

	b := &cfg.Bus
	b.Backend = l.envString(p+"BUS_BACKEND", b.Backend)
	b.Topic = l.envString(p+"BUS_TOPIC", b.Topic)
	b.OutboxSize = l.envInt(p+"BUS_OUTBOX_SIZE", b.OutboxSize)
	b.Kafka.Brokers = l.envList(p+"KAFKA_BROKERS", b.Kafka.Brokers)
	b.Kafka.GroupID = l.envString(p+"KAFKA_GROUP_ID", b.Kafka.GroupID)
	b.Kafka.ClientID = l.envString(p+"KAFKA_CLIENT_ID", b.Kafka.ClientID)
	b.Kafka.SessionTimeout = l.envDuration(p+"KAFKA_SESSION_TIMEOUT", b.Kafka.SessionTimeout)
	b.Kafka.MessageTimeout = l.envDuration(p+"KAFKA_MESSAGE_TIMEOUT", b.Kafka.MessageTimeout)

	cfg.API.CORS.AllowedOrigins = l.envList(p+"CORS_ALLOWED_ORIGINS", cfg.API.CORS.AllowedOrigins)
	cfg.API.RateLimit.Enabled = l.envBool(p+"RATE_LIMIT_ENABLED", cfg.API.RateLimit.Enabled)
	cfg.API.RateLimit.RPS = l.envInt(p+"RATE_LIMIT_RPS", cfg.API.RateLimit.RPS)
	cfg.API.RateLimit.Burst = l.envInt(p+"RATE_LIMIT_BURST", cfg.API.RateLimit.Burst)

	t := &cfg.Telemetry
	t.Enabled = l.envBool(p+"TELEMETRY_ENABLED", t.Enabled)
	t.Exporter = l.envString(p+"TELEMETRY_EXPORTER", t.Exporter)
	t.Endpoint = l.envString(p+"TELEMETRY_ENDPOINT", t.Endpoint)
	t.Environment = l.envString(p+"TELEMETRY_ENVIRONMENT", t.Environment)
	t.SamplingRate = l.envFloat(p+"TELEMETRY_SAMPLING_RATE", t.SamplingRate)
}

// UnknownEnvKeys lists REPORTSTREAM_* variables that no setting consumed.
// It is meaningful after Load.
func (l *Loader) UnknownEnvKeys() []string {
	var unknown []string
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		if _, ok := l.ConsumedEnvKeys[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	slices.Sort(unknown)
	return unknown
}
