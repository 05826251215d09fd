// SPDX-License-Identifier: MIT

package config

import (
	"strings"

	"github.com/ManuGH/reportstream/internal/validate"
)

// Validate reports every invalid field at once.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.HostPort("listenAddr", cfg.ListenAddr)
	if !validate.LogLevel(strings.ToLower(cfg.LogLevel)).IsValid() {
		v.OneOf("logLevel", cfg.LogLevel, validate.LogLevels)
	}
	v.PositiveDuration("shutdownTimeout", cfg.ShutdownTimeout)

	a := cfg.Actor
	v.Positive("actor.queueSize", a.QueueSize)
	v.Positive("actor.cacheCapacity", a.CacheCapacity)
	v.Positive("actor.sessionBuffer", a.SessionBuffer)
	v.PositiveDuration("actor.submitTimeout", a.SubmitTimeout)
	v.PositiveDuration("actor.deliveryTimeout", a.DeliveryTimeout)
	v.PositiveDuration("actor.storeTimeout", a.StoreTimeout)
	v.PositiveDuration("actor.drainTimeout", a.DrainTimeout)

	v.PositiveDuration("sse.keepAliveInterval", cfg.SSE.KeepAliveInterval)
	if strings.ContainsAny(cfg.SSE.KeepAliveText, "\r\n") {
		v.AddError("sse.keepAliveText", "must be a single line", cfg.SSE.KeepAliveText)
	}

	validateStore(v, cfg.Store)
	validateBus(v, cfg.Bus)

	if rl := cfg.API.RateLimit; rl.Enabled {
		v.Positive("api.rateLimit.rps", rl.RPS)
		if rl.Burst < 0 {
			v.AddError("api.rateLimit.burst", "cannot be negative", rl.Burst)
		}
	}

	if t := cfg.Telemetry; t.Enabled {
		v.OneOf("telemetry.exporter", t.Exporter, exporters)
		v.NotEmpty("telemetry.endpoint", t.Endpoint)
		v.FloatRange("telemetry.samplingRate", t.SamplingRate, 0, 1)
	}

	return v.Err()
}

func validateStore(v *validate.Validator, s StoreConfig) {
	v.OneOf("store.backend", s.Backend, storeBackends)
	switch s.Backend {
	case StoreDynamoDB:
		v.NotEmpty("store.dynamodb.region", s.DynamoDB.Region)
		v.NotEmpty("store.dynamodb.table", s.DynamoDB.Table)
		v.NotEmpty("store.dynamodb.userIndex", s.DynamoDB.UserIndex)
		if s.DynamoDB.Endpoint != "" {
			v.URL("store.dynamodb.endpoint", s.DynamoDB.Endpoint, []string{"http", "https"})
		}
		if (s.DynamoDB.AccessKeyID == "") != (s.DynamoDB.SecretAccessKey == "") {
			v.AddError("store.dynamodb.accessKeyId", "accessKeyId and secretAccessKey must be set together", nil)
		}
	case StoreRedis:
		v.HostPort("store.redis.addr", s.Redis.Addr)
		if s.Redis.DB < 0 {
			v.AddError("store.redis.db", "cannot be negative", s.Redis.DB)
		}
	case StoreSQLite:
		v.Path("store.sqlite.path", s.SQLite.Path)
	case StoreBadger:
		if !s.Badger.InMemory {
			v.Path("store.badger.dir", s.Badger.Dir)
		}
	}
}

func validateBus(v *validate.Validator, b BusConfig) {
	v.OneOf("bus.backend", b.Backend, busBackends)
	v.NotEmpty("bus.topic", b.Topic)
	v.Positive("bus.outboxSize", b.OutboxSize)
	if b.Backend != BusKafka {
		return
	}
	if len(b.Kafka.Brokers) == 0 {
		v.AddError("bus.kafka.brokers", "at least one broker is required", nil)
	}
	for _, broker := range b.Kafka.Brokers {
		v.HostPort("bus.kafka.brokers", broker)
	}
	v.NotEmpty("bus.kafka.groupId", b.Kafka.GroupID)
	v.PositiveDuration("bus.kafka.sessionTimeout", b.Kafka.SessionTimeout)
	v.PositiveDuration("bus.kafka.messageTimeout", b.Kafka.MessageTimeout)
}
