// SPDX-License-Identifier: MIT

package config

import "time"

// Backend names.
const (
	StoreMemory   = "memory"
	StoreDynamoDB = "dynamodb"
	StoreRedis    = "redis"
	StoreSQLite   = "sqlite"
	StoreBadger   = "badger"

	BusMemory = "memory"
	BusKafka  = "kafka"
)

var (
	storeBackends = []string{StoreMemory, StoreDynamoDB, StoreRedis, StoreSQLite, StoreBadger}
	busBackends   = []string{BusMemory, BusKafka}
	exporters     = []string{"grpc", "http"}
)

// Defaults returns the reference sizing.
func Defaults() AppConfig {
	return AppConfig{
		ListenAddr:      ":3000",
		LogLevel:        "info",
		LogService:      "reportstream",
		ShutdownTimeout: 10 * time.Second,
		Actor: ActorConfig{
			QueueSize:       100,
			CacheCapacity:   200,
			SessionBuffer:   100,
			SubmitTimeout:   5 * time.Second,
			DeliveryTimeout: 100 * time.Millisecond,
			StoreTimeout:    5 * time.Second,
			DrainTimeout:    5 * time.Second,
		},
		SSE: SSEConfig{
			KeepAliveInterval: 30 * time.Second,
			KeepAliveText:     "keep-alive-text",
		},
		Store: StoreConfig{
			Backend: StoreMemory,
			DynamoDB: DynamoDBConfig{
				Region:    "us-east-1",
				Table:     "report_status",
				UserIndex: "UserIdIndex",
				Endpoint:  "http://localhost:8111",
			},
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "reportstream:",
			},
			SQLite: SQLiteConfig{
				BusyTimeout: 5 * time.Second,
			},
		},
		Bus: BusConfig{
			Backend:    BusMemory,
			Topic:      "v4_messages",
			OutboxSize: 100,
			Kafka: KafkaConfig{
				Brokers:        []string{"localhost:9092"},
				GroupID:        "server_sent_events_v4",
				ClientID:       "reportstream",
				SessionTimeout: 6 * time.Second,
				MessageTimeout: 5 * time.Second,
			},
		},
		API: APIConfig{
			CORS: CORSConfig{AllowedOrigins: []string{"*"}},
			RateLimit: RateLimitConfig{
				Enabled: false,
				RPS:     50,
				Burst:   100,
			},
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			Environment:  "production",
			SamplingRate: 1.0,
		},
	}
}
