// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"fmt"

	"github.com/ManuGH/reportstream/internal/bus"
	"github.com/ManuGH/reportstream/internal/bus/kafka"
	"github.com/ManuGH/reportstream/internal/config"
	"github.com/ManuGH/reportstream/internal/domain/report/actor"
	"github.com/ManuGH/reportstream/internal/domain/report/store"
	"github.com/ManuGH/reportstream/internal/log"
	"github.com/ManuGH/reportstream/internal/telemetry"
)

func storeConfig(c config.StoreConfig) store.Config {
	return store.Config{
		Backend: c.Backend,
		DynamoDB: store.DynamoConfig{
			Region:          c.DynamoDB.Region,
			Table:           c.DynamoDB.Table,
			UserIndex:       c.DynamoDB.UserIndex,
			Endpoint:        c.DynamoDB.Endpoint,
			AccessKeyID:     c.DynamoDB.AccessKeyID,
			SecretAccessKey: c.DynamoDB.SecretAccessKey,
		},
		Redis: store.RedisConfig{
			Addr:      c.Redis.Addr,
			Password:  c.Redis.Password,
			DB:        c.Redis.DB,
			KeyPrefix: c.Redis.KeyPrefix,
		},
		SQLite: store.SQLiteConfig{
			Path:        c.SQLite.Path,
			BusyTimeout: c.SQLite.BusyTimeout,
		},
		Badger: store.BadgerConfig{
			Dir:      c.Badger.Dir,
			InMemory: c.Badger.InMemory,
		},
	}
}

func actorConfig(c config.ActorConfig) actor.Config {
	return actor.Config{
		QueueSize:       c.QueueSize,
		CacheCapacity:   c.CacheCapacity,
		SessionBuffer:   c.SessionBuffer,
		SubmitTimeout:   c.SubmitTimeout,
		DeliveryTimeout: c.DeliveryTimeout,
		StoreTimeout:    c.StoreTimeout,
		DrainTimeout:    c.DrainTimeout,
	}
}

func telemetryConfig(cfg config.AppConfig) telemetry.Config {
	return telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	}
}

// pinger is implemented by transports that can probe their brokers.
type pinger interface {
	Ping(ctx context.Context) error
}

func openBus(c config.BusConfig) (bus.Bus, error) {
	switch c.Backend {
	case config.BusMemory, "":
		return bus.NewMemoryBus(c.OutboxSize), nil
	case config.BusKafka:
		kb, err := kafka.New(kafka.Config{
			Brokers:        c.Kafka.Brokers,
			GroupID:        c.Kafka.GroupID,
			ClientID:       c.Kafka.ClientID,
			SessionTimeout: c.Kafka.SessionTimeout,
			MessageTimeout: c.Kafka.MessageTimeout,
		}, log.WithComponent("kafka"))
		if err != nil {
			return nil, err
		}
		return kb, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBus, c.Backend)
	}
}
