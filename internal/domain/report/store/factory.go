// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"

	"github.com/ManuGH/reportstream/internal/domain/report/ports"
	"github.com/rs/zerolog"
)

// Open creates the configured backend wrapped in metrics instrumentation.
// An empty backend selects memory.
func Open(ctx context.Context, cfg Config, logger zerolog.Logger) (*InstrumentedStore, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = BackendMemory
	}

	var (
		inner ports.Store
		err   error
	)
	switch backend {
	case BackendMemory:
		inner = NewMemoryStore()
	case BackendSQLite:
		inner, err = OpenSQLiteStore(ctx, cfg.SQLite)
	case BackendBadger:
		inner, err = OpenBadgerStore(cfg.Badger)
	case BackendRedis:
		inner, err = OpenRedisStore(ctx, cfg.Redis)
	case BackendDynamoDB:
		client, cerr := NewDynamoClient(ctx, cfg.DynamoDB)
		if cerr != nil {
			return nil, cerr
		}
		inner = NewDynamoStore(client, cfg.DynamoDB.Table, cfg.DynamoDB.UserIndex)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, backend)
	}
	if err != nil {
		return nil, err
	}

	logger.Info().Str("backend", backend).Msg("report store opened")
	return NewInstrumentedStore(inner, backend), nil
}
