// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/reportstream/internal/domain/report/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// updateStatusScript sets the status only when the report hash exists and
// returns its owner, so the check and the write cannot interleave with a
// concurrent insert. A missing hash yields nil (redis.Nil on the client).
var updateStatusScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return false
end
redis.call('HSET', KEYS[1], 'status', ARGV[1])
return redis.call('HGET', KEYS[1], 'user_id')
`)

// RedisStore keeps one hash per report ({prefix}report:<id> with user_id and
// status fields) and one set of report IDs per owner ({prefix}user:<id>:reports).
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// OpenRedisStore connects and pings the server.
func OpenRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return NewRedisStore(client, cfg.KeyPrefix), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

func (s *RedisStore) reportKey(id uuid.UUID) string {
	return s.prefix + "report:" + id.String()
}

func (s *RedisStore) ownerKey(owner uuid.UUID) string {
	return s.prefix + "user:" + owner.String() + ":reports"
}

func (s *RedisStore) InsertReport(ctx context.Context, r model.Report) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, s.reportKey(r.ReportID),
			"user_id", r.UserID.String(),
			"status", r.Status.String())
		p.SAdd(ctx, s.ownerKey(r.UserID), r.ReportID.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis insert report %s: %w", r.ReportID, err)
	}
	return nil
}

func (s *RedisStore) ListReports(ctx context.Context, owner uuid.UUID) ([]model.Report, error) {
	ids, err := s.client.SMembers(ctx, s.ownerKey(owner)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list reports: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, 0, len(ids))
	_, err = s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, id := range ids {
			cmds = append(cmds, p.HGetAll(ctx, s.prefix+"report:"+id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis list reports: %w", err)
	}

	out := make([]model.Report, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		row := storedReport{ReportID: ids[i], UserID: fields["user_id"], Status: fields["status"]}
		r, ok := row.toReport()
		if !ok || r.UserID != owner {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *RedisStore) UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) (uuid.UUID, bool, error) {
	raw, err := updateStatusScript.Run(ctx, s.client, []string{s.reportKey(id)}, status.String()).Text()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("redis update status %s: %w", id, err)
	}
	owner, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("redis update status %s: stored owner %q: %w", id, raw, err)
	}
	return owner, true, nil
}

func (s *RedisStore) GetStatus(ctx context.Context, id uuid.UUID) (model.Status, bool, error) {
	raw, err := s.client.HGet(ctx, s.reportKey(id), "status").Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get status %s: %w", id, err)
	}
	st, err := model.ParseStatus(raw)
	if err != nil {
		return "", false, nil
	}
	return st, true, nil
}
