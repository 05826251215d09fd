// SPDX-License-Identifier: MIT

// Package store implements ports.Store on several backends:
//   - memory: process-local map, for tests and single-node demos
//   - dynamodb: table keyed by report_id with a user_id GSI
//   - redis: one hash per report plus a set per owner
//   - sqlite: single reports table (modernc driver, no cgo)
//   - badger: embedded KV with owner index keys
//
// Every backend resolves the owner of record inside UpdateStatus so the
// actor never needs a second round trip to learn who to notify.
package store

import (
	"errors"
	"time"

	"github.com/ManuGH/reportstream/internal/domain/report/model"
	"github.com/google/uuid"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendDynamoDB = "dynamodb"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendBadger   = "badger"
)

// ErrUnknownBackend is returned by Open for an unrecognised backend name.
var ErrUnknownBackend = errors.New("store: unknown backend")

// Config selects and parameterises a backend.
type Config struct {
	Backend  string
	DynamoDB DynamoConfig
	Redis    RedisConfig
	SQLite   SQLiteConfig
	Badger   BadgerConfig
}

// DynamoConfig addresses the report_status table.
type DynamoConfig struct {
	Region    string
	Table     string
	UserIndex string
	// Endpoint overrides the service endpoint (DynamoDB Local, LocalStack).
	Endpoint string
	// AccessKeyID and SecretAccessKey switch to static credentials when both are set.
	AccessKeyID     string
	SecretAccessKey string
}

// RedisConfig addresses the Redis server holding report hashes.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// SQLiteConfig points at the database file.
type SQLiteConfig struct {
	Path        string
	BusyTimeout time.Duration
}

// BadgerConfig points at the Badger data directory.
type BadgerConfig struct {
	Dir string
	// InMemory runs Badger without touching disk; Dir is ignored.
	InMemory bool
}

// storedReport is the backend-neutral row shape used by the KV backends.
type storedReport struct {
	ReportID string `json:"report_id"`
	UserID   string `json:"user_id"`
	Status   string `json:"status"`
}

func toStored(r model.Report) storedReport {
	return storedReport{
		ReportID: r.ReportID.String(),
		UserID:   r.UserID.String(),
		Status:   r.Status.String(),
	}
}

// toReport converts a stored row. ok is false for rows that do not parse;
// listings skip them and status reads treat them as missing.
func (s storedReport) toReport() (model.Report, bool) {
	id, err := uuid.Parse(s.ReportID)
	if err != nil {
		return model.Report{}, false
	}
	owner, err := uuid.Parse(s.UserID)
	if err != nil {
		return model.Report{}, false
	}
	st, err := model.ParseStatus(s.Status)
	if err != nil {
		return model.Report{}, false
	}
	return model.Report{UserID: owner, ReportID: id, Status: st}, true
}
