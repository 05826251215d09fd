// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ManuGH/reportstream/internal/domain/report/model"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// BadgerStore is an embedded ports.Store:
//   - reports: key = "report:<id>" (JSON)
//   - owner index: key = "owner:<owner>:<id>" (empty value)
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens the store at cfg.Dir, or in memory when cfg.InMemory is set.
func OpenBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	opts := badger.DefaultOptions(cfg.Dir).WithLogger(nil)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	} else if cfg.Dir == "" {
		return nil, errors.New("store: badger dir is required")
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger open: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

func (s *BadgerStore) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger: db closed")
	}
	return ctx.Err()
}

func badgerReportKey(id string) []byte { return []byte("report:" + id) }

func badgerOwnerPrefix(owner string) []byte { return []byte("owner:" + owner + ":") }

func (s *BadgerStore) InsertReport(ctx context.Context, r model.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	row := toStored(r)
	buf, err := json.Marshal(row)
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		key := badgerReportKey(row.ReportID)
		// drop a stale index entry if the report moves owner
		if prev, err := readRow(txn, key); err == nil && prev.UserID != row.UserID {
			if err := txn.Delete(append(badgerOwnerPrefix(prev.UserID), prev.ReportID...)); err != nil {
				return err
			}
		} else if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(key, buf); err != nil {
			return err
		}
		return txn.Set(append(badgerOwnerPrefix(row.UserID), row.ReportID...), nil)
	})
	if err != nil {
		return fmt.Errorf("badger insert report %s: %w", r.ReportID, err)
	}
	return nil
}

func (s *BadgerStore) ListReports(ctx context.Context, owner uuid.UUID) ([]model.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []model.Report
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := badgerOwnerPrefix(owner.String())
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id := string(it.Item().Key()[len(prefix):])
			row, err := readRow(txn, badgerReportKey(id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if r, ok := row.toReport(); ok {
				out = append(out, r)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger list reports: %w", err)
	}
	return out, nil
}

func (s *BadgerStore) UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) (uuid.UUID, bool, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, false, err
	}
	var owner string
	err := s.db.Update(func(txn *badger.Txn) error {
		key := badgerReportKey(id.String())
		row, err := readRow(txn, key)
		if err != nil {
			return err
		}
		row.Status = status.String()
		buf, err := json.Marshal(row)
		if err != nil {
			return err
		}
		owner = row.UserID
		return txn.Set(key, buf)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("badger update status %s: %w", id, err)
	}
	parsed, err := uuid.Parse(owner)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("badger update status %s: stored owner %q: %w", id, owner, err)
	}
	return parsed, true, nil
}

func (s *BadgerStore) GetStatus(ctx context.Context, id uuid.UUID) (model.Status, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	var row storedReport
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		row, err = readRow(txn, badgerReportKey(id.String()))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("badger get status %s: %w", id, err)
	}
	st, err := model.ParseStatus(row.Status)
	if err != nil {
		return "", false, nil
	}
	return st, true, nil
}

func readRow(txn *badger.Txn, key []byte) (storedReport, error) {
	var row storedReport
	item, err := txn.Get(key)
	if err != nil {
		return row, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &row)
	})
	return row, err
}
