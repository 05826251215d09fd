// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"sort"
	"sync"

	"github.com/ManuGH/reportstream/internal/domain/report/model"
	"github.com/google/uuid"
)

// MemoryStore is an in-memory ports.Store intended for tests and local iteration.
// Not durable.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[uuid.UUID]model.Report
	// insertion order per owner so listings are stable
	byOwner map[uuid.UUID][]uuid.UUID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reports: make(map[uuid.UUID]model.Report),
		byOwner: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (m *MemoryStore) InsertReport(ctx context.Context, r model.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.reports[r.ReportID]; !ok || prev.UserID != r.UserID {
		m.byOwner[r.UserID] = append(m.byOwner[r.UserID], r.ReportID)
	}
	m.reports[r.ReportID] = r
	return nil
}

func (m *MemoryStore) ListReports(ctx context.Context, owner uuid.UUID) ([]model.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.byOwner[owner]
	out := make([]model.Report, 0, len(ids))
	for _, id := range ids {
		r, ok := m.reports[id]
		if !ok || r.UserID != owner {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *MemoryStore) UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) (uuid.UUID, bool, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return uuid.Nil, false, nil
	}
	r.Status = status
	m.reports[id] = r
	return r.UserID, true, nil
}

func (m *MemoryStore) GetStatus(ctx context.Context, id uuid.UUID) (model.Status, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reports[id]
	if !ok {
		return "", false, nil
	}
	return r.Status, true, nil
}

// Snapshot returns every stored report ordered by report ID. Test helper.
func (m *MemoryStore) Snapshot() []model.Report {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Report, 0, len(m.reports))
	for _, r := range m.reports {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ReportID.String() < out[j].ReportID.String()
	})
	return out
}
