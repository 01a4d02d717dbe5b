package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"anoa.com/pointboard/internal/entity"
	"anoa.com/pointboard/internal/modules/points/repository"
	"anoa.com/pointboard/pkg/apperror"
)

// memStore backs both the ledger and the counter in tests. Every method takes
// the mutex separately, so read-then-update sequences race like they would
// against a real database.
type memStore struct {
	mu       sync.Mutex
	nextID   uint64
	records  []entity.PointRecord
	counters map[string]entity.UserPoints

	calls          int
	casObserved    []int64
	alwaysConflict bool
	// hideRowOnce makes the next counter read report the row as absent.
	hideRowOnce bool
}

func newMemStore() *memStore {
	return &memStore{counters: make(map[string]entity.UserPoints)}
}

func (s *memStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *memStore) counterRow(userID string) (entity.UserPoints, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.counters[userID]
	return row, ok
}

func (s *memStore) recordsFor(userID string) []entity.PointRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.PointRecord
	for _, r := range s.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out
}

type memLedger struct{ s *memStore }

func (l memLedger) Append(ctx context.Context, record *entity.PointRecord) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	l.s.calls++
	l.s.nextID++
	record.ID = l.s.nextID
	record.CreatedAt = time.Now().UTC()
	l.s.records = append(l.s.records, *record)
	return nil
}

func (l memLedger) FindByUser(ctx context.Context, userID string) ([]entity.PointRecord, error) {
	l.s.mu.Lock()
	l.s.calls++
	l.s.mu.Unlock()
	return l.s.recordsFor(userID), nil
}

func (l memLedger) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	l.s.calls++
	kept := l.s.records[:0]
	var removed int64
	for _, r := range l.s.records {
		if r.UserID == userID {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	l.s.records = kept
	return removed, nil
}

func (l memLedger) UpdateReason(ctx context.Context, id uint64, reason string) (*entity.PointRecord, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	l.s.calls++
	for i := range l.s.records {
		if l.s.records[i].ID == id {
			l.s.records[i].Reason = reason
			record := l.s.records[i]
			return &record, nil
		}
	}
	return nil, fmt.Errorf("point record %d: %w", id, apperror.ErrNotFound)
}

type memCounter struct{ s *memStore }

func (c memCounter) FindByUser(ctx context.Context, userID string) (*entity.UserPoints, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.calls++
	if c.s.hideRowOnce {
		c.s.hideRowOnce = false
		return nil, nil
	}
	row, ok := c.s.counters[userID]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (c memCounter) InsertIfAbsent(ctx context.Context, userID string, total int64) (bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.calls++
	if _, ok := c.s.counters[userID]; ok {
		return false, nil
	}
	c.s.counters[userID] = entity.UserPoints{UserID: userID, TotalPoints: total, Version: 1}
	return true, nil
}

func (c memCounter) ConditionalUpdate(ctx context.Context, userID string, delta, expectedVersion int64) (int64, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.calls++
	row, ok := c.s.counters[userID]
	if !ok || c.s.alwaysConflict || row.Version != expectedVersion {
		return 0, nil
	}
	row.TotalPoints += delta
	row.Version++
	c.s.counters[userID] = row
	c.s.casObserved = append(c.s.casObserved, expectedVersion)
	return 1, nil
}

func (c memCounter) Delete(ctx context.Context, userID string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.calls++
	delete(c.s.counters, userID)
	return nil
}

func (c memCounter) FindTop(ctx context.Context, limit int) ([]entity.UserPoints, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	rows := make([]entity.UserPoints, 0, len(c.s.counters))
	for _, row := range c.s.counters {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalPoints != rows[j].TotalPoints {
			return rows[i].TotalPoints > rows[j].TotalPoints
		}
		return rows[i].UserID < rows[j].UserID
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

type memTransactor struct{ s *memStore }

func (t memTransactor) WithinTransaction(ctx context.Context, fn func(ledger repository.LedgerRepository, counter repository.CounterRepository) error) error {
	return fn(memLedger{t.s}, memCounter{t.s})
}

type published struct {
	topic   string
	payload []byte
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []published
	err      error
}

func (p *fakePublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, published{topic: topic, payload: payload})
	return nil
}

func (p *fakePublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.messages...)
}

var errBrokerDown = errors.New("broker down")
