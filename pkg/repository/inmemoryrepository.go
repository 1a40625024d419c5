// Package repository archives the records of finished matches.
package repository

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecu23/csa-client/pkg/events"
	"github.com/tecu23/csa-client/pkg/record"
)

// ErrRecordNotFound is returned for unknown record ids
var ErrRecordNotFound = errors.New("record not found")

// StoredRecord is an archived record snapshot
type StoredRecord struct {
	ID      uuid.UUID       `json:"id"`
	SavedAt time.Time       `json:"savedAt"`
	Record  record.Snapshot `json:"record"`
}

// InMemoryRecordRepository keeps record snapshots in memory
type InMemoryRecordRepository struct {
	records map[uuid.UUID]StoredRecord
	mu      sync.RWMutex
	logger  *zap.Logger
	now     func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository(logger *zap.Logger) *InMemoryRecordRepository {
	return &InMemoryRecordRepository{
		records: make(map[uuid.UUID]StoredRecord),
		logger:  logger,
		now:     time.Now,
	}
}

// SaveRecord stores a snapshot and returns its id
func (r *InMemoryRecordRepository) SaveRecord(s record.Snapshot) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.New()
	r.records[id] = StoredRecord{ID: id, SavedAt: r.now(), Record: s}
	r.logger.Info("record saved",
		zap.String("record_id", id.String()),
		zap.String("title", s.Title),
		zap.Int("entries", len(s.Entries)),
	)
	return id, nil
}

// GetRecord retrieves a record by ID
func (r *InMemoryRecordRepository) GetRecord(id uuid.UUID) (StoredRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return StoredRecord{}, ErrRecordNotFound
	}

	return rec, nil
}

// ListRecords returns all records, oldest first
func (r *InMemoryRecordRepository) ListRecords() []StoredRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]StoredRecord, 0, len(r.records))
	for _, rec := range r.records {
		list = append(list, rec)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].SavedAt.Before(list[j].SavedAt)
	})

	return list
}

// HandleEvent archives the snapshot carried by save-record events
func (r *InMemoryRecordRepository) HandleEvent(e events.Event) {
	if e.Type != events.EventSaveRecord {
		return
	}
	s, ok := e.Payload.(record.Snapshot)
	if !ok {
		r.logger.Warn("save-record event without snapshot")
		return
	}
	if _, err := r.SaveRecord(s); err != nil {
		r.logger.Error("saving record", zap.Error(err))
	}
}
