package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alilals/ziraat-backend/internal/models"
)

// MemoryStore holds bookings in memory, for tests and local runs
type MemoryStore struct {
	mu       sync.RWMutex
	bookings map[string]map[string]models.Booking // collection -> id -> booking
	now      func() time.Time
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bookings: make(map[string]map[string]models.Booking),
		now:      time.Now,
	}
}

func (m *MemoryStore) Create(_ context.Context, b *models.Booking) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	booking := b.Clone()
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = m.now()
	}
	booking.CreatedAt = booking.CreatedAt.UTC()

	coll, ok := m.bookings[booking.Collection]
	if !ok {
		coll = make(map[string]models.Booking)
		m.bookings[booking.Collection] = coll
	}
	coll[booking.ID] = booking

	out := booking.Clone()
	return &out, nil
}

func (m *MemoryStore) Get(_ context.Context, collection, id string) (*models.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, exists := m.bookings[collection][id]
	if !exists {
		return nil, ErrBookingNotFound
	}
	out := b.Clone()
	return &out, nil
}

func (m *MemoryStore) Count(_ context.Context, collection string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return int64(len(m.bookings[collection])), nil
}

func (m *MemoryStore) Page(_ context.Context, collection string, size int, after *Cursor) ([]models.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sorted := m.sortedLocked(collection)
	page := make([]models.Booking, 0, size)
	for _, b := range sorted {
		if after != nil && !after.precedes(b.CreatedAt, b.ID) {
			continue
		}
		page = append(page, b.Clone())
		if len(page) == size {
			break
		}
	}
	return page, nil
}

func (m *MemoryStore) All(_ context.Context, collection string) ([]models.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.sortedLocked(collection)
	for i := range all {
		all[i] = all[i].Clone()
	}
	return all, nil
}

func (m *MemoryStore) Update(_ context.Context, collection, id string, patch map[string]any) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, exists := m.bookings[collection][id]
	if !exists {
		return nil, ErrBookingNotFound
	}
	updated := b.Clone()
	if err := updated.ApplyPatch(patch); err != nil {
		return nil, err
	}
	m.bookings[collection][id] = updated

	out := updated.Clone()
	return &out, nil
}

func (m *MemoryStore) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.bookings[collection][id]; !exists {
		return ErrBookingNotFound
	}
	delete(m.bookings[collection], id)
	return nil
}

// sortedLocked returns the collection newest first. Caller holds mu.
func (m *MemoryStore) sortedLocked(collection string) []models.Booking {
	out := make([]models.Booking, 0, len(m.bookings[collection]))
	for _, b := range m.bookings[collection] {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
