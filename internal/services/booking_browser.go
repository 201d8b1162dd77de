package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/alilals/ziraat-backend/internal/models"
	"github.com/alilals/ziraat-backend/internal/storage"
)

// ErrPreviousPageNotFound is returned when page N is requested before page N-1
var ErrPreviousPageNotFound = errors.New("previous page data not found")

const prefetchTimeout = 30 * time.Second

// BookingBrowser is one admin's page-by-page view of a collection. It keeps
// the cursor of every page fetched so far, the accumulated de-duplicated
// record list, the cached total and the last error.
//
// Pages must be requested in increasing order; page 1 starts over.
// After a page is served the next one is fetched in the background and a
// request for it joins that fetch.
type BookingBrowser struct {
	store  storage.BookingStore
	logger *zap.Logger

	// ops serializes browser operations; mu guards the state below and is
	// also taken by the background prefetch
	ops sync.Mutex
	mu  sync.Mutex

	collection string
	generation int
	cursors    map[int]*storage.Cursor
	records    []models.Booking
	index      map[string]int
	total      int64
	totalKnown bool
	err        error

	group      singleflight.Group
	prefetched map[string][]models.Booking
	prefetches sync.WaitGroup
}

// NewBookingBrowser starts a browser on collection
func NewBookingBrowser(store storage.BookingStore, collection string, logger *zap.Logger) (*BookingBrowser, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &BookingBrowser{store: store, logger: logger}
	b.resetLocked(collection)
	return b, nil
}

// resetLocked drops everything tied to the current collection. Caller holds mu.
func (b *BookingBrowser) resetLocked(collection string) {
	if collection != b.collection {
		b.total = 0
		b.totalKnown = false
	}
	b.collection = collection
	b.generation++
	b.cursors = make(map[int]*storage.Cursor)
	b.records = nil
	b.index = make(map[string]int)
	b.prefetched = make(map[string][]models.Booking)
}

// Collection returns the collection being browsed
func (b *BookingBrowser) Collection() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.collection
}

// Select switches to another collection, discarding all state
func (b *BookingBrowser) Select(collection string) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	b.ops.Lock()
	defer b.ops.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()
	if collection == b.collection {
		return nil
	}
	b.resetLocked(collection)
	b.err = nil
	return nil
}

// Records returns a copy of the accumulated list in fetch order
func (b *BookingBrowser) Records() []models.Booking {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Booking, len(b.records))
	for i, r := range b.records {
		out[i] = r.Clone()
	}
	return out
}

// Total returns the cached total count
func (b *BookingBrowser) Total() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

// Err returns the error of the last operation, nil if it succeeded
func (b *BookingBrowser) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// begin starts an operation: it serializes against other operations and
// clears the previous error
func (b *BookingBrowser) begin() string {
	b.ops.Lock()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = nil
	return b.collection
}

func (b *BookingBrowser) end() {
	b.ops.Unlock()
}

func (b *BookingBrowser) fail(err error) error {
	b.mu.Lock()
	b.err = err
	b.mu.Unlock()
	return err
}

// FetchTotalCount refreshes the cached total. On failure the count is 0
// and the error is kept in Err.
func (b *BookingBrowser) FetchTotalCount(ctx context.Context) int64 {
	collection := b.begin()
	defer b.end()

	count, err := b.fetchTotalCount(ctx, collection)
	if err != nil {
		b.fail(fmt.Errorf("failed to fetch total bookings count: %w", err))
	}
	return count
}

func (b *BookingBrowser) fetchTotalCount(ctx context.Context, collection string) (int64, error) {
	count, err := b.store.Count(ctx, collection)
	if err != nil {
		b.logger.Error("Error fetching total bookings count", zap.String("collection", collection), zap.Error(err))
		count = 0
	}

	b.mu.Lock()
	b.total = count
	b.totalKnown = err == nil
	b.mu.Unlock()
	return count, err
}

// FetchPage returns page pageNo (1-based) of size records, newest first.
// Page 1 resets the accumulated list and cursors. Page N>1 needs page N-1
// to have been fetched in this session, else ErrPreviousPageNotFound.
// An exhausted collection yields an empty page, not an error.
func (b *BookingBrowser) FetchPage(ctx context.Context, size, pageNo int) ([]models.Booking, error) {
	collection := b.begin()
	defer b.end()

	if pageNo < 1 {
		return nil, b.fail(&ValidationError{Message: "page number must be at least 1"})
	}
	size = ClampPageSize(size)

	b.mu.Lock()
	var after *storage.Cursor
	if pageNo == 1 {
		b.resetLocked(collection)
	} else {
		c, ok := b.cursors[pageNo-1]
		if !ok {
			b.mu.Unlock()
			return nil, b.fail(fmt.Errorf("%w: page %d", ErrPreviousPageNotFound, pageNo-1))
		}
		after = c
	}
	gen := b.generation
	totalKnown := b.totalKnown
	b.mu.Unlock()

	// the total decides whether to prefetch; a failed count only disables
	// prefetch for this page
	if pageNo == 1 || !totalKnown {
		_, _ = b.fetchTotalCount(ctx, collection)
	}

	records, err := b.load(ctx, collection, gen, size, after)
	if err != nil {
		b.logger.Error("Error fetching records",
			zap.String("collection", collection),
			zap.Int("page", pageNo),
			zap.Error(err))
		return nil, b.fail(fmt.Errorf("failed to fetch records: %w", err))
	}

	b.mu.Lock()
	b.acceptLocked(pageNo, records)
	hasNext := len(records) == size && int64(pageNo*size) < b.total
	b.mu.Unlock()

	if hasNext {
		b.prefetch(collection, gen, pageNo+1, size, storage.CursorOf(records[len(records)-1]))
	}

	out := make([]models.Booking, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out, nil
}

// acceptLocked records the page cursor and merges records into the
// accumulated list, replacing same-id entries in place. Caller holds mu.
func (b *BookingBrowser) acceptLocked(pageNo int, records []models.Booking) {
	if len(records) == 0 {
		return
	}
	b.cursors[pageNo] = storage.CursorOf(records[len(records)-1])
	for _, r := range records {
		if i, ok := b.index[r.ID]; ok {
			b.records[i] = r.Clone()
			continue
		}
		b.index[r.ID] = len(b.records)
		b.records = append(b.records, r.Clone())
	}
}

func pageKey(gen, size int, after *storage.Cursor) string {
	return fmt.Sprintf("%d/%d/%s", gen, size, storage.EncodePageToken(after))
}

// load returns the page after the cursor, taking a finished prefetch or
// joining one still in flight before asking the store
func (b *BookingBrowser) load(ctx context.Context, collection string, gen, size int, after *storage.Cursor) ([]models.Booking, error) {
	key := pageKey(gen, size, after)
	v, err, _ := b.group.Do(key, func() (any, error) {
		b.mu.Lock()
		records, ok := b.prefetched[key]
		b.mu.Unlock()
		if ok {
			return records, nil
		}
		return b.store.Page(ctx, collection, size, after)
	})

	b.mu.Lock()
	delete(b.prefetched, key)
	b.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return v.([]models.Booking), nil
}

// prefetch loads page pageNo in the background. The fetch is registered
// with the group before prefetch returns, so a request for the same page
// joins it. The result goes into the accumulated list and is kept for the
// request that asks for it.
func (b *BookingBrowser) prefetch(collection string, gen, pageNo, size int, after *storage.Cursor) {
	key := pageKey(gen, size, after)
	b.prefetches.Add(1)
	ch := b.group.DoChan(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), prefetchTimeout)
		defer cancel()

		records, err := b.store.Page(ctx, collection, size, after)
		if err != nil {
			b.logger.Warn("Prefetch failed",
				zap.String("collection", collection),
				zap.Int("page", pageNo),
				zap.Error(err))
			return nil, err
		}

		b.mu.Lock()
		if b.generation == gen {
			b.acceptLocked(pageNo, records)
			b.prefetched[key] = records
		}
		b.mu.Unlock()
		return records, nil
	})
	go func() {
		defer b.prefetches.Done()
		<-ch
	}()
}

// Wait blocks until background prefetches have finished
func (b *BookingBrowser) Wait() {
	b.prefetches.Wait()
}

// FetchAll returns every record of the collection, for export. The
// accumulated list is not touched.
func (b *BookingBrowser) FetchAll(ctx context.Context) ([]models.Booking, error) {
	collection := b.begin()
	defer b.end()

	records, err := b.store.All(ctx, collection)
	if err != nil {
		b.logger.Error("Error fetching all records", zap.String("collection", collection), zap.Error(err))
		return nil, b.fail(fmt.Errorf("failed to fetch all records: %w", err))
	}
	if records == nil {
		records = []models.Booking{}
	}
	return records, nil
}

// settle waits for background prefetches and drops the pages they left
// behind, so a page read before a write is never served after it. Caller
// holds ops.
func (b *BookingBrowser) settle() {
	b.prefetches.Wait()
	b.mu.Lock()
	b.prefetched = make(map[string][]models.Booking)
	b.mu.Unlock()
}

// EditRecord merges patch into the stored record and mirrors the stored
// result into the accumulated list
func (b *BookingBrowser) EditRecord(ctx context.Context, id string, patch map[string]any) (*models.Booking, error) {
	collection := b.begin()
	defer b.end()
	b.settle()

	updated, err := b.store.Update(ctx, collection, id, patch)
	if err != nil {
		b.logger.Error("Error updating record", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		return nil, b.fail(fmt.Errorf("failed to update record: %w", err))
	}

	b.mu.Lock()
	if i, ok := b.index[id]; ok {
		b.records[i] = updated.Clone()
	}
	b.mu.Unlock()
	return updated, nil
}

// DeleteRecord removes the record from the store and the accumulated list
// and lowers the cached total by one
func (b *BookingBrowser) DeleteRecord(ctx context.Context, id string) error {
	collection := b.begin()
	defer b.end()
	b.settle()

	if err := b.store.Delete(ctx, collection, id); err != nil {
		b.logger.Error("Error deleting booking", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		return b.fail(fmt.Errorf("failed to delete booking: %w", err))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if i, ok := b.index[id]; ok {
		b.records = append(b.records[:i], b.records[i+1:]...)
		delete(b.index, id)
		for j := i; j < len(b.records); j++ {
			b.index[b.records[j].ID] = j
		}
	}
	if b.total > 0 {
		b.total--
	}
	return nil
}
