package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alilals/ziraat-backend/internal/models"
	"github.com/alilals/ziraat-backend/internal/storage"
)

var errStoreDown = errors.New("store unreachable")

// instrumentedStore counts page queries and can hold cursor queries until
// released, or fail on demand
type instrumentedStore struct {
	storage.BookingStore

	pageCalls atomic.Int32

	mu      sync.Mutex
	gate    chan struct{}
	entered chan struct{}
	failing bool
}

func (s *instrumentedStore) Page(ctx context.Context, collection string, size int, after *storage.Cursor) ([]models.Booking, error) {
	s.pageCalls.Add(1)

	s.mu.Lock()
	gate, entered, failing := s.gate, s.entered, s.failing
	s.mu.Unlock()

	if failing {
		return nil, errStoreDown
	}
	if gate != nil && after != nil {
		entered <- struct{}{}
		<-gate
	}
	return s.BookingStore.Page(ctx, collection, size, after)
}

func (s *instrumentedStore) Count(ctx context.Context, collection string) (int64, error) {
	s.mu.Lock()
	failing := s.failing
	s.mu.Unlock()
	if failing {
		return 0, errStoreDown
	}
	return s.BookingStore.Count(ctx, collection)
}

func (s *instrumentedStore) setFailing(v bool) {
	s.mu.Lock()
	s.failing = v
	s.mu.Unlock()
}

func (s *instrumentedStore) holdCursorQueries() (entered <-chan struct{}, release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate = make(chan struct{})
	s.entered = make(chan struct{}, 4)
	gate := s.gate
	return s.entered, func() { close(gate) }
}

var seedTime = time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)

// seedBookings creates r01..rNN in collection, rNN being the newest
func seedBookings(t *testing.T, store storage.BookingStore, collection string, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		_, err := store.Create(context.Background(), &models.Booking{
			ID:          fmt.Sprintf("r%02d", i),
			Collection:  collection,
			ReferenceNo: fmt.Sprintf("REF%02d", i),
			Name:        fmt.Sprintf("Grower %d", i),
			Phone:       "9876543210",
			Payload:     map[string]any{"totalLand": "4 kanal"},
			CreatedAt:   seedTime.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}
}

func bookingIDs(bookings []models.Booking) []string {
	out := make([]string, len(bookings))
	for i, b := range bookings {
		out[i] = b.ID
	}
	return out
}

func newTestBrowser(t *testing.T, n int) (*BookingBrowser, *instrumentedStore) {
	t.Helper()
	store := &instrumentedStore{BookingStore: storage.NewMemoryStore()}
	seedBookings(t, store.BookingStore, models.CollectionOrchard, n)

	b, err := NewBookingBrowser(store, models.CollectionOrchard, nil)
	require.NoError(t, err)
	t.Cleanup(b.Wait)
	return b, store
}

func TestNewBookingBrowser_UnknownCollection(t *testing.T) {
	_, err := NewBookingBrowser(storage.NewMemoryStore(), "Blogs", nil)
	assert.ErrorIs(t, err, ErrUnknownCollection)
}

func TestBookingBrowser_PagesInOrder(t *testing.T) {
	b, _ := newTestBrowser(t, 5)
	ctx := context.Background()

	page1, err := b.FetchPage(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"r05", "r04"}, bookingIDs(page1))
	assert.EqualValues(t, 5, b.Total())

	page2, err := b.FetchPage(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"r03", "r02"}, bookingIDs(page2))

	page3, err := b.FetchPage(ctx, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"r01"}, bookingIDs(page3))

	b.Wait()
	assert.Equal(t, []string{"r05", "r04", "r03", "r02", "r01"}, bookingIDs(b.Records()))
	assert.NoError(t, b.Err())
}

func TestBookingBrowser_PageWithoutPredecessor(t *testing.T) {
	b, store := newTestBrowser(t, 5)
	ctx := context.Background()

	_, err := b.FetchPage(ctx, 2, 2)
	assert.ErrorIs(t, err, ErrPreviousPageNotFound)
	assert.ErrorIs(t, b.Err(), ErrPreviousPageNotFound)
	assert.Zero(t, store.pageCalls.Load())

	_, err = b.FetchPage(ctx, 2, 1)
	require.NoError(t, err)
	assert.NoError(t, b.Err())

	b.Wait()

	// the prefetch recorded page 2, nothing recorded page 3
	_, err = b.FetchPage(ctx, 2, 4)
	assert.ErrorIs(t, err, ErrPreviousPageNotFound)
}

func TestBookingBrowser_InvalidPageNumber(t *testing.T) {
	b, _ := newTestBrowser(t, 1)

	_, err := b.FetchPage(context.Background(), 2, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBookingBrowser_PageOneResets(t *testing.T) {
	b, _ := newTestBrowser(t, 6)
	ctx := context.Background()

	_, err := b.FetchPage(ctx, 2, 1)
	require.NoError(t, err)
	_, err = b.FetchPage(ctx, 2, 2)
	require.NoError(t, err)
	b.Wait()
	require.Len(t, b.Records(), 6)

	_, err = b.FetchPage(ctx, 3, 1)
	require.NoError(t, err)
	b.Wait()

	// page 1 cleared everything, then the prefetch of page 2 landed
	assert.Equal(t, []string{"r06", "r05", "r04", "r03", "r02", "r01"}, bookingIDs(b.Records()))

	_, err = b.FetchPage(ctx, 3, 4)
	assert.ErrorIs(t, err, ErrPreviousPageNotFound)
}

func TestBookingBrowser_NoDuplicatesAcrossRefetch(t *testing.T) {
	b, _ := newTestBrowser(t, 4)
	ctx := context.Background()

	for round := 0; round < 3; round++ {
		_, err := b.FetchPage(ctx, 2, 1)
		require.NoError(t, err)
		_, err = b.FetchPage(ctx, 2, 2)
		require.NoError(t, err)
		_, err = b.FetchPage(ctx, 2, 2)
		require.NoError(t, err)
		b.Wait()
	}

	ids := bookingIDs(b.Records())
	seen := map[string]bool{}
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate %s", id)
		seen[id] = true
	}
	assert.Len(t, ids, 4)
}

func TestBookingBrowser_ExhaustedCollectionGivesEmptyPage(t *testing.T) {
	b, _ := newTestBrowser(t, 0)

	page, err := b.FetchPage(context.Background(), 10, 1)
	require.NoError(t, err)
	assert.Empty(t, page)
	assert.NotNil(t, page)
	assert.NoError(t, b.Err())
}

func TestBookingBrowser_PrefetchIsConsumed(t *testing.T) {
	b, store := newTestBrowser(t, 5)
	ctx := context.Background()

	_, err := b.FetchPage(ctx, 2, 1)
	require.NoError(t, err)
	b.Wait()
	assert.EqualValues(t, 2, store.pageCalls.Load())

	// prefetched records are already part of the accumulated list
	assert.Equal(t, []string{"r05", "r04", "r03", "r02"}, bookingIDs(b.Records()))

	page2, err := b.FetchPage(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"r03", "r02"}, bookingIDs(page2))
	b.Wait()

	// page 2 came from the prefetch; only the prefetch of page 3 hit the store
	assert.EqualValues(t, 3, store.pageCalls.Load())
}

func TestBookingBrowser_RequestJoinsInflightPrefetch(t *testing.T) {
	b, store := newTestBrowser(t, 6)
	ctx := context.Background()

	entered, release := store.holdCursorQueries()

	_, err := b.FetchPage(ctx, 2, 1)
	require.NoError(t, err)
	<-entered // prefetch of page 2 is blocked inside the store

	done := make(chan []models.Booking)
	go func() {
		page, err := b.FetchPage(ctx, 2, 2)
		assert.NoError(t, err)
		done <- page
	}()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("page 2 returned before the prefetch finished")
	default:
	}

	release()
	page2 := <-done
	assert.Equal(t, []string{"r04", "r03"}, bookingIDs(page2))

	b.Wait()
	// page 1, one shared query for page 2, prefetch of page 3
	assert.EqualValues(t, 3, store.pageCalls.Load())
}

func TestBookingBrowser_NoPrefetchPastTotal(t *testing.T) {
	b, store := newTestBrowser(t, 4)
	ctx := context.Background()

	_, err := b.FetchPage(ctx, 2, 1)
	require.NoError(t, err)
	_, err = b.FetchPage(ctx, 2, 2)
	require.NoError(t, err)
	b.Wait()

	assert.EqualValues(t, 2, store.pageCalls.Load())
}

func TestBookingBrowser_ImmediateAdvanceSharesPrefetch(t *testing.T) {
	for i := 0; i < 20; i++ {
		b, store := newTestBrowser(t, 6)
		ctx := context.Background()

		_, err := b.FetchPage(ctx, 2, 1)
		require.NoError(t, err)
		page2, err := b.FetchPage(ctx, 2, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"r04", "r03"}, bookingIDs(page2))
		b.Wait()

		// page 1, page 2 once, prefetch of page 3
		require.EqualValues(t, 3, store.pageCalls.Load(), "round %d", i)
	}
}

func TestBookingBrowser_DeleteDropsPrefetchedCopy(t *testing.T) {
	b, _ := newTestBrowser(t, 5)
	ctx := context.Background()

	_, err := b.FetchPage(ctx, 2, 1)
	require.NoError(t, err)
	b.Wait()

	require.NoError(t, b.DeleteRecord(ctx, "r03"))

	page2, err := b.FetchPage(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"r02", "r01"}, bookingIDs(page2))
	assert.Equal(t, []string{"r05", "r04", "r02", "r01"}, bookingIDs(b.Records()))
}

func TestBookingBrowser_EditSurvivesPrefetchedPage(t *testing.T) {
	b, _ := newTestBrowser(t, 5)
	ctx := context.Background()

	_, err := b.FetchPage(ctx, 2, 1)
	require.NoError(t, err)
	b.Wait()

	_, err = b.EditRecord(ctx, "r03", map[string]any{"checked": true})
	require.NoError(t, err)

	page2, err := b.FetchPage(ctx, 2, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"r03", "r02"}, bookingIDs(page2))
	assert.True(t, page2[0].Checked)

	for _, r := range b.Records() {
		if r.ID == "r03" {
			assert.True(t, r.Checked)
		}
	}
}

func TestBookingBrowser_DeleteWaitsForInflightPrefetch(t *testing.T) {
	b, store := newTestBrowser(t, 5)
	ctx := context.Background()

	entered, release := store.holdCursorQueries()

	_, err := b.FetchPage(ctx, 2, 1)
	require.NoError(t, err)
	<-entered // prefetch of page 2 read nothing yet

	deleted := make(chan error)
	go func() { deleted <- b.DeleteRecord(ctx, "r03") }()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-deleted:
		t.Fatal("delete finished while the prefetch was still running")
	default:
	}

	release()
	require.NoError(t, <-deleted)
	assert.NotContains(t, bookingIDs(b.Records()), "r03")

	page2, err := b.FetchPage(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"r02", "r01"}, bookingIDs(page2))
	assert.Equal(t, []string{"r05", "r04", "r02", "r01"}, bookingIDs(b.Records()))
}

func TestBookingBrowser_StickyErrorClearsOnNextOperation(t *testing.T) {
	b, store := newTestBrowser(t, 3)
	ctx := context.Background()

	store.setFailing(true)
	_, err := b.FetchPage(ctx, 2, 1)
	assert.ErrorIs(t, err, errStoreDown)
	assert.ErrorIs(t, b.Err(), errStoreDown)
	assert.ErrorIs(t, b.Err(), errStoreDown, "error stays until the next operation")

	store.setFailing(false)
	_, err = b.FetchPage(ctx, 2, 1)
	require.NoError(t, err)
	assert.NoError(t, b.Err())
}

func TestBookingBrowser_FetchTotalCountFailure(t *testing.T) {
	b, store := newTestBrowser(t, 3)

	assert.EqualValues(t, 3, b.FetchTotalCount(context.Background()))

	store.setFailing(true)
	assert.Zero(t, b.FetchTotalCount(context.Background()))
	assert.ErrorIs(t, b.Err(), errStoreDown)
}

func TestBookingBrowser_FetchAll(t *testing.T) {
	b, _ := newTestBrowser(t, 3)

	all, err := b.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"r03", "r02", "r01"}, bookingIDs(all))
	assert.Empty(t, b.Records())

	empty, err := NewBookingBrowser(storage.NewMemoryStore(), models.CollectionDrip, nil)
	require.NoError(t, err)
	none, err := empty.FetchAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestBookingBrowser_EditRecordMirrorsChecked(t *testing.T) {
	b, store := newTestBrowser(t, 3)
	ctx := context.Background()

	_, err := b.FetchPage(ctx, 10, 1)
	require.NoError(t, err)
	before := b.Records()

	_, err = b.EditRecord(ctx, "r02", map[string]any{"checked": true})
	require.NoError(t, err)

	after := b.Records()
	require.Len(t, after, len(before))
	for i := range after {
		if after[i].ID == "r02" {
			assert.True(t, after[i].Checked)
			expected := before[i]
			expected.Checked = true
			assert.Equal(t, expected, after[i])
		} else {
			assert.Equal(t, before[i], after[i])
		}
	}

	stored, err := store.Get(ctx, models.CollectionOrchard, "r02")
	require.NoError(t, err)
	assert.True(t, stored.Checked)
}

func TestBookingBrowser_EditMissingRecord(t *testing.T) {
	b, _ := newTestBrowser(t, 1)

	_, err := b.EditRecord(context.Background(), "nope", map[string]any{"checked": true})
	assert.ErrorIs(t, err, storage.ErrBookingNotFound)
	assert.ErrorIs(t, b.Err(), storage.ErrBookingNotFound)
}

func TestBookingBrowser_DeleteRecord(t *testing.T) {
	b, store := newTestBrowser(t, 3)
	ctx := context.Background()

	_, err := b.FetchPage(ctx, 10, 1)
	require.NoError(t, err)
	require.EqualValues(t, 3, b.Total())

	require.NoError(t, b.DeleteRecord(ctx, "r02"))
	assert.Equal(t, []string{"r03", "r01"}, bookingIDs(b.Records()))
	assert.EqualValues(t, 2, b.Total())

	_, err = store.Get(ctx, models.CollectionOrchard, "r02")
	assert.ErrorIs(t, err, storage.ErrBookingNotFound)

	// edits after a delete still find the shifted entries
	_, err = b.EditRecord(ctx, "r01", map[string]any{"checked": true})
	require.NoError(t, err)
	assert.True(t, b.Records()[1].Checked)

	assert.Error(t, b.DeleteRecord(ctx, "r02"))
	assert.EqualValues(t, 2, b.Total())
}

func TestBookingBrowser_SelectDiscardsState(t *testing.T) {
	b, store := newTestBrowser(t, 3)
	seedBookings(t, store.BookingStore, models.CollectionDrip, 1)
	ctx := context.Background()

	_, err := b.FetchPage(ctx, 2, 1)
	require.NoError(t, err)
	b.Wait()

	require.NoError(t, b.Select(models.CollectionDrip))
	assert.Empty(t, b.Records())
	assert.Zero(t, b.Total())
	assert.Equal(t, models.CollectionDrip, b.Collection())

	_, err = b.FetchPage(ctx, 2, 2)
	assert.ErrorIs(t, err, ErrPreviousPageNotFound)

	page, err := b.FetchPage(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"r01"}, bookingIDs(page))

	assert.ErrorIs(t, b.Select("nope"), ErrUnknownCollection)
}

func TestBookingBrowser_MergeReplacesInPlace(t *testing.T) {
	b, _ := newTestBrowser(t, 3)
	ctx := context.Background()

	_, err := b.FetchPage(ctx, 10, 1)
	require.NoError(t, err)

	changed := b.Records()[1]
	changed.Name = "Renamed"

	b.mu.Lock()
	b.acceptLocked(2, []models.Booking{changed})
	b.mu.Unlock()

	records := b.Records()
	assert.Equal(t, []string{"r03", "r02", "r01"}, bookingIDs(records))
	assert.Equal(t, "Renamed", records[1].Name)
}
