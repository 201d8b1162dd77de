package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alilals/ziraat-backend/internal/models"
	"github.com/alilals/ziraat-backend/internal/storage"
)

func newTestGrowerService(t *testing.T, names ...string) (*GrowerService, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)}
	svc := NewGrowerService(storage.NewMemoryGrowerStore(), nil)
	svc.now = clock.Now

	for i, name := range names {
		_, err := svc.Register(context.Background(), &models.Grower{
			ProjectID:    fmt.Sprintf("P-%02d", i+1),
			NameOfGrower: name,
			PhoneNumber:  "9876543210",
		})
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}
	return svc, clock
}

func TestGrowerService_RegisterValidation(t *testing.T) {
	svc, _ := newTestGrowerService(t, "Imran")
	ctx := context.Background()

	_, err := svc.Register(ctx, &models.Grower{NameOfGrower: "No Project"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Register(ctx, &models.Grower{ProjectID: "P-09", NameOfGrower: "Bad", PhoneNumber: "12345"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Register(ctx, &models.Grower{ProjectID: " P-01 ", NameOfGrower: "Again"})
	assert.ErrorIs(t, err, storage.ErrDuplicateGrower)

	created, err := svc.Register(ctx, &models.Grower{
		ID:           "client-chosen",
		ProjectID:    "P-02",
		NameOfGrower: "Bilal",
		Tasks:        map[string][]models.GrowerTask{"2025-01-01": {{ID: "x"}}},
	})
	require.NoError(t, err)
	assert.NotEqual(t, "client-chosen", created.ID)
	assert.Empty(t, created.Tasks)
}

func TestGrowerService_Page(t *testing.T) {
	svc, _ := newTestGrowerService(t, "A", "B", "C", "D", "E")
	ctx := context.Background()

	page, err := svc.Page(ctx, 2, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"P-05", "P-04"}, growerProjectIDs(page.Growers))
	assert.EqualValues(t, 5, page.Total)
	assert.EqualValues(t, 3, page.TotalPages)
	require.NotEmpty(t, page.NextPageToken)

	page, err = svc.Page(ctx, 2, page.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, []string{"P-03", "P-02"}, growerProjectIDs(page.Growers))

	page, err = svc.Page(ctx, 2, page.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, []string{"P-01"}, growerProjectIDs(page.Growers))
	assert.Empty(t, page.NextPageToken)

	_, err = svc.Page(ctx, 2, "!!")
	assert.ErrorIs(t, err, storage.ErrInvalidPageToken)
}

func TestGrowerService_Search(t *testing.T) {
	svc, _ := newTestGrowerService(t, "Imran Bhat", "Bilal Dar")
	ctx := context.Background()

	found, err := svc.Search(ctx, "  IMRAN ")
	require.NoError(t, err)
	assert.Equal(t, []string{"P-01"}, growerProjectIDs(found))

	found, err = svc.Search(ctx, "   ")
	require.NoError(t, err)
	assert.NotNil(t, found)
	assert.Empty(t, found)
}

func TestGrowerService_Update(t *testing.T) {
	svc, _ := newTestGrowerService(t, "Imran")
	ctx := context.Background()

	name, phone := "Imran Bhat", "9123456789"
	updated, err := svc.Update(ctx, "P-01", models.GrowerPatch{NameOfGrower: &name, PhoneNumber: &phone})
	require.NoError(t, err)
	assert.Equal(t, "Imran Bhat", updated.NameOfGrower)
	assert.Equal(t, "9123456789", updated.PhoneNumber)

	bad := "0000"
	_, err = svc.Update(ctx, "P-01", models.GrowerPatch{PhoneNumber: &bad})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Update(ctx, "P-77", models.GrowerPatch{NameOfGrower: &name})
	assert.ErrorIs(t, err, storage.ErrGrowerNotFound)
}

func TestGrowerService_TaskCalendar(t *testing.T) {
	svc, _ := newTestGrowerService(t, "Imran")
	ctx := context.Background()

	tasks, err := svc.Tasks(ctx, "P-01")
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)

	spray, err := svc.AddTask(ctx, "P-01", "2025-04-10", " Spray ", "Mancozeb 2g/l")
	require.NoError(t, err)
	assert.Equal(t, "Spray", spray.Title)
	assert.Equal(t, "2025-04-10", spray.Date)
	prune, err := svc.AddTask(ctx, "P-01", "2025-04-10", "Prune", "")
	require.NoError(t, err)
	assert.NotEqual(t, spray.ID, prune.ID)

	tasks, err = svc.Tasks(ctx, "P-01")
	require.NoError(t, err)
	require.Len(t, tasks["2025-04-10"], 2)

	require.NoError(t, svc.DeleteTask(ctx, "P-01", "2025-04-10", spray.ID))
	require.NoError(t, svc.DeleteTask(ctx, "P-01", "2025-04-10", prune.ID))

	tasks, err = svc.Tasks(ctx, "P-01")
	require.NoError(t, err)
	assert.NotContains(t, tasks, "2025-04-10")

	assert.ErrorIs(t, svc.DeleteTask(ctx, "P-01", "2025-04-10", spray.ID), models.ErrTaskNotFound)
}

func TestGrowerService_TaskValidation(t *testing.T) {
	svc, _ := newTestGrowerService(t, "Imran")
	ctx := context.Background()

	_, err := svc.AddTask(ctx, "P-01", "10-04-2025", "Spray", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.AddTask(ctx, "P-01", "2025-04-10", "  ", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.AddTask(ctx, "P-99", "2025-04-10", "Spray", "")
	assert.ErrorIs(t, err, storage.ErrGrowerNotFound)
}

func TestGrowerService_Remove(t *testing.T) {
	svc, _ := newTestGrowerService(t, "Imran")
	ctx := context.Background()

	require.NoError(t, svc.Remove(ctx, "P-01"))
	assert.ErrorIs(t, svc.Remove(ctx, "P-01"), storage.ErrGrowerNotFound)
}

func growerProjectIDs(growers []models.Grower) []string {
	out := make([]string, len(growers))
	for i, g := range growers {
		out[i] = g.ProjectID
	}
	return out
}
