package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBooking() Booking {
	return Booking{
		ID:          "b-1",
		Collection:  CollectionOrchard,
		ReferenceNo: "ORC-1001",
		Name:        "Ghulam Nabi",
		Address:     "Sopore, Baramulla",
		Phone:       "9876543210",
		Payload: map[string]any{
			"totalLand":   "4 kanal",
			"wirePattern": "V",
		},
		CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestBooking_JSONIsFlat(t *testing.T) {
	data, err := json.Marshal(sampleBooking())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, "b-1", doc["id"])
	assert.Equal(t, "ORC-1001", doc["referenceNo"])
	assert.Equal(t, "4 kanal", doc["totalLand"])
	assert.Equal(t, "V", doc["wirePattern"])
	assert.Equal(t, false, doc["checked"])
	assert.Equal(t, "2025-03-01T10:00:00Z", doc["createdAt"])
	assert.NotContains(t, doc, "email")
	assert.NotContains(t, doc, "Payload")
}

func TestBooking_UnmarshalSplitsPayload(t *testing.T) {
	var b Booking
	err := json.Unmarshal([]byte(`{
		"id": "x",
		"name": "Mir",
		"checked": true,
		"cropType": "apple",
		"createdAt": "2025-03-01T10:00:00Z"
	}`), &b)
	require.NoError(t, err)

	assert.Equal(t, "x", b.ID)
	assert.Equal(t, "Mir", b.Name)
	assert.True(t, b.Checked)
	assert.Equal(t, map[string]any{"cropType": "apple"}, b.Payload)
	assert.True(t, b.CreatedAt.Equal(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)))

	err = json.Unmarshal([]byte(`{"createdAt": 12}`), &b)
	assert.Error(t, err)
}

func TestBooking_ApplyPatchCheckedOnly(t *testing.T) {
	b := sampleBooking()
	before := b.Clone()

	require.NoError(t, b.ApplyPatch(map[string]any{"checked": true}))

	assert.True(t, b.Checked)
	b.Checked = false
	assert.Equal(t, before, b)
}

func TestBooking_ApplyPatchEchoedDocument(t *testing.T) {
	// The dashboard sends the whole row back with checked flipped
	b := sampleBooking()
	err := b.ApplyPatch(map[string]any{
		"id":          "b-1",
		"createdAt":   "2020-01-01T00:00:00Z",
		"checked":     true,
		"wirePattern": "Y",
	})
	require.NoError(t, err)

	assert.True(t, b.Checked)
	assert.Equal(t, "Y", b.Payload["wirePattern"])
	assert.Equal(t, 2025, b.CreatedAt.Year())
}

func TestBooking_ApplyPatchRejectsWithoutPartialWrite(t *testing.T) {
	b := sampleBooking()
	before := b.Clone()

	err := b.ApplyPatch(map[string]any{"name": "changed", "checked": "yes"})
	require.ErrorIs(t, err, ErrInvalidPatch)
	assert.Equal(t, before, b)

	err = b.ApplyPatch(map[string]any{"id": "other"})
	require.ErrorIs(t, err, ErrInvalidPatch)

	err = b.ApplyPatch(map[string]any{"collection": CollectionDrip})
	require.ErrorIs(t, err, ErrInvalidPatch)
}

func TestIsBookingCollection(t *testing.T) {
	for _, c := range BookingCollections {
		assert.True(t, IsBookingCollection(c), c)
	}
	assert.False(t, IsBookingCollection("blogs"))
	assert.False(t, IsBookingCollection(""))
}
