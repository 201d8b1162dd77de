package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alilals/ziraat-backend/internal/models"
)

var (
	ErrBookingNotFound  = errors.New("booking not found")
	ErrInvalidPageToken = errors.New("invalid page token")
)

// Cursor marks the last booking of a page. The next page starts strictly
// after it in (CreatedAt DESC, ID DESC) order.
type Cursor struct {
	CreatedAt time.Time `json:"t"`
	ID        string    `json:"id"`
}

// CursorOf returns the cursor positioned on b
func CursorOf(b models.Booking) *Cursor {
	return &Cursor{CreatedAt: b.CreatedAt, ID: b.ID}
}

// precedes reports whether the row (createdAt, id) sorts after the cursor
// in newest-first order
func (c *Cursor) precedes(createdAt time.Time, id string) bool {
	if createdAt.Equal(c.CreatedAt) {
		return id < c.ID
	}
	return createdAt.Before(c.CreatedAt)
}

// EncodePageToken turns a cursor into the opaque token handed to clients.
// A nil cursor encodes to the empty token, meaning "first page".
func EncodePageToken(c *Cursor) string {
	if c == nil {
		return ""
	}
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodePageToken reverses EncodePageToken
func DecodePageToken(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPageToken, err)
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPageToken, err)
	}
	if c.ID == "" || c.CreatedAt.IsZero() {
		return nil, ErrInvalidPageToken
	}
	return &c, nil
}

// BookingStore defines the document operations the booking reader needs
type BookingStore interface {
	// Create inserts a booking, assigning ID and CreatedAt when empty
	Create(ctx context.Context, b *models.Booking) (*models.Booking, error)
	Get(ctx context.Context, collection, id string) (*models.Booking, error)
	Count(ctx context.Context, collection string) (int64, error)

	// Page returns up to size bookings newest first, starting after the
	// cursor, or from the top when after is nil
	Page(ctx context.Context, collection string, size int, after *Cursor) ([]models.Booking, error)
	// All returns the whole collection in the same order as Page
	All(ctx context.Context, collection string) ([]models.Booking, error)

	// Update merges patch into the stored booking and returns the result
	Update(ctx context.Context, collection, id string, patch map[string]any) (*models.Booking, error)
	Delete(ctx context.Context, collection, id string) error
}
