package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/alilals/ziraat-backend/internal/models"
	"github.com/alilals/ziraat-backend/internal/storage"
	"github.com/alilals/ziraat-backend/internal/utils"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ErrUnknownCollection is returned for a collection name outside models.BookingCollections
var ErrUnknownCollection = errors.New("unknown booking collection")

// referencePrefixes start the reference number of a newly submitted booking
var referencePrefixes = map[string]string{
	models.CollectionOrchard:  "ORC",
	models.CollectionTrellis:  "TRL",
	models.CollectionDrip:     "DRP",
	models.CollectionSoilTest: "SOIL",
	models.CollectionExpert:   "EXP",
	models.CollectionQuery:    "QRY",
}

// ClampPageSize maps a requested page size into 1..MaxPageSize, 0 or less
// meaning DefaultPageSize
func ClampPageSize(size int) int {
	switch {
	case size <= 0:
		return DefaultPageSize
	case size > MaxPageSize:
		return MaxPageSize
	default:
		return size
	}
}

// BookingPage is one page of the token based listing. An empty
// NextPageToken means there is nothing after this page.
type BookingPage struct {
	Records       []models.Booking `json:"records"`
	NextPageToken string           `json:"next_page_token"`
}

// BookingService is the stateless booking API: the caller carries the page
// token between requests
type BookingService struct {
	store  storage.BookingStore
	logger *zap.Logger
	now    func() time.Time
}

func NewBookingService(store storage.BookingStore, logger *zap.Logger) *BookingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{store: store, logger: logger, now: time.Now}
}

func checkCollection(collection string) error {
	if !models.IsBookingCollection(collection) {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	return nil
}

// TotalCount returns the number of bookings in collection, or 0 when the
// store cannot answer
func (s *BookingService) TotalCount(ctx context.Context, collection string) int64 {
	if err := checkCollection(collection); err != nil {
		return 0
	}
	count, err := s.store.Count(ctx, collection)
	if err != nil {
		s.logger.Error("Error fetching total bookings count", zap.String("collection", collection), zap.Error(err))
		return 0
	}
	return count
}

// Page returns up to size bookings newest first, starting after token
func (s *BookingService) Page(ctx context.Context, collection string, size int, token string) (*BookingPage, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	after, err := storage.DecodePageToken(token)
	if err != nil {
		return nil, err
	}
	size = ClampPageSize(size)

	// one extra row tells whether another page exists
	records, err := s.store.Page(ctx, collection, size+1, after)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}

	page := &BookingPage{Records: records}
	if len(records) > size {
		page.Records = records[:size]
		page.NextPageToken = storage.EncodePageToken(storage.CursorOf(page.Records[size-1]))
	}
	return page, nil
}

// All returns every booking in collection newest first, for export
func (s *BookingService) All(ctx context.Context, collection string) ([]models.Booking, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	records, err := s.store.All(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("fetch all: %w", err)
	}
	if records == nil {
		records = []models.Booking{}
	}
	return records, nil
}

// Edit merges patch into the stored booking
func (s *BookingService) Edit(ctx context.Context, collection, id string, patch map[string]any) (*models.Booking, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	updated, err := s.store.Update(ctx, collection, id, patch)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Booking updated", zap.String("collection", collection), zap.String("id", id))
	return updated, nil
}

func (s *BookingService) Delete(ctx context.Context, collection, id string) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, collection, id); err != nil {
		return err
	}
	s.logger.Info("Booking deleted", zap.String("collection", collection), zap.String("id", id))
	return nil
}

// Submit stores a booking from a public form. Server side fields are
// assigned here and anything the client sent for them is ignored.
func (s *BookingService) Submit(ctx context.Context, collection string, b *models.Booking) (*models.Booking, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	if b.Name == "" || b.Phone == "" {
		return nil, &ValidationError{Message: "name and phone are required"}
	}
	if !utils.IsValidPhoneNumber(b.Phone) {
		return nil, &ValidationError{Message: "Invalid phone number format. Please enter a valid 10-digit Indian mobile number."}
	}

	now := s.now()
	ref, err := utils.GenerateSecureID(referencePrefixes[collection], now)
	if err != nil {
		return nil, fmt.Errorf("generate reference number: %w", err)
	}

	booking := b.Clone()
	booking.ID = ""
	booking.Collection = collection
	booking.ReferenceNo = ref
	booking.Checked = false
	booking.CreatedAt = now

	created, err := s.store.Create(ctx, &booking)
	if err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}
	s.logger.Info("Booking submitted",
		zap.String("collection", collection),
		zap.String("id", created.ID),
		zap.String("reference_no", created.ReferenceNo))
	return created, nil
}
