package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/alilals/ziraat-backend/internal/models"
)

// DatabaseStore keeps bookings in a SQL database through gorm
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore wraps an open gorm connection
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

func (s *DatabaseStore) Create(ctx context.Context, b *models.Booking) (*models.Booking, error) {
	booking := b.Clone()
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now()
	}
	booking.CreatedAt = booking.CreatedAt.UTC()

	if err := s.db.WithContext(ctx).Create(&booking).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (s *DatabaseStore) Get(ctx context.Context, collection, id string) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		First(&booking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (s *DatabaseStore) Count(ctx context.Context, collection string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("collection = ?", collection).
		Count(&count).Error
	return count, err
}

func (s *DatabaseStore) Page(ctx context.Context, collection string, size int, after *Cursor) ([]models.Booking, error) {
	query := s.db.WithContext(ctx).Where("collection = ?", collection)
	if after != nil {
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))",
			after.CreatedAt.UTC(), after.CreatedAt.UTC(), after.ID)
	}

	bookings := make([]models.Booking, 0, size)
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(size).
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (s *DatabaseStore) All(ctx context.Context, collection string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("created_at DESC").
		Order("id DESC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

// Update reads, merges and saves the booking in one transaction
func (s *DatabaseStore) Update(ctx context.Context, collection, id string, patch map[string]any) (*models.Booking, error) {
	var updated models.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		err := tx.Where("collection = ? AND id = ?", collection, id).First(&booking).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBookingNotFound
		}
		if err != nil {
			return err
		}

		if err := booking.ApplyPatch(patch); err != nil {
			return err
		}
		if err := tx.Save(&booking).Error; err != nil {
			return err
		}
		updated = booking
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *DatabaseStore) Delete(ctx context.Context, collection, id string) error {
	result := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Delete(&models.Booking{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBookingNotFound
	}
	return nil
}
