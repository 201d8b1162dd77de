package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alilals/ziraat-backend/internal/models"
)

// ErrOTPNotFound means no live code exists for the number
var ErrOTPNotFound = errors.New("otp not found")

// OTPCache stores one OTP record per phone number with store-side expiry
type OTPCache interface {
	Get(ctx context.Context, number string) (*models.OTPRecord, error)
	Set(ctx context.Context, number string, record *models.OTPRecord, ttl time.Duration) error
	// SetKeepTTL overwrites an existing record without touching its expiry.
	// It returns ErrOTPNotFound if the key expired in the meantime.
	SetKeepTTL(ctx context.Context, number string, record *models.OTPRecord) error
	Delete(ctx context.Context, number string) error
}

// OTPKey is the cache key for a phone number
func OTPKey(number string) string {
	return "otp:" + number
}

// RedisOTPCache keeps OTP records as JSON strings in Redis
type RedisOTPCache struct {
	client *redis.Client
}

// NewRedisOTPCache uses an already connected client; the caller owns its lifecycle
func NewRedisOTPCache(client *redis.Client) *RedisOTPCache {
	return &RedisOTPCache{client: client}
}

func (c *RedisOTPCache) Get(ctx context.Context, number string) (*models.OTPRecord, error) {
	raw, err := c.client.Get(ctx, OTPKey(number)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrOTPNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get otp: %w", err)
	}

	var record models.OTPRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("decode otp record: %w", err)
	}
	return &record, nil
}

func (c *RedisOTPCache) Set(ctx context.Context, number string, record *models.OTPRecord, ttl time.Duration) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode otp record: %w", err)
	}
	if err := c.client.Set(ctx, OTPKey(number), data, ttl).Err(); err != nil {
		return fmt.Errorf("set otp: %w", err)
	}
	return nil
}

func (c *RedisOTPCache) SetKeepTTL(ctx context.Context, number string, record *models.OTPRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode otp record: %w", err)
	}

	// XX so an expired key is not resurrected without a TTL
	err = c.client.SetArgs(ctx, OTPKey(number), data, redis.SetArgs{
		Mode:    "XX",
		KeepTTL: true,
	}).Err()
	if errors.Is(err, redis.Nil) {
		return ErrOTPNotFound
	}
	if err != nil {
		return fmt.Errorf("update otp: %w", err)
	}
	return nil
}

func (c *RedisOTPCache) Delete(ctx context.Context, number string) error {
	if err := c.client.Del(ctx, OTPKey(number)).Err(); err != nil {
		return fmt.Errorf("delete otp: %w", err)
	}
	return nil
}
