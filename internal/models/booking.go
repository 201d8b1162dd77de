package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Booking collections filled by the public booking forms
const (
	CollectionOrchard  = "OrchardBooking"
	CollectionTrellis  = "TrellisBooking"
	CollectionDrip     = "DripBooking"
	CollectionSoilTest = "SoilTestBooking"
	CollectionExpert   = "ExpertBooking"
	CollectionQuery    = "QueryBooking"
)

// BookingCollections lists every collection the admin can browse
var BookingCollections = []string{
	CollectionOrchard,
	CollectionTrellis,
	CollectionDrip,
	CollectionSoilTest,
	CollectionExpert,
	CollectionQuery,
}

// IsBookingCollection reports whether name is a known booking collection
func IsBookingCollection(name string) bool {
	for _, c := range BookingCollections {
		if c == name {
			return true
		}
	}
	return false
}

// ErrInvalidPatch is returned when a patch touches a field it may not change
var ErrInvalidPatch = errors.New("invalid booking patch")

// Booking is a service request submitted through one of the public forms.
// Fields that differ per collection (land size, wire pattern, crop type...)
// live in Payload and are flattened into the JSON document.
type Booking struct {
	ID          string         `gorm:"primaryKey;size:36"`
	Collection  string         `gorm:"primaryKey;size:64;index:idx_bookings_collection_created,priority:1"`
	ReferenceNo string         `gorm:"size:64"`
	Name        string         `gorm:"size:255"`
	Address     string         `gorm:"type:text"`
	Phone       string         `gorm:"size:20"`
	Email       string         `gorm:"size:255"`
	Payload     map[string]any `gorm:"serializer:json;type:jsonb"`
	Checked     bool
	CreatedAt   time.Time `gorm:"index:idx_bookings_collection_created,priority:2"`
}

// MarshalJSON writes the booking as one flat document, the shape the
// dashboard tables and CSV export read.
func (b Booking) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(b.Payload)+8)
	for k, v := range b.Payload {
		doc[k] = v
	}
	doc["id"] = b.ID
	doc["referenceNo"] = b.ReferenceNo
	doc["name"] = b.Name
	doc["address"] = b.Address
	doc["phone"] = b.Phone
	doc["checked"] = b.Checked
	doc["createdAt"] = b.CreatedAt.UTC().Format(time.RFC3339Nano)
	if b.Email != "" {
		doc["email"] = b.Email
	}
	return json.Marshal(doc)
}

// UnmarshalJSON reads a flat document back into the typed fields and payload
func (b *Booking) UnmarshalJSON(data []byte) error {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	out := Booking{Payload: map[string]any{}}
	for k, v := range doc {
		switch k {
		case "id":
			out.ID, _ = v.(string)
		case "collection":
			out.Collection, _ = v.(string)
		case "referenceNo":
			out.ReferenceNo, _ = v.(string)
		case "name":
			out.Name, _ = v.(string)
		case "address":
			out.Address, _ = v.(string)
		case "phone":
			out.Phone, _ = v.(string)
		case "email":
			out.Email, _ = v.(string)
		case "checked":
			out.Checked, _ = v.(bool)
		case "createdAt":
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("createdAt must be an RFC3339 string")
			}
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return fmt.Errorf("createdAt: %w", err)
			}
			out.CreatedAt = t
		default:
			out.Payload[k] = v
		}
	}

	*b = out
	return nil
}

// ApplyPatch merges patch into the booking. Known columns are set directly,
// anything else lands in Payload. The patch is validated as a whole before
// any field changes. id and collection may be echoed back but not changed,
// createdAt is read-only and ignored.
func (b *Booking) ApplyPatch(patch map[string]any) error {
	for k, v := range patch {
		switch k {
		case "id":
			if s, ok := v.(string); !ok || s != b.ID {
				return fmt.Errorf("%w: id cannot be changed", ErrInvalidPatch)
			}
		case "collection":
			if s, ok := v.(string); !ok || s != b.Collection {
				return fmt.Errorf("%w: collection cannot be changed", ErrInvalidPatch)
			}
		case "checked":
			if _, ok := v.(bool); !ok {
				return fmt.Errorf("%w: checked must be a boolean", ErrInvalidPatch)
			}
		case "referenceNo", "name", "address", "phone", "email":
			if _, ok := v.(string); !ok {
				return fmt.Errorf("%w: %s must be a string", ErrInvalidPatch, k)
			}
		}
	}

	for k, v := range patch {
		switch k {
		case "id", "collection", "createdAt":
		case "checked":
			b.Checked = v.(bool)
		case "referenceNo":
			b.ReferenceNo = v.(string)
		case "name":
			b.Name = v.(string)
		case "address":
			b.Address = v.(string)
		case "phone":
			b.Phone = v.(string)
		case "email":
			b.Email = v.(string)
		default:
			if b.Payload == nil {
				b.Payload = map[string]any{}
			}
			b.Payload[k] = v
		}
	}
	return nil
}

// Clone returns a copy that shares nothing mutable with b
func (b Booking) Clone() Booking {
	if b.Payload != nil {
		payload := make(map[string]any, len(b.Payload))
		for k, v := range b.Payload {
			payload[k] = v
		}
		b.Payload = payload
	}
	return b
}
