package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/alilals/ziraat-backend/internal/models"
	"github.com/alilals/ziraat-backend/internal/services"
	"github.com/alilals/ziraat-backend/internal/storage"
)

// SessionHeader carries the admin's browse session id
const SessionHeader = "X-Session-ID"

// BookingHandler handles booking-related requests
type BookingHandler struct {
	bookings *services.BookingService
	sessions *services.BrowseSessionManager
	logger   *zap.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookings *services.BookingService, sessions *services.BrowseSessionManager, logger *zap.Logger) *BookingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingHandler{
		bookings: bookings,
		sessions: sessions,
		logger:   logger,
	}
}

// CreateBooking stores a booking submitted from the public site
func (h *BookingHandler) CreateBooking(c *fiber.Ctx) error {
	var req models.Booking
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	booking, err := h.bookings.Submit(c.UserContext(), c.Params("collection"), &req)
	if err != nil {
		return h.bookingFailure(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Booking created successfully",
		"booking": booking,
	})
}

// ListBookings returns one page using page tokens (?limit=&page_token=)
func (h *BookingHandler) ListBookings(c *fiber.Ctx) error {
	page, err := h.bookings.Page(c.UserContext(), c.Params("collection"),
		c.QueryInt("limit", services.DefaultPageSize), c.Query("page_token"))
	if err != nil {
		return h.bookingFailure(c, err)
	}

	return c.JSON(fiber.Map{
		"success":         true,
		"records":         page.Records,
		"count":           len(page.Records),
		"next_page_token": page.NextPageToken,
	})
}

// CountBookings returns the collection size, 0 if it cannot be read
func (h *BookingHandler) CountBookings(c *fiber.Ctx) error {
	collection := c.Params("collection")
	if !models.IsBookingCollection(collection) {
		return h.bookingFailure(c, services.ErrUnknownCollection)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"collection": collection,
		"total":      h.bookings.TotalCount(c.UserContext(), collection),
	})
}

// AllBookings returns the whole collection, newest first
func (h *BookingHandler) AllBookings(c *fiber.Ctx) error {
	records, err := h.bookings.All(c.UserContext(), c.Params("collection"))
	if err != nil {
		return h.bookingFailure(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"records": records,
		"count":   len(records),
	})
}

// UpdateBooking merges the body into a booking
func (h *BookingHandler) UpdateBooking(c *fiber.Ctx) error {
	var patch map[string]any
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	booking, err := h.bookings.Edit(c.UserContext(), c.Params("collection"), c.Params("id"), patch)
	if err != nil {
		return h.bookingFailure(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Booking updated successfully",
		"booking": booking,
	})
}

// DeleteBooking removes a booking
func (h *BookingHandler) DeleteBooking(c *fiber.Ctx) error {
	if err := h.bookings.Delete(c.UserContext(), c.Params("collection"), c.Params("id")); err != nil {
		return h.bookingFailure(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Booking deleted successfully",
	})
}

// withBrowser runs fn on the session browser named by the request. Any
// error, from the session lookup or from fn, becomes the error response.
func (h *BookingHandler) withBrowser(c *fiber.Ctx, fn func(b *services.BookingBrowser) error) error {
	if err := h.sessions.Within(c.Get(SessionHeader), c.Params("collection"), fn); err != nil {
		return h.bookingFailure(c, err)
	}
	return nil
}

// BrowsePage serves page :page of the session's collection (?limit=)
func (h *BookingHandler) BrowsePage(c *fiber.Ctx) error {
	pageNo, err := c.ParamsInt("page")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Page number must be an integer",
		})
	}

	size := services.ClampPageSize(c.QueryInt("limit", services.DefaultPageSize))
	return h.withBrowser(c, func(b *services.BookingBrowser) error {
		records, err := b.FetchPage(c.UserContext(), size, pageNo)
		if err != nil {
			return err
		}

		total := b.Total()
		return c.JSON(fiber.Map{
			"success":     true,
			"page":        pageNo,
			"limit":       size,
			"records":     records,
			"count":       len(records),
			"accumulated": len(b.Records()),
			"total":       total,
			"has_next":    len(records) == size && int64(pageNo*size) < total,
		})
	})
}

// BrowseCount refreshes the session's cached total
func (h *BookingHandler) BrowseCount(c *fiber.Ctx) error {
	return h.withBrowser(c, func(b *services.BookingBrowser) error {
		total := b.FetchTotalCount(c.UserContext())
		resp := fiber.Map{
			"success": b.Err() == nil,
			"total":   total,
		}
		if err := b.Err(); err != nil {
			resp["error"] = err.Error()
		}
		return c.JSON(resp)
	})
}

// BrowseAll loads the entire collection, newest first
func (h *BookingHandler) BrowseAll(c *fiber.Ctx) error {
	return h.withBrowser(c, func(b *services.BookingBrowser) error {
		records, err := b.FetchAll(c.UserContext())
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"success": true,
			"records": records,
			"count":   len(records),
		})
	})
}

// BrowseRecords returns the accumulated list, or the last error in its place
func (h *BookingHandler) BrowseRecords(c *fiber.Ctx) error {
	return h.withBrowser(c, func(b *services.BookingBrowser) error {
		if err := b.Err(); err != nil {
			return err
		}

		records := b.Records()
		return c.JSON(fiber.Map{
			"success": true,
			"records": records,
			"count":   len(records),
			"total":   b.Total(),
		})
	})
}

// BrowseUpdate edits a booking and mirrors it into the session list
func (h *BookingHandler) BrowseUpdate(c *fiber.Ctx) error {
	var patch map[string]any
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	return h.withBrowser(c, func(b *services.BookingBrowser) error {
		booking, err := b.EditRecord(c.UserContext(), c.Params("id"), patch)
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "Record updated successfully",
			"booking": booking,
		})
	})
}

// BrowseDelete removes a booking from the store and the session list
func (h *BookingHandler) BrowseDelete(c *fiber.Ctx) error {
	return h.withBrowser(c, func(b *services.BookingBrowser) error {
		if err := b.DeleteRecord(c.UserContext(), c.Params("id")); err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "Record deleted successfully",
			"total":   b.Total(),
		})
	})
}

// EndSession drops the caller's browse session
func (h *BookingHandler) EndSession(c *fiber.Ctx) error {
	sessionID := c.Get(SessionHeader)
	if sessionID == "" {
		return h.bookingFailure(c, services.ErrMissingSessionID)
	}

	h.sessions.End(sessionID)
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Session ended",
	})
}

func (h *BookingHandler) bookingFailure(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrUnknownCollection),
		errors.Is(err, storage.ErrBookingNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrMissingSessionID),
		errors.Is(err, storage.ErrInvalidPageToken),
		errors.Is(err, models.ErrInvalidPatch):
		status = fiber.StatusBadRequest
	case errors.Is(err, services.ErrPreviousPageNotFound):
		status = fiber.StatusConflict
	}

	if status == fiber.StatusInternalServerError {
		h.logger.Error("Booking request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}
