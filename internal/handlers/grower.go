package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/alilals/ziraat-backend/internal/models"
	"github.com/alilals/ziraat-backend/internal/services"
	"github.com/alilals/ziraat-backend/internal/storage"
)

// GrowerHandler serves the grower registry and the notification calendar
type GrowerHandler struct {
	growers *services.GrowerService
	logger  *zap.Logger
}

// NewGrowerHandler creates a new grower handler
func NewGrowerHandler(growers *services.GrowerService, logger *zap.Logger) *GrowerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GrowerHandler{growers: growers, logger: logger}
}

// RegisterGrower adds a grower to the registry
func (h *GrowerHandler) RegisterGrower(c *fiber.Ctx) error {
	var req models.Grower
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	grower, err := h.growers.Register(c.UserContext(), &req)
	if err != nil {
		return h.growerFailure(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"grower":  grower,
	})
}

// ListGrowers returns one page of growers (?limit=&page_token=)
func (h *GrowerHandler) ListGrowers(c *fiber.Ctx) error {
	page, err := h.growers.Page(c.UserContext(),
		c.QueryInt("limit", services.DefaultPageSize), c.Query("page_token"))
	if err != nil {
		return h.growerFailure(c, err)
	}

	return c.JSON(fiber.Map{
		"success":         true,
		"growers":         page.Growers,
		"count":           len(page.Growers),
		"total":           page.Total,
		"total_pages":     page.TotalPages,
		"next_page_token": page.NextPageToken,
	})
}

// SearchGrowers matches ?q= against project ids and grower names
func (h *GrowerHandler) SearchGrowers(c *fiber.Ctx) error {
	growers, err := h.growers.Search(c.UserContext(), c.Query("q"))
	if err != nil {
		return h.growerFailure(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"growers": growers,
		"count":   len(growers),
	})
}

func (h *GrowerHandler) GetGrower(c *fiber.Ctx) error {
	grower, err := h.growers.Get(c.UserContext(), c.Params("projectId"))
	if err != nil {
		return h.growerFailure(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"grower":  grower,
	})
}

func (h *GrowerHandler) UpdateGrower(c *fiber.Ctx) error {
	var patch models.GrowerPatch
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	grower, err := h.growers.Update(c.UserContext(), c.Params("projectId"), patch)
	if err != nil {
		return h.growerFailure(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"grower":  grower,
	})
}

func (h *GrowerHandler) DeleteGrower(c *fiber.Ctx) error {
	if err := h.growers.Remove(c.UserContext(), c.Params("projectId")); err != nil {
		return h.growerFailure(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Grower deleted successfully",
	})
}

// ListTasks returns the grower's calendar keyed by date
func (h *GrowerHandler) ListTasks(c *fiber.Ctx) error {
	tasks, err := h.growers.Tasks(c.UserContext(), c.Params("projectId"))
	if err != nil {
		return h.growerFailure(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"tasks":   tasks,
	})
}

// AddTask plans a task for the grower
func (h *GrowerHandler) AddTask(c *fiber.Ctx) error {
	var req struct {
		Date        string `json:"date"`
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	task, err := h.growers.AddTask(c.UserContext(), c.Params("projectId"), req.Date, req.Title, req.Description)
	if err != nil {
		return h.growerFailure(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Task added successfully",
		"task":    task,
	})
}

// DeleteTask removes one task from a calendar date
func (h *GrowerHandler) DeleteTask(c *fiber.Ctx) error {
	err := h.growers.DeleteTask(c.UserContext(), c.Params("projectId"), c.Params("date"), c.Params("taskId"))
	if err != nil {
		return h.growerFailure(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Task deleted successfully",
	})
}

func (h *GrowerHandler) growerFailure(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrGrowerNotFound),
		errors.Is(err, models.ErrTaskNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, storage.ErrDuplicateGrower):
		status = fiber.StatusConflict
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, storage.ErrInvalidPageToken):
		status = fiber.StatusBadRequest
	}

	if status == fiber.StatusInternalServerError {
		h.logger.Error("Grower request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}
