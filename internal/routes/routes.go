package routes

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/alilals/ziraat-backend/internal/handlers"
	"github.com/alilals/ziraat-backend/internal/middleware"
)

// Handlers groups everything SetupRoutes mounts
type Handlers struct {
	Health   *handlers.HealthHandler
	OTP      *handlers.OTPHandler
	SMS      *handlers.SMSHandler
	Bookings *handlers.BookingHandler
	Growers  *handlers.GrowerHandler
}

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, h Handlers, adminAPIKey string, logger *zap.Logger) {
	app.Get("/", h.Health.Info)
	app.Get("/health", h.Health.Check)

	// ========== PUBLIC API ==========
	api := app.Group("/api")

	api.Post("/send-otp", h.OTP.SendOTP)
	api.Get("/send-otp", h.OTP.DescribeSendOTP)
	api.Post("/verify-otp", h.OTP.VerifyOTP)
	api.Get("/verify-otp", h.OTP.DescribeVerifyOTP)

	api.Post("/send-sms", h.SMS.SendSMS)
	api.Get("/send-sms", h.SMS.DescribeSendSMS)
	api.Get("/get-templates", h.SMS.GetTemplates)
	api.Post("/send-template", h.SMS.SendTemplate)

	api.Post("/bookings/:collection", h.Bookings.CreateBooking)

	// ========== ADMIN ROUTES ==========
	admin := app.Group("/admin", middleware.RequireAdminKey(adminAPIKey, logger))

	bookings := admin.Group("/bookings/:collection")
	bookings.Get("/", h.Bookings.ListBookings)
	bookings.Get("/count", h.Bookings.CountBookings)
	bookings.Get("/all", h.Bookings.AllBookings)
	bookings.Patch("/:id", h.Bookings.UpdateBooking)
	bookings.Delete("/:id", h.Bookings.DeleteBooking)

	admin.Delete("/browse/session", h.Bookings.EndSession)

	browse := admin.Group("/browse/:collection")
	browse.Get("/pages/:page", h.Bookings.BrowsePage)
	browse.Get("/count", h.Bookings.BrowseCount)
	browse.Get("/all", h.Bookings.BrowseAll)
	browse.Get("/records", h.Bookings.BrowseRecords)
	browse.Patch("/records/:id", h.Bookings.BrowseUpdate)
	browse.Delete("/records/:id", h.Bookings.BrowseDelete)

	growers := admin.Group("/growers")
	growers.Get("/", h.Growers.ListGrowers)
	growers.Post("/", h.Growers.RegisterGrower)
	growers.Get("/search", h.Growers.SearchGrowers)
	growers.Get("/:projectId", h.Growers.GetGrower)
	growers.Patch("/:projectId", h.Growers.UpdateGrower)
	growers.Delete("/:projectId", h.Growers.DeleteGrower)
	growers.Get("/:projectId/tasks", h.Growers.ListTasks)
	growers.Post("/:projectId/tasks", h.Growers.AddTask)
	growers.Delete("/:projectId/tasks/:date/:taskId", h.Growers.DeleteTask)
}
