package routes

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mentorleofficial/mentorle-api/internal/config"
	"github.com/mentorleofficial/mentorle-api/internal/handlers"
	"github.com/mentorleofficial/mentorle-api/internal/middleware"
	"github.com/mentorleofficial/mentorle-api/internal/payments"
	"github.com/mentorleofficial/mentorle-api/internal/repository"
	"github.com/mentorleofficial/mentorle-api/internal/services"
	bookingws "github.com/mentorleofficial/mentorle-api/internal/websocket"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) {
	userRepo := repository.NewUserRepository(db)
	offeringRepo := repository.NewOfferingRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)

	hub := bookingws.NewHub()
	go hub.Run()

	gateway := payments.NewClient(
		cfg.CashfreeBaseURL,
		cfg.CashfreeAppID,
		cfg.CashfreeSecretKey,
		cfg.CashfreeReturnURL,
	)

	bookingService := services.NewBookingService(db, bookingRepo, offeringRepo, userRepo, hub)
	paymentService := services.NewPaymentService(gateway, bookingRepo, userRepo, hub)

	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret)
	bookingHandler := handlers.NewBookingHandler(bookingService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	offeringHandler := handlers.NewOfferingHandler(offeringRepo)
	availabilityHandler := handlers.NewAvailabilityHandler(availabilityRepo, bookingService)
	eventsHandler := handlers.NewEventsHandler(hub, cfg.JWTSecret)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	// Gateway callbacks authenticate by payload, not bearer token.
	api.Post("/payments/webhook", paymentHandler.Webhook)

	protected := api.Group("", middleware.AuthRequired(cfg.JWTSecret))

	bookings := protected.Group("/bookings")
	bookings.Get("", bookingHandler.ListBookings)
	bookings.Post("", bookingHandler.CreateBooking)
	bookings.Get("/:id", bookingHandler.GetBooking)
	bookings.Patch("/:id", bookingHandler.UpdateBooking)

	paymentsGroup := protected.Group("/payments")
	paymentsGroup.Post("/create-order", paymentHandler.CreateOrder)
	paymentsGroup.Post("/create-link", paymentHandler.CreatePaymentLink)
	paymentsGroup.Post("/verify", paymentHandler.VerifyPayment)

	offerings := protected.Group("/offerings")
	offerings.Post("", offeringHandler.CreateOffering)
	offerings.Get("/:id", offeringHandler.GetOffering)
	offerings.Patch("/:id", offeringHandler.UpdateOffering)

	availability := protected.Group("/availability")
	availability.Post("", availabilityHandler.CreateWindow)
	availability.Delete("/:id", availabilityHandler.DeleteWindow)

	mentors := protected.Group("/mentors")
	mentors.Get("/:id/offerings", offeringHandler.ListMentorOfferings)
	mentors.Get("/:id/availability", availabilityHandler.ListWindows)
	mentors.Get("/:id/slots", availabilityHandler.ListSlots)

	api.Use("/ws", eventsHandler.WebSocketAuth)
	api.Get("/ws", websocket.New(eventsHandler.HandleWebSocket))
}
