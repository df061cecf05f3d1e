package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/willow-wellness/bookings-api/internal/domain"
	"github.com/willow-wellness/bookings-api/internal/http/handlers"
	ratelimit "github.com/willow-wellness/bookings-api/internal/http/middleware"
	"github.com/willow-wellness/bookings-api/internal/platform/mailer"
	"github.com/willow-wellness/bookings-api/internal/platform/payments"
	"github.com/willow-wellness/bookings-api/internal/repo/postgres"
	"github.com/willow-wellness/bookings-api/internal/service"
	"github.com/willow-wellness/bookings-api/pkg/config"
	"github.com/willow-wellness/bookings-api/pkg/database"
	"github.com/willow-wellness/bookings-api/pkg/events"
	"github.com/willow-wellness/bookings-api/pkg/logger"
	mw "github.com/willow-wellness/bookings-api/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Error("Invalid Redis URL", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	var mail mailer.Service
	if cfg.Email.DevMode || cfg.Email.MailerSendKey == "" {
		mail = mailer.NewDevMailer()
	} else {
		mail = mailer.NewMailer(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.FromEmail)
	}

	gateway := payments.NewStripeGateway(cfg.Stripe)
	catalog := domain.DefaultCatalog()

	bookingRepo := postgres.NewBookingRepository(pool)
	availabilityRepo := postgres.NewAvailabilityRepository(pool)
	profileRepo := postgres.NewProfileRepository(pool)

	bookingService := service.NewBookingService(
		bookingRepo, availabilityRepo, gateway, eventBus, mail,
		catalog, cfg.Booking, cfg.Stripe, nil,
	)
	webhookService := service.NewWebhookService(
		profileRepo, bookingRepo, gateway, eventBus, mail, catalog, nil,
	)

	h := handlers.New(bookingService, webhookService, availabilityRepo, profileRepo, cfg)

	limiter := ratelimit.NewRateLimiter(redisClient, ratelimit.RateLimitConfig{
		Requests: cfg.Booking.RateLimit,
		Window:   cfg.Booking.RateWindow,
		KeyFunc:  ratelimit.ClientIPKeyFunc,
	})

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("bookings-api"))
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Route("/bookings", func(r chi.Router) {
		r.With(limiter.Middleware()).Post("/", h.CreateBooking)
		r.Get("/availability", h.GetDateAvailability)
		r.Get("/manage/{token}", h.ManageBooking)
		r.Delete("/manage/{token}", h.CancelManagedBooking)
	})

	r.Post("/webhooks/stripe", h.StripeWebhook)

	r.Route("/admin", func(r chi.Router) {
		r.Use(h.RequireAdmin)
		r.Route("/bookings", func(r chi.Router) {
			r.Get("/", h.ListBookings)
			r.Get("/{id}", h.GetBooking)
			r.Patch("/{id}/status", h.UpdateBookingStatus)
			r.Delete("/{id}", h.CancelBooking)
		})
		r.Route("/availability", func(r chi.Router) {
			r.Get("/windows", h.ListAvailabilityWindows)
			r.Put("/windows/{weekday}", h.SetAvailabilityWindow)
			r.Get("/blocked-dates", h.ListBlockedDates)
			r.Post("/blocked-dates", h.AddBlockedDate)
			r.Delete("/blocked-dates/{date}", h.RemoveBlockedDate)
		})
		r.Route("/profiles", func(r chi.Router) {
			r.Get("/{userID}", h.GetProfile)
			r.Get("/by-customer/{customerID}", h.GetProfileByCustomer)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting bookings API", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		reaper := service.NewReaper(bookingService, cfg.Booking.ReapInterval)
		err := reaper.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down bookings API...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Bookings API error", "error", err)
		os.Exit(1)
	}
}
