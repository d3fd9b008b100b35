package main

import (
	"context"

	bookinghandler "carhive/internal/bookings/handler"
	"carhive/internal/bookings/repository"
	bookingsvc "carhive/internal/bookings/service"
	"carhive/internal/bookings/validator"
	paymenthandler "carhive/internal/payments/handler"
	paymentsvc "carhive/internal/payments/service"
	"carhive/pkg/app"
	"carhive/pkg/config"
	"carhive/pkg/storage"
	"carhive/pkg/stripe"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Bookings service")

	bookingService, paymentService, events := initServices(cfg)
	defer func() {
		if err := events.Close(); err != nil {
			cfg.Log.Error("Failed to close event publisher", "error", err)
		}
	}()

	sweeperCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	sweeper := bookingsvc.NewExpirySweeper(bookingService, cfg.ExpirySweepInterval, cfg.Log)
	go sweeper.Run(sweeperCtx)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		bookinghandler.NewBookingHandler(bookingService, cfg.Log),
		paymenthandler.NewPaymentHandler(paymentService, cfg.Log),
	)
	serverApp.Run()
}

func initServices(cfg *config.Config) (bookingsvc.BookingService, paymentsvc.PaymentService, bookingsvc.EventPublisher) {
	bookingValidator := validator.NewBookingValidator(cfg.Log)
	bookingRepo := repository.NewMongoBookingRepository(cfg)
	mirrorRepo := repository.NewVehicleMirrorRepository(cfg)
	lockRepo := repository.NewBookingLockRepository(cfg)

	events, err := bookingsvc.NewEventPublisher(cfg, ServiceName)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize event publisher", "error", err)
	}

	images, err := storage.NewLocalStore(cfg.UploadDir, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize image store", "error", err)
	}

	bookingService := bookingsvc.NewBookingService(
		bookingRepo,
		mirrorRepo,
		lockRepo,
		bookingValidator,
		events,
		images,
		cfg,
	)

	gateway := stripe.NewClient(stripe.Config{
		SecretKey: cfg.StripeSecretKey,
		APIBase:   cfg.StripeAPIBase,
		Timeout:   cfg.StripeTimeout,
	}, cfg.Log)

	paymentService := paymentsvc.NewPaymentService(
		bookingService,
		bookingRepo,
		mirrorRepo,
		gateway,
		events,
		cfg,
	)

	cfg.Log.Info("Booking services initialized", "database", cfg.MongoDatabaseName)
	return bookingService, paymentService, events
}
