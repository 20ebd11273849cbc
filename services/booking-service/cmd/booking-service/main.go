package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fkamdem/consultrdv/libs/config"
	"github.com/fkamdem/consultrdv/libs/db"
	"github.com/fkamdem/consultrdv/libs/httpx"
	"github.com/fkamdem/consultrdv/libs/kafkax"
	otelx "github.com/fkamdem/consultrdv/libs/otel"
	"github.com/fkamdem/consultrdv/libs/runtime"
	"github.com/fkamdem/consultrdv/services/booking-service/internal/availability"
	"github.com/fkamdem/consultrdv/services/booking-service/internal/booking"
	"github.com/fkamdem/consultrdv/services/booking-service/internal/handlers"
	"github.com/fkamdem/consultrdv/services/booking-service/internal/outbox"
	"github.com/fkamdem/consultrdv/services/booking-service/internal/proofstore"
	"github.com/fkamdem/consultrdv/services/booking-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	loc, err := time.LoadLocation(config.String("BUSINESS_TIMEZONE", "Africa/Douala"))
	if err != nil {
		logger.Error("invalid business timezone; using UTC", "err", err)
		loc = time.UTC
	}

	apptRepo := storage.NewAppointmentRepository(pool)
	dayRepo := storage.NewUnavailableDayRepository(pool)
	priceRepo := storage.NewSlotPriceRepository(pool)

	outboxRepo := outbox.NewRepository(pool)
	notifier := outbox.NewNotifier(pool, outboxRepo)
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	proofs := newProofStore(logger)

	svc := booking.NewService(apptRepo, dayRepo, priceRepo, notifier, logger, loc)
	resolver := availability.NewResolver(dayRepo, apptRepo, loc)

	publicHandler := handlers.NewPublicHandler(svc, resolver, proofs, logger)
	adminHandler := handlers.NewAdminHandler(svc, logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)

	mux.HandleFunc("POST /api/v1/public/appointments", publicHandler.Create)
	mux.HandleFunc("GET /api/v1/public/slots", publicHandler.Slots)
	mux.HandleFunc("GET /api/v1/public/booked", publicHandler.Booked)

	mux.HandleFunc("GET /api/v1/admin/appointments", adminHandler.List)
	mux.HandleFunc("GET /api/v1/admin/appointments/{id}", adminHandler.Get)
	mux.HandleFunc("POST /api/v1/admin/appointments/{id}/validate", adminHandler.Validate)
	mux.HandleFunc("POST /api/v1/admin/appointments/{id}/reject", adminHandler.Reject)
	mux.HandleFunc("POST /api/v1/admin/appointments/{id}/complete", adminHandler.Complete)
	mux.HandleFunc("POST /api/v1/admin/appointments/{id}/reschedule", adminHandler.Reschedule)
	mux.HandleFunc("POST /api/v1/admin/unavailable-days", adminHandler.Block)
	mux.HandleFunc("DELETE /api/v1/admin/unavailable-days/{date}", adminHandler.Unblock)
	mux.HandleFunc("GET /api/v1/admin/unavailable-days", adminHandler.ListBlocked)
	mux.HandleFunc("PUT /api/v1/admin/prices/{time}", adminHandler.SetPrice)
	mux.HandleFunc("GET /api/v1/admin/prices", adminHandler.ListPrices)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

// newProofStore picks the payment-proof backend: Cloudinary when configured,
// otherwise the noop store so local stacks run without credentials.
func newProofStore(logger *slog.Logger) proofstore.Store {
	cloudinaryURL := config.String("CLOUDINARY_URL", "")
	if cloudinaryURL == "" {
		logger.Warn("CLOUDINARY_URL not set; payment proofs are not persisted")
		return proofstore.NewNoopStore()
	}
	store, err := proofstore.NewCloudinaryStore(cloudinaryURL, config.String("CLOUDINARY_FOLDER", "payment-proofs"))
	if err != nil {
		logger.Warn("cloudinary init failed; payment proofs are not persisted", "err", err)
		return proofstore.NewNoopStore()
	}
	return store
}
