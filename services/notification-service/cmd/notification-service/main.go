package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fkamdem/consultrdv/libs/config"
	"github.com/fkamdem/consultrdv/libs/db"
	"github.com/fkamdem/consultrdv/libs/httpx"
	"github.com/fkamdem/consultrdv/libs/kafkax"
	otelx "github.com/fkamdem/consultrdv/libs/otel"
	"github.com/fkamdem/consultrdv/libs/runtime"
	"github.com/fkamdem/consultrdv/services/notification-service/internal/consumer"
	"github.com/fkamdem/consultrdv/services/notification-service/internal/email"
	"github.com/fkamdem/consultrdv/services/notification-service/internal/inbox"
	"github.com/fkamdem/consultrdv/services/notification-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8085")
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

	inboxRepo := inbox.NewRepository(pool)
	notificationsRepo := storage.NewRepository(pool)

	smtpHost := config.String("SMTP_HOST", "mailpit")
	smtpPort := config.String("SMTP_PORT", "1025")
	smtpFrom := config.String("SMTP_FROM", "no-reply@consultrdv.local")
	emailSender := email.NewSMTPSender(smtpHost, smtpPort, smtpFrom)

	handle := func(ctx context.Context, msg kafka.Message) error {
		var evt email.BookingEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Error("invalid booking event payload", "err", err, "topic", msg.Topic)
			return nil
		}
		if evt.AppointmentID == "" || evt.Email == "" || evt.SlotDate == "" || evt.SlotTime == "" {
			logger.Error("missing booking event fields", "topic", msg.Topic)
			return nil
		}

		subject, body, err := email.Compose(msg.Topic, evt)
		if err != nil {
			logger.Error("no template for event", "err", err, "topic", msg.Topic)
			return nil
		}

		status := "sent"
		errorReason := ""
		if err := emailSender.Send(evt.Email, subject, body); err != nil {
			status = "failed"
			errorReason = err.Error()
			logger.Error("email send failed", "err", err, "recipient", evt.Email)
		}

		if err := notificationsRepo.Insert(ctx, storage.Notification{
			AppointmentID: evt.AppointmentID,
			EventType:     msg.Topic,
			Recipient:     evt.Email,
			Subject:       subject,
			Status:        status,
			ErrorReason:   errorReason,
		}); err != nil {
			logger.Error("failed to persist notification", "err", err)
			return err
		}

		logger.Info("booking event processed", "appointment_id", evt.AppointmentID, "event", msg.Topic, "status", status)
		return nil
	}

	brokers := config.String("KAFKA_BROKERS", "")
	groupID := config.String("KAFKA_GROUP_ID", "notification-service")
	topics := []string{
		email.EventRequested,
		email.EventValidated,
		email.EventRejected,
		email.EventRescheduled,
	}
	for _, topic := range topics {
		c := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}, handle)
		go c.Run(ctx)
	}

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "notification")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
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
