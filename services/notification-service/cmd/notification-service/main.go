package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/tutorhub/tutorhub/libs/config"
	"github.com/tutorhub/tutorhub/libs/db"
	"github.com/tutorhub/tutorhub/libs/httpx"
	"github.com/tutorhub/tutorhub/libs/inboxx"
	"github.com/tutorhub/tutorhub/libs/kafkax"
	otelx "github.com/tutorhub/tutorhub/libs/otel"
	"github.com/tutorhub/tutorhub/libs/outboxx"
	"github.com/tutorhub/tutorhub/libs/runtime"
	"github.com/tutorhub/tutorhub/services/notification-service/internal/push"
	"github.com/tutorhub/tutorhub/services/notification-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type bookingRequestPayload struct {
	BookingID string   `json:"booking_id"`
	StudentID string   `json:"student_id"`
	TeacherID string   `json:"teacher_id"`
	Date      string   `json:"date"`
	Times     []string `json:"times"`
}

func writeOutboxSent(ctx context.Context, pool *db.Pool, outboxRepo *outboxx.Repository, payload bookingRequestPayload, providerID string) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if strings.TrimSpace(providerID) == "" {
		providerID = "unknown"
	}
	eventPayload, err := json.Marshal(map[string]any{
		"booking_id":  payload.BookingID,
		"teacher_id":  payload.TeacherID,
		"provider_id": providerID,
		"sent_at":     time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	if err := outboxRepo.Insert(ctx, tx, outboxx.Event{
		AggregateType: "notification",
		AggregateID:   payload.BookingID,
		EventType:     "notification.sent.v1",
		Payload:       eventPayload,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func writeOutboxFailed(ctx context.Context, pool *db.Pool, outboxRepo *outboxx.Repository, payload bookingRequestPayload, reason string) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	eventPayload, err := json.Marshal(map[string]any{
		"booking_id":   payload.BookingID,
		"teacher_id":   payload.TeacherID,
		"error_reason": reason,
		"failed_at":    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	if err := outboxRepo.Insert(ctx, tx, outboxx.Event{
		AggregateType: "notification",
		AggregateID:   payload.BookingID,
		EventType:     "notification.failed.v1",
		Payload:       eventPayload,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func main() {
	config.LoadDotenv()

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

	if err := db.Migrate(ctx, pool, storage.Migrations, storage.MigrationsDir); err != nil {
		logger.Error("migrations failed", "err", err)
		panic(err)
	}

	inboxRepo := inboxx.NewRepository(pool)
	notificationsRepo := storage.NewRepository(pool)
	outboxRepo := outboxx.NewRepository(pool)
	outboxPublisher := outboxx.NewPublisher(pool, outboxRepo, logger, outboxx.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	pushProvider := strings.ToLower(config.String("PUSH_PROVIDER", "noop"))
	pushWebhookURL := config.String("PUSH_WEBHOOK_URL", "")
	pushWebhookToken := config.String("PUSH_WEBHOOK_TOKEN", "")
	var pushSender push.Sender
	switch pushProvider {
	case "webhook":
		pushSender = push.NewWebhookSender(pushWebhookURL, pushWebhookToken)
	case "noop":
		pushSender = push.NewNoopSender()
	default:
		pushSender = push.NewWebhookSender(pushWebhookURL, pushWebhookToken)
	}

	brokers := config.String("KAFKA_BROKERS", "")
	groupID := config.String("KAFKA_GROUP_ID", "notification-service")

	// Token updates from profile-service land in the local cache first, so
	// the booking fan-out below never blocks on another service.
	tokenConsumer := kafkax.NewConsumer(logger, inboxRepo, kafkax.ConsumerConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   "profile.push_token.updated.v1",
	}, func(ctx context.Context, msg kafka.Message) error {
		var payload struct {
			UserID string `json:"user_id"`
			Token  string `json:"token"`
		}
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid token payload", "err", err)
			return nil
		}
		if payload.UserID == "" || payload.Token == "" {
			logger.Error("missing token fields")
			return nil
		}
		return notificationsRepo.UpsertToken(ctx, payload.UserID, payload.Token)
	})
	go tokenConsumer.Run(ctx)

	bookingConsumer := kafkax.NewConsumer(logger, inboxRepo, kafkax.ConsumerConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   config.String("KAFKA_CONSUME_TOPIC", "booking.request.created.v1"),
	}, func(ctx context.Context, msg kafka.Message) error {
		var payload bookingRequestPayload
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid booking payload", "err", err)
			return nil
		}
		if payload.BookingID == "" || payload.TeacherID == "" || payload.Date == "" {
			logger.Error("missing booking fields")
			return nil
		}

		title := "New booking request"
		body := fmt.Sprintf("A student requested %s on %s.", strings.Join(payload.Times, ", "), payload.Date)

		status := "sent"
		failureReason := ""
		providerID := ""

		token, err := notificationsRepo.TokenFor(ctx, payload.TeacherID)
		if err != nil {
			logger.Error("token lookup failed", "err", err)
			return err
		}
		if token == "" {
			status = "skipped"
			failureReason = "no push token registered"
		} else if err := pushSender.Send(ctx, token, title, body); err != nil {
			status = "failed"
			failureReason = err.Error()
			logger.Error("push send failed", "err", err, "teacher_id", payload.TeacherID)
		} else {
			providerID = pushSender.ProviderID()
		}

		if err := notificationsRepo.Insert(ctx, storage.Notification{
			RefID:  payload.BookingID,
			UserID: payload.TeacherID,
			Title:  title,
			Body:   body,
			Payload: map[string]any{
				"student_id": payload.StudentID,
				"date":       payload.Date,
				"times":      payload.Times,
			},
			Status: status,
		}); err != nil {
			logger.Error("failed to persist notification", "err", err)
			return err
		}

		switch status {
		case "failed":
			if err := writeOutboxFailed(ctx, pool, outboxRepo, payload, failureReason); err != nil {
				logger.Error("failed to enqueue notification.failed", "err", err)
				return err
			}
		case "sent":
			if err := writeOutboxSent(ctx, pool, outboxRepo, payload, providerID); err != nil {
				logger.Error("failed to enqueue notification.sent", "err", err)
				return err
			}
		}

		logger.Info("booking notification processed", "booking_id", payload.BookingID, "status", status)
		return nil
	})
	go bookingConsumer.Run(ctx)

	chatConsumer := kafkax.NewConsumer(logger, inboxRepo, kafkax.ConsumerConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   "chat.message.sent.v1",
	}, func(ctx context.Context, msg kafka.Message) error {
		var payload struct {
			MessageID   string `json:"message_id"`
			ChatID      string `json:"chat_id"`
			SenderID    string `json:"sender_id"`
			RecipientID string `json:"recipient_id"`
		}
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid chat payload", "err", err)
			return nil
		}
		if payload.MessageID == "" || payload.RecipientID == "" {
			logger.Error("missing chat fields")
			return nil
		}

		token, err := notificationsRepo.TokenFor(ctx, payload.RecipientID)
		if err != nil {
			logger.Error("token lookup failed", "err", err)
			return err
		}

		title := "New message"
		body := "You have a new chat message."
		status := "sent"
		if token == "" {
			status = "skipped"
		} else if err := pushSender.Send(ctx, token, title, body); err != nil {
			status = "failed"
			logger.Error("push send failed", "err", err, "user_id", payload.RecipientID)
		}

		if err := notificationsRepo.Insert(ctx, storage.Notification{
			RefID:  payload.MessageID,
			UserID: payload.RecipientID,
			Title:  title,
			Body:   body,
			Payload: map[string]any{
				"chat_id":   payload.ChatID,
				"sender_id": payload.SenderID,
			},
			Status: status,
		}); err != nil {
			logger.Error("failed to persist notification", "err", err)
			return err
		}
		logger.Info("chat notification processed", "message_id", payload.MessageID, "status", status)
		return nil
	})
	go chatConsumer.Run(ctx)

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
