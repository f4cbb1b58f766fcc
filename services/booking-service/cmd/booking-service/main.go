package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/tutorhub/tutorhub/libs/config"
	"github.com/tutorhub/tutorhub/libs/db"
	"github.com/tutorhub/tutorhub/libs/httpx"
	"github.com/tutorhub/tutorhub/libs/inboxx"
	"github.com/tutorhub/tutorhub/libs/kafkax"
	otelx "github.com/tutorhub/tutorhub/libs/otel"
	"github.com/tutorhub/tutorhub/libs/outboxx"
	"github.com/tutorhub/tutorhub/libs/runtime"
	"github.com/tutorhub/tutorhub/services/booking-service/internal/handlers"
	"github.com/tutorhub/tutorhub/services/booking-service/internal/schedule"
	"github.com/tutorhub/tutorhub/services/booking-service/internal/slotcache"
	"github.com/tutorhub/tutorhub/services/booking-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	config.LoadDotenv()

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

	if err := db.Migrate(ctx, pool, storage.Migrations, storage.MigrationsDir); err != nil {
		logger.Error("migrations failed", "err", err)
		panic(err)
	}

	var redisClient *redis.Client
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: addr})
		defer redisClient.Close()
	}

	repo := storage.NewBookingRepository(pool)
	outboxRepo := outboxx.NewRepository(pool)
	cache := slotcache.New(redisClient, repo.BookedTimes, 5*time.Minute, logger)

	scheduleProvider, err := schedule.NewGRPCProvider(config.String("PROFILE_GRPC_ADDR", ""))
	if err != nil {
		logger.Error("schedule grpc provider init failed; using http", "err", err)
		scheduleProvider = nil
	}
	if scheduleProvider == nil {
		scheduleProvider = schedule.NewHTTPProvider(config.String("PROFILE_SERVICE_URL", "http://profile-service:8082"))
	}

	outboxPublisher := outboxx.NewPublisher(pool, outboxRepo, logger, outboxx.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	inboxRepo := inboxx.NewRepository(pool)
	availabilityConsumer := kafkax.NewConsumer(logger, inboxRepo, kafkax.ConsumerConfig{
		Brokers: config.String("KAFKA_BROKERS", ""),
		GroupID: config.String("KAFKA_GROUP_ID", "booking-service"),
		Topic:   config.String("KAFKA_CONSUME_TOPIC", "profile.availability.updated.v1"),
	}, func(ctx context.Context, msg kafka.Message) error {
		// Availability edits change which points a cached day offers;
		// drop the affected cache entries so the next read recomputes.
		var payload struct {
			TeacherID string   `json:"teacher_id"`
			Dates     []string `json:"dates"`
		}
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid event payload", "err", err, "topic", msg.Topic)
			return nil
		}
		if payload.TeacherID == "" {
			logger.Error("missing teacher_id in event", "topic", msg.Topic)
			return nil
		}
		for _, date := range payload.Dates {
			cache.Invalidate(ctx, payload.TeacherID, date)
		}
		return nil
	})
	go availabilityConsumer.Run(ctx)

	bookingHandler := handlers.NewBookingHandler(repo, outboxRepo, cache, scheduleProvider, logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.HandleFunc("/api/v1/slots", bookingHandler.Slots)
	mux.HandleFunc("/api/v1/bookings", bookingHandler.Dispatch)
	mux.HandleFunc("/api/v1/bookings/confirm", bookingHandler.Confirm)
	mux.HandleFunc("/api/v1/bookings/reject", bookingHandler.Reject)
	mux.HandleFunc("/api/v1/bookings/cancel", bookingHandler.Cancel)
	mux.HandleFunc("/api/v1/bookings/cancel/approve", bookingHandler.ApproveCancel)
	mux.HandleFunc("/api/v1/bookings/complete", bookingHandler.Complete)

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
