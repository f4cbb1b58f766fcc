package main

import (
	"context"
	"encoding/json"
	"net/http"
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
	"github.com/tutorhub/tutorhub/services/profile-service/internal/handlers"
	"github.com/tutorhub/tutorhub/services/profile-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	config.LoadDotenv()

	service := config.String("SERVICE_NAME", "profile-service")
	port, err := config.Port("PORT", "8082")
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

	repo := storage.NewRepository(pool)
	outboxRepo := outboxx.NewRepository(pool)

	outboxPublisher := outboxx.NewPublisher(pool, outboxRepo, logger, outboxx.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	inboxRepo := inboxx.NewRepository(pool)
	brokers := config.String("KAFKA_BROKERS", "")
	groupID := config.String("KAFKA_GROUP_ID", "profile-service")

	// Both consumers dedupe inside the handler's transaction, not up front:
	// the inbox row and the effect commit or roll back together, so a failed
	// handler stays eligible for redelivery.
	rosterConsumer := kafkax.NewConsumer(logger, nil, kafkax.ConsumerConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   "booking.request.created.v1",
	}, func(ctx context.Context, msg kafka.Message) error {
		var payload struct {
			TeacherID string `json:"teacher_id"`
			StudentID string `json:"student_id"`
		}
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid event payload", "err", err, "topic", msg.Topic)
			return nil
		}
		if payload.TeacherID == "" || payload.StudentID == "" {
			logger.Error("missing required event fields", "topic", msg.Topic)
			return nil
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		meta := kafkax.ExtractEventMeta(msg)
		fresh, err := inboxRepo.RecordTx(ctx, tx, meta.EventID, meta.EventType)
		if err != nil {
			return err
		}
		if !fresh {
			logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
			return nil
		}

		if err := repo.AddStudentToTeacher(ctx, tx, payload.TeacherID, payload.StudentID); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
	go rosterConsumer.Run(ctx)

	// Completed lessons bump the teacher's course counter exactly once per
	// event id.
	completionConsumer := kafkax.NewConsumer(logger, nil, kafkax.ConsumerConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   "booking.completed.v1",
	}, func(ctx context.Context, msg kafka.Message) error {
		var payload struct {
			TeacherID string `json:"teacher_id"`
		}
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid event payload", "err", err, "topic", msg.Topic)
			return nil
		}
		if payload.TeacherID == "" {
			logger.Error("missing teacher_id in event", "topic", msg.Topic)
			return nil
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		meta := kafkax.ExtractEventMeta(msg)
		fresh, err := inboxRepo.RecordTx(ctx, tx, meta.EventID, meta.EventType)
		if err != nil {
			return err
		}
		if !fresh {
			logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
			return nil
		}

		if err := repo.IncrementTotalCourses(ctx, tx, payload.TeacherID); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
	go completionConsumer.Run(ctx)

	httpHandler := handlers.New(repo, outboxRepo, logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	mux.HandleFunc("/api/v1/profile", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			httpHandler.GetProfile(w, r)
			return
		}
		if r.Method == http.MethodPut {
			httpHandler.UpdateProfile(w, r)
			return
		}
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	})
	mux.HandleFunc("/api/v1/teachers", httpHandler.ListTeachers)
	mux.HandleFunc("/api/v1/teachers/get", httpHandler.GetTeacher)
	mux.HandleFunc("/api/v1/teachers/students", httpHandler.ListStudents)
	mux.HandleFunc("/api/v1/availability/sets", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			httpHandler.ListAvailabilitySets(w, r)
			return
		}
		if r.Method == http.MethodPut {
			httpHandler.UpsertAvailabilitySet(w, r)
			return
		}
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	})
	mux.HandleFunc("/api/v1/availability/dates", httpHandler.AssignDateColor)
	mux.HandleFunc("/api/v1/users", httpHandler.GetUser)
	mux.HandleFunc("/api/v1/follows", httpHandler.Follows)
	mux.HandleFunc("/api/v1/push-token", httpHandler.RegisterPushToken)
	mux.HandleFunc("/internal/v1/schedule", httpHandler.Schedule)

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "profile")
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

	if err := startGrpcServer(ctx, logger, pool, repo); err != nil {
		logger.Error("grpc server failed to start", "err", err)
	}

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
