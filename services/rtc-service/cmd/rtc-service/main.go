package main

import (
	"context"
	"net/http"
	"time"

	"github.com/tutorhub/tutorhub/libs/config"
	"github.com/tutorhub/tutorhub/libs/httpx"
	otelx "github.com/tutorhub/tutorhub/libs/otel"
	"github.com/tutorhub/tutorhub/libs/runtime"
	"github.com/tutorhub/tutorhub/services/rtc-service/internal/handlers"
	"github.com/tutorhub/tutorhub/services/rtc-service/internal/rtc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	config.LoadDotenv()

	service := config.String("SERVICE_NAME", "rtc-service")
	port, err := config.Port("PORT", "8086")
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

	// Credentials may legitimately be absent in dev; the handler reports
	// INTERNAL on use rather than refusing to boot.
	creds := rtc.Credentials{
		AppID:          config.String("RTC_APP_ID", ""),
		AppCertificate: config.String("RTC_APP_CERTIFICATE", ""),
	}
	ttl := config.DurationSeconds("RTC_TOKEN_TTL_SECONDS", time.Hour)

	tokenHandler := handlers.NewTokenHandler(creds, ttl, logger)

	mux := runtime.NewBaseMuxWithReady()
	mux.HandleFunc("/api/v1/rtc/token", tokenHandler.Token)

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "rtc")
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
