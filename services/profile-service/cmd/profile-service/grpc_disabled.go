//go:build !protogen

package main

import (
	"context"
	"log/slog"

	"github.com/tutorhub/tutorhub/libs/db"
	"github.com/tutorhub/tutorhub/services/profile-service/internal/storage"
)

func startGrpcServer(_ context.Context, _ *slog.Logger, _ *db.Pool, _ *storage.Repository) error {
	return nil
}
