package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/interview-manager/internal/db"
)

const connectTimeout = 10 * time.Second

// connectDB opens the Postgres pool named by database_url
func connectDB(ctx context.Context) (*db.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	return db.Connect(ctx, cfg.DatabaseURL)
}
