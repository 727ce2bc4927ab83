package main

import (
	"context"
	"log"

	"user-doc-service/cmd/api/app"
	"user-doc-service/cmd/api/server"
)

// @title        User Doc Service API
// @version      1.0
// @description  CRUD API for user records stored in MongoDB (or PostgreSQL/SQLite through GORM).
// @BasePath     /
func main() {
	if err := run(); err != nil {
		log.Fatalf("application exited with error: %v", err)
	}
}

func run() error {
	ctx, stop := server.WithSignal(context.Background())
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		return err
	}

	return a.Run(ctx)
}
