package main

import (
	"context"
	"log"
	"os"
	"time"

	"librarium/internal/database"
	"librarium/internal/repository"
)

func main() {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := database.Connect(databaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	deleted, err := repository.NewTokenRepository(db).DeleteExpired(ctx)
	if err != nil {
		log.Fatalf("token cleanup failed: %v", err)
	}

	log.Printf("token cleanup completed: removed=%d", deleted)
}
