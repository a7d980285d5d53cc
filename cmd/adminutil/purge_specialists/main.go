package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/sudo-init-do/specialisthub/internal/config"
	"github.com/sudo-init-do/specialisthub/internal/server"
	"github.com/sudo-init-do/specialisthub/internal/specialist"
)

// purge_specialists hard-deletes soft-deleted specialists with their
// offerings and media.
// Usage:
//
//	go run cmd/adminutil/purge_specialists/main.go -older-than-days 30
func main() {
	days := flag.Int("older-than-days", 0, "Only purge specialists deleted more than this many days ago")
	flag.Parse()

	if *days <= 0 {
		log.Fatalf("usage: go run cmd/adminutil/purge_specialists/main.go -older-than-days 30")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()
	store, closeStore, err := server.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("database error: %v", err)
	}
	defer closeStore()

	svc := specialist.NewService(store, nil)
	n, err := svc.PurgeDeleted(ctx, time.Duration(*days)*24*time.Hour)
	if err != nil {
		log.Fatalf("purge failed: %v", err)
	}

	fmt.Printf("Purged %d specialist(s) deleted more than %d day(s) ago.\n", n, *days)
}
