package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/sudo-init-do/specialisthub/internal/config"
	"github.com/sudo-init-do/specialisthub/internal/server"
	"github.com/sudo-init-do/specialisthub/internal/specialist"
)

func main() {
	slug := flag.String("slug", "", "Slug of the specialist to publish")
	draft := flag.Bool("draft", false, "Move the specialist back to draft instead of publishing it")
	flag.Parse()

	if *slug == "" {
		log.Fatalf("usage: go run cmd/adminutil/publish_specialist/main.go -slug tax-advisor [-draft]")
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
	if err := svc.SetDraftBySlug(ctx, *slug, *draft); err != nil {
		log.Fatalf("failed to update %s: %v", *slug, err)
	}

	state := "published"
	if *draft {
		state = "draft"
	}
	fmt.Printf("Specialist %s is now %s.\n", *slug, state)
}
