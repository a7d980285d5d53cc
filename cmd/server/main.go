package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sudo-init-do/specialisthub/internal/config"
	"github.com/sudo-init-do/specialisthub/internal/metrics"
	mware "github.com/sudo-init-do/specialisthub/internal/middleware"
	"github.com/sudo-init-do/specialisthub/internal/server"
	"github.com/sudo-init-do/specialisthub/internal/specialist"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := server.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("database error: %v", err)
	}
	defer closeStore()

	uploader, local, err := server.NewUploader(cfg)
	if err != nil {
		log.Fatalf("upload setup error: %v", err)
	}

	validator := mware.NewValidator()
	svc := specialist.NewService(store, validator, specialist.WithCollisionHook(metrics.SlugCollision))
	e := server.New(cfg, svc, uploader, local, validator)

	go func() {
		log.Printf("listening on :%s (%s)", cfg.Port, cfg.Env)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
