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

	"nestodo/app/config"
	"nestodo/app/notify"
	"nestodo/app/routes"
	"nestodo/app/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	// Initialize the storage backend
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	repo, err := config.OpenRepository(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatal("Failed to initialize storage: ", err)
	}
	defer repo.Close(context.Background())

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.ResendAPIKey != "" {
		notifier = notify.NewResendNotifier(cfg.ResendAPIKey, cfg.MailFrom, cfg.AppURL)
	} else {
		log.Println("RESEND_API_KEY not set, welcome emails are only logged")
	}

	router := routes.NewRouter(routes.Deps{
		Repo:     repo,
		Notifier: notifier,
		Auth: services.AuthConfig{
			Secret:     []byte(cfg.JWTSecret),
			SessionTTL: cfg.SessionTTL,
		},
		SecureCookie: cfg.SecureCookie,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server is running on %s (store: %s)", cfg.Addr, cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
}
