package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jobdesk.org/internal/audit"
	"jobdesk.org/internal/auth"
	"jobdesk.org/internal/config"
	"jobdesk.org/internal/httpapi"
	"jobdesk.org/internal/obs"
	"jobdesk.org/internal/store/pg"
)

var version = "0.3.1"

func main() {
	obs.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	store, err := pg.Open(cfg.PGDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	tokens, err := auth.NewTokens(cfg.AuthSecret,
		auth.WithIssuer(cfg.Issuer),
		auth.WithStandardTTL(cfg.StandardTokenTTL),
		auth.WithElevatedTTL(cfg.ElevatedTokenTTL),
	)
	if err != nil {
		log.Fatalf("tokens: %v", err)
	}

	svc, err := auth.NewService(store, tokens)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	recorder := audit.NewRecorder(store)

	api := httpapi.New(svc, recorder, httpapi.ReadyProbe{DB: store.DB()}, version)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting jobdesk-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	// Let in-flight audit writes land before the pool closes.
	recorder.Wait()
	log.Println("Stopped")
}
