package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/tendant/stream-gate/pkg/streamgate"
	"github.com/tendant/stream-gate/pkg/streamgate/config"
	"github.com/tendant/stream-gate/pkg/streamgate/s3origin"
)

func main() {
	var cfg config.Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("Failed to read configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	handler, admin, err := buildGateway(&cfg)
	if err != nil {
		log.Fatalf("Failed to build gateway: %v", err)
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: routes(handler, admin),
	}

	go func() {
		log.Printf("Stream Gate starting on port %s (env: %s)", cfg.Port, cfg.Environment)
		if cfg.OriginDomain != "" {
			log.Printf("Origin: %s", cfg.OriginDomain)
		} else {
			log.Printf("Origin: s3 bucket %s", cfg.S3.Bucket)
		}
		log.Printf("Signature enforcement: %v, edge cache: %v", cfg.RequireSignature, cfg.CacheEnabled)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}

// buildGateway assembles the gateway handler and admin panel from configuration.
func buildGateway(cfg *config.Config) (*streamgate.Handler, *streamgate.AdminPanel, error) {
	signer := streamgate.NewSigner(
		streamgate.WithSecretKey(cfg.SecretKey),
		streamgate.WithExpiry(cfg.Expiry),
	)

	var origin streamgate.OriginResolver
	if cfg.S3.Bucket != "" {
		resolver, err := s3origin.New(s3origin.Config{
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Endpoint:        cfg.S3.Endpoint,
			UsePathStyle:    cfg.S3.UsePathStyle,
			PresignDuration: cfg.S3.PresignSeconds,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build s3 origin: %w", err)
		}
		origin = resolver
	} else {
		origin = streamgate.DomainOrigin{Domain: cfg.OriginDomain}
	}

	opts := []streamgate.HandlerOption{
		streamgate.WithSignatureRequired(cfg.RequireSignature),
	}

	var admin *streamgate.AdminPanel
	if cfg.AdminPassword != "" {
		admin = streamgate.NewAdminPanel(cfg.AdminPassword, signer,
			streamgate.WithLinkPrefix(cfg.LinkPrefix))
		opts = append(opts, streamgate.WithAdmin(admin))
	}

	if cfg.CacheEnabled {
		store, err := streamgate.NewInMemCache(streamgate.CacheConfig{
			TTL:    cfg.CacheTTL,
			SizeMB: cfg.CacheSizeMB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build edge cache: %w", err)
		}
		opts = append(opts, streamgate.WithCache(
			streamgate.NewResponseCache(store, cfg.CacheTTL, cfg.CacheMaxBodyMB<<20)))
	}

	return streamgate.NewHandler(signer, origin, opts...), admin, nil
}

// routes sets up the HTTP routes
func routes(handler *streamgate.Handler, admin *streamgate.AdminPanel) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	if admin != nil {
		r.Post("/api/links", admin.MintLink)
	}

	r.Handle("/", handler)
	r.Handle("/*", handler)

	return r
}
