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

	"github.com/edudash-core/internal/application/certificate"
	"github.com/edudash-core/internal/application/feed"
	"github.com/edudash-core/internal/application/session"
	"github.com/edudash-core/internal/config"
	"github.com/edudash-core/internal/domain"
	"github.com/edudash-core/internal/infrastructure/dynamo"
	jwtinfra "github.com/edudash-core/internal/infrastructure/jwt"
	s3infra "github.com/edudash-core/internal/infrastructure/s3"
	"github.com/edudash-core/internal/infrastructure/sns"
	"github.com/edudash-core/internal/infrastructure/upstream"
	"github.com/edudash-core/internal/pkg/bus"
	transporthttp "github.com/edudash-core/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// JWT provider (optional — claims decode unverified without a key).
	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Fatalf("jwt provider: %v", err)
	}
	sessions := session.NewService(jwtProvider)

	// S3 store for certificate page files.
	s3Client := s3infra.NewClient(cfg)
	s3Store := s3infra.NewStore(s3Client, cfg.S3BucketName)

	// SNS SMS sender (optional — graceful fallback).
	var smsSender sns.SMSSender
	if sender, err := sns.NewSender(cfg); err == nil {
		smsSender = sender
	} else {
		log.Printf("WARN: SNS sender not available: %v", err)
	}

	upstreamClient := upstream.NewClient(cfg.UpstreamBaseURL)
	eventBus := bus.New()

	// One polling feed per enabled role scope.
	feeds := make(map[domain.Scope]*feed.Feed, len(cfg.Scopes))
	for _, scope := range cfg.Scopes {
		f := feed.New(upstreamClient, feed.Options{
			Scope:           scope,
			Token:           cfg.ServiceToken,
			Interval:        cfg.PollInterval,
			EmptyOnError:    containsScope(cfg.EmptyOnErrorScopes, scope),
			Bus:             eventBus,
			SMS:             smsSender,
			EscalationPhone: cfg.EscalationPhone,
		})
		f.Start()
		defer f.Stop()
		feeds[scope] = f
	}

	certificates := certificate.NewService(certificate.ServiceDeps{
		Client: upstreamClient,
		Files:  s3Store,
		Drafts: dynamo.NewDraftRepo(dynamoClient, cfg.DynamoTables.AlignmentDrafts),
		Audit:  dynamo.NewAuditRepo(dynamoClient, cfg.DynamoTables.AuditEvents),
		Bus:    eventBus,
	})

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		Sessions:     sessions,
		Feeds:        feeds,
		Certificates: certificates,
		Upstream:     upstreamClient,
		Bus:          eventBus,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}

func containsScope(scopes []domain.Scope, scope domain.Scope) bool {
	for _, s := range scopes {
		if s == scope {
			return true
		}
	}
	return false
}
