// Command session runs one capture session end to end from the
// terminal: liveness challenges over a frame feed, descriptor
// extraction, then match-and-enroll against the configured store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/visage-id/visage/internal/audit"
	"github.com/visage-id/visage/internal/config"
	"github.com/visage-id/visage/internal/database"
	"github.com/visage-id/visage/internal/matcher"
	"github.com/visage-id/visage/internal/ratelimit"
	"github.com/visage-id/visage/internal/repository"
	"github.com/visage-id/visage/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	owner := flag.String("owner", "demo-user", "Owner ID the capture is scoped to")
	wallet := flag.String("wallet", "", "Wallet address stored with a new enrollment")
	interval := flag.Duration("interval", 100*time.Millisecond, "Frame polling interval")
	images := flag.String("images", "", "Directory of stills for the rekognition detector")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, pool, closeStore, err := buildStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	det, err := service.NewDetector(ctx, cfg, *owner, *images, logger)
	if err != nil {
		return err
	}

	svc := service.NewCaptureService(store, logger).
		WithLivenessThresholds(cfg.LivenessThresholds()).
		WithMatchThresholds(cfg.MatcherThresholds()).
		WithScope(cfg.Scope()).
		WithAudit(audit.NewSlogLogger(logger))

	if pool != nil && cfg.SessionRateLimit > 0 {
		window := time.Duration(cfg.SessionRateWindow) * time.Millisecond
		svc = svc.WithRateLimit(ratelimit.NewRateLimiter(pool, window), cfg.SessionRateLimit)
	}

	sess, err := svc.StartSession(ctx, det, *owner, *wallet, service.WithStatusFunc(func(msg string) {
		fmt.Printf(">> %s\n", msg)
	}))
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("interrupted, cancelling session")
			return sess.Cancel(context.Background())

		case result := <-sess.Result():
			fmt.Printf("\noutcome:    %s\n", result.Outcome)
			fmt.Printf("similarity: %.4f\n", result.Similarity)
			fmt.Printf("persisted:  %v\n", result.Persisted)
			return nil

		case <-ticker.C:
			if err := sess.ProcessNext(ctx); err != nil {
				if errors.Is(err, io.EOF) {
					logger.Info("frame feed ended, cancelling session")
					return sess.Cancel(context.Background())
				}
				logger.Warn("frame processing failed", "error", err)
			}
		}
	}
}

// buildStore returns the enrollment store: Postgres when DATABASE_URL is
// set, in-memory otherwise. The pool is returned separately for the rate
// limiter; it is nil for the in-memory store.
func buildStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (matcher.RecordStore, *pgxpool.Pool, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, enrollments are kept in memory only")
		return repository.NewMemoryEnrollmentRepository(), nil, func() {}, nil
	}

	pool, err := database.NewPgxPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Info("connected to database")
	return repository.NewEnrollmentRepository(pool), pool, pool.Close, nil
}

