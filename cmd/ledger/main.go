package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/interest-ledger-go/internal/config"
	"github.com/boddenberg/interest-ledger-go/internal/console"
	"github.com/boddenberg/interest-ledger-go/internal/handler"
	"github.com/boddenberg/interest-ledger-go/internal/infra/cache"
	"github.com/boddenberg/interest-ledger-go/internal/infra/observability"
	"github.com/boddenberg/interest-ledger-go/internal/infra/snapshot"
	"github.com/boddenberg/interest-ledger-go/internal/ledger"
	"github.com/boddenberg/interest-ledger-go/internal/port"
	"github.com/boddenberg/interest-ledger-go/internal/service"
	"github.com/boddenberg/interest-ledger-go/internal/validation"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	issueFor := flag.String("issue-operator-token", "", "print an operator token for `subject` and exit")
	flag.Parse()

	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	if *issueFor != "" {
		if err := issueOperatorToken(cfg, *issueFor, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	// --- Logger ---
	// The console owns stdout, so logs go to stderr.
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.String("mode", cfg.Mode),
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("snapshot_path", cfg.SnapshotPath),
		zap.Duration("idempotency_ttl", cfg.IdempotencyTTL),
		zap.Bool("operator_auth", cfg.OperatorJWTSecret != ""),
	)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("ledger stopped with error", zap.Error(err))
	}
	logger.Info("ledger stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(cfg.OTLPEndpoint, "interest-ledger")
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Core ---
	svc := service.NewLedgerService(ledger.New(), validation.New(), metrics, logger)

	// --- Persistence ---
	var store port.SnapshotStore
	if cfg.SnapshotPath != "" {
		store = snapshot.NewFileStore(cfg.SnapshotPath)
		snap, err := store.Load()
		if err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
		svc.Restore(snap)
	}
	defer func() {
		if store == nil {
			return
		}
		if err := store.Save(svc.Snapshot()); err != nil {
			logger.Error("failed to save snapshot", zap.Error(err))
			return
		}
		logger.Info("snapshot saved", zap.String("path", cfg.SnapshotPath))
	}()

	g, gCtx := errgroup.WithContext(ctx)

	// --- HTTP ---
	if cfg.ServesHTTP() {
		idem := cache.New[port.StoredResponse](cfg.IdempotencyTTL)
		defer idem.Close()

		var auth *service.OperatorAuth
		if cfg.OperatorJWTSecret != "" {
			auth = service.NewOperatorAuth(cfg.OperatorJWTSecret, cfg.OperatorTokenTTL)
		} else {
			logger.Warn("OPERATOR_JWT_SECRET not set, interest rule writes are unauthenticated")
		}

		srv := &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler.NewRouter(svc, auth, idem, metrics, logger),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		g.Go(func() error {
			logger.Info("server starting", zap.Int("port", cfg.Port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	// --- Console ---
	if cfg.ServesConsole() {
		g.Go(func() error {
			err := console.New(svc, os.Stdin, os.Stdout, logger).Run(gCtx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			if err != nil {
				return err
			}
			// Quitting the console ends the process, HTTP included.
			stop()
			return nil
		})
	}

	return g.Wait()
}

// issueOperatorToken writes a signed operator token for subject to w.
func issueOperatorToken(cfg *config.Config, subject string, w io.Writer) error {
	if cfg.OperatorJWTSecret == "" {
		return errors.New("OPERATOR_JWT_SECRET must be set to issue operator tokens")
	}
	if cfg.OperatorTokenTTL <= 0 {
		return errors.New("OPERATOR_TOKEN_TTL must be positive")
	}
	token, err := service.NewOperatorAuth(cfg.OperatorJWTSecret, cfg.OperatorTokenTTL).IssueToken(subject)
	if err != nil {
		return fmt.Errorf("issue operator token: %w", err)
	}
	_, err = fmt.Fprintln(w, token)
	return err
}
