// cmd/intake-server/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	awsclients "chainspace-intake/internal/common/aws"
	"chainspace-intake/internal/common/camunda"
	"chainspace-intake/internal/common/config"
	"chainspace-intake/internal/common/database"
	commonhttp "chainspace-intake/internal/common/http"
	"chainspace-intake/internal/common/logger"
	"chainspace-intake/internal/common/observability"
	"chainspace-intake/internal/common/zoho"
	"chainspace-intake/internal/intake/draftstore"
	"chainspace-intake/internal/intake/followup"
	"chainspace-intake/internal/intake/form"
	"chainspace-intake/internal/intake/handler"
	"chainspace-intake/internal/intake/submission"
	"chainspace-intake/internal/intake/wizard"
	"chainspace-intake/pkg/catalog"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// readiness collects the dependency checks behind /ready.
type readiness map[string]func(ctx context.Context) error

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	var outputs []string
	if cfg.Logging.Output != "" {
		outputs = []string{cfg.Logging.Output}
	}
	zapLog, err := logger.Build(logger.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
		ServiceName: cfg.App.Name,
	})
	if err != nil {
		zapLog = logger.New(cfg.Logging.Level, "console")
	}
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)
	zapLog.Info("Starting intake server...",
		zap.String("environment", cfg.App.Environment),
		zap.String("draftBackend", cfg.Intake.DraftBackend),
		zap.String("storageBackend", cfg.Intake.StorageBackend),
	)

	obs := observability.New("intake-server")
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := readiness{}

	// --- Draft backend ---
	var backend draftstore.Backend
	switch cfg.Intake.DraftBackend {
	case config.DraftBackendFile:
		fb, err := draftstore.NewFileBackend(cfg.Intake.DraftDir)
		if err != nil {
			zapLog.Fatal("draft directory unavailable", zap.Error(err))
		}
		backend = fb
	case config.DraftBackendRedis:
		var redis *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redis.Close()
		checks["redis"] = redis.Ping
		backend = draftstore.NewRedisBackend(redis.GetClient(), config.GetDuration(cfg.Intake.DraftTTL))
		zapLog.Info("Redis connected successfully")
	default:
		backend = draftstore.NewMemoryBackend()
	}
	store := draftstore.New(backend, draftstore.WithLogger(log))

	// --- Application storage ---
	var repo submission.Repository
	switch cfg.Intake.StorageBackend {
	case config.StorageBackendREST:
		client := commonhttp.NewClient(config.GetDuration(cfg.Intake.SubmitTimeout))
		repo = submission.NewRESTRepository(client, cfg.Intake.REST.BaseURL, cfg.Intake.REST.APIKey, cfg.Intake.REST.Table)
	default:
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		if err := pg.EnsureApplicationsTable(ctx); err != nil {
			zapLog.Fatal("applications table setup failed", zap.Error(err))
		}
		checks["postgres"] = pg.Ping
		repo = submission.NewPostgresRepository(pg.GetDB(), "applications")
		zapLog.Info("PostgreSQL connected successfully")
	}

	// --- Follow-up actions ---
	var hooks []followup.Hook

	if cfg.Notifications.SES.Enabled || cfg.Notifications.SNS.Enabled {
		clients, err := awsclients.NewClients(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("aws clients init failed", zap.Error(err))
		}
		hooks = append(hooks,
			followup.NewEmailConfirmation(clients.SES, cfg.Notifications.SES.FromEmail, cfg.Notifications.SES.Enabled, cfg.Intake.ResponseDays),
			followup.NewStaffAlert(clients.SNS, cfg.Notifications.SNS.TopicARN, cfg.Notifications.SNS.Enabled),
		)
	}

	if cfg.Search.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Search.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		if err := esClient.EnsureIndex(ctx, cfg.Search.Index); err != nil {
			zapLog.Warn("search index setup failed", zap.Error(err))
		}
		checks["elasticsearch"] = func(context.Context) error { return esClient.Ping() }
		hooks = append(hooks, followup.NewSearchIndexer(esClient.Client, cfg.Search.Index, true))
		zapLog.Info("Elasticsearch connected successfully")
	}

	if cfg.Camunda.Enabled {
		var zeebe *camunda.Client
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
				GatewayAddress:         cfg.Camunda.BrokerAddress,
				UsePlaintextConnection: true,
				ConnectionTimeout:      10 * time.Second,
				RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
			})
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		defer func() {
			if err := zeebe.Close(); err != nil {
				zapLog.Error("Error closing Zeebe client", zap.Error(err))
			}
		}()
		checks["zeebe"] = zeebe.HealthCheck
		hooks = append(hooks, followup.NewReviewProcess(zeebe, cfg.Camunda.ReviewProcessID, true))
		zapLog.Info("Zeebe client connected successfully")
	}

	if cfg.CRM.Enabled {
		crm := zoho.NewCRMClient(commonhttp.NewClient(config.GetDuration(cfg.Intake.FollowupTimeout)), cfg.CRM.BaseURL, cfg.CRM.OAuthToken)
		hooks = append(hooks, followup.NewCRMLead(crm, true))
	}

	dispatcher := followup.NewDispatcher(log, hooks...)
	zapLog.Info("Follow-up actions registered", zap.Strings("actions", dispatcher.Hooks()))

	svc := submission.NewService(repo,
		submission.WithFollowups(dispatcher),
		submission.WithObservability(obs),
		submission.WithLogger(log),
		submission.WithTimeouts(
			config.GetDuration(cfg.Intake.SubmitTimeout),
			config.GetDuration(cfg.Intake.FollowupTimeout),
		),
	)

	// --- Sessions & HTTP ---
	validator := form.NewValidator(time.Now)
	factory := func(s *draftstore.Store) *wizard.Wizard {
		return wizard.New(s, svc,
			wizard.WithLogger(log),
			wizard.WithValidator(validator),
			wizard.WithResponseDays(cfg.Intake.ResponseDays),
		)
	}
	idle := config.GetDuration(cfg.Intake.SessionIdle)
	sessions := handler.NewSessionManager(store, factory, idle, log)
	go sessions.Run(ctx, idle/4)

	h, err := handler.New(sessions, catalog.Default(), log)
	if err != nil {
		zapLog.Fatal("failed to create intake handler", zap.Error(err))
	}

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		status, code := "ready", http.StatusOK
		failed := map[string]string{}
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": status,
			"failed": failed,
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	r.Handle("/metrics", promhttp.Handler())
	h.Register(r)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      r,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("Intake server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Intake server failed", zap.Error(err))
			stop()
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}
	svc.Wait()

	zapLog.Info("Intake server stopped gracefully")
}
