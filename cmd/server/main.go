package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"appraisal/internal/db"
	"appraisal/internal/domain/audit"
	"appraisal/internal/domain/auth"
	"appraisal/internal/domain/cycle"
	"appraisal/internal/domain/directory"
	"appraisal/internal/domain/dispute"
	"appraisal/internal/domain/evaluation"
	"appraisal/internal/domain/notifications"
	"appraisal/internal/domain/template"
	"appraisal/internal/platform/config"
	"appraisal/internal/platform/metrics"
	"appraisal/internal/transport/http/api"
	audithandler "appraisal/internal/transport/http/handlers/audit"
	authhandler "appraisal/internal/transport/http/handlers/auth"
	cyclehandler "appraisal/internal/transport/http/handlers/cycle"
	disputehandler "appraisal/internal/transport/http/handlers/dispute"
	evaluationhandler "appraisal/internal/transport/http/handlers/evaluation"
	notificationshandler "appraisal/internal/transport/http/handlers/notifications"
	templatehandler "appraisal/internal/transport/http/handlers/template"
	"appraisal/internal/transport/http/middleware"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config invalid: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, "migrations"); err != nil {
			log.Fatalf("migrations failed: %v", err)
		}
	}

	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			log.Fatalf("seed failed: %v", err)
		}
	}

	authStore := auth.NewStore(pool)
	directoryStore := directory.NewStore(pool)
	templateStore := template.NewStore(pool)
	cycleStore := cycle.NewStore(pool)
	evaluationStore := evaluation.NewStore(pool)
	disputeStore := dispute.NewStore(pool)

	notifySvc := notifications.New(pool)
	auditSvc := audit.New(pool)

	templateSvc := template.NewService(templateStore)
	cycleSvc := cycle.NewService(cycleStore, templateStore, cycle.NewResolver(directoryStore))
	evaluationSvc := evaluation.NewService(evaluationStore, templateStore, cycleSvc)
	disputeSvc := dispute.NewService(disputeStore, evaluationSvc, cycleSvc, templateStore,
		int(cfg.DefaultDisputeWindow/(24*time.Hour)))
	reports := evaluation.NewReportGenerator(cfg.ReportDir)

	collector := metrics.New()

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	if cfg.MetricsEnabled {
		router.Use(middleware.Metrics(collector))
	}
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.With(middleware.RequirePermission(auth.PermMetricsRead)).
			Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
				api.Success(w, collector.Snapshot(), middleware.GetRequestID(r.Context()))
			})
	}

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(authStore, cfg.JWTSecret, cfg.TokenTTL).RegisterRoutes(r)
		templatehandler.NewHandler(templateSvc, auditSvc).RegisterRoutes(r)
		cyclehandler.NewHandler(cycleSvc, directoryStore, notifySvc, auditSvc).RegisterRoutes(r)
		evaluationhandler.NewHandler(evaluationSvc, cycleSvc, directoryStore, reports, notifySvc, auditSvc).RegisterRoutes(r)
		disputehandler.NewHandler(disputeSvc, evaluationSvc, directoryStore, notifySvc, auditSvc).RegisterRoutes(r)
		notificationshandler.NewHandler(notifySvc).RegisterRoutes(r)
		audithandler.NewHandler(auditSvc).RegisterRoutes(r)
	})

	log.Printf("appraisal server listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, router); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
