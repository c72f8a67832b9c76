package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apihttp "isolar-cloud/internal/api/http"
	"isolar-cloud/internal/audit"
	"isolar-cloud/internal/auth"
	"isolar-cloud/internal/config"
	"isolar-cloud/internal/eventing"
	"isolar-cloud/internal/observability/metrics"
	performance "isolar-cloud/internal/performance/domain"
	productionapp "isolar-cloud/internal/production/application"
	"isolar-cloud/internal/production/infrastructure/memory"
	productionrepo "isolar-cloud/internal/production/infrastructure/postgres"
	productioninterfaces "isolar-cloud/internal/production/interfaces"
	productionhttp "isolar-cloud/internal/production/interfaces/http"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}
	headerRules, err := cfg.HeaderRules()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}

	var db *sql.DB
	var reportRepo productionapp.ReportRepository = memory.NewReportRepository()
	var auditLogger audit.Logger = audit.NewStdLogger(logger)
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("db open error: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("db ping error: %v", err)
		}
		reportRepo = productionrepo.NewReportRepository(db, cfg.PeriodMaxDays)
		if auditLogger, err = audit.NewPostgresLogger(db); err != nil {
			logger.Fatalf("audit init error: %v", err)
		}
	} else {
		logger.Printf("DATABASE_URL not set, reports are kept in memory")
	}
	metrics.Init(db, logger)

	publishers := productioninterfaces.MultiPublisher{productioninterfaces.NewLoggingPublisher(logger)}
	if len(cfg.Kafka.Brokers) > 0 {
		sink := eventing.NewKafkaSink(eventing.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		defer sink.Close()
		eventPublisher, err := productioninterfaces.NewEventPublisher(eventing.NewPublisher(sink, cfg.TenantID))
		if err != nil {
			logger.Fatalf("production publisher init error: %v", err)
		}
		publishers = append(publishers, eventPublisher)
		logger.Printf("publishing production events to kafka topic %s", cfg.Kafka.Topic)
	}

	parseService, err := productionapp.NewParseService(reportRepo, publishers, logger,
		productionapp.WithLocation(loc),
		productionapp.WithXLSXMode(cfg.XLSXMode),
		productionapp.WithHeaderRules(headerRules...),
		productionapp.WithPeriodLimit(cfg.PeriodMaxDays),
	)
	if err != nil {
		logger.Fatalf("production service init error: %v", err)
	}
	productionHandler, err := productionhttp.NewHandler(parseService, auditLogger, logger, cfg.MaxUploadBytes())
	if err != nil {
		logger.Fatalf("production handler init error: %v", err)
	}
	performanceHandler, err := apihttp.NewPerformanceHandler(performance.NewEstimator(performance.LogObserver{Logger: logger}), logger)
	if err != nil {
		logger.Fatalf("performance handler init error: %v", err)
	}

	router := mux.NewRouter()
	productionHandler.Register(router)
	performanceHandler.Register(router)
	apihttp.NewPVSystHandler().Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	policy := auth.NewDefaultPolicy("/healthz", "/metrics")
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)
	if authMiddleware == nil {
		logger.Printf("AUTH_JWT_SECRET not set, API auth disabled")
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(cfg.CORS.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           loggingMiddleware(cors(gziphandler.GzipHandler(authMiddleware.Wrap(router))), logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Printf("http listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Printf("http shutdown error: %v", err)
	}
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
