package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/snackly/payments-service/internal/gateway"
	h "github.com/snackly/payments-service/internal/http"
	"github.com/snackly/payments-service/internal/notifier"
	"github.com/snackly/payments-service/internal/notify"
	"github.com/snackly/payments-service/internal/ratelimit"
	"github.com/snackly/payments-service/internal/repository"
	"github.com/snackly/payments-service/internal/service"
)

type Config struct {
	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	GatewayBaseURL string
	MerchantID     string
	SaltKey        string
	SaltIndex      int

	RedirectBaseURL string
	CallbackURL     string
	AuthThreshold   int64

	RedisAddr    string
	RateLimit    int64
	RateWindow   time.Duration
	KafkaBrokers string

	PushURL    string
	PushAppID  string
	PushSecret string
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,

		GatewayBaseURL: getEnv("PHONEPE_BASE_URL", "https://api-preprod.phonepe.com/apis/pg-sandbox"),
		MerchantID:     mustEnv("PHONEPE_MERCHANT_ID"),
		SaltKey:        mustEnv("PHONEPE_SALT_KEY"),
		SaltIndex:      getEnvInt("PHONEPE_SALT_INDEX", 1),

		RedirectBaseURL: getEnv("PAYMENT_REDIRECT_URL", "http://localhost:3000/payment/result"),
		CallbackURL:     getEnv("PAYMENT_CALLBACK_URL", "http://localhost:8080/api/v1/payments/webhook"),
		AuthThreshold:   int64(getEnvInt("AUTH_THRESHOLD_PAISE", 500000)),

		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		RateLimit:    int64(getEnvInt("RATE_LIMIT", 10)),
		RateWindow:   time.Duration(getEnvInt("RATE_WINDOW_SECONDS", 900)) * time.Second,
		KafkaBrokers: getEnv("KAFKA_BROKERS", "localhost:9092"),

		PushURL:    getEnv("PUSH_API_URL", "https://onesignal.com/api/v1/notifications"),
		PushAppID:  getEnv("PUSH_APP_ID", ""),
		PushSecret: getEnv("PUSH_REST_KEY", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		n, err := strconv.Atoi(value)
		if err != nil {
			log.Fatalf("Invalid %s: %v", key, err)
		}
		return n
	}
	return defaultValue
}

// mustEnv is for secrets and merchant identity; there is no safe default.
func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatalf("%s is required", key)
	}
	return value
}

func main() {
	log.Println("payments-service starting...")
	var wg sync.WaitGroup

	cfg := loadConfig()

	// Database setup
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		log.Fatalf("Invalid DB_PORT: %v", err)
	}
	creds := &repository.Credentials{
		Host:              getEnv("DB_HOST", "localhost"),
		Port:              dbPort,
		User:              getEnv("DB_USER", "postgres"),
		Password:          mustEnv("DB_PASSWORD"),
		DBName:            getEnv("DB_NAME", "payments"),
		MigrationsDirPath: getEnv("MIGRATIONS_PATH", "./internal/repository/migrations"),
	}

	repo, err := repository.NewRepository(creds)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer repo.Close()

	if err := repo.RunMigrations(creds); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	// Gateway client
	gw := gateway.NewClient(gateway.Config{
		BaseURL:    cfg.GatewayBaseURL,
		MerchantID: cfg.MerchantID,
		SaltKey:    cfg.SaltKey,
		SaltIndex:  cfg.SaltIndex,
	})

	// Kafka publisher for order events
	brokers := strings.Split(cfg.KafkaBrokers, ",")
	publisher := notify.NewPublisher(brokers...)
	defer publisher.Close()

	svc := service.NewPaymentService(repo, gw, publisher, service.Config{
		MerchantID:      cfg.MerchantID,
		RedirectBaseURL: cfg.RedirectBaseURL,
		CallbackURL:     cfg.CallbackURL,
		AuthThreshold:   cfg.AuthThreshold,
		WebhookSaltKey:  cfg.SaltKey,
	})

	// Redis-backed rate limiter
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	limiter := ratelimit.NewRedisLimiter(redisClient, cfg.RateLimit, cfg.RateWindow)

	paymentHandler := h.NewPaymentHandler(svc, cfg.RequestTimeout)
	orderHandler := h.NewOrderHandler(svc, cfg.RequestTimeout)

	// Notification worker
	pushWorker := notifier.New(notifier.Config{
		Brokers: brokers,
		PushURL: cfg.PushURL,
		AppID:   cfg.PushAppID,
		RESTKey: cfg.PushSecret,
	})
	workerCtx, workerCancel := context.WithCancel(context.Background())
	wg.Add(1)
	go func() {
		defer wg.Done()
		pushWorker.Run(workerCtx)
	}()

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(h.RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/payments", func(r chi.Router) {
			r.With(h.RateLimitMiddleware(limiter, "initiate")).Post("/initiate", paymentHandler.Initiate)
			r.With(h.RateLimitMiddleware(limiter, "verify")).Post("/verify", paymentHandler.Verify)
			// Webhook is authenticated by signature, not rate limited.
			r.Post("/webhook", paymentHandler.Webhook)
		})
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", orderHandler.Create)
			r.Get("/", orderHandler.List)
			r.Get("/{id}", orderHandler.Get)
		})
		r.Route("/admin/orders/{id}", func(r chi.Router) {
			r.Patch("/status", orderHandler.OverrideStatus)
			r.Post("/otp", orderHandler.GenerateOTP)
			r.Post("/otp/verify", orderHandler.VerifyOTP)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, "payments-service"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Payments service listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down payments service...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	workerCancel()
	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		log.Println("Notification worker stopped cleanly")
	case <-ctx.Done():
		log.Println("Notification worker didn't stop in time")
	}

	pushWorker.Close()
	log.Println("payments service stopped")
}
