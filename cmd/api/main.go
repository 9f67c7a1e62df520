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

	"socialfeed/internal/config"
	"socialfeed/internal/database"
	"socialfeed/internal/handlers"
	"socialfeed/internal/media"
	"socialfeed/internal/middleware"
	"socialfeed/internal/monitoring"
	"socialfeed/internal/router"
	"socialfeed/internal/service"
	"socialfeed/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 5 * time.Second

func main() {
	startedAt := time.Now()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg, err := config.Load(os.Getenv("SOCIALFEED_CONFIG_DIR"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	gin.SetMode(cfg.Server.Mode)
	log.Printf("config loaded: mode=%s port=%s driver=%s", cfg.Server.Mode, cfg.Server.Port, cfg.Database.Driver)

	ctx := context.Background()
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.CreateTables(ctx, db); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}
	log.Println("Database schema ensured")

	tokens, err := utils.NewTokenIssuer(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpirationHours)*time.Hour)
	if err != nil {
		log.Fatalf("Failed to configure tokens: %v", err)
	}

	images, err := media.NewStore(cfg.Upload)
	if err != nil {
		log.Fatalf("Failed to prepare uploads: %v", err)
	}

	limiter, closeLimiter := newLimiter(ctx, cfg)
	defer closeLimiter()

	h := handlers.New(handlers.Deps{
		DB:         db,
		Identity:   service.NewIdentityService(db, tokens),
		Engagement: service.NewEngagementService(db),
		Graph:      service.NewSocialGraphService(db),
		Feed:       service.NewFeedService(db),
		Images:     images,
		Monitor:    monitoring.NewService(startedAt, db, images.Dir()),
		Monitoring: cfg.Monitoring,
	})

	engine := router.New(router.Options{
		Config:     cfg,
		Handler:    h,
		Tokens:     tokens,
		Limiter:    limiter,
		UploadsDir: images.Dir(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}

// newLimiter picks the rate limiter for register and login. A redis backend
// that cannot be reached at startup falls back to per-process limiting.
func newLimiter(ctx context.Context, cfg config.Config) (middleware.Limiter, func()) {
	if !cfg.RateLimit.Enabled {
		log.Println("Rate limiting disabled")
		return nil, func() {}
	}

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			log.Printf("rate_limit=redis addr=%s prefix=%s", cfg.Redis.Addr, cfg.Redis.Prefix)
			limiter := middleware.NewRedisRateLimiter(client, cfg.Redis.Prefix, cfg.RateLimit.RPS, cfg.RateLimit.Burst)
			return limiter, func() { _ = client.Close() }
		}
		log.Printf("rate_limit=redis_unavailable addr=%s error=%q, using memory limiter", cfg.Redis.Addr, err.Error())
		_ = client.Close()
	}

	limiter := middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)
	log.Printf("rate_limit=memory rps=%.2f burst=%d", cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	return limiter, limiter.Close
}
