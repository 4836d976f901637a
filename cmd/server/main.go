package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/whatisboom/blendroom-sub001/pkg/config"
	"github.com/whatisboom/blendroom-sub001/pkg/jwt"
	"github.com/whatisboom/blendroom-sub001/pkg/limiter"
	"github.com/whatisboom/blendroom-sub001/pkg/logger"
	redispkg "github.com/whatisboom/blendroom-sub001/pkg/redis"

	"github.com/whatisboom/blendroom-sub001/internal/broadcast"
	"github.com/whatisboom/blendroom-sub001/internal/catalog"
	"github.com/whatisboom/blendroom-sub001/internal/handler"
	"github.com/whatisboom/blendroom-sub001/internal/middleware"
	"github.com/whatisboom/blendroom-sub001/internal/profile"
	"github.com/whatisboom/blendroom-sub001/internal/queue"
	"github.com/whatisboom/blendroom-sub001/internal/service"
	"github.com/whatisboom/blendroom-sub001/internal/store"
)

const ipRateLimit = 120 // requests per minute per IP

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	log := logger.Default()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", logger.Error(err))
		os.Exit(1)
	}

	redisClient, err := redispkg.NewClient(&redispkg.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		PoolTimeout:  cfg.Redis.PoolTimeout,
		MaxRetries:   cfg.Redis.MaxRetries,
	})
	if err != nil {
		log.Error("failed to connect to redis", logger.Error(err))
		os.Exit(1)
	}
	defer redisClient.Close()
	log.Info("connected to redis",
		logger.String("host", cfg.Redis.Host),
		logger.Int("port", cfg.Redis.Port))

	sessionStore := store.NewSessionStore(redisClient, log)
	cat := catalog.NewSpotifyCatalog(cfg.Catalog, log)
	analyzer := profile.NewAnalyzer(cat, redispkg.NewSingleFlightCache(redisClient), cfg.Profile.CacheTTL, cfg.Profile.TopLimit, log)
	broadcaster := broadcast.NewRedisBroadcaster(redisClient, log)

	locks := queue.NewSessionLocks()
	scorer := queue.NewScorer(cfg.Scoring)
	generator := queue.NewGenerator(cat, scorer, cfg.Queue, log)
	repopulator := queue.NewRepopulator(sessionStore, generator, locks, broadcaster, cfg.Queue, log)
	regenerator := queue.NewRegenerator(sessionStore, analyzer, generator, locks, broadcaster, cfg.Queue, cfg.Regen, log)
	defer regenerator.Close()

	svc := service.New(sessionStore, analyzer, locks, repopulator, regenerator, broadcaster, cat, cfg.Queue, log)

	jwtManager := jwt.NewManager(&jwt.Config{
		Secret: cfg.Auth.JWTSecret,
		Issuer: "blendroom",
	})
	ipLimiter := limiter.NewIPRateLimiter(redisClient, ipRateLimit, time.Minute)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.CORS())
	router.Use(middleware.IPRateLimit(ipLimiter, log))

	h := handler.New(svc, log)
	router.GET("/health", h.Health)

	api := router.Group("/api/v1")
	api.Use(middleware.Auth(jwtManager))
	h.RegisterRoutes(api)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("server listening", logger.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", logger.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", logger.Error(err))
	}
	log.Info("server stopped")
}
