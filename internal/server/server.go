package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"anoa.com/pointboard/internal/config"
	"anoa.com/pointboard/internal/middleware"
	"anoa.com/pointboard/pkg/cache"

	leaderboardHttp "anoa.com/pointboard/internal/modules/leaderboard/delivery/http"
	leaderboardRepo "anoa.com/pointboard/internal/modules/leaderboard/repository"
	leaderboardService "anoa.com/pointboard/internal/modules/leaderboard/service"

	notifHttp "anoa.com/pointboard/internal/modules/notification/delivery/http"
	notifService "anoa.com/pointboard/internal/modules/notification/service"

	pointsHttp "anoa.com/pointboard/internal/modules/points/delivery/http"
	pointsRepo "anoa.com/pointboard/internal/modules/points/repository"
	pointsService "anoa.com/pointboard/internal/modules/points/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	cfg          *config.Config
	engine       *gin.Engine
	db           *gorm.DB
	redisClient  *redis.Client
	synchronizer *leaderboardService.Synchronizer
	consumer     *notifService.PrintConsumer
}

func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	shared := cache.NewRedisCache(redisClient)
	guard := cache.NewGuard(shared)

	// Leaderboard Module
	ledgerRepository := pointsRepo.NewLedgerRepository(db)
	counterRepository := pointsRepo.NewCounterRepository(db)
	leaderboardRepository := leaderboardRepo.NewLeaderboardRepository(shared)
	leaderboardSvc := leaderboardService.NewLeaderboardService(leaderboardRepository, counterRepository, cfg.Leaderboard.Size, cfg.Leaderboard.ReadSize)
	leaderboardHandler := leaderboardHttp.NewLeaderboardHandler(leaderboardSvc)
	synchronizer := leaderboardService.NewSynchronizer(leaderboardSvc, cfg.Leaderboard.RefreshInterval)

	// Notification Module
	publisher := notifService.NewPublisher(redisClient)
	eventsHandler := notifHttp.NewEventsHandler(redisClient, cfg.Notify.UserPointsTopic)
	var consumer *notifService.PrintConsumer
	if cfg.Notify.PrintConsumer {
		consumer = notifService.NewPrintConsumer(redisClient, cfg.Notify.UserPointsTopic, nil)
	}

	// Points Module
	totalCache := pointsRepo.NewTotalCache(shared, cfg.Points.CacheTTL)
	pipeline := pointsService.NewCommitPipeline(guard, totalCache, publisher, leaderboardSvc,
		cfg.Notify.UserPointsTopic, pointsService.LockSettingsFromConfig(cfg.Points))
	pointsSvc := pointsService.NewPointsService(pointsRepo.NewTransactor(db), ledgerRepository, counterRepository,
		totalCache, guard, pipeline, leaderboardSvc, cfg.Points)
	pointsHandler := pointsHttp.NewPointsHandler(pointsSvc)

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz"},
	}))

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret)

	s := &Server{
		cfg:          cfg,
		engine:       router,
		db:           db,
		redisClient:  redisClient,
		synchronizer: synchronizer,
		consumer:     consumer,
	}

	router.GET("/healthz", s.health)

	api := router.Group("/api")

	points := api.Group("/points")
	points.GET("/leaderboard", leaderboardHandler.GetLeaderboard)
	pointsHandler.RegisterRoutes(points, authMiddleware.RequireAuth())

	api.GET("/events/ws", eventsHandler.HandleWebSocket)

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves HTTP on the configured port and runs the background jobs until
// ctx is cancelled, then shuts everything down.
func (s *Server) Run(ctx context.Context) error {
	if err := s.synchronizer.Start(ctx); err != nil {
		return err
	}
	defer s.synchronizer.Stop()

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	if s.consumer != nil {
		go func() {
			if err := s.consumer.Run(consumerCtx, nil); err != nil {
				log.Printf("❌ [PrintConsumer] stopped: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:    ":" + s.cfg.Port,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("🚀 Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("🛑 Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := gin.H{"database": "ok", "redis": "ok"}
	healthy := true

	if sqlDB, err := s.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		status["database"] = "unavailable"
		healthy = false
	}
	if err := s.redisClient.Ping(ctx).Err(); err != nil {
		status["redis"] = "unavailable"
		healthy = false
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}
	c.JSON(http.StatusOK, status)
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	var origins []string
	for _, origin := range strings.Split(allowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
