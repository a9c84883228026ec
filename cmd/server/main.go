package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chaimanaouali/SmartCourses/config"
	"github.com/chaimanaouali/SmartCourses/internal/api/handlers"
	"github.com/chaimanaouali/SmartCourses/internal/api/middleware"
	"github.com/chaimanaouali/SmartCourses/internal/cleanup"
	"github.com/chaimanaouali/SmartCourses/internal/core/recognition"
	"github.com/chaimanaouali/SmartCourses/internal/db"
	"github.com/chaimanaouali/SmartCourses/internal/db/repository"
	"github.com/chaimanaouali/SmartCourses/internal/integrations/camera"
	"github.com/chaimanaouali/SmartCourses/internal/integrations/mqtt"
	"github.com/chaimanaouali/SmartCourses/internal/logger"
	"github.com/chaimanaouali/SmartCourses/internal/server/sse"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Init(cfg.Log); err != nil {
		log.Errorf("Failed to initialize logger completely: %v", err)
	}

	log.Info("Initializing database...")
	gormDB, err := db.Initialize(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	repo := repository.NewSQLiteRepository(gormDB)
	log.Info("Database initialization complete.")

	// Recognition pipeline
	ingestor := recognition.NewIngestor()
	detector, err := recognition.NewDetector(cfg.Face.Detector)
	if err != nil {
		log.Fatalf("Failed to load face detector: %v", err)
	}

	deep := recognition.NewDeepBackend(cfg.Face.Deep, detector)
	geometric := recognition.NewGeometricBackend(cfg.Face.Geometric)
	histogram := recognition.NewHistogramBackend(cfg.Face.Histogram, detector)

	cascade := recognition.NewCascade(deep, geometric, histogram)
	service := recognition.NewService(ingestor, detector, cascade, repo)
	pool := recognition.NewWorkerPool(service)

	// SSE hub
	hub := sse.NewHub()
	go hub.Run()

	// MQTT publisher
	publisher := mqtt.NewClient(cfg.MQTT)
	if err := publisher.Start(); err != nil {
		log.Warnf("MQTT client failed to start: %v. Continuing without MQTT.", err)
	}

	// Camera session manager
	cameraManager := camera.NewManager(cfg.Camera, service)

	// Snapshot cleanup
	cleanupService := cleanup.NewService(repo, cfg.Cleanup.RetentionDays, cfg.Server.SnapshotDir, 24*time.Hour)
	if cleanupService != nil {
		cleanupService.StartBackgroundCleanup()
	}

	router := setupRouter(cfg, repo, service, pool, hub, publisher, cameraManager)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		log.Infof("Starting server on %s (backends: %s)", serverAddr, strings.Join(service.Backends(), ", "))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down...")

	cameraManager.Shutdown()
	pool.Shutdown()
	publisher.Stop()
	if cleanupService != nil {
		cleanupService.StopBackgroundCleanup()
	}
	deep.Close()
	geometric.Close()
	detector.Close()

	log.Info("Server stopped.")
}

func setupRouter(cfg *config.Config, repo repository.Repository, service *recognition.Service,
	pool *recognition.WorkerPool, hub *sse.Hub, publisher *mqtt.Client,
	cameraManager *camera.Manager) *gin.Engine {

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if cfg.Server.CORSOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(cfg.Server.CORSOrigins, ",")
	}
	corsConfig.AllowCredentials = !corsConfig.AllowAllOrigins
	router.Use(cors.New(corsConfig))

	store := cookie.NewStore([]byte(cfg.Server.SessionSecret))
	router.Use(sessions.Sessions("smartcourses_session", store))
	router.Use(middleware.I18n(cfg.I18n))

	api := router.Group("/api")
	handlers.NewFaceHandler(cfg, repo, service, pool, hub, publisher).RegisterRoutes(api)
	handlers.NewIdentityHandler(repo).RegisterRoutes(api)
	handlers.NewCameraHandler(cfg, repo, cameraManager, hub, publisher).RegisterRoutes(api)
	handlers.NewSystemHandler(repo, service, pool, hub).RegisterRoutes(api)

	// Serve stored snapshots
	router.StaticFS("/snapshots", http.Dir(cfg.Server.SnapshotDir))

	return router
}
