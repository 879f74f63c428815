package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"stock_insight_backend/config"
	"stock_insight_backend/models"
	"stock_insight_backend/routes"
	"stock_insight_backend/scheduler"
	"stock_insight_backend/services"
)

// dbInitialized tracks whether the database has been successfully
// initialized, for the /ready endpoint. Guarded by dbInitMutex because the
// database comes up in a background goroutine.
var dbInitialized bool
var dbInitMutex sync.RWMutex

// jobScheduler is set by the background init goroutine once the database is
// up; shutdown reads it under the same mutex.
var jobScheduler *scheduler.Scheduler

func init() {
	// Chart prices go over the wire as JSON numbers, not strings
	decimal.MarshalJSONWithoutQuotes = true
}

func main() {
	log.Info("==============================================")
	log.Info("  Stock Insight API - Starting...")
	log.Info("==============================================")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Warnf("Config load issue: %v", err)
	}

	// Set Gin mode based on environment
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create Gin router
	router := gin.New()

	// Add middlewares
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestLogger())

	// Setup probe endpoints FIRST so the platform can detect the service is
	// up; the database is initialized in the background
	setupProbeEndpoints(router)

	// Create HTTP server with timeouts
	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	// Start server immediately so the platform knows we're listening
	go func() {
		log.Infof("Server listening on 0.0.0.0:%s", cfg.Port)
		log.Info("==============================================")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Initialize database and setup routes in background
	go func() {
		db, err := config.InitDB()
		if err != nil {
			log.Errorf("Database connection failed: %v", err)
			log.Info("Service will continue in limited mode (probes only)")
			return
		}

		log.Info("Running database migrations...")
		if err := models.Migrate(db); err != nil {
			log.Errorf("Migration failed: %v", err)
		} else {
			log.Info("Database migrations completed successfully")
		}

		// Optional MongoDB search index
		var mongoClient *mongo.Client
		if mongoClient, err = services.ConnectMongo(cfg.MongoURI); err != nil {
			log.Warnf("MongoDB not available, search served from Postgres: %v", err)
			mongoClient = nil
		}

		// Setup all API routes
		routes.SetupRoutes(router, db, cfg, mongoClient)

		// Start background scheduler
		s := scheduler.NewScheduler(db, cfg)
		go s.Start()

		// Mark database as ready
		dbInitMutex.Lock()
		dbInitialized = true
		jobScheduler = s
		dbInitMutex.Unlock()

		log.Info("Application fully initialized with database")
	}()

	// Graceful shutdown
	gracefulShutdown(server)
}

// setupProbeEndpoints sets up liveness/readiness endpoints
func setupProbeEndpoints(router *gin.Engine) {
	// Root endpoint
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Stock Insight API",
			"version": "1.0.0",
		})
	})

	// Readiness probe - checks if service is ready to receive traffic
	router.GET("/ready", func(c *gin.Context) {
		dbInitMutex.RLock()
		isDBReady := dbInitialized
		dbInitMutex.RUnlock()

		if !isDBReady {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not_ready",
				"message": "Database not connected",
			})
			return
		}

		sqlDB, err := config.DB.DB()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not_ready",
				"message": "Database connection error",
			})
			return
		}

		if err := sqlDB.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not_ready",
				"message": "Database ping failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "ready",
		})
	})

	// Startup probe
	router.GET("/startup", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "started",
		})
	})
}

// corsMiddleware returns a CORS middleware handler
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestLogger returns a request logging middleware
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip logging for probes to reduce noise
		path := c.Request.URL.Path
		if path == "/health" || path == "/ready" || path == "/startup" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		// Only log errors or slow requests
		if c.Writer.Status() >= 400 || duration > 1*time.Second {
			log.Infof("%s %s %d %v", c.Request.Method, path, c.Writer.Status(), duration)
		}
	}
}

// gracefulShutdown handles graceful shutdown of the server
func gracefulShutdown(server *http.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	sig := <-quit
	log.Infof("Received signal %v, shutting down gracefully...", sig)

	// Stop scheduler first
	dbInitMutex.RLock()
	s := jobScheduler
	dbInitMutex.RUnlock()
	if s != nil {
		s.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	// Close database connection
	if config.DB != nil {
		sqlDB, err := config.DB.DB()
		if err == nil {
			sqlDB.Close()
			log.Info("Database connection closed")
		}
	}

	log.Info("Server shutdown completed")
}
