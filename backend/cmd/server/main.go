package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"pactly/backend/internal/directory"
	"pactly/backend/internal/friends"
	"pactly/backend/internal/graph"
	"pactly/backend/internal/recommend"
	"pactly/backend/internal/tags"
	"pactly/backend/pkg/config"
	"pactly/backend/pkg/errors"
	"pactly/backend/pkg/logger"
)

func main() {
	// Initialize logger
	if err := logger.Init(os.Getenv("ENV")); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting friends API server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Initialize Neo4j driver
	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		log.Fatal("Failed to create Neo4j driver", zap.Error(err))
	}
	defer driver.Close(context.Background())

	// Verify Neo4j connection
	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		log.Fatal("Failed to verify Neo4j connectivity", zap.Error(err))
	}

	// Open the relational store (users, pacts, tags)
	db, err := sql.Open("sqlite3", cfg.SQLitePath)
	if err != nil {
		log.Fatal("Failed to open relational store", zap.Error(err))
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal("Failed to ping relational store", zap.Error(err))
	}

	// Initialize dependencies
	graphStore := graph.NewStore(driver)
	tagStore := tags.NewStore(db)
	dir := directory.NewDirectory(db)
	relationships := friends.NewService(graphStore, dir)
	recommender := recommend.NewEngine(graphStore, tagStore, dir)

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter(log, relationships, recommender, cfg.SuggestionLimit)

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.String("port", cfg.Port))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// relationshipService is the slice of friends.Service the handlers use
type relationshipService interface {
	ListFriends(ctx context.Context, userID string) ([]directory.Profile, error)
	ListIncomingRequests(ctx context.Context, userID string) ([]directory.Profile, error)
	SendRequest(ctx context.Context, from, to string) error
	AcceptRequest(ctx context.Context, accepter, requester string) error
	DeclineRequest(ctx context.Context, decliner, requester string) error
}

// suggestionEngine is the slice of recommend.Engine the handlers use
type suggestionEngine interface {
	Suggest(ctx context.Context, userID string, limit int) ([]recommend.Suggestion, error)
}

func newRouter(log *zap.Logger, relationships relationshipService, recommender suggestionEngine, defaultLimit int) *gin.Engine {
	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-User-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API routes. The upstream gateway authenticates the caller and passes
	// the resolved identity in X-User-ID; this layer trusts it.
	api := router.Group("/api")
	api.Use(requireIdentity())
	{
		api.GET("/friends", func(c *gin.Context) {
			ctx := c.Request.Context()

			profiles, err := relationships.ListFriends(ctx, callerID(c))
			if err != nil {
				writeError(c, log, "Failed to fetch friends", err)
				return
			}

			c.JSON(http.StatusOK, gin.H{"friends": profiles})
		})

		api.GET("/friends/requests", func(c *gin.Context) {
			ctx := c.Request.Context()

			profiles, err := relationships.ListIncomingRequests(ctx, callerID(c))
			if err != nil {
				writeError(c, log, "Failed to fetch friend requests", err)
				return
			}

			c.JSON(http.StatusOK, gin.H{"requests": profiles})
		})

		api.POST("/friends/requests/send", func(c *gin.Context) {
			ctx := c.Request.Context()

			var req struct {
				UserID string `json:"user_id" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			if err := relationships.SendRequest(ctx, callerID(c), req.UserID); err != nil {
				writeError(c, log, "Failed to send friend request", err)
				return
			}

			c.JSON(http.StatusOK, gin.H{"user_id": req.UserID})
		})

		api.POST("/friends/requests/accept", func(c *gin.Context) {
			ctx := c.Request.Context()

			var req struct {
				UserID string `json:"user_id" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			if err := relationships.AcceptRequest(ctx, callerID(c), req.UserID); err != nil {
				writeError(c, log, "Failed to accept friend request", err)
				return
			}

			c.JSON(http.StatusOK, gin.H{"user_id": req.UserID})
		})

		api.POST("/friends/requests/decline", func(c *gin.Context) {
			ctx := c.Request.Context()

			var req struct {
				UserID string `json:"user_id" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			if err := relationships.DeclineRequest(ctx, callerID(c), req.UserID); err != nil {
				writeError(c, log, "Failed to decline friend request", err)
				return
			}

			c.JSON(http.StatusOK, gin.H{"user_id": req.UserID})
		})

		api.GET("/friends/suggestions", func(c *gin.Context) {
			ctx := c.Request.Context()

			limit := defaultLimit
			if raw := c.Query("limit"); raw != "" {
				parsed, err := parsePositiveInt(raw)
				if err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
					return
				}
				limit = parsed
			}

			suggestions, err := recommender.Suggest(ctx, callerID(c), limit)
			if err != nil {
				writeError(c, log, "Failed to compute friend suggestions", err)
				return
			}

			c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
		})
	}

	return router
}

const identityKey = "caller_user_id"

// requireIdentity rejects requests the gateway has not attributed to a user
func requireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden: missing caller identity."})
			return
		}
		c.Set(identityKey, userID)
		c.Next()
	}
}

func callerID(c *gin.Context) string {
	return c.GetString(identityKey)
}

// writeError maps the domain error taxonomy onto HTTP statuses
func writeError(c *gin.Context, log *zap.Logger, msg string, err error) {
	switch {
	case errors.IsErrorType(err, errors.ErrorTypeTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.IsErrorType(err, errors.ErrorTypeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.IsErrorType(err, errors.ErrorTypeInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.IsErrorType(err, errors.ErrorTypeBackend):
		log.Error(msg, zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Store temporarily unavailable"})
	default:
		log.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

func parsePositiveInt(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("not positive")
	}
	return n, nil
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
