package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"graphmem/internal/adapter"
	"graphmem/internal/backend"
	"graphmem/internal/extraction"
	"graphmem/internal/memory"
	"graphmem/internal/store"
	"graphmem/pkg/config"
	"graphmem/pkg/errors"
	"graphmem/pkg/logger"
)

func main() {
	// Initialize logger
	if err := logger.Init(os.Getenv("ENV")); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting graph memory server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx := context.Background()

	// Open the configured graph store
	graphStore, err := backend.Open(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to open graph store", zap.Error(err))
	}
	defer graphStore.Close(ctx)

	// Initialize dependencies
	llm := adapter.NewLLMAdapter(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
	embedder := adapter.NewEmbeddingAdapter(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDims)
	extractor := extraction.NewExtractor(llm, "")
	mem := memory.New(graphStore, extractor, embedder)

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "store": cfg.GraphStore})
	})

	api := router.Group("/api/v1")
	{
		// Ingest text into the tenant's graph
		api.POST("/memory", func(c *gin.Context) {
			var req struct {
				Text    string `json:"text" binding:"required"`
				UserID  string `json:"user_id" binding:"required"`
				AgentID string `json:"agent_id"`
				RunID   string `json:"run_id"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			result, err := mem.Add(c.Request.Context(), req.Text, store.Filters{
				UserID: req.UserID, AgentID: req.AgentID, RunID: req.RunID,
			})
			if err != nil {
				log.Error("Failed to add memory", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add memory"})
				return
			}
			c.JSON(http.StatusOK, result)
		})

		// Semantic search over the tenant's graph
		api.POST("/memory/search", func(c *gin.Context) {
			var req struct {
				Query   string `json:"query" binding:"required"`
				UserID  string `json:"user_id" binding:"required"`
				AgentID string `json:"agent_id"`
				RunID   string `json:"run_id"`
				Limit   int    `json:"limit"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			results, err := mem.Search(c.Request.Context(), req.Query, store.Filters{
				UserID: req.UserID, AgentID: req.AgentID, RunID: req.RunID,
			}, req.Limit)
			if err != nil {
				log.Error("Failed to search memory", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search memory"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"results": results})
		})

		// Dump the scope's edges
		api.GET("/memory", func(c *gin.Context) {
			filters := store.Filters{
				UserID:  c.Query("user_id"),
				AgentID: c.Query("agent_id"),
				RunID:   c.Query("run_id"),
			}
			limit := 0
			if raw := c.Query("limit"); raw != "" {
				fmt.Sscanf(raw, "%d", &limit)
			}

			results, err := mem.GetAll(c.Request.Context(), filters, limit)
			if err != nil {
				if errors.IsErrorType(err, errors.ErrorTypeScope) {
					c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
					return
				}
				log.Error("Failed to get memories", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get memories"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"results": results})
		})

		// Wipe the scope
		api.DELETE("/memory", func(c *gin.Context) {
			filters := store.Filters{
				UserID:  c.Query("user_id"),
				AgentID: c.Query("agent_id"),
				RunID:   c.Query("run_id"),
			}

			if err := mem.DeleteAll(c.Request.Context(), filters); err != nil {
				if errors.IsErrorType(err, errors.ErrorTypeScope) {
					c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
					return
				}
				log.Error("Failed to delete memories", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete memories"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "deleted"})
		})

		// Wipe everything, all tenants
		api.POST("/admin/reset", func(c *gin.Context) {
			if err := mem.Reset(c.Request.Context()); err != nil {
				log.Error("Failed to reset store", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset store"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "reset"})
		})
	}

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.String("port", cfg.Port), zap.String("store", cfg.GraphStore))

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
