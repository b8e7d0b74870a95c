package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/genai"

	"github.com/ragworks/rag/config"
	"github.com/ragworks/rag/controller"
	"github.com/ragworks/rag/models"
	"github.com/ragworks/rag/sandbox"
	"github.com/ragworks/rag/services"
	"github.com/ragworks/rag/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	// Interpreter mode needs a Gemini-backed sandbox; without the API key
	// the server still runs, returning plain retrieval results only.
	var sessionCache *session.Cache
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		geminiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			log.Fatalf("FATAL: Failed to create Gemini client: %v", err)
		}
		log.Println("Successfully connected to Google Gemini.")

		sessionCache = session.NewCache(sandbox.NewGemini(geminiClient, cfg.InterpreterModel), cfg.SessionIdleTimeout)
		sessionCache.Start(cfg.SessionSweepInterval)
		defer sessionCache.Close()
	} else {
		log.Println("GEMINI_API_KEY not set; interpreter mode is disabled.")
	}

	fetcher := services.NewHTTPFetcher(httpClient)
	ragService := services.NewRAGService(fetcher, sessionCache, services.Options{
		IngestWorkers: cfg.IngestWorkers,
		HTTPClient:    httpClient,
	})
	ragController := controller.NewRAGController(ragService)

	// Keep a local documents directory indexed, when configured.
	if cfg.WatchDir != "" {
		watcher := services.NewWatcher(
			ragService,
			cfg.WatchDir,
			models.Encoder{
				Provider:   cfg.WatchEncoderProvider,
				ModelName:  cfg.WatchEncoderModel,
				Dimensions: cfg.WatchEncoderDimensions,
			},
			models.VectorDatabase{Type: cfg.WatchDatabaseType},
			cfg.WatchIndexName,
		)
		go func() {
			ctx := context.Background()
			watcher.Scan(ctx)
			watcher.Watch(ctx)
		}()
	}

	// Setup Gin router
	router := gin.Default()

	// Add CORS middleware for testing
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "RAG API",
			"version": "1.0.0",
		})
	})

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/ingest", ragController.Ingest)
		apiV1.POST("/query", ragController.Query)
		apiV1.POST("/delete", ragController.Delete)
	}

	log.Printf("RAG API server starting on %s", cfg.Addr)
	if err := router.Run(cfg.Addr); err != nil {
		log.Fatalf("FATAL: Failed to start server: %v", err)
	}
}
