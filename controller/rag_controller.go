package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ragworks/rag/models"
	"github.com/ragworks/rag/services"
	"github.com/ragworks/rag/session"
)

// RAGController handles the HTTP requests for the ingestion and retrieval
// API. It depends on the RAGService to perform the actual business logic.
type RAGController struct {
	ragService services.RAGService
}

// NewRAGController is a constructor function that creates a new RAGController.
// This is called from main.go to inject the service dependency.
func NewRAGController(service services.RAGService) *RAGController {
	return &RAGController{
		ragService: service,
	}
}

// Ingest is the Gin handler for the POST /api/v1/ingest endpoint.
func (c *RAGController) Ingest(ctx *gin.Context) {
	var req models.IngestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	response, err := c.ragService.Ingest(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	// Per-document failures are enumerated in the response body; the
	// request itself succeeded.
	ctx.JSON(http.StatusOK, response)
}

// Query is the Gin handler for the POST /api/v1/query endpoint.
func (c *RAGController) Query(ctx *gin.Context) {
	var req models.QueryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	response, err := c.ragService.Query(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response)
}

// Delete is the Gin handler for the POST /api/v1/delete endpoint.
func (c *RAGController) Delete(ctx *gin.Context) {
	var req models.DeleteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	response, err := c.ragService.Delete(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response)
}

// respondError maps service errors to HTTP statuses: configuration problems
// are the client's to fix, a busy session is contention the client may retry,
// and everything else is a server-side pipeline failure.
func respondError(ctx *gin.Context, err error) {
	var cfgErr *models.ConfigError
	switch {
	case errors.As(err, &cfgErr):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrSessionBusy):
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		var qErr *services.QueryError
		if errors.As(err, &qErr) {
			ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "kind": string(qErr.Kind)})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
