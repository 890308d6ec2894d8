// Package server exposes the pipelines over HTTP. Handlers do input shape
// validation and status mapping only; all behavior lives in the pipelines.
package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"docsearch/internal/extractor"
	"docsearch/internal/models"
	"docsearch/internal/rag"
)

type Handler struct {
	svc *rag.Service
}

func NewHandler(svc *rag.Service) *Handler {
	return &Handler{svc: svc}
}

// NewRouter wires the full route table onto a fresh engine.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(), CORS())

	r.GET("/", h.root)
	r.GET("/health", h.health)
	r.POST("/upload", h.upload)
	r.POST("/query", h.query)
	r.GET("/stats", h.stats)
	r.DELETE("/clear", h.clear)

	return r
}

func (h *Handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "AI Document Search API",
		"status":  "running",
	})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *Handler) upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	chunksAdded, err := h.svc.Ingest(c.Request.Context(), fileHeader.Filename, data)
	if err != nil {
		var unsupported *extractor.UnsupportedFormatError
		if errors.As(err, &unsupported) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.UploadResponse{
		Message:     "Document processed successfully",
		Filename:    fileHeader.Filename,
		ChunksAdded: chunksAdded,
	})
}

func (h *Handler) query(c *gin.Context) {
	var req models.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.NResults < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "n_results must be positive"})
		return
	}
	if req.NResults == 0 {
		req.NResults = 3
	}

	resp, err := h.svc.Answer(c.Request.Context(), req.Question, req.NResults)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// stats never fails; a broken store reads as zero.
func (h *Handler) stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"total_chunks": h.svc.Stats(c.Request.Context())})
}

func (h *Handler) clear(c *gin.Context) {
	if err := h.svc.Clear(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Database cleared successfully"})
}
