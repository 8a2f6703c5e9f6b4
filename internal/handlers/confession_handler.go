package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"io.winapps.confessionboard/internal/cache"
	models "io.winapps.confessionboard/internal/models/confession"
	"io.winapps.confessionboard/internal/query"
	"io.winapps.confessionboard/internal/storage"
)

// ConfessionStore is the persistence the handlers need.
type ConfessionStore interface {
	List(ctx context.Context, l query.List) ([]models.Confession, int, error)
	Create(ctx context.Context, n models.NewConfession) (*models.Confession, error)
	Ping(ctx context.Context) error
}

type Options struct {
	MaxUploadBytes int64
	RequestTimeout time.Duration
}

type ConfessionHandler struct {
	store          ConfessionStore
	files          storage.FileStore
	cache          cache.ListCache
	logger         *zap.SugaredLogger
	maxUploadBytes int64
	requestTimeout time.Duration
}

// NewConfessionHandler creates a new confession handler
func NewConfessionHandler(store ConfessionStore, files storage.FileStore, listCache cache.ListCache, logger *zap.SugaredLogger, opts Options) *ConfessionHandler {
	if listCache == nil {
		listCache = cache.NopListCache{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	return &ConfessionHandler{
		store:          store,
		files:          files,
		cache:          listCache,
		logger:         logger,
		maxUploadBytes: opts.MaxUploadBytes,
		requestTimeout: opts.RequestTimeout,
	}
}

// RegisterRoutes mounts the confession API, the raw file endpoint and the uploads mount.
func (h *ConfessionHandler) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api")
	{
		api.GET("/confessions", h.ListConfessions)
		api.POST("/confessions", h.CreateConfession)
		api.GET("/file/:filename", h.ServeFile)
	}

	// Uploaded audio, served from the same store as /api/file
	r.GET("/uploads/:filename", h.ServeFile)
	r.HEAD("/uploads/:filename", h.ServeFile)

	r.GET("/health", h.Health)
}

func (h *ConfessionHandler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.requestTimeout)
}

// internalError logs err and answers with a body that carries no detail of it.
func (h *ConfessionHandler) internalError(c *gin.Context, err error, msg string, fields ...interface{}) {
	h.logError(c, err, msg, fields...)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":      "Internal server error",
		"request_id": c.GetString("request_id"),
	})
}

// Health reports whether the database answers
func (h *ConfessionHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		logWithContext(h.logger, c, "warn", "health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
