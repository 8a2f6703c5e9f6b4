package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"io.winapps.confessionboard/internal/handlers"
	"io.winapps.confessionboard/internal/middleware"
)

// NewRouter wires middleware and routes. Path parameters are matched on the
// escaped path so an encoded slash in a filename reaches the handler as-is.
func NewRouter(h *handlers.ConfessionHandler, logger *zap.SugaredLogger, corsOrigin string) *gin.Engine {
	router := gin.New()
	router.UseRawPath = true
	router.UnescapePathValues = true

	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.RequestLoggingMiddleware(logger))
	router.Use(middleware.CORSMiddleware(corsOrigin))

	h.RegisterRoutes(router)
	return router
}
