package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"io.winapps.confessionboard/internal/storage"
)

// ServeFile streams a stored upload by name. Names containing a path
// separator are rejected before the store is touched.
func (h *ConfessionHandler) ServeFile(c *gin.Context) {
	filename := c.Param("filename")
	if err := storage.ValidateKey(filename); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filename"})
		return
	}

	// No request timeout here: the body is streamed after Open returns.
	rc, info, err := h.files.Open(c.Request.Context(), filename)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		case errors.Is(err, storage.ErrInvalidKey):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filename"})
		default:
			h.internalError(c, err, "open file failed", "filename", filename)
		}
		return
	}
	defer rc.Close()

	c.Header("Content-Type", info.ContentType)
	c.Header("X-Content-Type-Options", "nosniff")

	// Seekable files get range support, which audio players rely on.
	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(c.Writer, c.Request, info.Key, info.ModTime, rs)
		return
	}
	c.DataFromReader(http.StatusOK, info.Size, info.ContentType, rc, nil)
}
