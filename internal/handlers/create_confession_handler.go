package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	createmodels "io.winapps.confessionboard/internal/models/create_confession"
	models "io.winapps.confessionboard/internal/models/confession"
	"io.winapps.confessionboard/internal/storage"
)

const audioField = "audio"

// CreateConfession handles text (JSON or form) and voice (multipart) confessions
func (h *ConfessionHandler) CreateConfession(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	var req createmodels.CreateConfessionRequest
	var err error
	contentType := c.ContentType()
	switch contentType {
	case binding.MIMEMultipartPOSTForm:
		err = c.ShouldBindWith(&req, binding.FormMultipart)
	case binding.MIMEPOSTForm:
		err = c.ShouldBindWith(&req, binding.Form)
	default:
		err = c.ShouldBindJSON(&req)
	}
	if err != nil {
		h.bindError(c, err)
		return
	}

	var upload *multipart.FileHeader
	if contentType == binding.MIMEMultipartPOSTForm {
		fh, err := c.FormFile(audioField)
		switch {
		case err == nil:
			upload = fh
		case errors.Is(err, http.ErrMissingFile):
		default:
			h.bindError(c, err)
			return
		}
	}

	n := models.NewConfession{
		City: strings.TrimSpace(req.City),
		Sex:  models.Sex(req.Sex),
		Age:  int(req.Age),
	}
	if upload != nil {
		n.Body = models.AudioBody{Key: storage.NewKey(time.Now(), upload.Filename), Caption: req.Description}
	} else {
		n.Body = models.TextBody{Description: req.Description}
	}
	if err := n.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": strings.TrimPrefix(err.Error(), models.ErrValidation.Error()+": ")})
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	if upload != nil {
		key, err := h.saveUpload(ctx, upload)
		if err != nil {
			h.internalError(c, err, "save audio failed", "filename", upload.Filename)
			return
		}
		n.Body = models.AudioBody{Key: key, Caption: req.Description}
	}

	created, err := h.store.Create(ctx, n)
	if err != nil {
		// The row never landed, so the stored file would be an orphan.
		if audio, ok := n.Body.(models.AudioBody); ok {
			h.removeUpload(c, audio.Key)
		}
		h.internalError(c, err, "insert confession failed")
		return
	}

	if err := h.cache.Invalidate(ctx); err != nil {
		h.logWarn(c, err, "list cache invalidation failed")
	}

	annotateAudioURL(created, baseURL(c))
	c.JSON(http.StatusCreated, created)
}

func (h *ConfessionHandler) saveUpload(ctx context.Context, upload *multipart.FileHeader) (string, error) {
	f, err := upload.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	return h.files.Save(ctx, upload.Filename, f)
}

// removeUpload runs detached from the request deadline, which may be what
// failed the insert in the first place.
func (h *ConfessionHandler) removeUpload(c *gin.Context, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), 5*time.Second)
	defer cancel()

	if err := h.files.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		h.logError(c, err, "remove orphaned audio failed", "key", key)
	}
}

func (h *ConfessionHandler) bindError(c *gin.Context, err error) {
	if isBodyTooLarge(err) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("Request body exceeds %d bytes", h.maxUploadBytes),
		})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": bindErrorMessage(err)})
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	// multipart does not always wrap the underlying reader error
	return strings.Contains(err.Error(), "request body too large")
}

func bindErrorMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			return field + " is required"
		case "oneof":
			return fmt.Sprintf("%s must be one of %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
		case "min":
			if field == "age" {
				return fmt.Sprintf("age must be between %d and %d", models.MinAge, models.MaxAge)
			}
			return fmt.Sprintf("%s must be at least %s", field, fe.Param())
		case "max":
			if field == "age" {
				return fmt.Sprintf("age must be between %d and %d", models.MinAge, models.MaxAge)
			}
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s is invalid", field)
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return "Invalid JSON body"
	}
	return "Invalid request format"
}
