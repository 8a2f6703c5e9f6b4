package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	models "io.winapps.confessionboard/internal/models/confession"
	listmodels "io.winapps.confessionboard/internal/models/list_confessions"
	"io.winapps.confessionboard/internal/query"
)

// cachedPage is what goes into the list cache: rows before audio_url
// annotation, since the URL depends on the requesting host.
type cachedPage struct {
	Confessions []models.Confession `json:"confessions"`
	Total       int                 `json:"total"`
}

// ListConfessions handles filtering, searching, sorting and paginating confessions
func (h *ConfessionHandler) ListConfessions(c *gin.Context) {
	var req listmodels.ListConfessionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	l := query.Normalize(query.Params{
		Page:      req.Page,
		Limit:     req.Limit,
		City:      req.City,
		Sex:       req.Sex,
		AgeMin:    req.AgeMin,
		AgeMax:    req.AgeMax,
		Search:    req.Search,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	})

	ctx, cancel := h.requestContext(c)
	defer cancel()

	var page cachedPage
	gen, hit, cacheErr := h.cache.Get(ctx, l.Key(), &page)
	if cacheErr != nil {
		h.logWarn(c, cacheErr, "list cache lookup failed")
	}

	if !hit {
		confessions, total, err := h.store.List(ctx, l)
		if err != nil {
			h.internalError(c, err, "list confessions failed")
			return
		}
		page = cachedPage{Confessions: confessions, Total: total}

		if cacheErr == nil {
			if err := h.cache.Set(ctx, gen, l.Key(), page); err != nil {
				h.logWarn(c, err, "list cache fill failed")
			}
		}
	}

	if page.Confessions == nil {
		page.Confessions = []models.Confession{}
	}

	base := baseURL(c)
	for i := range page.Confessions {
		annotateAudioURL(&page.Confessions[i], base)
	}

	c.JSON(http.StatusOK, listmodels.ListConfessionsResponse{
		Confessions: page.Confessions,
		TotalPages:  query.TotalPages(page.Total, l.Limit),
		CurrentPage: l.Page,
		Total:       page.Total,
	})
}

// baseURL is scheme://host of the current request. X-Forwarded-Proto wins
// when the server sits behind a TLS-terminating proxy.
func baseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		proto = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
		if proto == "http" || proto == "https" {
			scheme = proto
		}
	}
	return fmt.Sprintf("%s://%s", scheme, c.Request.Host)
}

func annotateAudioURL(conf *models.Confession, base string) {
	if conf.AudioPath == nil || *conf.AudioPath == "" {
		return
	}
	conf.AudioURL = base + "/uploads/" + url.PathEscape(*conf.AudioPath)
}
