// Package transport exposes the review HTTP API for a single device.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"screenvec/internal/config"
	apperrors "screenvec/internal/errors"
	"screenvec/internal/logger"
	"screenvec/internal/state"
	"screenvec/internal/workflow"
)

// ItemSummary is the list view of one item.
type ItemSummary struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	Confidence float64   `json:"confidence"`
	UpdatedAt  time.Time `json:"updated_at"`
	SourceURL  string    `json:"source_url"`
	PreviewURL string    `json:"preview_url"`
	SVGURL     string    `json:"svg_url"`
}

// ItemDetail is the full view: summary plus the raw state record.
type ItemDetail struct {
	ItemSummary
	State state.ItemState `json:"state"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// NewHandler builds the gin router over the store and workflow.
func NewHandler(store *state.Store, wf *workflow.Workflow, cfg *config.Config) http.Handler {
	r := gin.Default()

	r.Use(
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	r.GET("/health", healthCheck)
	r.GET("/api/items", listItems(store))
	r.GET("/api/item/:id", getItem(store))
	r.POST("/api/item/:id/state", updateItemState(store))
	r.POST("/api/item/:id/rerun", rerunItem(wf))
	r.Static("/api/public", cfg.Paths().ImagesDir)

	return r
}

// displayStatus is what the reviewer sees: the manual_status flag when
// set, otherwise the qualification outcome. It never affects artifacts
// or file placement.
func displayStatus(item state.ItemState) string {
	if manual := item.ManualStatus(); manual != "" {
		return manual
	}
	if item.Validation.IsQualifying {
		return state.ManualStatusOK
	}
	return state.ManualStatusRejected
}

func summarize(id string, item state.ItemState) ItemSummary {
	return ItemSummary{
		ID:         id,
		Status:     displayStatus(item),
		Confidence: item.Validation.Confidence,
		UpdatedAt:  item.UpdatedAt,
		SourceURL:  "/api/public/" + item.SourcePath,
		PreviewURL: "/api/public/screens/" + id + "_preview_128x64.png",
		SVGURL:     "/api/public/screens/" + id + ".svg",
	}
}

func listItems(store *state.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := store.Load()
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "failed to load state", err)
			return
		}

		items := make([]ItemSummary, 0, len(doc.Items))
		for id, item := range doc.Items {
			items = append(items, summarize(id, item))
		}
		sort.Slice(items, func(i, j int) bool {
			if !items[i].UpdatedAt.Equal(items[j].UpdatedAt) {
				return items[i].UpdatedAt.After(items[j].UpdatedAt)
			}
			return items[i].ID < items[j].ID
		})
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

func getItem(store *state.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		item, err := store.Get(id)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "failed to load item", err)
			return
		}
		c.JSON(http.StatusOK, ItemDetail{ItemSummary: summarize(id, item), State: item})
	}
}

func updateItemState(store *state.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		var patch state.Patch
		if err := c.ShouldBindJSON(&patch); err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"item": id,
				"ip":   c.ClientIP(),
			}).Error("Invalid state patch")
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		item, err := store.Apply(id, patch)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "failed to update item state", err)
			return
		}

		logger.WithField("item", id).Info("Item state updated")
		c.JSON(http.StatusOK, ItemDetail{ItemSummary: summarize(id, item), State: item})
	}
}

func rerunItem(wf *workflow.Workflow) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		startTime := time.Now()

		item, err := wf.Rerun(id)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "rerun failed", err)
			return
		}

		// Manifest refresh after a rerun is best-effort; the state record
		// is authoritative.
		if err := wf.WriteManifest(); err != nil {
			logger.WithError(err).WithField("item", id).Warn("manifest refresh failed")
		}

		logger.WithFields(logrus.Fields{
			"item":               id,
			"qualifying":         item.Validation.IsQualifying,
			"processing_time_ms": time.Since(startTime).Milliseconds(),
		}).Info("Item rerun completed")
		c.JSON(http.StatusOK, ItemDetail{ItemSummary: summarize(id, item), State: item})
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err), "request processing failed", err)
		}
	}
}

func determineStatusCode(err error) int {
	if appErr, ok := err.(*apperrors.AppError); ok {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
