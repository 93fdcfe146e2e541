package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cleanbot/server/messages"
	"cleanbot/server/models"
	"cleanbot/server/persistence"
	"cleanbot/server/services"
)

const defaultHistoryLimit = 50

// HealthCheck reports that the server is up
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CreateRun starts a cleaning run from inline map text or a saved map name
func CreateRun(runs *services.RunService, maps *services.MapService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req messages.CreateRunRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, "BAD_REQUEST", err.Error())
			return
		}

		text := req.Map
		if text == "" && req.MapName != "" {
			tmpl, err := maps.GetMap(req.MapName)
			if err != nil {
				respondError(c, err)
				return
			}
			text = tmpl.Text
		}

		var opts []services.RunOption
		if req.Seed != nil {
			opts = append(opts, services.WithSeed(*req.Seed))
		}

		id, err := runs.CreateRun(text, opts...)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, messages.CreateRunResponse{
			ID:      id,
			Message: "Started a new cleaning bot: " + id,
		})
	}
}

// ListRuns returns the status of every active run
func ListRuns(runs *services.RunService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, runs.ListRuns())
	}
}

// GetRun returns an active run's status, or the stored report once it has finished.
// A run that stopped moments ago may not be stored yet; its final status is served instead.
func GetRun(runs *services.RunService, db persistence.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if run, err := runs.GetRun(id); err == nil {
			c.JSON(http.StatusOK, run.Status())
			return
		}

		report, err := db.LoadRun(id)
		if errors.Is(err, persistence.ErrNotFound) {
			if status, serr := runs.Status(id); serr == nil {
				c.JSON(http.StatusOK, status)
				return
			}
		}
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

// StopRun ends an active run early
func StopRun(runs *services.RunService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := runs.StopRun(id); err != nil {
			respondError(c, err)
			return
		}
		slog.Info("Run stopped on request", "id", id)
		c.JSON(http.StatusOK, gin.H{"status": "stopped", "id": id})
	}
}

// ListHistory returns finished run reports, newest first
func ListHistory(db persistence.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultHistoryLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				abortWithError(c, http.StatusBadRequest, "BAD_REQUEST", "limit must be a non-negative integer")
				return
			}
			limit = n
		}

		reports, err := db.ListRuns(limit)
		if err != nil {
			respondError(c, err)
			return
		}
		if reports == nil {
			reports = []*models.RunReport{}
		}
		c.JSON(http.StatusOK, reports)
	}
}

// SaveMap stores a named map template
func SaveMap(maps *services.MapService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req messages.SaveMapRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, "BAD_REQUEST", err.Error())
			return
		}

		tmpl, err := maps.SaveMap(c.Param("name"), req.Map)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, tmpl)
	}
}

// GetMap returns a named map template
func GetMap(maps *services.MapService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tmpl, err := maps.GetMap(c.Param("name"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, tmpl)
	}
}

// respondError maps domain errors onto HTTP status codes
func respondError(c *gin.Context, err error) {
	var malformed *models.MalformedMapError
	switch {
	case errors.As(err, &malformed):
		abortWithError(c, http.StatusBadRequest, "MALFORMED_MAP", err.Error())
	case errors.Is(err, services.ErrRunNotFound),
		errors.Is(err, services.ErrMapNotFound),
		errors.Is(err, persistence.ErrNotFound):
		abortWithError(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, services.ErrInvalidMapName):
		abortWithError(c, http.StatusBadRequest, "BAD_REQUEST", err.Error())
	default:
		slog.Error("Request failed", "path", c.FullPath(), "error", err)
		abortWithError(c, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, messages.ErrorMessage{Code: code, Message: message})
}
