package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"occupancy-analytics/internal/model"
	"occupancy-analytics/internal/service"
)

type Handler struct {
	analytics *service.AnalyticsService
	log       zerolog.Logger
}

func NewHandler(analytics *service.AnalyticsService, log zerolog.Logger) *Handler {
	return &Handler{analytics: analytics, log: log}
}

func (h *Handler) Register(r *gin.Engine) {
	r.GET("/healthz", h.health)

	group := r.Group("/analytics")
	group.GET("/stats", h.getStats)
	group.GET("/operation-report", h.getOperationReport)
	group.GET("/sessions", h.listSessions)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) getStats(c *gin.Context) {
	periodType, err := model.ParsePeriodType(c.DefaultQuery("period", string(model.PeriodDaily)))
	if err != nil {
		h.handleError(c, err)
		return
	}

	req := service.StatsRequest{PeriodType: periodType}
	if req.Anchor, err = h.parseDate(c.Query("anchor")); err != nil {
		h.handleError(c, err)
		return
	}
	if req.End, err = h.parseDate(c.Query("end")); err != nil {
		h.handleError(c, err)
		return
	}

	stats, err := h.analytics.RoomAndSubjectStats(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(stats))
}

func (h *Handler) getOperationReport(c *gin.Context) {
	from, to, err := h.parseRange(c)
	if err != nil {
		h.handleError(c, err)
		return
	}

	report, err := h.analytics.OperationReport(c.Request.Context(), service.OperationReportRequest{
		From: from,
		To:   to,
		Tier: strings.TrimSpace(c.Query("tier")),
		Role: strings.TrimSpace(c.Query("role")),
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(report))
}

func (h *Handler) listSessions(c *gin.Context) {
	from, to, err := h.parseRange(c)
	if err != nil {
		h.handleError(c, err)
		return
	}

	report, err := h.analytics.Sessions(c.Request.Context(), from, to)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(report))
}

func (h *Handler) parseRange(c *gin.Context) (time.Time, time.Time, error) {
	from, err := h.parseDate(c.Query("from"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := h.parseDate(c.Query("to"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

// parseDate accepts a calendar date in the analytics timezone or an RFC3339
// timestamp. An empty value yields the zero time.
func (h *Handler) parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.ParseInLocation(time.DateOnly, raw, h.analytics.Location()); err == nil {
		return parsed, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: cannot parse date %q", service.ErrInvalidRequest, raw)
	}
	return parsed, nil
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidPeriod), errors.Is(err, service.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{"data": data}
}

func errorResponse(message string) gin.H {
	return gin.H{"error": message}
}
