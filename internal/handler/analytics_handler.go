package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-tracker-api/internal/analytics"
	"github.com/noah-isme/academic-tracker-api/internal/dto"
	"github.com/noah-isme/academic-tracker-api/internal/middleware"
	"github.com/noah-isme/academic-tracker-api/internal/models"
	"github.com/noah-isme/academic-tracker-api/internal/service"
	appErrors "github.com/noah-isme/academic-tracker-api/pkg/errors"
	"github.com/noah-isme/academic-tracker-api/pkg/response"
)

const dateLayout = "2006-01-02"

type analyticsService interface {
	Summary(ctx context.Context, userID string) (*analytics.Summary, bool, error)
	AttendanceTrend(ctx context.Context, userID string, filter service.TrendFilter) (*dto.TrendResponse, bool, error)
	MarksTrend(ctx context.Context, userID string, filter service.TrendFilter) (*dto.TrendResponse, bool, error)
	Overview(ctx context.Context, userID string, filter service.TrendFilter) (*dto.AnalyticsOverview, bool, error)
	SystemMetrics() models.AnalyticsSystemMetrics
}

// AnalyticsHandler exposes dashboard-ready analytics endpoints.
type AnalyticsHandler struct {
	analytics analyticsService
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(analytics analyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Summary godoc
// @Summary Overall attendance and marks summary
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /analytics/summary [get]
func (h *AnalyticsHandler) Summary(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.analytics.Summary(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondTimed(c, start, summary, cacheHit)
}

// AttendanceTrend godoc
// @Summary Attendance percentage per period
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Param granularity query string false "daily, weekly or monthly" default(weekly)
// @Param from query string false "Start date (YYYY-MM-DD or RFC3339)"
// @Param to query string false "End date (YYYY-MM-DD or RFC3339)"
// @Param limit query int false "Most recent periods to return"
// @Success 200 {object} response.Envelope
// @Router /analytics/trends/attendance [get]
func (h *AnalyticsHandler) AttendanceTrend(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	filter, err := parseTrendFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	trend, cacheHit, err := h.analytics.AttendanceTrend(c.Request.Context(), userID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetTrendWindow(c, string(trend.Granularity), filter.From, filter.To, len(trend.Periods))
	respondTimed(c, start, trend, cacheHit)
}

// MarksTrend godoc
// @Summary Marks percentage per period
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Param granularity query string false "daily, weekly or monthly" default(weekly)
// @Param from query string false "Start date (YYYY-MM-DD or RFC3339)"
// @Param to query string false "End date (YYYY-MM-DD or RFC3339)"
// @Param limit query int false "Most recent periods to return"
// @Success 200 {object} response.Envelope
// @Router /analytics/trends/marks [get]
func (h *AnalyticsHandler) MarksTrend(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	filter, err := parseTrendFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	trend, cacheHit, err := h.analytics.MarksTrend(c.Request.Context(), userID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetTrendWindow(c, string(trend.Granularity), filter.From, filter.To, len(trend.Periods))
	respondTimed(c, start, trend, cacheHit)
}

// Overview godoc
// @Summary Summary plus both trend series
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Param granularity query string false "daily, weekly or monthly" default(weekly)
// @Param from query string false "Start date (YYYY-MM-DD or RFC3339)"
// @Param to query string false "End date (YYYY-MM-DD or RFC3339)"
// @Param limit query int false "Most recent periods to return"
// @Success 200 {object} response.Envelope
// @Router /analytics/overview [get]
func (h *AnalyticsHandler) Overview(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	filter, err := parseTrendFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	overview, cacheHit, err := h.analytics.Overview(c.Request.Context(), userID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondTimed(c, start, overview, cacheHit)
}

// System godoc
// @Summary Instrumentation snapshot
// @Tags Metrics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /metrics/snapshot [get]
func (h *AnalyticsHandler) System(c *gin.Context) {
	start := time.Now()
	metrics := h.analytics.SystemMetrics()
	respondTimed(c, start, metrics, false)
}

func respondTimed(c *gin.Context, start time.Time, data interface{}, cacheHit bool) {
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = make(map[string]interface{})
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, data, nil, meta)
}

func parseTrendFilter(c *gin.Context) (service.TrendFilter, error) {
	var query dto.TrendQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		return service.TrendFilter{}, bindError(err, "invalid trend query")
	}
	filter := service.TrendFilter{Limit: query.Limit}
	if raw := strings.TrimSpace(query.Granularity); raw != "" {
		granularity, ok := analytics.ParseGranularity(raw)
		if !ok {
			return filter, appErrors.Clone(appErrors.ErrValidation, "granularity must be daily, weekly or monthly")
		}
		filter.Granularity = granularity
	}
	if raw := strings.TrimSpace(query.From); raw != "" {
		parsed, _, err := parseDateParam(raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid from parameter")
		}
		filter.From = &parsed
	}
	if raw := strings.TrimSpace(query.To); raw != "" {
		parsed, dateOnly, err := parseDateParam(raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid to parameter")
		}
		if dateOnly {
			// inclusive of the whole day
			parsed = parsed.Add(24*time.Hour - time.Nanosecond)
		}
		filter.To = &parsed
	}
	return filter, nil
}

func parseDateParam(raw string) (time.Time, bool, error) {
	if parsed, err := time.Parse(dateLayout, raw); err == nil {
		return parsed, true, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	return parsed, false, err
}
