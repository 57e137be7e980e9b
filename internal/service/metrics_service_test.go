package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-tracker-api/internal/models"
)

func TestMetricsServiceSnapshot(t *testing.T) {
	m := NewMetricsService()

	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/analytics/summary", http.StatusOK, 10*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/analytics/summary", http.StatusOK, 30*time.Millisecond)
	m.ObserveDBQuery("attendance_history", 4*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)

	snapshot := m.Snapshot()
	assert.Equal(t, uint64(2), snapshot.RequestsTotal)
	assert.InDelta(t, 20, snapshot.AverageRequestDurationMs, 1e-6)
	assert.Equal(t, uint64(1), snapshot.DBQueryCount)
	assert.InDelta(t, 4, snapshot.AverageDBQueryDurationMs, 1e-6)
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(2), snapshot.CacheMisses)
	assert.InDelta(t, 1.0/3.0, snapshot.CacheHitRatio, 1e-9)
	assert.Greater(t, snapshot.Goroutines, 0)
	assert.False(t, snapshot.GeneratedAt.IsZero())
}

func TestMetricsServiceRegistry(t *testing.T) {
	m := NewMetricsService()
	m.RecordAttendanceMark("present")
	m.RecordExam()
	m.RecordReportJob(models.ReportStatusFinished)
	m.RecordRateLimited()

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, family := range families {
		names[family.GetName()] = true
	}
	assert.True(t, names["tracker_attendance_marks_total"])
	assert.True(t, names["tracker_exams_recorded_total"])
	assert.True(t, names["tracker_report_jobs_total"])
	assert.True(t, names["tracker_rate_limited_total"])

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tracker_exams_recorded_total 1")
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordAttendanceMark("absent")
	assert.Equal(t, models.AnalyticsSystemMetrics{}, m.Snapshot())
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
