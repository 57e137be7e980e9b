package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-tracker-api/internal/service"
)

// unmatchedRoute is the route label for requests that matched no route.
const unmatchedRoute = "unmatched"

// Metrics observes every request under its route template, e.g.
// /api/v1/attendance/subjects/:id/mark.
func Metrics(metrics *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metrics.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
