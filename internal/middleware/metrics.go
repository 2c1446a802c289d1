package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/csit-timetable-api/internal/service"
)

// Metrics records request duration and count per route. It uses the route
// template when gin knows it so path labels stay low-cardinality.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
