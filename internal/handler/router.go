package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// HealthChecker 依存先の疎通確認
type HealthChecker func() error

// NewRouter はAPIルーターを構築する
func NewRouter(tourRouteHandler *TourRouteHandler, health HealthChecker) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			if health != nil {
				if err := health(); err != nil {
					c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
					return
				}
			}
			c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "TourRoute-App"})
		})

		tours := api.Group("/tours/:tourId")
		{
			tours.GET("", tourRouteHandler.GetTour)
			tours.POST("/refresh", tourRouteHandler.RefreshTour)
			tours.POST("/stops", tourRouteHandler.AddStop)
			tours.DELETE("/stops/:stopId", tourRouteHandler.RemoveStop)
			tours.PUT("/stops/:stopId/position", tourRouteHandler.MoveStop)
			tours.GET("/stats", tourRouteHandler.GetRouteStats)
			tours.GET("/route.geojson", tourRouteHandler.GetRouteGeoJSON)
			tours.GET("/publishability", tourRouteHandler.CheckPublishability)
			tours.POST("/publish", tourRouteHandler.Publish)
			tours.POST("/unpublish", tourRouteHandler.Unpublish)
		}

		stops := api.Group("/stops/:stopId")
		{
			stops.PUT("/override", tourRouteHandler.SetOverride)
			stops.DELETE("/override", tourRouteHandler.ClearOverride)
			stops.PATCH("/transition", tourRouteHandler.UpdateTransition)
		}
	}

	return r
}

// RequestLogger はリクエストごとにlogrusでアクセスログを出力する
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logrus.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("HTTP request")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Warn("HTTP request")
		default:
			entry.Info("HTTP request")
		}
	}
}
