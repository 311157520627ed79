// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/api/handlers"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/api/middleware"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/metrics"
)

// BreakerState reports a circuit breaker as closed, half-open or open.
type BreakerState interface {
	State() string
}

type Services struct {
	Forecasts handlers.ForecastAPI
	Metrics   *metrics.Recorder
	Provider  BreakerState // nil when forecasts run in-process
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	if services == nil {
		services = &Services{}
	}
	router := gin.New()

	// Add middleware
	router.Use(middleware.Logger(services.Metrics))
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		body := gin.H{"status": "ok"}
		if services.Provider != nil {
			// An open breaker means forecasts fall back to patterns, not that the service is down.
			body["forecastProvider"] = services.Provider.State()
		}
		c.JSON(http.StatusOK, body)
	})
	router.GET("/metrics", gin.WrapH(services.Metrics.Handler()))

	apiGroup := router.Group("/api/v1")

	if services.Forecasts != nil {
		forecastHandler := handlers.NewForecastHandler(services.Forecasts)
		forecastGroup := apiGroup.Group("/forecasts")
		{
			forecastGroup.POST("", forecastHandler.RunBatch)
			forecastGroup.GET("/:user/:sku/latest", forecastHandler.GetLatest)
		}
		apiGroup.POST("/festivals/resolve", forecastHandler.ResolveFestivals)
		apiGroup.POST("/inventory", forecastHandler.RecordInventory)
		apiGroup.POST("/sales", forecastHandler.RecordSales)
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
