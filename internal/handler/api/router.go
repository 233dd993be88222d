package api

import (
	"time"

	"github.com/labstack/echo/v4"

	svcmetrics "github.com/bournewang/ai-hedge-fund/internal/service/metrics"
	xhttp "github.com/bournewang/ai-hedge-fund/pkg/http"
)

// Router wires all API handlers onto one Echo instance, which keeps the
// server package handler-agnostic.
type Router struct {
	handlers []xhttp.Handler
}

func NewRouter(handlers ...xhttp.Handler) *Router {
	return &Router{handlers: handlers}
}

func (r *Router) RegisterRoutes(e *echo.Echo) {
	svcmetrics.Register()
	e.Use(observeEndpoint)

	e.GET("/healthz", health)

	for _, h := range r.handlers {
		if h != nil {
			h.RegisterRoutes(e)
		}
	}
}

func health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// observeEndpoint records per-endpoint latency and error counts using the
// route template, not the raw URL, to keep label cardinality bounded.
func observeEndpoint(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		endpoint := c.Path()
		if endpoint == "" {
			endpoint = c.Request().URL.Path
		}
		svcmetrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		if err != nil || c.Response().Status >= 500 {
			svcmetrics.APIErrors.WithLabelValues(endpoint).Inc()
		}
		return err
	}
}
