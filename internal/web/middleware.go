package web

import (
	"errors"
	"strconv"
	"time"

	"genai-gallery/common"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type httpMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	factory := promauto.With(reg)
	return &httpMetrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of http request",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status_code"},
		),
	}
}

func statusOf(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var e *fiber.Error
	if errors.As(err, &e) {
		return e.Code
	}
	return fiber.StatusInternalServerError
}

// middleware 按路由模板统计请求数和耗时
func (m *httpMetrics) middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := strconv.Itoa(statusOf(c, err))

		path := c.Route().Path
		m.requests.WithLabelValues(c.Method(), path, status).Inc()
		m.duration.WithLabelValues(c.Method(), path, status).Observe(time.Since(start).Seconds())
		return err
	}
}

// requestLogger 使用全局 logrus 记录访问日志
func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		entry := common.WithFields(map[string]interface{}{
			"method":  c.Method(),
			"path":    c.Path(),
			"status":  statusOf(c, err),
			"latency": time.Since(start).String(),
			"ip":      c.IP(),
		})
		if err != nil {
			entry.WithError(err).Warn("HTTP request failed")
		} else {
			entry.Debug("HTTP request")
		}
		return err
	}
}
