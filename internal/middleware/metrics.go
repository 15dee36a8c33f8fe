package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts failed Redis commands by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lookup_redis_errors_total",
		Help: "Total number of Redis command errors",
	}, []string{"command"})

	// PostsCreated counts posts committed to the database.
	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lookup_posts_created_total",
		Help: "Total number of posts created",
	})

	// UploadCompensations counts deletions of uploaded files whose row insert failed.
	UploadCompensations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lookup_upload_compensations_total",
		Help: "Compensating deletes of orphaned uploads by outcome",
	}, []string{"outcome"})

	// KakaoLogins counts Kakao callback resolutions by outcome.
	KakaoLogins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lookup_kakao_logins_total",
		Help: "Kakao logins by outcome (existing, created, failed)",
	}, []string{"outcome"})
)

var (
	promOnce sync.Once
	promMW   *fiberprometheus.FiberPrometheus
)

// InitMetrics builds the Fiber Prometheus middleware for the given service name.
// The collectors live in the default registry, so only the first call registers them.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		promMW = fiberprometheus.NewWithRegistry(prometheus.DefaultRegisterer, serviceName, "http", "", nil)
	})
	return promMW
}

// MetricsMiddleware records request metrics, skipping the scrape endpoint itself.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	handler := prom.Middleware
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}
		return handler(c)
	}
}
