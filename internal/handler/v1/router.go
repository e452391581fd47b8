package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/medbook/config"
	"github.com/dmehra2102/prod-golang-projects/medbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medbook/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/medbook/pkg/metrics"
)

type RouterDeps struct {
	Auth          *AuthHandler
	Appointments  *AppointmentHandler
	PatientRecord *PatientRecordHandler

	Authenticator middleware.Authenticator
	Metrics       *metrics.Collector
	Gatherer      prometheus.Gatherer
	Log           *zap.Logger
	RateLimit     config.RateLimitConfig

	// Ready reports whether storage is reachable. Nil means always ready.
	Ready func(ctx context.Context) error
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Recovery(d.Log),
		middleware.RequestLogger(d.Log),
		middleware.Metrics(d.Metrics),
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if d.Ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := d.Ready(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(metrics.MetricsHandler(d.Gatherer)))
	}

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: d.RateLimit.RequestsPerSecond,
		BurstSize:         d.RateLimit.BurstSize,
	}))

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimit(middleware.PerMinute(d.RateLimit.AuthRequestsPerMinute)))
	authGroup.POST("/login", d.Auth.Login)
	authGroup.POST("/refresh", d.Auth.Refresh)

	protected := api.Group("")
	protected.Use(middleware.Authenticate(d.Authenticator))
	protected.GET("/auth/me", d.Auth.Me)

	patientOnly := middleware.RequireRole(domain.RolePatient)
	practitionerOnly := middleware.RequireRole(domain.RolePractitioner)

	appts := protected.Group("/appointments")
	appts.POST("", patientOnly, d.Appointments.Create)
	appts.GET("", patientOnly, d.Appointments.ListMine)
	appts.GET("/practitioner", practitionerOnly, d.Appointments.ListForPractitioner)
	appts.GET("/:id", d.Appointments.Get)
	appts.DELETE("/:id", patientOnly, d.Appointments.Cancel)
	appts.PUT("/:id/reschedule", patientOnly, d.Appointments.Reschedule)
	appts.PUT("/:id/accept", practitionerOnly, d.Appointments.Accept)
	appts.PUT("/:id/reject", practitionerOnly, d.Appointments.Reject)
	appts.PUT("/:id/complete", practitionerOnly, d.Appointments.Complete)

	records := protected.Group("/patient-records")
	records.GET("/me", patientOnly, d.PatientRecord.GetMine)
	records.GET("", practitionerOnly, d.PatientRecord.List)
	records.POST("", practitionerOnly, d.PatientRecord.Create)
	records.GET("/patient/:patientId", practitionerOnly, d.PatientRecord.GetByPatient)
	records.PUT("/patient/:patientId", practitionerOnly, d.PatientRecord.Update)
	records.GET("/patient/:patientId/exists", practitionerOnly, d.PatientRecord.Exists)

	return r
}
