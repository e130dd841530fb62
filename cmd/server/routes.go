package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"seqrview.backend/internal/interfaces/http/handlers"
	"seqrview.backend/internal/interfaces/http/middleware"
)

const (
	serviceName    = "seqrview-backend"
	serviceVersion = "0.1.0"
)

type routeDeps struct {
	kycHandler        *handlers.KycHandler
	attendanceHandler *handlers.AttendanceHandler
	authMiddleware    gin.HandlerFunc
}

func registerAPIV1Routes(r *gin.Engine, d routeDeps) {
	v1 := r.Group("/api/v1")
	v1.Use(d.authMiddleware)
	{
		// KYC routes (operators only)
		kyc := v1.Group("/kyc")
		kyc.Use(middleware.RequireOperator())
		{
			kyc.POST("/aadhaar/start", d.kycHandler.StartAadhaar)
			kyc.POST("/aadhaar/resend", d.kycHandler.ResendOTP)
			kyc.POST("/aadhaar/submit-otp", d.kycHandler.SubmitOTP)
			kyc.POST("/aadhaar/verify-details", d.kycHandler.VerifyDetails)
			kyc.POST("/dl/start", d.kycHandler.StartDL)
			kyc.POST("/dl/verify-details", d.kycHandler.VerifyDetails)
			kyc.POST("/face/liveness", d.kycHandler.Liveness)
			kyc.POST("/face/match", d.kycHandler.FaceMatch)
			kyc.POST("/reset", d.kycHandler.Reset)
			kyc.GET("/status", d.kycHandler.Status)
		}

		// Attendance routes
		attendance := v1.Group("/attendance")
		{
			attendance.POST("", middleware.RequireOperator(), middleware.IdempotencyMiddleware(), d.attendanceHandler.RecordEvent)
			attendance.GET("", d.attendanceHandler.ListEvents)
		}
	}
}

func registerHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": serviceName,
			"version": serviceVersion,
		})
	})
}

func registerMetricsRoute(r *gin.Engine, gatherer prometheus.Gatherer) {
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}

// applyCORSMiddleware answers preflights itself and only reflects origins on
// the allow-list
func applyCORSMiddleware(r *gin.Engine, allowedOrigins []string) {
	policy := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Idempotency-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After", "X-Idempotency-Hit"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(func(c *gin.Context) {
		passed := false
		policy.Handler(http.HandlerFunc(func(_ http.ResponseWriter, req *http.Request) {
			passed = true
			c.Request = req
			c.Next()
		})).ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
			c.Writer.WriteHeaderNow()
		}
	})
}
