package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"seqrview.backend/internal/config"
	"seqrview.backend/internal/infrastructure/datasources/postgres"
	"seqrview.backend/internal/infrastructure/jobs"
	"seqrview.backend/internal/infrastructure/messaging"
	"seqrview.backend/internal/infrastructure/metrics"
	"seqrview.backend/internal/infrastructure/repositories"
	"seqrview.backend/internal/infrastructure/surepass"
	"seqrview.backend/internal/interfaces/http/handlers"
	"seqrview.backend/internal/interfaces/http/middleware"
	"seqrview.backend/internal/usecases"
	"seqrview.backend/pkg/crypto"
	"seqrview.backend/pkg/jwt"
	"seqrview.backend/pkg/logger"
	"seqrview.backend/pkg/redis"
)

const (
	idPhotoSealingPurpose = "id-photo"
	lockPrefix            = "lock:"
	readHeaderTimeout     = 10 * time.Second
	shutdownTimeout       = 15 * time.Second
)

var (
	loadDotenv    = godotenv.Load
	loadCfg       = config.Load
	initLog       = logger.Init
	initRedis     = redis.Init
	openDB        = postgres.Open
	ensureIndexes = repositories.EnsureIndexes
	newPublisher  = messaging.NewPublisher
	newRegistry   = func() *prometheus.Registry {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		return reg
	}
	runServer = serveHTTP
	getStdDB  = func(db *gorm.DB) (*sql.DB, error) { return db.DB() }
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runMainProcess(ctx); err != nil {
		log.Fatal(err)
	}
}

func runMainProcess(ctx context.Context) error {
	// Load .env file
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := loadCfg()

	initLog(cfg.Server.Env)
	logger.Info(ctx, "Logger initialized", zap.String("env", cfg.Server.Env))

	if err := initRedis(cfg.Redis.URL, cfg.Redis.PASSWORD); err != nil {
		logger.Error(ctx, "Failed to initialize Redis", zap.Error(err))
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	logger.Info(ctx, "Redis initialized")

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := openDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := getStdDB(db)
	if err != nil {
		return fmt.Errorf("failed to get generic database object: %w", err)
	}
	defer sqlDB.Close()
	logger.Info(ctx, "Connected to PostgreSQL via GORM")

	if err := ensureIndexes(db); err != nil {
		return fmt.Errorf("failed to ensure database indexes: %w", err)
	}

	sealer, err := crypto.NewSealer(cfg.Security.IDPhotoSealingKey, idPhotoSealingPurpose)
	if err != nil {
		return fmt.Errorf("failed to initialize id photo sealer: %w", err)
	}

	publisher, err := newPublisher(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize event publisher: %w", err)
	}

	reg := newRegistry()
	m := metrics.New(reg)
	dispatcher := messaging.NewDispatcher(publisher, cfg.Events.QueueSize, m)

	vendor := surepass.NewClient(cfg.Vendor.BaseURL, cfg.Vendor.Token, surepass.Timeouts{
		GenerateOTP:    cfg.Vendor.GenerateOTPTimeout,
		SubmitOTP:      cfg.Vendor.SubmitOTPTimeout,
		DrivingLicence: cfg.Vendor.DrivingLicenceTimeout,
		FaceLiveness:   cfg.Vendor.FaceLivenessTimeout,
		FaceMatch:      cfg.Vendor.FaceMatchTimeout,
	}, m)

	jwtService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiry)

	// Initialize repositories
	uow := repositories.NewUnitOfWork(db)
	userRepo := repositories.NewUserRepository(db)
	profileRepo := repositories.NewWorkerProfileRepository(db)
	sessionRepo := repositories.NewVerificationSessionRepository(db, sealer)
	recordRepo := repositories.NewVerificationRecordRepository(db)
	attendanceRepo := repositories.NewAttendanceRepository(db)

	// Initialize usecases
	faceGate := usecases.NewFaceGate(vendor, cfg.Verification.FaceMatchThreshold)
	window, err := usecases.NewTimeWindowPolicy(cfg.Attendance)
	if err != nil {
		return fmt.Errorf("failed to initialize attendance time window: %w", err)
	}

	kycUsecase := usecases.NewKycUsecase(usecases.KycDeps{
		UnitOfWork: uow,
		Sessions:   sessionRepo,
		Records:    recordRepo,
		Profiles:   profileRepo,
		Users:      userRepo,
		Vendor:     vendor,
		FaceGate:   faceGate,
		Locker:     redis.NewLocker(redis.GetClient(), lockPrefix),
		Events:     dispatcher,
		Metrics:    m,
	}, cfg.Verification)
	attendanceUsecase := usecases.NewAttendanceUsecase(uow, attendanceRepo, profileRepo, faceGate, window, dispatcher, m, cfg.Verification)

	// Initialize handlers
	kycHandler := handlers.NewKycHandler(kycUsecase)
	attendanceHandler := handlers.NewAttendanceHandler(attendanceUsecase)

	// Background jobs
	scheduler := jobs.NewScheduler()
	if err := scheduler.Register("kyc_session_sweep", cfg.Jobs.SessionSweepSchedule, jobs.NewSessionSweepJob(kycUsecase).Run); err != nil {
		return fmt.Errorf("failed to schedule session sweep: %w", err)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware(m))

	applyCORSMiddleware(r, cfg.Server.AllowedOrigins)
	registerHealthRoute(r)
	registerMetricsRoute(r, reg)
	registerAPIV1Routes(r, routeDeps{
		kycHandler:        kycHandler,
		attendanceHandler: attendanceHandler,
		authMiddleware:    middleware.AuthMiddleware(jwtService),
	})

	for _, route := range r.Routes() {
		logger.Debug(ctx, "Route registered", zap.String("method", route.Method), zap.String("path", route.Path))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		defer cancel()
		logger.Info(gctx, "SeqrView backend starting", zap.String("port", cfg.Server.Port))
		if err := runServer(gctx, srv); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return dispatcher.Run(gctx)
	})
	g.Go(func() error {
		return scheduler.Run(gctx)
	})

	err = g.Wait()
	logger.Info(context.Background(), "Server stopped")
	return err
}

// serveHTTP serves until ctx is cancelled, then shuts down gracefully
func serveHTTP(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
