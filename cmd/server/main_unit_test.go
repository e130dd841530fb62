package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"seqrview.backend/internal/config"
	"seqrview.backend/internal/infrastructure/messaging"
	plog "seqrview.backend/pkg/logger"
)

func withMainHooks(t *testing.T) {
	t.Helper()
	origLoadDotenv := loadDotenv
	origLoadCfg := loadCfg
	origInitLog := initLog
	origInitRedis := initRedis
	origOpenDB := openDB
	origEnsureIndexes := ensureIndexes
	origNewPublisher := newPublisher
	origRunServer := runServer

	t.Cleanup(func() {
		loadDotenv = origLoadDotenv
		loadCfg = origLoadCfg
		initLog = origInitLog
		initRedis = origInitRedis
		openDB = origOpenDB
		ensureIndexes = origEnsureIndexes
		newPublisher = origNewPublisher
		runServer = origRunServer
	})

	loadDotenv = func(...string) error { return nil }
	initLog = plog.Init
	initRedis = func(string, string) error { return nil }
	ensureIndexes = func(*gorm.DB) error { return nil }
	newPublisher = messaging.NewPublisher
}

func sqliteDB(name string) func(config.DatabaseConfig) (*gorm.DB, error) {
	return func(config.DatabaseConfig) (*gorm.DB, error) {
		return gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	}
}

func baseTestConfig() *config.Config {
	cfg := config.Load()
	cfg.Server = config.ServerConfig{Port: "18080", Env: "development"}
	cfg.Events = config.EventsConfig{Broker: "log", QueueSize: 8}
	cfg.JWT = config.JWTConfig{Secret: "secret", AccessExpiry: 15 * time.Minute}
	cfg.Security = config.SecurityConfig{
		IDPhotoSealingKey: "0000000000000000000000000000000000000000000000000000000000000000",
	}
	cfg.Jobs = config.JobsConfig{SessionSweepSchedule: "@every 5m"}
	return cfg
}

func TestRunMainProcess_SetupErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func()
		want  string
	}{
		{
			name: "redis",
			setup: func() {
				initRedis = func(string, string) error { return errors.New("redis down") }
			},
			want: "failed to initialize redis",
		},
		{
			name: "database",
			setup: func() {
				openDB = func(config.DatabaseConfig) (*gorm.DB, error) { return nil, errors.New("db open failed") }
			},
			want: "failed to connect to database",
		},
		{
			name: "indexes",
			setup: func() {
				openDB = sqliteDB("main_index_err")
				ensureIndexes = func(*gorm.DB) error { return errors.New("permission denied for table kyc_sessions") }
			},
			want: "failed to ensure database indexes",
		},
		{
			name: "sealing key",
			setup: func() {
				openDB = sqliteDB("main_sealer_err")
				loadCfg = func() *config.Config {
					cfg := baseTestConfig()
					cfg.Security.IDPhotoSealingKey = "short"
					return cfg
				}
			},
			want: "failed to initialize id photo sealer",
		},
		{
			name: "broker",
			setup: func() {
				openDB = sqliteDB("main_broker_err")
				loadCfg = func() *config.Config {
					cfg := baseTestConfig()
					cfg.Events.Broker = "carrier-pigeon"
					return cfg
				}
			},
			want: "failed to initialize event publisher",
		},
		{
			name: "timezone",
			setup: func() {
				openDB = sqliteDB("main_tz_err")
				loadCfg = func() *config.Config {
					cfg := baseTestConfig()
					cfg.Attendance.Timezone = "Mars/Olympus_Mons"
					return cfg
				}
			},
			want: "failed to initialize attendance time window",
		},
		{
			name: "sweep schedule",
			setup: func() {
				openDB = sqliteDB("main_cron_err")
				loadCfg = func() *config.Config {
					cfg := baseTestConfig()
					cfg.Jobs.SessionSweepSchedule = "every now and then"
					return cfg
				}
			},
			want: "failed to schedule session sweep",
		},
		{
			name: "server",
			setup: func() {
				openDB = sqliteDB("main_server_err")
				runServer = func(context.Context, *http.Server) error { return errors.New("listen failed") }
			},
			want: "failed to start server",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withMainHooks(t)
			loadCfg = baseTestConfig
			tt.setup()

			err := runMainProcess(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRunMainProcess_SuccessPath(t *testing.T) {
	withMainHooks(t)
	loadCfg = baseTestConfig
	openDB = sqliteDB("main_success")

	var served bool
	runServer = func(_ context.Context, srv *http.Server) error {
		served = true
		assert.Equal(t, ":18080", srv.Addr)

		for _, path := range []string{"/health", "/metrics"} {
			rec := httptest.NewRecorder()
			srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, rec.Code, path)
		}

		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/kyc/status", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		return nil
	}

	require.NoError(t, runMainProcess(context.Background()))
	assert.True(t, served)
}

func TestRunMainProcess_StopsOnCancel(t *testing.T) {
	withMainHooks(t)
	loadCfg = baseTestConfig
	openDB = sqliteDB("main_cancel")
	runServer = func(ctx context.Context, _ *http.Server) error {
		<-ctx.Done()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runMainProcess(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runMainProcess did not stop after cancel")
	}
}

func TestServeHTTP_ShutsDownOnCancel(t *testing.T) {
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- serveHTTP(ctx, srv) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serveHTTP did not return after cancel")
	}
}

func TestServeHTTP_ListenError(t *testing.T) {
	srv := &http.Server{Addr: ":invalid-port", Handler: http.NotFoundHandler()}
	assert.Error(t, serveHTTP(context.Background(), srv))
}
