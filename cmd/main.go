// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"poi-miner/internal/api"
	"poi-miner/internal/bootstrap"
	"poi-miner/internal/config"
	"poi-miner/internal/logger"
	"poi-miner/internal/metrics"
	"poi-miner/internal/middleware"
	"poi-miner/internal/migrate"
	"poi-miner/internal/store"
	"poi-miner/internal/utils"
)

func main() {
	config.LoadEnvFiles(".env", filepath.Join("data", "env", ".env"))
	// 日志初始化
	l := logger.Setup()
	l.Debug("log_init_ok")
	cfg := config.Load()
	l.Debug("config_loaded", "api_base", cfg.APIBase, "addr", cfg.Addr, "grid_step", cfg.GridStep, "concurrency", cfg.Concurrency)
	if cfg.AMapKey == "" {
		l.Warn("amap_key_missing", "hint", "POST /runs will return 503 until AMAP_SERVER_KEY is set")
	}

	// 运行摘要落库可选：未配置 PG_HOST 时统计接口返回 503
	var st *store.Store
	var recorder api.RunRecorder
	if utils.PostgresConfigured() {
		db, err := utils.OpenPostgresFromEnv()
		if err != nil {
			l.Error("db_open_error", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			l.Error("db_ping_error", "err", err)
		} else {
			l.Info("db_ping_ok")
		}
		if err := migrate.EnsureSchema(db); err != nil {
			l.Error("schema_error", "err", err)
			os.Exit(1)
		}
		st = store.AttachDB(db)
		recorder = st
	} else {
		l.Info("db_disabled")
	}

	rc := utils.OpenRedisFromEnv()
	if rc == nil {
		l.Info("redis_disabled")
	} else {
		defer rc.Close()
		if err := rc.Ping(context.Background()).Err(); err != nil {
			l.Error("redis_ping_error", "err", err)
			rc = nil
		} else {
			l.Info("redis_ping_ok")
		}
	}

	p := bootstrap.Provider(cfg, rc)
	mgr := api.NewManager(bootstrap.Engine(cfg), p, recorder, cfg.RunsMaxActive, cfg.RunResultTTL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go mgr.Janitor(ctx, time.Minute)

	mux := http.NewServeMux()
	apiMux := api.BuildRoutes(mgr, st)
	mux.Handle(cfg.APIBase+"/", http.StripPrefix(cfg.APIBase, apiMux))
	mux.Handle(cfg.APIBase+"/metrics", metrics.Handler())

	s := &http.Server{Addr: cfg.Addr, Handler: middleware.Wrap(mux), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		l.Info("shutdown_begin")
		mgr.Shutdown()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.Shutdown(sctx)
	}()
	l.Info("listening", "addr", cfg.Addr)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("listen_error", "err", err)
		os.Exit(1)
	}
	l.Info("shutdown_done")
}
