package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZJUSCT/DailyBoard/internal/api/admin"
	"github.com/ZJUSCT/DailyBoard/internal/api/user"
	"github.com/ZJUSCT/DailyBoard/internal/archive"
	"github.com/ZJUSCT/DailyBoard/internal/config"
	"github.com/ZJUSCT/DailyBoard/internal/database"
	"github.com/ZJUSCT/DailyBoard/internal/league"
	"github.com/ZJUSCT/DailyBoard/internal/pubsub"

	"go.uber.org/zap"
)

var Version = "dev-build"

func newLogger(cfg config.Logger) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Level == "debug" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	if cfg.File != "" {
		zc.OutputPaths = append(zc.OutputPaths, cfg.File)
	}
	return zc.Build()
}

func serve(name, addr string, handler http.Handler) *http.Server {
	srv := &http.Server{Addr: addr, Handler: handler}
	go func() {
		zap.S().Infof("starting %s server at %s", name, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.S().Fatalf("failed to start %s server: %v", name, err)
		}
	}()
	return srv
}

func main() {

	fmt.Fprintf(os.Stderr, "ZJUSCT DailyBoard %s - Daily Puzzle Group Leaderboards\n\n", Version)

	// config
	var configPath string
	flag.StringVar(&configPath, "c", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// logger
	logger, err := newLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	// database
	db, err := database.Init(cfg.Storage)
	if err != nil {
		zap.S().Fatalf("failed to initialize database: %v", err)
	}
	zap.S().Infof("database initialized successfully (%s)", cfg.Storage.Driver)

	// league service and leaderboard refresh
	svc, err := league.NewServiceFromConfig(db, cfg)
	if err != nil {
		zap.S().Fatalf("failed to initialize league service: %v", err)
	}
	broker := pubsub.GetBroker()
	svc.Boards().AddListener(league.BrokerListener(broker))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Archive.Enabled {
		archiver, err := archive.NewFromConfig(ctx, cfg.Archive)
		if err != nil {
			zap.S().Fatalf("failed to initialize snapshot archive: %v", err)
		}
		svc.Boards().AddListener(archiver.Listener())
		zap.S().Infof("archiving leaderboards to bucket %s", cfg.Archive.Bucket)
	}

	if err := svc.WarmUp(ctx); err != nil {
		zap.S().Errorf("some leaderboards failed to build at startup: %v", err)
	} else {
		zap.S().Info("leaderboards built")
	}

	sched, err := svc.StartScheduler(cfg.Refresh.RetryInterval())
	if err != nil {
		zap.S().Fatalf("failed to start refresh scheduler: %v", err)
	}
	zap.S().Infof("refresh scheduler started (policy %s, mode %s)", cfg.Scoring.DayKeyPolicy, cfg.Refresh.Mode)

	// API routers
	servers := []*http.Server{
		serve("user", cfg.Listen, user.NewUserRouter(cfg, svc, broker)),
	}
	if cfg.Admin.Enabled {
		servers = append(servers, serve("admin", cfg.Admin.Listen, admin.NewAdminRouter(cfg, svc)))
	}

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.S().Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zap.S().Warnf("server %s did not shut down cleanly: %v", srv.Addr, err)
		}
	}
	if err := sched.Shutdown(); err != nil {
		zap.S().Warnf("scheduler shutdown: %v", err)
	}
}
