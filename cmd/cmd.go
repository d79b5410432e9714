package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/teampoint/botcore/api"
	"github.com/teampoint/botcore/api/ops"
	"github.com/teampoint/botcore/internal/achievements"
	"github.com/teampoint/botcore/internal/audit"
	"github.com/teampoint/botcore/internal/banlist"
	"github.com/teampoint/botcore/internal/cache"
	"github.com/teampoint/botcore/internal/directory"
	"github.com/teampoint/botcore/internal/ledger"
	"github.com/teampoint/botcore/internal/models"
	"github.com/teampoint/botcore/internal/notify"
	"github.com/teampoint/botcore/internal/support"
	"github.com/teampoint/botcore/internal/utils"
	"github.com/teampoint/botcore/internal/utils/values"
	"golang.org/x/sync/errgroup"
)

func Run() {
	configFile := os.Getenv("CONFIG_FILE")
	if err := values.InitWithViper(configFile); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := values.GetConfig()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	utils.NewLogger(cfg.Server.Production)
	models.Init(cfg)
	if cfg.Server.Production {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	if !cfg.App.AppCache.InApp {
		cache.InitRedis(ctx)
	}

	var notifier notify.Notifier
	if cfg.App.NotifierURL != "" {
		notifier = notify.NewWebhook(cfg.App.NotifierURL)
	} else {
		notifier = notify.LogOnly()
	}

	auditLog := audit.New(models.DB)
	registry := banlist.New(models.DB, auditLog, cfg.App.MaxTempBan)
	sweeper := banlist.NewSweeper(registry, notifier, cfg.App.SweepInterval, cfg.App.NotifyTimeout)
	handlers := &ops.Handlers{
		Ledger:       ledger.New(models.DB, notifier, cfg.App.NotifyTimeout),
		Bans:         registry,
		Sweeper:      sweeper,
		Support:      support.NewDirectory(auditLog, notifier, cfg.App.NotifyTimeout),
		Users:        directory.New(models.DB),
		Achievements: achievements.New(models.DB, auditLog, notifier, cfg.App.NotifyTimeout),
		Audit:        auditLog,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	api.LoadRoutes(r, handlers)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: r,
	}

	auditLog.System("SYSTEM", "core started")
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		err := sweeper.Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		logrus.Infof("[ENGINE] Server started at %s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if err := group.Wait(); err != nil {
		logrus.Fatalf("Shutdown with error: %v", err)
	}
	auditLog.System("SYSTEM", "core stopped")
}
