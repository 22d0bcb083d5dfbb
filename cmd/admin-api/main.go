package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"admin-gateway/internal/adminapi"
	"admin-gateway/internal/app"
	"admin-gateway/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// admin-api serve a API administrativa diretamente atrás do pipeline, sem proxy.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config error")
	}
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	server, err := app.New(ctx, cfg, func(g *app.Gateway) (http.Handler, error) {
		opts := adminapi.Options{
			Log:   g.Log.WithField("category", "adminapi"),
			Cache: g.Cache,
		}
		if g.Stats != nil {
			opts.Stats = g.Stats
		}
		if cfg.AdminPassword != "" {
			opts.Users = map[string]adminapi.User{
				cfg.AdminUsername: {ID: "1", Password: cfg.AdminPassword, Role: "admin"},
			}
		} else {
			g.Log.Warn("ADMIN_PASSWORD not set, login is disabled")
		}
		return adminapi.NewHandler(opts).Router(), nil
	})
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialize admin-api")
	}
	log := server.Gateway().Log

	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("admin-api listening")
		if err := server.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	log.Info("admin-api stopped")
}
