package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"admin-gateway/internal/app"
	"admin-gateway/internal/config"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config error")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	gateway, err := app.New(ctx, cfg, func(g *app.Gateway) (http.Handler, error) {
		return app.NewProxy(cfg.UpstreamURL, g.Log.WithField("category", "proxy"))
	})
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialize gateway")
	}
	log := gateway.Gateway().Log

	go func() {
		log.WithFields(logrus.Fields{"addr": cfg.ListenAddr, "upstream": cfg.UpstreamURL}).Info("gateway listening")
		if err := gateway.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := gateway.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	log.Info("gateway stopped")
}
