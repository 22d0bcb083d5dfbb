// Package app monta o gateway a partir da configuração: stores, métricas,
// pipeline de middlewares e o servidor HTTP.
package app

import (
	"context"
	"net/http"
	"time"

	"admin-gateway/internal/config"
)

type App struct {
	httpServer *http.Server
	gateway    *Gateway
}

// New monta o gateway em volta do handler da aplicação (proxy ou API).
func New(ctx context.Context, cfg config.Config, build func(g *Gateway) (http.Handler, error)) (*App, error) {
	g, err := Build(ctx, cfg)
	if err != nil {
		return nil, err
	}

	inner, err := build(g)
	if err != nil {
		g.Close()
		return nil, err
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           g.Handler(inner),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	return &App{httpServer: server, gateway: g}, nil
}

func (a *App) Gateway() *Gateway { return a.gateway }

func (a *App) Run() error {
	return a.httpServer.ListenAndServe()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.httpServer.Shutdown(ctx)
	a.gateway.Close()
	return err
}
