// Package api assembles the HTTP server from its handlers and middleware.
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dcyfr/dcyfr-labs-sub013/internal/config"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/httpserver"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/logger"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 10 * time.Second
	defaultIdleTimeout  = 60 * time.Second
)

// NewServer creates the HTTP server with all routes and health checks wired.
func NewServer(
	cfg *config.Config,
	log logger.Logger,
	deps RouteDeps,
	checks map[string]httpserver.HealthChecker,
) *httpserver.Server {
	serverCfg := &httpserver.Config{
		Port:           cfg.Service.Port,
		Debug:          cfg.Service.Debug,
		ReadTimeout:    defaultReadTimeout,
		WriteTimeout:   defaultWriteTimeout,
		IdleTimeout:    defaultIdleTimeout,
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
	}

	return httpserver.New(serverCfg, log, func(router *gin.Engine) {
		httpserver.RegisterHealthRoutes(router, cfg.Service.Name, cfg.Service.Version, checks)
		SetupRoutes(router, deps)
	})
}
