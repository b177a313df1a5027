package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	middleware "github.com/oapi-codegen/echo-middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rryowa/blog_auth/internal/controller"
	"github.com/rryowa/blog_auth/internal/service"
	"github.com/rryowa/blog_auth/internal/util"
)

const (
	shutdownTimeout = 5 * time.Second
)

type API struct {
	server          *echo.Echo
	log             *zap.SugaredLogger
	gracefulTimeout time.Duration
	cleanups        []func()
}

// NewAPI builds the echo server with every route mounted. Cleanups run after shutdown.
func NewAPI(
	c *controller.Controller,
	auth *service.AuthService,
	gatherer prometheus.Gatherer,
	sc *util.ServerConfig,
	l *zap.SugaredLogger,
	cleanups []func(),
) (*API, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Server.Addr = sc.ServerAddr
	e.Server.WriteTimeout = sc.WriteTimeout
	e.Server.ReadTimeout = sc.ReadTimeout
	e.Server.IdleTimeout = sc.IdleTimeout
	e.HTTPErrorHandler = ErrorHandler(l)

	a := &API{
		server:          e,
		log:             l,
		gracefulTimeout: sc.GracefulTimeout,
		cleanups:        cleanups,
	}

	swagger, err := controller.GetSwagger()
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI specification: %w", err)
	}
	swagger.Servers = nil

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomiddleware.RequestLoggerWithConfig(GetLoggerMiddlewareConfig(a)))

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	g := e.Group("/api")
	g.Use(middleware.OapiRequestValidator(swagger))

	authed := Chain(Authenticate(auth), RequireAuthenticated)
	admin := Chain(Authenticate(auth), RequireAuthenticated, RequireAdmin(auth))
	controller.RegisterHandlers(g, c, authed, admin)

	return a, nil
}

// Echo exposes the router, mainly for httptest.
func (a *API) Echo() *echo.Echo {
	return a.server
}

func (a *API) Run(ctxBackground context.Context) {
	ctx, stop := signal.NotifyContext(ctxBackground, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.ListenGracefulShutdown(ctx)
}

func (a *API) ListenGracefulShutdown(ctx context.Context) {
	go func() {
		err := a.server.Start(a.server.Server.Addr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()
	a.log.Infof("Listening on: %s", a.server.Server.Addr)

	<-ctx.Done()
	a.log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.log.Errorf("shutdown: %v", err)
	}

	done := make(chan struct{})
	go func() {
		for _, cleanup := range a.cleanups {
			cleanup()
		}
		close(done)
	}()

	select {
	case <-done:
		a.log.Info("server shutdown completed")
	case <-time.After(a.gracefulTimeout):
		a.log.Warn("cleanup did not finish within the graceful timeout")
	}
}
