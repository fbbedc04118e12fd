// Package app bootstraps an Echo application with the shared DCWiz
// middleware stack: panic recovery, zerolog request logging, the common
// error handler, and optional New Relic instrumentation.
package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog/log"

	"github.com/dcwiz/appkit/apierror"
	"github.com/dcwiz/appkit/config"
)

// App holds the Echo instance and its runtime dependencies.
type App struct {
	Echo     *echo.Echo
	Config   *config.Config
	NewRelic *newrelic.Application
	rootPath string
}

// New builds the Echo app and installs the shared middleware stack.
// New Relic is enabled when newrelic.license is configured.
func New(cfg *config.Config) *App {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apierror.ErrorHandler
	e.Use(middleware.Recover(), requestLogger())

	a := &App{Echo: e, Config: cfg}

	if license := cfg.String("newrelic.license", ""); license != "" {
		nr, err := newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.String("newrelic.app_name", "dcwiz-app")),
			newrelic.ConfigLicense(license),
		)
		if err != nil {
			log.Warn().Err(err).Msg("new relic disabled")
		} else {
			a.NewRelic = nr
			e.Use(transactionMiddleware(nr))
		}
	}

	if root := cfg.String("server.root_path", ""); root != "" && root != "/" {
		a.rootPath = "/" + strings.Trim(root, "/")
		e.Pre(stripRootPath(a.rootPath))
	}

	return a
}

// requestLogger logs one line per request through zerolog.
func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogMethod:  true,
		LogURI:     true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := log.Info()
			if v.Status >= http.StatusInternalServerError {
				event = log.Error()
			}
			event.Str("method", v.Method).Str("uri", v.URI).
				Int("status", v.Status).Dur("latency", v.Latency)
			if v.Error != nil {
				event.Err(v.Error)
			}
			event.Msg("request")
			return nil
		},
	})
}

// transactionMiddleware wraps each request in a New Relic transaction.
func transactionMiddleware(nr *newrelic.Application) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			txn := nr.StartTransaction(c.Request().Method + " " + c.Path())
			defer txn.End()
			txn.SetWebRequestHTTP(c.Request())
			c.SetRequest(c.Request().WithContext(newrelic.NewContext(c.Request().Context(), txn)))
			err := next(c)
			if err != nil {
				txn.NoticeError(err)
			}
			return err
		}
	}
}

// stripRootPath removes the deployment prefix added by a reverse proxy so
// routes register without it.
func stripRootPath(root string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if path := strings.TrimPrefix(req.URL.Path, root); path != req.URL.Path {
				if path == "" {
					path = "/"
				}
				req.URL.Path = path
			}
			return next(c)
		}
	}
}

// Start serves on addr and blocks until the context is cancelled or the
// server fails. On cancel the server shuts down gracefully.
func (a *App) Start(ctx context.Context, addr string) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = a.Shutdown(shutdownCtx)
	}()
	log.Info().Str("addr", addr).Msg("server starting")
	if err := a.Echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server and flushes New Relic data.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Echo.Shutdown(ctx)
	if a.NewRelic != nil {
		a.NewRelic.Shutdown(5 * time.Second)
	}
	return err
}
