// Command dcwizapp is a minimal DCWiz service built on appkit. It exposes a
// health endpoint, a platform relay, and the caller's auth scopes, and is
// the reference wiring for new services.
package main

import (
	"context"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/dcwiz/appkit/app"
	"github.com/dcwiz/appkit/appcli"
	"github.com/dcwiz/appkit/authclient"
	"github.com/dcwiz/appkit/cache"
	"github.com/dcwiz/appkit/db"
	"github.com/dcwiz/appkit/perf"
	"github.com/dcwiz/appkit/proxy"
	"github.com/dcwiz/appkit/response"
)

func main() {
	os.Exit(appcli.Run(os.Args[1:], setup))
}

func setup(ctx context.Context, a *app.App) error {
	cfg := a.Config

	var pool *pgxpool.Pool
	if cfg.Has("postgres.server") || cfg.Has("postgres.db") {
		var err error
		pool, err = db.NewPool(ctx, db.URLFromConfig(cfg))
		if err != nil {
			return err
		}
		go func() {
			<-ctx.Done()
			pool.Close()
		}()
	}

	if cfg.Has("redis.host") {
		if _, err := cache.Redis(ctx, cfg); err != nil {
			log.Warn().Err(err).Msg("redis unavailable")
		}
	}

	platform := proxy.New(proxy.FromConfig(cfg))
	auth := authclient.FromConfig(cfg)

	a.Echo.Use(perf.Middleware(perf.New("dcwizapp")))

	a.Echo.GET("/health", response.WrapEmpty("ok", func(c echo.Context) error {
		if pool != nil {
			return pool.Ping(c.Request().Context())
		}
		return nil
	}))

	a.Echo.GET("/relay/*", func(c echo.Context) error {
		body, err := platform.Get(c.Request().Context(), proxy.SurfacePlatform,
			"/"+c.Param("*"), proxy.WithBearer(authclient.ExtractBearer(c)))
		if err != nil {
			return err
		}
		return c.JSONBlob(http.StatusOK, body)
	})

	a.Echo.GET("/me/scopes", response.Wrap("", func(c echo.Context) (authclient.Scopes, error) {
		return auth.SelfScopes(c.Request().Context(), authclient.ExtractBearer(c))
	}))

	return nil
}
