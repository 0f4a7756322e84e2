package server

import (
	"github.com/labstack/echo/v4"

	"github.com/meetlink/signaling/internal/application/config"
	"github.com/meetlink/signaling/internal/infra/ports/http/handlers"
	"github.com/meetlink/signaling/internal/infra/ports/http/middleware"
)

func New(
	cfg *config.Config,
	iceHandler *handlers.IceHandler,
	wsHandler *handlers.WebSocketHandler,
) *echo.Echo {
	e := echo.New()

	e.HideBanner = true

	e.Use(middleware.SlogLogger())
	e.Use(middleware.PrometheusMiddleware())

	// The relay is fail-open: the websocket endpoint takes an optional
	// unverified token, so there is no auth middleware in front of it.
	e.GET("/ws", wsHandler.Handle)

	api := e.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ice", iceHandler.IceServers)
		}
	}

	e.Static("/", cfg.StaticDir)

	return e
}
