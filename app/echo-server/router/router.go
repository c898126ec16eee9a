package router

import (
	"net/http"

	"restoPlay/internal/rest"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupGameRoutes(api *echo.Group, handler *rest.GameHandler) {
	api.POST("/register", handler.Register)
	api.POST("/game-played", handler.GamePlayed)
	api.POST("/feedback", handler.Feedback)
	api.GET("/validate-token", handler.ValidateToken)
	api.GET("/restaurants", handler.Restaurants)
}

func SetupOpsRoutes(e *echo.Echo) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
