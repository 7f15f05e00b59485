package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"autocheckout/internal/handler/api"
	"autocheckout/internal/middleware"
)

// Setup configures all routes for the Echo server.
func Setup(e *echo.Echo, checkoutHandler *api.CheckoutHandler, apiKey string, logger *zap.Logger) {
	// Global middleware
	e.Use(echomw.Recover())
	e.Use(middleware.CORS())

	// API group with auth + logging middleware
	apiGroup := e.Group("/api")
	apiGroup.Use(middleware.APIAuth(apiKey))
	apiGroup.Use(middleware.APILogger(logger))

	co := apiGroup.Group("/checkout")
	co.POST("/run", checkoutHandler.Run)
	co.POST("/test", checkoutHandler.Test)
	co.POST("/force", checkoutHandler.Force)
	co.GET("/status", checkoutHandler.Status)
	co.GET("/settings", checkoutHandler.GetSettings)
	co.POST("/settings", checkoutHandler.UpdateSettings)
	co.GET("/executions", checkoutHandler.Executions)
	co.GET("/history", checkoutHandler.History)

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
}
