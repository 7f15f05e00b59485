package middleware

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"autocheckout/internal/models"
)

// APIAuth validates the Token header against the configured API key. An
// empty key rejects every request.
func APIAuth(apiKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := c.Request().Header.Get("Token")
			if token == "" {
				return c.JSON(http.StatusUnauthorized, models.APIResponse{
					Status: false,
					Msg:    "Token is required",
				})
			}

			if apiKey == "" || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
				return c.JSON(http.StatusUnauthorized, models.APIResponse{
					Status: false,
					Msg:    "Invalid token",
				})
			}
			return next(c)
		}
	}
}

// APILogger logs each admin API request once it has been served.
func APILogger(logger *zap.Logger) echo.MiddlewareFunc {
	logger = logger.Named("api")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			action, _ := c.Get("api_actions").(string)
			logger.Info("API request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.String("ip", c.RealIP()),
				zap.String("action", action),
				zap.Int("status", c.Response().Status),
				zap.Duration("took", time.Since(start)))
			return nil
		}
	}
}

// CORS configures CORS headers.
func CORS() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("Access-Control-Allow-Origin", "*")
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Token")
			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusNoContent)
			}
			return next(c)
		}
	}
}
