package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aetherblog/ai-service/internal/platform/logger"
	"github.com/aetherblog/ai-service/pkg/api"
)

// ErrorHandler converts errors collected on the context into JSON
// responses: RFC 9457 problems as-is, application errors into a standard
// shape, anything else into an opaque 500.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		if problem, ok := err.(*api.Problem); ok {
			if problem.Log != nil {
				logger.Error("request failed", zap.Error(problem.Log), zap.String("path", c.Request.URL.Path))
			}
			// RFC 9457 dictates the json is at the root
			c.JSON(problem.Status, problem)
			c.Abort()
			return
		}

		if appErr, ok := err.(*api.Error); ok {
			if appErr.Log != nil {
				logger.Error("request failed", zap.Error(appErr.Log), zap.String("path", c.Request.URL.Path))
			}
			c.JSON(appErr.Code, api.NewError(appErr.Code, http.StatusText(appErr.Code), appErr.Message))
			c.Abort()
			return
		}

		logger.Error("unhandled error", zap.Error(err), zap.String("path", c.Request.URL.Path))
		c.JSON(http.StatusInternalServerError, api.NewError(
			http.StatusInternalServerError,
			"Internal Server Error",
			"An unexpected error occurred.",
		))
		c.Abort()
	}
}
