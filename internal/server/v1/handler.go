package v1

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	appvalidator "github.com/aetherblog/ai-service/internal/server/validator"
	"github.com/aetherblog/ai-service/pkg/api"
)

// bind decodes and validates a JSON body, pushing a 400 onto the context
// when it fails.
func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			_ = c.Error(api.ValidationError(appvalidator.ParseValidationError(verrs)))
			return false
		}
		_ = c.Error(api.BadRequestError("invalid request body: " + err.Error()))
		return false
	}
	return true
}
