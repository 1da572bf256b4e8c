package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/talent-gin/internal/logger"
	"github.com/mautops/talent-gin/internal/preview"
	"github.com/mautops/talent-gin/internal/service"
)

// APIError API 错误
type APIError struct {
	Code    int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	return e.Message
}

// ErrorHandlerMiddleware 处理 c.Error 记录但未写响应的错误
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			Error(c, apiErr.Code, apiErr.Message, apiErr.Detail)
			return
		}
		handleServiceError(c, err)
	}
}

// WrapError 包装错误
func WrapError(err error, code int, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Detail:  err.Error(),
	}
}

// handleServiceError 将服务层错误映射为 HTTP 状态码，内部错误不向调用方泄露细节
func handleServiceError(c *gin.Context, err error) {
	var stateErr *service.StateError
	var validationErr *service.ValidationError
	switch {
	case errors.Is(err, service.ErrForbidden):
		Error(c, http.StatusForbidden, "forbidden", "")
	case errors.Is(err, service.ErrNotFound):
		Error(c, http.StatusNotFound, "not found", "")
	case errors.As(err, &stateErr):
		Error(c, http.StatusBadRequest, stateErr.Message, "")
	case errors.As(err, &validationErr):
		Error(c, http.StatusBadRequest, "invalid request", validationErr.Error())
	case errors.Is(err, service.ErrDuplicateJobCode):
		Error(c, http.StatusConflict, "job code already exists", "")
	case errors.Is(err, service.ErrConflict):
		Error(c, http.StatusConflict, "job was modified by another request, reload and retry", "")
	case errors.Is(err, preview.ErrUnsupportedType):
		Error(c, http.StatusUnsupportedMediaType, "unsupported file type", "")
	case errors.Is(err, preview.ErrTimeout):
		Error(c, http.StatusGatewayTimeout, "conversion timed out", "")
	case errors.Is(err, preview.ErrConversionFailed):
		logger.FromContext(c.Request.Context()).WithError(err).Warn("preview conversion failed")
		Error(c, http.StatusUnprocessableEntity, "conversion failed", "")
	default:
		logger.FromContext(c.Request.Context()).WithError(err).Error("request failed")
		Error(c, http.StatusInternalServerError, "internal server error", "")
	}
}
