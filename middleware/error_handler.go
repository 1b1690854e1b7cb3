// Package middleware holds the gin middleware shared by every route.
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	apperrors "github.com/NomadCrew/feedback-hub-backend/errors"
	"github.com/NomadCrew/feedback-hub-backend/logger"
	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ErrorHandler renders the last error attached to the context. AppErrors keep
// their type, code and status; anything else becomes a 500.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		last := c.Errors.Last()
		err := last.Err

		var appError *apperrors.AppError
		if errors.As(err, &appError) {
			statusCode := appError.GetHTTPStatus()
			logger.LogHTTPError(c, err, statusCode, fmt.Sprintf("%s error", appError.Type))

			code := appError.Code
			if code == "" {
				code = strconv.Itoa(statusCode)
			}
			response := ErrorResponse{
				Type:    string(appError.Type),
				Code:    code,
				Message: appError.Message,
			}
			// Details are shown for client errors, or for every error in debug mode.
			if appError.Detail != "" && (statusCode < http.StatusInternalServerError || gin.IsDebugging()) {
				response.Details = appError.Detail
			}

			c.JSON(statusCode, response)
			return
		}

		if last.Type == gin.ErrorTypeBind {
			logger.LogHTTPError(c, err, http.StatusBadRequest, "Request binding error")
			response := ErrorResponse{
				Type:    string(apperrors.ValidationError),
				Code:    apperrors.CodeInvalidPayload,
				Message: "Failed to bind request",
			}
			if gin.IsDebugging() {
				response.Details = err.Error()
			}
			c.JSON(http.StatusBadRequest, response)
			return
		}

		logger.LogHTTPError(c, err, http.StatusInternalServerError, "Unexpected server error")
		response := ErrorResponse{
			Type:    string(apperrors.ServerError),
			Code:    strconv.Itoa(http.StatusInternalServerError),
			Message: "Internal Server Error",
		}
		if gin.IsDebugging() {
			response.Details = err.Error()
		}
		c.JSON(http.StatusInternalServerError, response)
	}
}
