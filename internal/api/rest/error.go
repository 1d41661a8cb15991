package rest

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apierrors "github.com/feral-file/ff-mint-indexer/internal/api/shared/errors"
	"github.com/feral-file/ff-mint-indexer/internal/logger"
)

// errorResponse represents a standardized error response
type errorResponse struct {
	Error apierrors.APIError `json:"error"`
}

// respondWithError sends a standardized error response with the status of its code
func respondWithError(c *gin.Context, apiErr *apierrors.APIError) {
	c.JSON(apiErr.Status(), errorResponse{Error: *apiErr})
}

// respondBadRequest sends a 400 Bad Request response
func respondBadRequest(c *gin.Context, message string, details ...string) {
	respondWithError(c, apierrors.NewBadRequestError(message, details...))
}

// respondNotFound sends a 404 Not Found response
func respondNotFound(c *gin.Context, message string, details ...string) {
	respondWithError(c, apierrors.NewNotFoundError(message, details...))
}

// respondValidationError sends a 400 Bad Request with validation error
func respondValidationError(c *gin.Context, details string) {
	respondWithError(c, apierrors.NewValidationError(details))
}

// respondInternalError logs err and answers with its code when err is an APIError,
// internal_error otherwise. The client only sees message.
func respondInternalError(c *gin.Context, err error, message string, fields ...zap.Field) {
	logger.ErrorCtx(c.Request.Context(), err, append(fields, zap.String("path", c.Request.URL.Path))...)

	apiErr, ok := apierrors.As(err)
	if !ok {
		apiErr = apierrors.NewInternalError(message)
	} else {
		apiErr = &apierrors.APIError{Code: apiErr.Code, Message: message}
	}
	respondWithError(c, apiErr)
}
