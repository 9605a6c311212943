package handlers

import (
	"errors"
	"net/http"

	"taskManager/internal/logger"
	"taskManager/internal/service"

	"go.uber.org/zap"
)

// handleServiceError writes the error envelope. Internal failures expose
// only a message string.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	var businessErr *service.BusinessError
	if !errors.As(err, &businessErr) {
		logger.Error("HTTP: unexpected service error", err,
			zap.String("operation", operation),
			zap.String("client_ip", r.RemoteAddr))
		responseWithJSON(w, http.StatusInternalServerError,
			toPayload("error", service.CodeInternal),
			toPayload("message", "Internal server error"),
		)
		return
	}

	statusCode := mapBusinessErrorToHTTP(businessErr.Code)
	if statusCode >= http.StatusInternalServerError {
		logger.Error("HTTP: service failure", err,
			zap.String("operation", operation),
			zap.String("error_code", businessErr.Code))
		responseWithJSON(w, statusCode,
			toPayload("error", businessErr.Code),
			toPayload("message", businessErr.Message),
		)
		return
	}

	logger.Warn("HTTP: business error",
		zap.String("operation", operation),
		zap.String("error_code", businessErr.Code),
		zap.Int("http_status", statusCode))

	details := businessErr.Details
	if details == nil {
		details = map[string]any{}
	}
	responseWithJSON(w, statusCode,
		toPayload("error", businessErr.Code),
		toPayload("message", businessErr.Message),
		toPayload("details", details),
	)
}

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case service.CodeUnauthorized:
		return http.StatusUnauthorized
	case service.CodeForbidden:
		return http.StatusForbidden
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
