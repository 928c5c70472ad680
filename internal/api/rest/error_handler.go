package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	domainErrors "github.com/opentender/sealed-tender-backend/internal/domain/errors"
)

// ErrorHandler maps errors to HTTP status codes and response fields
type ErrorHandler interface {
	HandleError(err error) (status int, code, message, details string, fields map[string][]string)
}

type defaultErrorHandler struct{}

func NewErrorHandler() ErrorHandler {
	return &defaultErrorHandler{}
}

func (h *defaultErrorHandler) HandleError(err error) (int, string, string, string, map[string][]string) {
	if err == nil {
		return http.StatusOK, "", "", "", nil
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, "VALIDATION_ERROR",
			validationErr.Message, validationErr.Details, validationErr.Fields
	}

	var appErr *domainErrors.AppError
	if errors.As(err, &appErr) {
		var details string
		if len(appErr.Details) > 0 {
			if raw, marshalErr := json.Marshal(appErr.Details); marshalErr == nil {
				details = string(raw)
			}
		}
		return appErr.StatusCode, appErr.Code, appErr.Message, details, nil
	}

	if errors.Is(err, context.Canceled) {
		return http.StatusRequestTimeout, "REQUEST_CANCELED", "Request was canceled", "", nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusRequestTimeout, "REQUEST_TIMEOUT", "Request timed out", "", nil
	}

	var jsonErr *json.SyntaxError
	if errors.As(err, &jsonErr) {
		return http.StatusBadRequest, "INVALID_JSON", "Invalid JSON syntax",
			fmt.Sprintf("Error at position %d", jsonErr.Offset), nil
	}

	return http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred", "", nil
}
