package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// ResponseEnvelope wraps all API responses
type ResponseEnvelope struct {
	Success bool           `json:"success"`
	Data    interface{}    `json:"data,omitempty"`
	Error   *ErrorResponse `json:"error,omitempty"`
	Meta    ResponseMeta   `json:"meta"`
}

// ResponseMeta contains response metadata
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// ErrorResponse provides detailed error information
type ErrorResponse struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Details string              `json:"details,omitempty"`
	Fields  map[string][]string `json:"fields,omitempty"`
	TraceID string              `json:"trace_id,omitempty"`
}

// BaseHandler provides common functionality for all handlers
type BaseHandler struct {
	validator    *validator.Validate
	tracer       trace.Tracer
	errorHandler ErrorHandler
	apiVersion   string
	maxBodySize  int64
}

// NewBaseHandler creates a base handler with request validation wired up
func NewBaseHandler(apiVersion string) *BaseHandler {
	v := validator.New()
	v.RegisterValidation("bidder_id", validateBidderID)

	return &BaseHandler{
		validator:    v,
		tracer:       otel.Tracer("api.rest"),
		errorHandler: NewErrorHandler(),
		apiVersion:   apiVersion,
		maxBodySize:  1 << 20,
	}
}

// DecodeAndValidate parses the JSON request body into v and validates it.
func (h *BaseHandler) DecodeAndValidate(r *http.Request, v interface{}) error {
	if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		return &ValidationError{Message: "Content-Type must be application/json"}
	}

	r.Body = http.MaxBytesReader(nil, r.Body, h.maxBodySize)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(v); err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			return &ValidationError{
				Message: fmt.Sprintf("Request body too large (max %d bytes)", h.maxBodySize),
			}
		}
		return &ValidationError{
			Message: "Invalid JSON",
			Details: err.Error(),
		}
	}

	if err := h.validator.Struct(v); err != nil {
		return h.formatValidationError(err)
	}

	return nil
}

// PathUUID parses a path parameter as a UUID.
func (h *BaseHandler) PathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := r.PathValue(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &ValidationError{
			Message: fmt.Sprintf("Invalid %s", name),
			Details: fmt.Sprintf("%q is not a valid UUID", raw),
		}
	}
	return id, nil
}

// formatValidationError converts validator errors to our format
func (h *BaseHandler) formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make(map[string][]string)

		for _, fe := range validationErrors {
			var msg string
			switch fe.Tag() {
			case "required":
				msg = "This field is required"
			case "min":
				msg = fmt.Sprintf("Minimum value is %s", fe.Param())
			case "max":
				msg = fmt.Sprintf("Maximum value is %s", fe.Param())
			case "gt":
				msg = fmt.Sprintf("Must be greater than %s", fe.Param())
			case "gtfield":
				msg = fmt.Sprintf("Must be greater than %s", fe.Param())
			case "bidder_id":
				msg = "Must be a non-empty identifier without whitespace"
			case "base64":
				msg = "Must be valid base64"
			case "hexadecimal":
				msg = "Must be a hex string"
			case "len":
				msg = fmt.Sprintf("Must be exactly %s characters", fe.Param())
			default:
				msg = fmt.Sprintf("Failed %s validation", fe.Tag())
			}

			fields[fe.Field()] = append(fields[fe.Field()], msg)
		}

		return &ValidationError{
			Message: "Validation failed",
			Fields:  fields,
		}
	}

	return &ValidationError{
		Message: "Validation error",
		Details: err.Error(),
	}
}

// WriteSuccess writes a successful response envelope
func (h *BaseHandler) WriteSuccess(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	response := ResponseEnvelope{
		Success: true,
		Data:    data,
		Meta: ResponseMeta{
			RequestID: RequestIDFromContext(r.Context()),
			Timestamp: time.Now().UTC(),
			Version:   h.apiVersion,
		},
	}
	h.writeJSON(w, status, response)
}

// WriteError maps an error to an envelope with the proper status code
func (h *BaseHandler) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details, fields := h.errorHandler.HandleError(err)

	errorResp := &ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
		Fields:  fields,
	}
	if span := trace.SpanFromContext(r.Context()); span.SpanContext().IsValid() {
		errorResp.TraceID = span.SpanContext().TraceID().String()
	}

	response := ResponseEnvelope{
		Success: false,
		Error:   errorResp,
		Meta: ResponseMeta{
			RequestID: RequestIDFromContext(r.Context()),
			Timestamp: time.Now().UTC(),
			Version:   h.apiVersion,
		},
	}
	h.writeJSON(w, status, response)
}

// writeJSON writes JSON response with proper headers
func (h *BaseHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)

	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(true)
	_ = encoder.Encode(v)
}

func validateBidderID(fl validator.FieldLevel) bool {
	id := fl.Field().String()
	return id != "" && !strings.ContainsAny(id, " \t\n")
}

// ValidationError represents a request validation failure
type ValidationError struct {
	Message string
	Details string
	Fields  map[string][]string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Context keys
type contextKey string

const (
	contextKeyRequestID contextKey = "request_id"
	contextKeyCaller    contextKey = "caller"
)

// RequestIDFromContext returns the request ID set by the middleware chain.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// CallerFromContext returns the authenticated caller identity.
func CallerFromContext(ctx context.Context) string {
	if caller, ok := ctx.Value(contextKeyCaller).(string); ok {
		return caller
	}
	return ""
}
