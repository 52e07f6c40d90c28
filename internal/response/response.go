package response

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/vidtube/backend/internal/apierror"
	"github.com/vidtube/backend/internal/logging"
)

// Envelope wraps every successful response body.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// ErrorEnvelope wraps every failed response body. Data is always null.
type ErrorEnvelope struct {
	StatusCode int      `json:"statusCode"`
	Data       any      `json:"data"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
}

// OK writes a 200 envelope.
func OK(ctx context.Context, w http.ResponseWriter, data any, message string) {
	JSON(ctx, w, http.StatusOK, data, message)
}

// Created writes a 201 envelope.
func Created(ctx context.Context, w http.ResponseWriter, data any, message string) {
	JSON(ctx, w, http.StatusCreated, data, message)
}

// JSON writes a success envelope with the given status.
func JSON(ctx context.Context, w http.ResponseWriter, status int, data any, message string) {
	write(ctx, w, status, Envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
}

// Error renders err as an error envelope. Untyped errors become a 500 and
// their cause is only logged.
func Error(ctx context.Context, w http.ResponseWriter, err error) {
	apiErr := apierror.From(err)
	if apiErr == nil {
		apiErr = apierror.Internal("")
	}

	details := apiErr.Errors
	if details == nil {
		details = []string{}
	}

	logger := logging.FromContext(ctx)
	switch {
	case apiErr.StatusCode >= http.StatusInternalServerError:
		logger.Error("request failed", "status", apiErr.StatusCode, "message", apiErr.Message, "error", apiErr.Err)
	case apiErr.StatusCode >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", apiErr.StatusCode, "message", apiErr.Message, "errors", details)
	}

	write(ctx, w, apiErr.StatusCode, ErrorEnvelope{
		StatusCode: apiErr.StatusCode,
		Data:       nil,
		Message:    apiErr.Message,
		Success:    false,
		Errors:     details,
	})
}

func write(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
	}
}
