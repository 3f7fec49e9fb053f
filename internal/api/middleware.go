package api

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/openbuilders/payment-gateway/internal/errors"
)

// WithMethod is a middleware that checks if the endpoint was called using a
// specific HTTP method and rejects it otherwise.
func WithMethod(next http.HandlerFunc, method string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, fmt.Sprintf("Only %s method is allowed", method), http.StatusMethodNotAllowed)
			return
		}

		next.ServeHTTP(w, r)
	}
}

// WithMethods dispatches to a handler per HTTP method for endpoints that serve
// more than one.
func WithMethods(handlers map[string]http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		next, ok := handlers[r.Method]
		if !ok {
			http.Error(w, "Method is not allowed", http.StatusMethodNotAllowed)
			return
		}

		next.ServeHTTP(w, r)
	}
}

// httpStatus maps the error taxonomy onto HTTP statuses. Every failure keeps
// its distinguishable errorCode in the body regardless of status.
func httpStatus(code errors.ErrorCode) int {
	switch code {
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeForbidden:
		return http.StatusForbidden
	case errors.CodeConflict, errors.CodeIllegalTransition:
		return http.StatusConflict
	case errors.CodeValidationError, errors.CodeAmountMismatch, errors.CodeInvalidCode:
		return http.StatusBadRequest
	case errors.CodeSubmissionFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// WithJSONResponse wraps an APIHandler and handles JSON response formatting
func WithJSONResponse(handler APIHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Call the handler to get data or error
		data, err := handler(w, r)

		// Set the Content-Type header
		w.Header().Set("Content-Type", "application/json")

		if err != nil {
			var errorResponse *ErrorResponse
			var se errors.ServiceError
			if stderrors.As(err, &se) {
				errorResponse = &ErrorResponse{
					Ok:        false,
					ErrorCode: string(se.Code),
				}
				w.WriteHeader(httpStatus(se.Code))
				slog.Debug("ServiceError", "error", se, "stack", se.Err)
			} else {
				errorResponse = &ErrorResponse{
					Ok:        false,
					ErrorCode: "internal_error",
				}
				w.WriteHeader(http.StatusInternalServerError)
			}

			slog.Debug("API error", "error", err)

			// Encode and send the error response
			if err := json.NewEncoder(w).Encode(*errorResponse); err != nil {
				http.Error(w, `{"ok": false, "errorCode": "internal_error", "errorDescription": "Failed to encode error response"}`, http.StatusInternalServerError)
			}
			return
		}

		// Create the success response
		successResponse := SuccessResponse{
			Ok:   true,
			Data: data,
		}

		// Encode and send the success response
		if err := json.NewEncoder(w).Encode(successResponse); err != nil {
			http.Error(w, `{"ok": false, "errorCode": "internal_error", "errorDescription": "Failed to encode success response"}`, http.StatusInternalServerError)
			return
		}
	}
}
