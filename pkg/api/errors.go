package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// BadRequestError represents a malformed or inapplicable request.
type BadRequestError struct {
	inner error
}

func (e *BadRequestError) Error() string {
	return e.inner.Error()
}

// AuthError represents an authentication error or problem.
type AuthError struct {
	inner error
}

func (e *AuthError) Error() string {
	return e.inner.Error()
}

type NotFoundError struct {
	inner error
}

func (e *NotFoundError) Error() string {
	return e.inner.Error()
}

// UnavailableError is returned while no script image is loaded.
type UnavailableError struct {
	inner error
}

func (e *UnavailableError) Error() string {
	return e.inner.Error()
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type ErrorHandler struct {
	logger *zap.Logger
}

func NewErrorHandler(logger *zap.Logger) ErrorHandler {
	return ErrorHandler{
		logger: logger,
	}
}

func (eh *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}
	var (
		badRequestError  = &BadRequestError{}
		authError        = &AuthError{}
		notFoundError    = &NotFoundError{}
		unavailableError = &UnavailableError{}
	)
	switch {
	case errors.As(err, &badRequestError):
		eh.sendErrJSON(w, r, http.StatusBadRequest, badRequestError)
	case errors.As(err, &authError):
		eh.sendErrJSON(w, r, http.StatusForbidden, authError)
	case errors.As(err, &notFoundError):
		eh.sendErrJSON(w, r, http.StatusNotFound, notFoundError)
	case errors.As(err, &unavailableError):
		eh.sendErrJSON(w, r, http.StatusServiceUnavailable, unavailableError)
	default:
		eh.logger.Error("InternalServerError",
			zap.String("proto", r.Proto),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		eh.sendErrJSON(w, r, http.StatusInternalServerError, err)
	}
}

func (eh *ErrorHandler) sendErrJSON(w http.ResponseWriter, r *http.Request, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if encodeErr := json.NewEncoder(w).Encode(errorResponse{Code: code, Message: err.Error()}); encodeErr != nil {
		eh.logger.Error("Failed to marshal API error to JSON",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(encodeErr),
		)
	}
}
