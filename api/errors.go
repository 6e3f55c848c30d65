package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AppError is the body of every failed response: {"error": {...}}.
type AppError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	StatusCode int               `json:"-"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newAppError(code, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, StatusCode: status}
}

var (
	ErrInvalidRequest = newAppError("INVALID_REQUEST", "Invalid request parameters", http.StatusBadRequest)
	ErrNotFound       = newAppError("NOT_FOUND", "Resource not found", http.StatusNotFound)
	ErrAggregation    = newAppError("AGGREGATION_FAILED", "Could not compute statistics", http.StatusInternalServerError)
	ErrDatabase       = newAppError("DATABASE_ERROR", "Database operation failed", http.StatusInternalServerError)
	ErrUnavailable    = newAppError("SERVICE_UNAVAILABLE", "Backing store unavailable", http.StatusServiceUnavailable)
	ErrInternal       = newAppError("INTERNAL_SERVER_ERROR", "Internal server error", http.StatusInternalServerError)
)

type errorResponse struct {
	Error *AppError `json:"error"`
}

// invalid turns validator or parse failures into a 400 with per-field details.
func invalid(err error) *AppError {
	e := *ErrInvalidRequest
	e.Details = make(map[string]string)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			e.Details[fe.Field()] = fmt.Sprintf("failed on %q (%s)", fe.Tag(), fe.Param())
		}
		return &e
	}
	e.Details["query"] = err.Error()
	return &e
}

func sendError(c *fiber.Ctx, err error) error {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = ErrInternal
	}
	return c.Status(appErr.StatusCode).JSON(errorResponse{Error: appErr})
}

// errorHandler renders errors that escape handlers, including fiber's own 404/405.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		appErr := newAppError("INTERNAL_SERVER_ERROR", fe.Message, fe.Code)
		switch fe.Code {
		case fiber.StatusNotFound:
			appErr = ErrNotFound
		case fiber.StatusMethodNotAllowed:
			appErr.Code = "METHOD_NOT_ALLOWED"
		}
		return sendError(c, appErr)
	}

	s.logger.Error("[api] %s %s failed: %v", c.Method(), c.Path(), err)
	return sendError(c, err)
}
