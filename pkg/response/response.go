package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope of every JSON reply.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// AppError is an error that already knows how it should be reported to the
// caller. Err, when set, is the underlying cause and is never sent out.
type AppError struct {
	HTTPStatus int
	Code       int
	Message    string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func newAppError(status int, msg string) *AppError {
	return &AppError{HTTPStatus: status, Code: status, Message: msg}
}

func NewBadRequest(msg string) *AppError   { return newAppError(http.StatusBadRequest, msg) }
func NewUnauthorized(msg string) *AppError { return newAppError(http.StatusUnauthorized, msg) }
func NewForbidden(msg string) *AppError    { return newAppError(http.StatusForbidden, msg) }
func NewNotFound(msg string) *AppError     { return newAppError(http.StatusNotFound, msg) }
func NewConflict(msg string) *AppError     { return newAppError(http.StatusConflict, msg) }
func NewServerError(msg string) *AppError  { return newAppError(http.StatusInternalServerError, msg) }

// Wrap attaches cause to a copy of e.
func (e *AppError) Wrap(cause error) *AppError {
	cp := *e
	cp.Err = cause
	return &cp
}

// Is matches AppErrors by status and message so sentinel values can be
// compared after wrapping.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.HTTPStatus == e.HTTPStatus && t.Message == e.Message
}

// Success sends a 200 OK response with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "ok",
		Data:    data,
	})
}

// Created sends a 201 Created response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "created",
		Data:    data,
	})
}

// Error reports err. An *AppError anywhere in the chain decides status and
// message; anything else becomes a generic 500 so storage details stay
// server-side.
func Error(c *gin.Context, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus, Response{
			Code:    appErr.Code,
			Message: appErr.Message,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, Response{
		Code:    500,
		Message: "internal server error",
	})
}

func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Code: 400, Message: msg})
}

func Unauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, Response{Code: 401, Message: msg})
}

func Forbidden(c *gin.Context, msg string) {
	c.JSON(http.StatusForbidden, Response{Code: 403, Message: msg})
}

func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, Response{Code: 404, Message: msg})
}

func Conflict(c *gin.Context, msg string) {
	c.JSON(http.StatusConflict, Response{Code: 409, Message: msg})
}

func ServerError(c *gin.Context, msg string) {
	c.JSON(http.StatusInternalServerError, Response{Code: 500, Message: msg})
}
