package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performRequest(handler gin.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/test", nil)
	handler(c)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return resp
}

func TestSuccess(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Success(c, map[string]string{"projectId": "TCH-030524"})
	})

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	resp := parseResponse(t, w)
	if resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
	if resp.Message != "ok" {
		t.Errorf("expected message 'ok', got %q", resp.Message)
	}
}

func TestCreated(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Created(c, map[string]string{"id": "abc"})
	})

	if w.Code != http.StatusCreated {
		t.Errorf("expected status %d, got %d", http.StatusCreated, w.Code)
	}
	if resp := parseResponse(t, w); resp.Message != "created" {
		t.Errorf("expected message 'created', got %q", resp.Message)
	}
}

func TestHelpers_StatusCodes(t *testing.T) {
	tests := []struct {
		name    string
		handler gin.HandlerFunc
		status  int
	}{
		{"bad request", func(c *gin.Context) { BadRequest(c, "invalid input") }, http.StatusBadRequest},
		{"unauthorized", func(c *gin.Context) { Unauthorized(c, "token expired") }, http.StatusUnauthorized},
		{"forbidden", func(c *gin.Context) { Forbidden(c, "admin required") }, http.StatusForbidden},
		{"not found", func(c *gin.Context) { NotFound(c, "project not found") }, http.StatusNotFound},
		{"conflict", func(c *gin.Context) { Conflict(c, "not deletable") }, http.StatusConflict},
		{"server error", func(c *gin.Context) { ServerError(c, "error getting projects") }, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(tt.handler)
			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, w.Code)
			}
			if resp := parseResponse(t, w); resp.Code != tt.status {
				t.Errorf("expected code %d, got %d", tt.status, resp.Code)
			}
		})
	}
}

func TestError_WithWrappedAppError(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		err := fmt.Errorf("delete project: %w", NewConflict("only received projects can be deleted"))
		Error(c, err)
	})

	if w.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, w.Code)
	}
	if resp := parseResponse(t, w); resp.Message != "only received projects can be deleted" {
		t.Errorf("unexpected message %q", resp.Message)
	}
}

func TestError_GenericErrorHidesCause(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Error(c, errors.New("dial tcp 10.0.0.1:5432: connection refused"))
	})

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
	if resp := parseResponse(t, w); resp.Message != "internal server error" {
		t.Errorf("cause leaked into message: %q", resp.Message)
	}
}

func TestAppError_WrapAndIs(t *testing.T) {
	sentinel := NewServerError("error getting projects")
	cause := errors.New("db closed")
	wrapped := sentinel.Wrap(cause)

	if !errors.Is(wrapped, sentinel) {
		t.Error("wrapped error should match its sentinel")
	}
	if !errors.Is(wrapped, cause) {
		t.Error("wrapped error should expose its cause")
	}
	if sentinel.Err != nil {
		t.Error("Wrap must not mutate the sentinel")
	}
	if wrapped.Error() != "error getting projects: db closed" {
		t.Errorf("unexpected Error() %q", wrapped.Error())
	}
}
