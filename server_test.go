package main

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/florist_backend/middlewares"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestCustomErrorLoggerTagsCorrelationId(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, hook := test.NewNullLogger()
	logger.SetOutput(io.Discard)

	r := gin.New()
	r.Use(middlewares.CorrelationIdMiddleware())
	r.Use(customErrorLogger(logger))
	r.GET("/api/sales", func(c *gin.Context) {
		_ = c.Error(errors.New("connection refused"))
		c.Status(http.StatusServiceUnavailable)
	})
	r.GET("/api/flowers", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/sales", nil)
	req.Header.Set(middlewares.CorrelationIdHeader, "till-7-req-42")
	r.ServeHTTP(httptest.NewRecorder(), req)

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("expected an error entry")
	}
	if entry.Level != logrus.ErrorLevel {
		t.Fatalf("expected error level, got %v", entry.Level)
	}
	if got := entry.Data["context"]; got != "till-7-req-42" {
		t.Fatalf("expected correlation id in context field, got %v", got)
	}
	if got := entry.Data["funcName"]; got != "GET /api/sales" {
		t.Fatalf("expected route in funcName field, got %v", got)
	}
	if !strings.Contains(entry.Message, "connection refused") {
		t.Fatalf("expected handler error in message, got %q", entry.Message)
	}

	hook.Reset()
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/flowers", nil))
	if len(hook.AllEntries()) != 0 {
		t.Fatalf("expected nothing logged for a clean request, got %d entries", len(hook.AllEntries()))
	}
}
