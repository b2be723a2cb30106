package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type invalidatorSpy struct {
	calls int
}

func (s *invalidatorSpy) Invalidate(ctx context.Context) {
	s.calls++
}

func TestInvalidateDashboardOnSuccessfulWrite(t *testing.T) {
	gin.SetMode(gin.TestMode)
	spy := &invalidatorSpy{}

	router := gin.New()
	router.Use(InvalidateDashboard(spy))
	router.POST("/reviews", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/reviews", nil))

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
	if spy.calls != 1 {
		t.Fatalf("expected one invalidation, got %d", spy.calls)
	}
}

func TestInvalidateDashboardSkipsReads(t *testing.T) {
	gin.SetMode(gin.TestMode)
	spy := &invalidatorSpy{}

	router := gin.New()
	router.Use(InvalidateDashboard(spy))
	router.GET("/reviews", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/reviews", nil))

	if spy.calls != 0 {
		t.Fatalf("expected no invalidation on read, got %d", spy.calls)
	}
}

func TestInvalidateDashboardSkipsFailedWrites(t *testing.T) {
	gin.SetMode(gin.TestMode)
	spy := &invalidatorSpy{}

	router := gin.New()
	router.Use(InvalidateDashboard(spy))
	router.POST("/reviews", func(c *gin.Context) {
		c.Status(http.StatusConflict)
	})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/reviews", nil))

	if spy.calls != 0 {
		t.Fatalf("expected no invalidation on failure, got %d", spy.calls)
	}
}
