package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated when absent", "", false},
		{"client value kept", "study-7f3a", true},
		{"uuid kept", "0f8fad5b-d9cb-469f-a165-70867728950e", true},
		{"whitespace replaced", "has space", false},
		{"control char replaced", "line\n", false},
		{"oversized replaced", strings.Repeat("r", maxRequestIDLength+1), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router := gin.New()
			router.Use(RequestID())
			router.POST("/api/gemini-proxy", func(c *gin.Context) {
				// gin 컨텍스트와 request 컨텍스트가 같은 값을 가져야 한다.
				if GetRequestID(c) != RequestIDFromContext(c.Request.Context()) {
					c.Status(http.StatusConflict)
					return
				}
				c.String(http.StatusOK, GetRequestID(c))
			})

			req := httptest.NewRequest(http.MethodPost, "/api/gemini-proxy", nil)
			if tc.incoming != "" {
				req.Header.Set(RequestIDHeader, tc.incoming)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("context mismatch, status %d", rec.Code)
			}
			id := rec.Header().Get(RequestIDHeader)
			if id != rec.Body.String() {
				t.Fatalf("header %q differs from handler view %q", id, rec.Body.String())
			}
			if tc.keep {
				if id != tc.incoming {
					t.Fatalf("expected %q to be kept, got %q", tc.incoming, id)
				}
				return
			}
			if _, err := uuid.Parse(id); err != nil {
				t.Fatalf("expected generated uuid, got %q", id)
			}
		})
	}
}

func TestRequestIDOutsideRequest(t *testing.T) {
	if GetRequestID(nil) != "" {
		t.Fatalf("nil gin context must give empty id")
	}
	if RequestIDFromContext(t.Context()) != "" {
		t.Fatalf("plain context must give empty id")
	}
}
