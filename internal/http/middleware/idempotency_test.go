package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func idemRouter(lookup IdempotencyLookup) *gin.Engine {
	r := gin.New()
	r.Use(RequestID())
	r.Use(func(c *gin.Context) {
		c.Set(principalKey, Principal{UserID: "u1", Role: "client"})
	})
	r.Use(IdempotencyValidator(IdempotencyOptions{}, lookup))
	r.POST("/things", func(c *gin.Context) {
		key, _ := GetIdempotencyKey(c)
		c.JSON(http.StatusOK, gin.H{"key": key, "replay": IsReplay(c)})
	})
	return r
}

func TestIdempotencyNoHeaderPassesThrough(t *testing.T) {
	r := idemRouter(nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/things", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"key":""`) {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestIdempotencyRejectsMalformedKey(t *testing.T) {
	r := idemRouter(nil)
	req := httptest.NewRequest(http.MethodPost, "/things", nil)
	req.Header.Set(HeaderIdempotencyKey, "bad key with spaces")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestIdempotencyMarksReplay(t *testing.T) {
	lookup := func(ctx context.Context, userID, key string, now time.Time) (bool, error) {
		return userID == "u1" && key == "abc-1", nil
	}
	r := idemRouter(lookup)

	req := httptest.NewRequest(http.MethodPost, "/things", nil)
	req.Header.Set(HeaderIdempotencyKey, "abc-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if !strings.Contains(w.Body.String(), `"replay":true`) {
		t.Fatalf("body = %s", w.Body.String())
	}

	req.Header.Set(HeaderIdempotencyKey, "abc-2")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if !strings.Contains(w.Body.String(), `"replay":false`) {
		t.Fatalf("body = %s", w.Body.String())
	}
}
