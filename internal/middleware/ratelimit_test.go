package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

func hit(h http.Handler) int {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/categories", nil))
	return rr.Code
}

func TestRateLimitRejectsBurst(t *testing.T) {
	h := RateLimit(2)(ok)
	assert.Equal(t, http.StatusNoContent, hit(h))
	assert.Equal(t, http.StatusNoContent, hit(h))
	assert.Equal(t, http.StatusTooManyRequests, hit(h))
}

func TestWrapFromEnv(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_QPS", "1")
	h := Wrap(ok)
	assert.Equal(t, http.StatusNoContent, hit(h))
	assert.Equal(t, http.StatusTooManyRequests, hit(h))

	t.Setenv("RATE_LIMIT_ENABLED", "false")
	h = Wrap(ok)
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusNoContent, hit(h))
	}
}
