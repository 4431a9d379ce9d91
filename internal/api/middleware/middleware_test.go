package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"parking_allocator/internal/domain"
	"parking_allocator/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct {
	principals map[string]domain.Principal
}

func (f fakeVerifier) PrincipalFromToken(_ context.Context, token string) (domain.Principal, error) {
	p, ok := f.principals[token]
	if !ok {
		return domain.Principal{}, service.ErrTokenInvalid
	}
	return p, nil
}

func newAuthRouter() *gin.Engine {
	mw := NewAuthMiddleware(fakeVerifier{principals: map[string]domain.Principal{
		"user-token":  {UserID: 2, Username: "asha"},
		"admin-token": {UserID: 1, Username: "admin", IsAdmin: true},
	}})
	r := gin.New()
	r.Use(mw.Authenticate())
	r.GET("/me", func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": p.UserID})
	})
	r.GET("/admin", mw.AuthorizeRole(domain.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func doRequest(r http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticate(t *testing.T) {
	r := newAuthRouter()

	tests := []struct {
		name   string
		header string
		path   string
		status int
	}{
		{"missing header", "", "/me", http.StatusUnauthorized},
		{"wrong scheme", "Basic user-token", "/me", http.StatusUnauthorized},
		{"unknown token", "Bearer nope", "/me", http.StatusUnauthorized},
		{"valid user", "Bearer user-token", "/me", http.StatusOK},
		{"user on admin route", "Bearer user-token", "/admin", http.StatusForbidden},
		{"admin on admin route", "bearer admin-token", "/admin", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.header != "" {
				headers[AuthorizationHeaderKey] = tt.header
			}
			w := doRequest(r, http.MethodGet, tt.path, headers)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestAuthorizeRoleWithoutAuthenticate(t *testing.T) {
	mw := NewAuthMiddleware(fakeVerifier{})
	r := gin.New()
	r.GET("/admin", mw.AuthorizeRole(domain.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := doRequest(r, http.MethodGet, "/admin", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Logger(zap.NewNop()))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	w := doRequest(r, http.MethodGet, "/", map[string]string{RequestIDHeader: "req-42"})
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "req-42", w.Body.String())

	w = doRequest(r, http.MethodGet, "/", nil)
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestRateLimiterPerClient(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	r := gin.New()
	r.Use(rl.Limit())
	r.POST("/book", func(c *gin.Context) { c.Status(http.StatusCreated) })

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/book", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusCreated, send("10.0.0.1"))
	assert.Equal(t, http.StatusCreated, send("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1"))
	assert.Equal(t, http.StatusCreated, send("10.0.0.2"))
}

type memoryClaimer struct {
	keys     map[string]bool
	err      error
	released []string
}

func (m *memoryClaimer) Claim(_ context.Context, key string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memoryClaimer) Release(_ context.Context, key string) error {
	delete(m.keys, key)
	m.released = append(m.released, key)
	return nil
}

func newIdempotentRouter(claimer KeyClaimer, status *int) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(PrincipalKey, domain.Principal{UserID: 9})
		c.Next()
	})
	r.POST("/reservations", Idempotency(claimer), func(c *gin.Context) { c.Status(*status) })
	return r
}

func TestIdempotency(t *testing.T) {
	t.Run("replay rejected", func(t *testing.T) {
		claimer := &memoryClaimer{keys: map[string]bool{}}
		status := http.StatusCreated
		r := newIdempotentRouter(claimer, &status)
		h := map[string]string{IdempotencyKeyHeader: "abc"}

		assert.Equal(t, http.StatusCreated, doRequest(r, http.MethodPost, "/reservations", h).Code)
		w := doRequest(r, http.MethodPost, "/reservations", h)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), service.ErrDuplicateRequest.Error())
		assert.True(t, claimer.keys["9:abc"])
	})

	t.Run("failed request frees key", func(t *testing.T) {
		claimer := &memoryClaimer{keys: map[string]bool{}}
		status := http.StatusConflict
		r := newIdempotentRouter(claimer, &status)
		h := map[string]string{IdempotencyKeyHeader: "abc"}

		assert.Equal(t, http.StatusConflict, doRequest(r, http.MethodPost, "/reservations", h).Code)
		assert.Equal(t, []string{"9:abc"}, claimer.released)

		status = http.StatusCreated
		assert.Equal(t, http.StatusCreated, doRequest(r, http.MethodPost, "/reservations", h).Code)
	})

	t.Run("no header", func(t *testing.T) {
		claimer := &memoryClaimer{keys: map[string]bool{}}
		status := http.StatusCreated
		r := newIdempotentRouter(claimer, &status)
		assert.Equal(t, http.StatusCreated, doRequest(r, http.MethodPost, "/reservations", nil).Code)
		assert.Empty(t, claimer.keys)
	})

	t.Run("store down passes through", func(t *testing.T) {
		claimer := &memoryClaimer{err: errors.New("connection refused")}
		status := http.StatusCreated
		r := newIdempotentRouter(claimer, &status)
		h := map[string]string{IdempotencyKeyHeader: "abc"}
		assert.Equal(t, http.StatusCreated, doRequest(r, http.MethodPost, "/reservations", h).Code)
	})
}
