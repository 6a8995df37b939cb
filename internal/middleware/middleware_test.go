package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quizhub_backend/internal/config"
	"quizhub_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const secret = "middleware-test-secret-0123456789abcdef"

func newRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", mw, func(c *gin.Context) {
		if claims := util.GetUserFromContext(c); claims != nil {
			c.String(http.StatusOK, claims.Username)
			return
		}
		c.String(http.StatusOK, "anonymous")
	})
	return r
}

func signed(t *testing.T, claims *util.Claims, method jwt.SigningMethod, key interface{}) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestAuthMiddleware(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: secret}}
	valid, err := util.GenerateJWT(3, "ada", secret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	expired, err := util.GenerateJWT(3, "ada", secret, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	wrongKey, err := util.GenerateJWT(3, "ada", "another-secret-0123456789abcdefghij", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	noUser := signed(t, &util.Claims{Username: "ghost", RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}, jwt.SigningMethodHS256, []byte(secret))
	none := signed(t, &util.Claims{UserID: 3}, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name   string
		header string
		query  string
		status int
		body   string
	}{
		{name: "bearer", header: "Bearer " + valid, status: http.StatusOK, body: "ada"},
		{name: "query token", query: valid, status: http.StatusOK, body: "ada"},
		{name: "missing", status: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + expired, status: http.StatusUnauthorized},
		{name: "wrong key", header: "Bearer " + wrongKey, status: http.StatusUnauthorized},
		{name: "no user id", header: "Bearer " + noUser, status: http.StatusUnauthorized},
		{name: "alg none", header: "Bearer " + none, status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, mw := range []struct {
				name     string
				handler  gin.HandlerFunc
				optional bool
			}{
				{"required", AuthMiddleware(cfg), false},
				{"optional", TryAuthMiddleware(cfg), true},
			} {
				target := "/"
				if tt.query != "" {
					target += "?token=" + tt.query
				}
				req := httptest.NewRequest(http.MethodGet, target, nil)
				if tt.header != "" {
					req.Header.Set("Authorization", tt.header)
				}
				w := httptest.NewRecorder()
				newRouter(mw.handler).ServeHTTP(w, req)

				wantStatus, wantBody := tt.status, tt.body
				if mw.optional && tt.status == http.StatusUnauthorized {
					wantStatus, wantBody = http.StatusOK, "anonymous"
				}
				if w.Code != wantStatus {
					t.Errorf("%s: status = %d, want %d", mw.name, w.Code, wantStatus)
				}
				if wantBody != "" && w.Body.String() != wantBody {
					t.Errorf("%s: body = %q, want %q", mw.name, w.Body.String(), wantBody)
				}
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	r := newRouter(func(c *gin.Context) { c.Next() })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(util.RequestIDHeader)
	if len(generated) != 36 {
		t.Errorf("generated id = %q, want a uuid", generated)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(util.RequestIDHeader, "trace-me")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(util.RequestIDHeader); got != "trace-me" {
		t.Errorf("id = %q, want trace-me", got)
	}
}
