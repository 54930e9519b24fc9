package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"app/internal/config"
	appmw "app/internal/middleware"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

const testSecret = "test-secret"

type mwErrorResponse struct {
	Error string `json:"error"`
}

func mustMakeJWT(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	assert.NoError(t, err)
	return signed
}

func newProtectedEcho() *echo.Echo {
	e := echo.New()
	cfg := config.Config{JWTSecret: testSecret}
	e.GET("/me", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"user_id": c.Get(appmw.CtxUserIDKey),
			"role":    c.Get(appmw.CtxUserRoleKey),
		})
	}, appmw.AuthJWT(cfg))
	e.GET("/admin", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"ok": "yes"})
	}, appmw.AuthJWT(cfg), appmw.AdminRoleGuard())
	return e
}

func runRequest(e *echo.Echo, authz string, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeMWError(t *testing.T, rec *httptest.ResponseRecorder) mwErrorResponse {
	t.Helper()
	var body mwErrorResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestMiddleware_AuthJWT_Unauthorized_NoHeader(t *testing.T) {
	e := newProtectedEcho()

	rec := runRequest(e, "", "/me")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeMWError(t, rec).Error)
}

func TestMiddleware_AuthJWT_Unauthorized_NotBearer(t *testing.T) {
	e := newProtectedEcho()

	rec := runRequest(e, "Basic abcdef", "/me")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_AuthJWT_Unauthorized_BadSignature(t *testing.T) {
	e := newProtectedEcho()
	token := mustMakeJWT(t, "other-secret", jwt.MapClaims{
		"sub":  "1",
		"role": "USER",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	rec := runRequest(e, "Bearer "+token, "/me")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_AuthJWT_Unauthorized_Expired(t *testing.T) {
	e := newProtectedEcho()
	token := mustMakeJWT(t, testSecret, jwt.MapClaims{
		"sub":  "1",
		"role": "USER",
		"exp":  time.Now().Add(-time.Hour).Unix(),
	})

	rec := runRequest(e, "Bearer "+token, "/me")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_AuthJWT_Unauthorized_MissingRole(t *testing.T) {
	e := newProtectedEcho()
	token := mustMakeJWT(t, testSecret, jwt.MapClaims{
		"sub": "1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	rec := runRequest(e, "Bearer "+token, "/me")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// subは文字列でも数値でも受け付ける
func TestMiddleware_AuthJWT_OK_SetsContext(t *testing.T) {
	e := newProtectedEcho()

	for _, sub := range []interface{}{"42", float64(42)} {
		token := mustMakeJWT(t, testSecret, jwt.MapClaims{
			"sub":  sub,
			"role": "USER",
			"exp":  time.Now().Add(time.Hour).Unix(),
		})

		rec := runRequest(e, "Bearer "+token, "/me")

		assert.Equal(t, http.StatusOK, rec.Code)
		var body map[string]interface{}
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, float64(42), body["user_id"])
		assert.Equal(t, "USER", body["role"])
	}
}

func TestMiddleware_AdminRoleGuard_ForbiddenForUser(t *testing.T) {
	e := newProtectedEcho()
	token := mustMakeJWT(t, testSecret, jwt.MapClaims{
		"sub":  "1",
		"role": "USER",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	rec := runRequest(e, "Bearer "+token, "/admin")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "admin only", decodeMWError(t, rec).Error)
}

func TestMiddleware_AdminRoleGuard_AllowsAdmin(t *testing.T) {
	e := newProtectedEcho()
	token := mustMakeJWT(t, testSecret, jwt.MapClaims{
		"sub":  "1",
		"role": "ADMIN",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	rec := runRequest(e, "Bearer "+token, "/admin")

	assert.Equal(t, http.StatusOK, rec.Code)
}
