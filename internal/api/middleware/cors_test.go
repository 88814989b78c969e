package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/qs3c/trademint_server/config"
)

var checkoutCORS = config.CORSConfig{
	AllowedOrigins: []string{"https://app.trademint.io", "http://localhost:3000/"},
	AllowedMethods: []string{"GET", "POST", "PATCH"},
	AllowedHeaders: []string{"Content-Type", "Authorization"},
}

func corsRouter(cfg config.CORSConfig) *gin.Engine {
	router := gin.New()
	router.Use(CORS(cfg))
	router.POST("/api/v1/payments/create-order", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"order_id": "order_1"})
	})
	return router
}

func corsRequest(router *gin.Engine, method, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/v1/payments/create-order", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if method == http.MethodOptions {
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		cfg         config.CORSConfig
		method      string
		origin      string
		wantStatus  int
		wantAllowed bool
	}{
		{"listed origin", checkoutCORS, http.MethodPost, "https://app.trademint.io", http.StatusOK, true},
		{"trailing slash in config", checkoutCORS, http.MethodPost, "http://localhost:3000", http.StatusOK, true},
		{"unlisted origin still served", checkoutCORS, http.MethodPost, "https://evil.example", http.StatusOK, false},
		{"same origin request", checkoutCORS, http.MethodPost, "", http.StatusOK, false},
		{"preflight listed", checkoutCORS, http.MethodOptions, "https://app.trademint.io", http.StatusNoContent, true},
		{"preflight unlisted", checkoutCORS, http.MethodOptions, "https://evil.example", http.StatusForbidden, false},
		{"preflight no origin", checkoutCORS, http.MethodOptions, "", http.StatusForbidden, false},
		{"wildcard", config.CORSConfig{AllowedOrigins: []string{"*"}}, http.MethodPost, "https://any.example", http.StatusOK, true},
		{"empty config", config.CORSConfig{}, http.MethodPost, "https://app.trademint.io", http.StatusOK, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := corsRequest(corsRouter(tt.cfg), tt.method, tt.origin)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantAllowed {
				assert.Equal(t, tt.origin, w.Header().Get("Access-Control-Allow-Origin"))
				assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
				assert.Contains(t, w.Header().Values("Vary"), "Origin")
			} else {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Methods"))
			}
		})
	}
}

func TestCORS_PreflightHeaders(t *testing.T) {
	w := corsRequest(corsRouter(checkoutCORS), http.MethodOptions, "https://app.trademint.io")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "GET, POST, PATCH", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type, Authorization", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
	assert.Empty(t, w.Body.String())
}
