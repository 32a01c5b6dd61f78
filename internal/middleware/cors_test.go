package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	req := require.New(t)
	h := CORS([]string{"http://localhost:3000"})(okHandler())

	r := httptest.NewRequest(http.MethodGet, "/api/sessions/x", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, r)

	req.Equal(http.StatusOK, resp.Code)
	req.Equal("http://localhost:3000", resp.Header().Get("Access-Control-Allow-Origin"))
	req.Equal("true", resp.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSRejectsOtherOrigin(t *testing.T) {
	req := require.New(t)
	h := CORS([]string{"http://localhost:3000"})(okHandler())

	r := httptest.NewRequest(http.MethodGet, "/api/sessions/x", nil)
	r.Header.Set("Origin", "http://evil.test")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, r)

	req.Empty(resp.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	req := require.New(t)
	h := CORS([]string{"http://localhost:3000"})(okHandler())

	r := httptest.NewRequest(http.MethodOptions, "/api/tts/generate", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, r)

	req.Equal("http://localhost:3000", resp.Header().Get("Access-Control-Allow-Origin"))
	req.Contains(resp.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}
