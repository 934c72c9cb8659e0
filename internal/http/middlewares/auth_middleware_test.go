package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mfonseca/accounthub/internal/auth"
	"github.com/mfonseca/accounthub/internal/http/middlewares"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newProtectedRouter(m *auth.Manager) *gin.Engine {
	mw := middlewares.NewAuthMiddleware(m)

	r := gin.New()
	r.GET("/protected", mw.RequireAuth(), func(c *gin.Context) {
		id, _ := middlewares.UserIDFromContext(c)
		c.String(http.StatusOK, strconv.FormatInt(id, 10))
	})

	return r
}

func TestRequireAuth(t *testing.T) {
	m := auth.NewManager("test-secret", time.Minute)

	valid, err := m.GenerateAccessToken(42, "3")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	expired, err := auth.NewManager("test-secret", -time.Minute).GenerateAccessToken(42, "3")
	if err != nil {
		t.Fatalf("generate expired token: %v", err)
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "whitespace header", header: "   ", wantStatus: http.StatusUnauthorized},
		{name: "prefix only", header: "Bearer ", wantStatus: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer not.a.jwt", wantStatus: http.StatusUnauthorized},
		{name: "expired token", header: "Bearer " + expired, wantStatus: http.StatusUnauthorized},
		{name: "valid token", header: "Bearer " + valid, wantStatus: http.StatusOK, wantBody: "42"},
		// legacy clients sometimes omitted the scheme entirely
		{name: "no bearer prefix", header: valid, wantStatus: http.StatusOK, wantBody: "42"},
	}

	r := newProtectedRouter(m)

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tc.wantStatus, rec.Body.String())
			}

			if tc.wantBody != "" && rec.Body.String() != tc.wantBody {
				t.Fatalf("body = %q, want %q", rec.Body.String(), tc.wantBody)
			}
		})
	}
}
