package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/maturity-assessment-backend/internal/platform/logger"
)

func adminRouter(token string) *gin.Engine {
	r := gin.New()
	r.Use(NewAdminAuth(logger.Nop(), token).RequireToken())
	r.GET("/api/admin/stats", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestAdminAuth(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		token  string
		header string
		want   int
	}{
		{"valid", "s3cret", "Bearer s3cret", http.StatusOK},
		{"case insensitive scheme", "s3cret", "bearer s3cret", http.StatusOK},
		{"wrong token", "s3cret", "Bearer nope", http.StatusUnauthorized},
		{"missing header", "s3cret", "", http.StatusUnauthorized},
		{"not configured", "", "Bearer anything", http.StatusForbidden},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			adminRouter(tc.token).ServeHTTP(rec, req)
			require.Equal(t, tc.want, rec.Code)
		})
	}
}
