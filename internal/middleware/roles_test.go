package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func rolesTestRouter(role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if role != "" {
			c.Set("userRole", role)
		}
	})
	router.GET("/admin-only", RequireRoles("admin"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func TestRequireRolesAllowsListedRole(t *testing.T) {
	router := rolesTestRouter("admin")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin-only", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRolesRejectsOtherRoles(t *testing.T) {
	for _, role := range []string{"client", "staff", "manager", ""} {
		router := rolesTestRouter(role)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin-only", nil))
		assert.Equal(t, http.StatusForbidden, w.Code, "role %q should be rejected", role)
	}
}
