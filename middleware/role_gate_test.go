package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"ledger/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// withIdentity 测试辅助：直接把身份写入上下文，跳过 token 解析
func withIdentity(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(identityKey, Identity{UserID: "user-1", Role: role})
		c.Next()
	}
}

func roleGateRequest(t *testing.T, gate gin.HandlerFunc, role models.Role) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/guarded", withIdentity(role), gate, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	req := httptest.NewRequest("GET", "/guarded", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAdmin(t *testing.T) {
	w := roleGateRequest(t, RequireAdmin(), models.RoleAdministrator)
	assert.Equal(t, http.StatusOK, w.Code)

	w = roleGateRequest(t, RequireAdmin(), models.RoleManager)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), CodeAdminRequired)

	w = roleGateRequest(t, RequireAdmin(), models.RoleViewer)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), CodeAdminRequired)
}

func TestRequireAdmin_NoIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/guarded", RequireAdmin(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	req := httptest.NewRequest("GET", "/guarded", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), CodeNoToken)
}

func TestRequireAdminOrManager(t *testing.T) {
	w := roleGateRequest(t, RequireAdminOrManager(), models.RoleAdministrator)
	assert.Equal(t, http.StatusOK, w.Code)

	w = roleGateRequest(t, RequireAdminOrManager(), models.RoleManager)
	assert.Equal(t, http.StatusOK, w.Code)

	w = roleGateRequest(t, RequireAdminOrManager(), models.RoleViewer)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), CodeInsufficientPermissions)
}

func TestRequireAdminOrManager_UnknownRole(t *testing.T) {
	// 非法角色一律拒绝
	w := roleGateRequest(t, RequireAdminOrManager(), models.Role("superuser"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
