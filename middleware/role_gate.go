package middleware

import (
	"net/http"

	"ledger/models"

	"github.com/gin-gonic/gin"
)

// RequireAdmin 仅管理员可通过，需在 Auth 之后使用
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok {
			abortUnauthorized(c, CodeNoToken, "缺少认证信息，请先登录")
			return
		}
		switch identity.Role {
		case models.RoleAdministrator:
			c.Next()
		case models.RoleManager, models.RoleViewer:
			abortForbidden(c, CodeAdminRequired, "仅管理员可执行此操作")
		default:
			abortForbidden(c, CodeAdminRequired, "仅管理员可执行此操作")
		}
	}
}

// RequireAdminOrManager 管理员或财务经理可通过，需在 Auth 之后使用
func RequireAdminOrManager() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok {
			abortUnauthorized(c, CodeNoToken, "缺少认证信息，请先登录")
			return
		}
		switch identity.Role {
		case models.RoleAdministrator, models.RoleManager:
			c.Next()
		case models.RoleViewer:
			abortForbidden(c, CodeInsufficientPermissions, "权限不足")
		default:
			abortForbidden(c, CodeInsufficientPermissions, "权限不足")
		}
	}
}

func abortForbidden(c *gin.Context, code, message string) {
	c.JSON(http.StatusForbidden, gin.H{
		"success": false,
		"code":    code,
		"error":   message,
	})
	c.Abort()
}
