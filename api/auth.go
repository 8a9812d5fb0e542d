package api

import (
	"errors"
	"net/http"
	"time"

	"ledger/config"
	"ledger/database"
	"ledger/middleware"
	"ledger/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	cfg *config.Config
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{cfg: cfg}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"user@example.com"`
	Password string `json:"password" binding:"required" example:"password123"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	AccessToken  string              `json:"access_token"`
	RefreshToken string              `json:"refresh_token"`
	User         middleware.Identity `json:"user"`
}

// Login 用户登录
// @Summary 用户登录
// @Description 邮箱 + 密码登录，签发 access token 与 refresh token
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body LoginRequest true "登录信息"
// @Success 200 {object} Response{data=LoginResponse} "登录成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "邮箱或密码错误"
// @Failure 403 {object} Response "账号已停用"
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !BindJSON(c, &req) {
		return
	}

	var user models.User
	if err := database.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		Unauthorized(c, CodeInvalidCredentials, "邮箱或密码错误")
		return
	}

	// 验证密码
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		Unauthorized(c, CodeInvalidCredentials, "邮箱或密码错误")
		return
	}

	var profile models.Profile
	if err := database.DB.Where("user_id = ?", user.ID).First(&profile).Error; err != nil {
		Unauthorized(c, middleware.CodeUserNotFound, "用户档案不存在")
		return
	}
	if !profile.Active {
		Forbidden(c, CodeAccessDenied, "账号已停用，请联系管理员")
		return
	}

	accessToken, err := middleware.GenerateToken(user.ID, middleware.TokenKindAccess)
	if err != nil {
		InternalError(c, CodeInternalError, "生成 token 失败")
		return
	}
	refreshToken, err := middleware.GenerateToken(user.ID, middleware.TokenKindRefresh)
	if err != nil {
		InternalError(c, CodeInternalError, "生成 token 失败")
		return
	}

	// 记录最近登录时间，失败不影响登录
	now := time.Now()
	_ = database.DB.Model(&models.Profile{}).Where("user_id = ?", user.ID).
		Update("last_login_at", now).Error

	Success(c, LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User: middleware.Identity{
			UserID: user.ID,
			Email:  user.Email,
			Name:   profile.Name,
			Role:   profile.Role,
		},
	})
}

// RefreshRequest 换发 token 请求
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh 换发 token
// @Summary 换发 token
// @Description 使用 refresh token 换发新的 access/refresh token
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "refresh token"
// @Success 200 {object} Response{data=LoginResponse} "换发成功"
// @Failure 401 {object} Response "refresh token 无效或已过期"
// @Router /api/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if !BindJSON(c, &req) {
		return
	}

	claims, err := middleware.ParseToken(req.RefreshToken)
	if err != nil {
		if errors.Is(err, middleware.ErrTokenExpired) {
			Unauthorized(c, middleware.CodeTokenExpired, "refresh token 已过期，请重新登录")
			return
		}
		Unauthorized(c, middleware.CodeInvalidToken, "无效的 refresh token")
		return
	}
	if claims.Kind != middleware.TokenKindRefresh {
		Unauthorized(c, middleware.CodeInvalidToken, "token 类型错误")
		return
	}

	// 换发前确认用户仍然有效
	var profile models.Profile
	if err := database.DB.Where("user_id = ? AND active = ?", claims.UserID, true).First(&profile).Error; err != nil {
		Unauthorized(c, middleware.CodeUserNotFound, "用户不存在或已停用")
		return
	}
	var user models.User
	if err := database.DB.First(&user, "id = ?", claims.UserID).Error; err != nil {
		Unauthorized(c, middleware.CodeUserNotFound, "用户不存在或已停用")
		return
	}

	accessToken, err := middleware.GenerateToken(user.ID, middleware.TokenKindAccess)
	if err != nil {
		InternalError(c, CodeInternalError, "生成 token 失败")
		return
	}
	refreshToken, err := middleware.GenerateToken(user.ID, middleware.TokenKindRefresh)
	if err != nil {
		InternalError(c, CodeInternalError, "生成 token 失败")
		return
	}

	Success(c, LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User: middleware.Identity{
			UserID: user.ID,
			Email:  user.Email,
			Name:   profile.Name,
			Role:   profile.Role,
		},
	})
}

// Me 获取当前用户信息
// @Summary 获取当前用户信息
// @Description 获取当前登录用户的档案信息
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=models.Profile} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var profile models.Profile
	if err := database.DB.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		NotFound(c, middleware.CodeUserNotFound, "用户不存在")
		return
	}
	var user models.User
	if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
		NotFound(c, middleware.CodeUserNotFound, "用户不存在")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"id":            user.ID,
			"email":         user.Email,
			"name":          profile.Name,
			"phone":         profile.Phone,
			"role":          profile.Role,
			"active":        profile.Active,
			"avatar":        profile.Avatar,
			"last_login_at": profile.LastLoginAt,
			"created_at":    user.CreatedAt,
		},
	})
}

// ChangePasswordRequest 修改密码请求
// 新密码需与确认密码一致（跨字段校验）
type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6,max=50"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=NewPassword"`
}

// ChangePassword 修改密码
// @Summary 修改当前用户密码
// @Description 自助修改密码，需要提供原密码和两次一致的新密码
// @Tags 认证
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "密码信息"
// @Success 200 {object} Response "修改成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "原密码错误"
// @Router /api/auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req ChangePasswordRequest
	if !BindJSON(c, &req) {
		return
	}

	var user models.User
	if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
		NotFound(c, middleware.CodeUserNotFound, "用户不存在")
		return
	}

	// 验证旧密码
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		Unauthorized(c, CodeInvalidCredentials, "原密码错误")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		InternalError(c, CodeInternalError, "密码加密失败")
		return
	}

	if err := database.DB.Model(&user).Update("password", string(hashed)).Error; err != nil {
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "更新密码失败"))
		return
	}

	SuccessWithMessage(c, "密码修改成功", nil)
}
