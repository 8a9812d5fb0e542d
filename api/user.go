package api

import (
	"crypto/rand"
	"log"
	"math/big"

	"ledger/database"
	"ledger/middleware"
	"ledger/models"
	"ledger/query"
	"ledger/service"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserHandler 用户管理处理器（仅管理员可用）
type UserHandler struct {
	email *service.EmailService
}

// NewUserHandler 创建用户管理处理器
func NewUserHandler(email *service.EmailService) *UserHandler {
	return &UserHandler{email: email}
}

// UserView 用户列表视图（users 与 profiles 的拼接结果）
type UserView struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	Name        string  `json:"name"`
	Phone       *string `json:"phone"`
	Role        string  `json:"role"`
	Active      bool    `json:"active"`
	Avatar      *string `json:"avatar"`
	LastLoginAt *string `json:"last_login_at"`
	CreatedAt   string  `json:"created_at"`
}

// ListUsers 用户列表
// @Summary 用户列表
// @Description 分页查询用户，支持按邮箱模糊、角色、启用状态筛选
// @Tags 用户管理
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Param email query string false "邮箱模糊匹配"
// @Param role query string false "角色" Enums(administrator, manager, viewer)
// @Param active query bool false "启用状态"
// @Success 200 {object} PageResponse{data=[]UserView} "查询成功"
// @Failure 403 {object} Response "需要管理员权限"
// @Router /api/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	page, limit := parsePagination(c, 20)

	tx := database.DB.Table("users").
		Select("users.id, users.email, users.created_at, profiles.name, profiles.phone, profiles.role, profiles.active, profiles.avatar, profiles.last_login_at").
		Joins("JOIN profiles ON profiles.user_id = users.id").
		Where("users.deleted_at IS NULL")

	if email := c.Query("email"); email != "" {
		tx = tx.Where("users.email LIKE ?", "%"+email+"%")
	}
	if role := c.Query("role"); role != "" {
		if !models.Role(role).Valid() {
			BadRequest(c, CodeValidationError, "角色必须为 administrator/manager/viewer 之一")
			return
		}
		tx = tx.Where("profiles.role = ?", role)
	}
	if active := c.Query("active"); active != "" {
		tx = tx.Where("profiles.active = ?", active == "true")
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "查询用户失败"))
		return
	}

	var users []UserView
	if err := tx.Order("users.created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Scan(&users).Error; err != nil {
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "查询用户失败"))
		return
	}

	Page(c, users, page, limit, total)
}

// CreateUserRequest 创建用户请求
type CreateUserRequest struct {
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=6,max=50"`
	Name     string  `json:"name" binding:"required,max=50"`
	Phone    *string `json:"phone" binding:"omitempty,max=20"`
	Role     string  `json:"role" binding:"required,role"`
	Active   *bool   `json:"active"`
}

// CreateUser 创建用户
// @Summary 创建用户
// @Description 管理员创建新用户，用户与档案在同一事务中落库
// @Tags 用户管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateUserRequest true "用户信息"
// @Success 200 {object} Response{data=UserView} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 409 {object} Response "邮箱已存在"
// @Router /api/users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if !BindJSON(c, &req) {
		return
	}

	var count int64
	if err := database.DB.Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "创建用户失败"))
		return
	}
	if count > 0 {
		Conflict(c, CodeEmailExists, "邮箱已被注册")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		InternalError(c, CodeInternalError, "密码加密失败")
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	user := models.User{
		Email:    req.Email,
		Password: string(hashed),
	}
	profile := models.Profile{
		Name:   req.Name,
		Phone:  req.Phone,
		Role:   models.Role(req.Role),
		Active: active,
	}

	// 用户与档案一起创建，任一失败整体回滚
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		profile.UserID = user.ID
		return tx.Create(&profile).Error
	})
	if err != nil {
		if isDuplicateKeyErr(err) {
			Conflict(c, CodeEmailExists, "邮箱已被注册")
			return
		}
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "创建用户失败"))
		return
	}

	SuccessWithMessage(c, "用户创建成功", UserView{
		ID:        user.ID,
		Email:     user.Email,
		Name:      profile.Name,
		Phone:     profile.Phone,
		Role:      string(profile.Role),
		Active:    profile.Active,
		CreatedAt: user.CreatedAt.Format("2006-01-02 15:04:05"),
	})
}

// UpdateUserRequest 更新用户请求，字段均可选
type UpdateUserRequest struct {
	Email  *string `json:"email" binding:"omitempty,email"`
	Name   *string `json:"name" binding:"omitempty,max=50"`
	Phone  *string `json:"phone" binding:"omitempty,max=20"`
	Role   *string `json:"role" binding:"omitempty,role"`
	Active *bool   `json:"active"`
}

// UpdateUser 更新用户
// @Summary 更新用户
// @Description 管理员部分更新用户信息；不允许修改自己的角色或停用自己
// @Tags 用户管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "用户ID"
// @Param request body UpdateUserRequest true "待更新字段"
// @Success 200 {object} Response "更新成功"
// @Failure 400 {object} Response "无可更新字段或试图修改自己"
// @Failure 404 {object} Response "用户不存在"
// @Failure 409 {object} Response "邮箱已存在"
// @Router /api/users/{id} [put]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	targetID := c.Param("id")
	currentID := middleware.GetCurrentUserID(c)

	var req UpdateUserRequest
	if !BindJSON(c, &req) {
		return
	}

	// 管理员不能修改自己的角色或停用自己，避免把系统锁死
	if targetID == currentID && (req.Role != nil || req.Active != nil) {
		BadRequest(c, CodeCannotModifySelf, "不能修改自己的角色或启用状态")
		return
	}

	if err := query.FindResourceOrFail(database.DB, "users", "id", targetID,
		middleware.CodeUserNotFound, "用户不存在"); err != nil {
		respondLookupError(c, err)
		return
	}

	if req.Email != nil {
		var count int64
		if err := database.DB.Model(&models.User{}).
			Where("email = ? AND id != ?", *req.Email, targetID).
			Count(&count).Error; err != nil {
			InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "更新用户失败"))
			return
		}
		if count > 0 {
			Conflict(c, CodeEmailExists, "邮箱已被注册")
			return
		}
	}

	userUpdates := map[string]interface{}{}
	if req.Email != nil {
		userUpdates["email"] = *req.Email
	}
	profileUpdates := map[string]interface{}{}
	if req.Name != nil {
		profileUpdates["name"] = *req.Name
	}
	if req.Phone != nil {
		profileUpdates["phone"] = *req.Phone
	}
	if req.Role != nil {
		profileUpdates["role"] = *req.Role
	}
	if req.Active != nil {
		profileUpdates["active"] = *req.Active
	}

	if len(userUpdates) == 0 && len(profileUpdates) == 0 {
		BadRequest(c, CodeNoUpdateFields, "没有需要更新的字段")
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if len(userUpdates) > 0 {
			sql, params, err := query.BuildUpdateQuery("users", userUpdates, "`id` = ?", []interface{}{targetID})
			if err != nil {
				return err
			}
			if err := tx.Exec(sql, params...).Error; err != nil {
				return err
			}
		}
		if len(profileUpdates) > 0 {
			sql, params, err := query.BuildUpdateQuery("profiles", profileUpdates, "`user_id` = ?", []interface{}{targetID})
			if err != nil {
				return err
			}
			if err := tx.Exec(sql, params...).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isDuplicateKeyErr(err) {
			Conflict(c, CodeEmailExists, "邮箱已被注册")
			return
		}
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "更新用户失败"))
		return
	}

	SuccessWithMessage(c, "用户更新成功", nil)
}

// DeleteUser 删除用户
// @Summary 删除用户
// @Description 管理员删除用户（软删除）；不能删除自己
// @Tags 用户管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "用户ID"
// @Success 200 {object} Response "删除成功"
// @Failure 400 {object} Response "不能删除自己"
// @Failure 404 {object} Response "用户不存在"
// @Router /api/users/{id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	targetID := c.Param("id")
	currentID := middleware.GetCurrentUserID(c)

	if targetID == currentID {
		BadRequest(c, CodeCannotDeleteSelf, "不能删除自己的账号")
		return
	}

	if err := query.FindResourceOrFail(database.DB, "users", "id", targetID,
		middleware.CodeUserNotFound, "用户不存在"); err != nil {
		respondLookupError(c, err)
		return
	}

	// 软删除用户并停用档案，已有的交易记录保留 created_by 引用
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.User{}, "id = ?", targetID).Error; err != nil {
			return err
		}
		return tx.Model(&models.Profile{}).Where("user_id = ?", targetID).
			Update("active", false).Error
	})
	if err != nil {
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "删除用户失败"))
		return
	}

	SuccessWithMessage(c, "用户删除成功", nil)
}

// ResetPassword 重置用户密码
// @Summary 重置用户密码
// @Description 管理员为用户生成临时密码；配置了邮件服务时同时发送通知邮件
// @Tags 用户管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "用户ID"
// @Success 200 {object} Response "重置成功，响应中返回临时密码"
// @Failure 400 {object} Response "不能重置自己的密码"
// @Failure 404 {object} Response "用户不存在"
// @Router /api/users/{id}/reset-password [post]
func (h *UserHandler) ResetPassword(c *gin.Context) {
	targetID := c.Param("id")

	// 自己的密码走修改密码接口，这里只给别人发临时密码
	if targetID == middleware.GetCurrentUserID(c) {
		BadRequest(c, CodeCannotModifySelf, "不能重置自己的密码，请使用修改密码接口")
		return
	}

	var user models.User
	if err := database.DB.First(&user, "id = ?", targetID).Error; err != nil {
		NotFound(c, middleware.CodeUserNotFound, "用户不存在")
		return
	}
	var profile models.Profile
	if err := database.DB.Where("user_id = ?", targetID).First(&profile).Error; err != nil {
		NotFound(c, middleware.CodeUserNotFound, "用户档案不存在")
		return
	}

	tempPassword, err := generateTempPassword(12)
	if err != nil {
		InternalError(c, CodeInternalError, "生成临时密码失败")
		return
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		InternalError(c, CodeInternalError, "密码加密失败")
		return
	}

	if err := database.DB.Model(&user).Update("password", string(hashed)).Error; err != nil {
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "重置密码失败"))
		return
	}

	// 邮件通知尽力而为，发送失败不影响重置结果
	emailSent := false
	if h.email != nil && h.email.Enabled() {
		if err := h.email.SendPasswordResetEmail(user.Email, profile.Name, tempPassword); err != nil {
			log.Printf("发送重置密码邮件失败: %v", err)
		} else {
			emailSent = true
		}
	}

	SuccessWithMessage(c, "密码重置成功", gin.H{
		"temp_password": tempPassword,
		"email_sent":    emailSent,
	})
}

// respondLookupError 将存在性检查的错误映射为响应
func respondLookupError(c *gin.Context, err error) {
	if nf, ok := err.(*query.NotFoundError); ok {
		NotFound(c, nf.Code, nf.Message)
		return
	}
	InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "查询失败"))
}

// generateTempPassword 生成随机临时密码
// 字符集去掉了易混淆的 0/O/1/l/I
func generateTempPassword(length int) (string, error) {
	const charset = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		buf[i] = charset[n.Int64()]
	}
	return string(buf), nil
}
