package api

import (
	"ledger/database"
	"ledger/middleware"
	"ledger/models"
	"ledger/query"

	"github.com/gin-gonic/gin"
)

// ProfileHandler 档案处理器
type ProfileHandler struct{}

// NewProfileHandler 创建档案处理器
func NewProfileHandler() *ProfileHandler {
	return &ProfileHandler{}
}

// ListProfiles 档案列表
// @Summary 档案列表
// @Description 分页查询用户档案，管理员与经理可用
// @Tags 档案
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Param role query string false "角色" Enums(administrator, manager, viewer)
// @Param active query bool false "启用状态"
// @Success 200 {object} PageResponse{data=[]models.Profile} "查询成功"
// @Failure 403 {object} Response "权限不足"
// @Router /api/profiles [get]
func (h *ProfileHandler) ListProfiles(c *gin.Context) {
	page, limit := parsePagination(c, 20)

	tx := database.DB.Model(&models.Profile{})
	if role := c.Query("role"); role != "" {
		if !models.Role(role).Valid() {
			BadRequest(c, CodeValidationError, "角色必须为 administrator/manager/viewer 之一")
			return
		}
		tx = tx.Where("role = ?", role)
	}
	if active := c.Query("active"); active != "" {
		tx = tx.Where("active = ?", active == "true")
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "查询档案失败"))
		return
	}

	var profiles []models.Profile
	if err := tx.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&profiles).Error; err != nil {
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "查询档案失败"))
		return
	}

	Page(c, profiles, page, limit, total)
}

// GetProfile 查询单个档案
// @Summary 查询单个档案
// @Description 普通用户只能查询自己的档案，管理员与经理可查询任意档案
// @Tags 档案
// @Produce json
// @Security BearerAuth
// @Param id path string true "用户ID"
// @Success 200 {object} Response{data=models.Profile} "查询成功"
// @Failure 403 {object} Response "只能查看自己的档案"
// @Failure 404 {object} Response "档案不存在"
// @Router /api/profiles/{id} [get]
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	targetID := c.Param("id")
	identity, _ := middleware.GetIdentity(c)

	if !canTouchProfile(identity, targetID) {
		Forbidden(c, CodeAccessDenied, "只能查看自己的档案")
		return
	}

	var profile models.Profile
	if err := database.DB.Where("user_id = ?", targetID).First(&profile).Error; err != nil {
		NotFound(c, middleware.CodeUserNotFound, "档案不存在")
		return
	}

	Success(c, profile)
}

// UpdateProfileRequest 更新档案请求，字段均可选
type UpdateProfileRequest struct {
	Name   *string `json:"name" binding:"omitempty,max=50"`
	Phone  *string `json:"phone" binding:"omitempty,max=20"`
	Avatar *string `json:"avatar" binding:"omitempty,max=255"`
	Role   *string `json:"role" binding:"omitempty,role"`
	Active *bool   `json:"active"`
}

// UpdateProfile 更新档案
// @Summary 更新档案
// @Description 普通用户只能更新自己的基础信息；角色与启用状态仅管理员可改
// @Tags 档案
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "用户ID"
// @Param request body UpdateProfileRequest true "待更新字段"
// @Success 200 {object} Response "更新成功"
// @Failure 400 {object} Response "无可更新字段"
// @Failure 403 {object} Response "权限不足"
// @Failure 404 {object} Response "档案不存在"
// @Router /api/profiles/{id} [put]
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	targetID := c.Param("id")
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		Unauthorized(c, middleware.CodeNoToken, "未登录")
		return
	}

	if !canTouchProfile(identity, targetID) {
		Forbidden(c, CodeAccessDenied, "只能修改自己的档案")
		return
	}

	var req UpdateProfileRequest
	if !BindJSON(c, &req) {
		return
	}

	// 角色与启用状态是权限敏感字段，只有管理员能改
	if (req.Role != nil || req.Active != nil) && identity.Role != models.RoleAdministrator {
		Forbidden(c, CodeAccessDenied, "无权修改角色或启用状态")
		return
	}
	// 管理员也不能借档案接口改自己的角色或停用自己
	if targetID == identity.UserID && (req.Role != nil || req.Active != nil) {
		BadRequest(c, CodeCannotModifySelf, "不能修改自己的角色或启用状态")
		return
	}

	var count int64
	if err := database.DB.Model(&models.Profile{}).Where("user_id = ?", targetID).Count(&count).Error; err != nil {
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "更新档案失败"))
		return
	}
	if count == 0 {
		NotFound(c, middleware.CodeUserNotFound, "档案不存在")
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Avatar != nil {
		updates["avatar"] = *req.Avatar
	}
	if req.Role != nil {
		updates["role"] = *req.Role
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}

	sql, params, err := query.BuildUpdateQuery("profiles", updates, "`user_id` = ?", []interface{}{targetID})
	if err != nil {
		if err == query.ErrNoUpdateFields {
			BadRequest(c, CodeNoUpdateFields, "没有需要更新的字段")
			return
		}
		InternalError(c, CodeInternalError, SafeErrorMessage(err, "更新档案失败"))
		return
	}
	if err := database.DB.Exec(sql, params...).Error; err != nil {
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "更新档案失败"))
		return
	}

	SuccessWithMessage(c, "档案更新成功", nil)
}

// canTouchProfile 档案访问控制：本人或管理员/经理
func canTouchProfile(identity middleware.Identity, targetID string) bool {
	if identity.UserID == targetID {
		return true
	}
	switch identity.Role {
	case models.RoleAdministrator, models.RoleManager:
		return true
	case models.RoleViewer:
		return false
	default:
		return false
	}
}
