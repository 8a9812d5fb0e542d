package api

import (
	"ledger/database"
	"ledger/middleware"
	"ledger/models"
	"ledger/query"

	"github.com/gin-gonic/gin"
)

// SubcategoryHandler 子类别处理器
type SubcategoryHandler struct{}

// NewSubcategoryHandler 创建子类别处理器
func NewSubcategoryHandler() *SubcategoryHandler {
	return &SubcategoryHandler{}
}

// ListSubcategories 子类别列表
// @Summary 子类别列表
// @Description 分页查询子类别，可按所属类别过滤，按名称排序
// @Tags 子类别
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(50)
// @Param category_id query string false "所属类别ID"
// @Success 200 {object} PageResponse{data=[]models.Subcategory} "查询成功"
// @Router /api/subcategories [get]
func (h *SubcategoryHandler) ListSubcategories(c *gin.Context) {
	page, limit := parsePagination(c, 50)

	tx := database.DB.Model(&models.Subcategory{})
	if categoryID := c.Query("category_id"); categoryID != "" {
		tx = tx.Where("category_id = ?", categoryID)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "查询子类别失败"))
		return
	}

	var subcategories []models.Subcategory
	if err := tx.Order("name ASC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&subcategories).Error; err != nil {
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "查询子类别失败"))
		return
	}

	Page(c, subcategories, page, limit, total)
}

// SubcategoryRequest 创建子类别请求
type SubcategoryRequest struct {
	Name       string `json:"name" binding:"required,max=50"`
	CategoryID string `json:"category_id" binding:"required,catid"`
}

// CreateSubcategory 创建子类别
// @Summary 创建子类别
// @Description 在指定类别下创建子类别，名称在类别内唯一
// @Tags 子类别
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SubcategoryRequest true "子类别信息"
// @Success 200 {object} Response{data=models.Subcategory} "创建成功"
// @Failure 404 {object} Response "类别不存在"
// @Failure 409 {object} Response "子类别名称已存在"
// @Router /api/subcategories [post]
func (h *SubcategoryHandler) CreateSubcategory(c *gin.Context) {
	var req SubcategoryRequest
	if !BindJSON(c, &req) {
		return
	}

	if err := query.FindResourceOrFail(database.DB, "categories", "id", req.CategoryID,
		CodeCategoryNotFound, "类别不存在"); err != nil {
		respondLookupError(c, err)
		return
	}

	var count int64
	if err := database.DB.Model(&models.Subcategory{}).
		Where("category_id = ? AND name = ?", req.CategoryID, req.Name).
		Count(&count).Error; err != nil {
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "创建子类别失败"))
		return
	}
	if count > 0 {
		Conflict(c, CodeSubcategoryExists, "该类别下已存在同名子类别")
		return
	}

	id, err := query.NextPrefixedID(database.DB, "subcategories", "sub", req.Name)
	if err != nil {
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "创建子类别失败"))
		return
	}

	subcategory := models.Subcategory{
		ID:         id,
		Name:       req.Name,
		CategoryID: req.CategoryID,
		CreatedBy:  middleware.GetCurrentUserID(c),
	}
	if err := database.DB.Create(&subcategory).Error; err != nil {
		if isDuplicateKeyErr(err) {
			Conflict(c, CodeSubcategoryExists, "该类别下已存在同名子类别")
			return
		}
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "创建子类别失败"))
		return
	}

	SuccessWithMessage(c, "子类别创建成功", subcategory)
}

// UpdateSubcategoryRequest 更新子类别请求
type UpdateSubcategoryRequest struct {
	Name string `json:"name" binding:"required,max=50"`
}

// UpdateSubcategory 更新子类别
// @Summary 更新子类别
// @Description 重命名子类别，新名称在所属类别内不能冲突
// @Tags 子类别
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "子类别ID"
// @Param request body UpdateSubcategoryRequest true "子类别信息"
// @Success 200 {object} Response "更新成功"
// @Failure 404 {object} Response "子类别不存在"
// @Failure 409 {object} Response "子类别名称已存在"
// @Router /api/subcategories/{id} [put]
func (h *SubcategoryHandler) UpdateSubcategory(c *gin.Context) {
	id := c.Param("id")

	var req UpdateSubcategoryRequest
	if !BindJSON(c, &req) {
		return
	}

	var subcategory models.Subcategory
	if err := database.DB.First(&subcategory, "id = ?", id).Error; err != nil {
		NotFound(c, CodeSubcategoryNotFound, "子类别不存在")
		return
	}

	var count int64
	if err := database.DB.Model(&models.Subcategory{}).
		Where("category_id = ? AND name = ? AND id != ?", subcategory.CategoryID, req.Name, id).
		Count(&count).Error; err != nil {
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "更新子类别失败"))
		return
	}
	if count > 0 {
		Conflict(c, CodeSubcategoryExists, "该类别下已存在同名子类别")
		return
	}

	sql, params, err := query.BuildUpdateQuery("subcategories",
		map[string]interface{}{"name": req.Name},
		"`id` = ?", []interface{}{id})
	if err != nil {
		InternalError(c, CodeInternalError, SafeErrorMessage(err, "更新子类别失败"))
		return
	}
	if err := database.DB.Exec(sql, params...).Error; err != nil {
		if isDuplicateKeyErr(err) {
			Conflict(c, CodeSubcategoryExists, "该类别下已存在同名子类别")
			return
		}
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "更新子类别失败"))
		return
	}

	SuccessWithMessage(c, "子类别更新成功", nil)
}

// DeleteSubcategory 删除子类别
// @Summary 删除子类别
// @Description 删除子类别（软删除）；被交易引用时拒绝
// @Tags 子类别
// @Produce json
// @Security BearerAuth
// @Param id path string true "子类别ID"
// @Success 200 {object} Response "删除成功"
// @Failure 400 {object} Response "子类别仍被使用"
// @Failure 404 {object} Response "子类别不存在"
// @Router /api/subcategories/{id} [delete]
func (h *SubcategoryHandler) DeleteSubcategory(c *gin.Context) {
	id := c.Param("id")

	if err := query.FindResourceOrFail(database.DB, "subcategories", "id", id,
		CodeSubcategoryNotFound, "子类别不存在"); err != nil {
		respondLookupError(c, err)
		return
	}

	var txnCount int64
	if err := database.DB.Model(&models.Transaction{}).Where("subcategory_id = ?", id).Count(&txnCount).Error; err != nil {
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "删除子类别失败"))
		return
	}
	if txnCount > 0 {
		BadRequest(c, CodeSubcategoryInUse, "子类别已被交易引用，不能删除")
		return
	}

	if err := database.DB.Delete(&models.Subcategory{}, "id = ?", id).Error; err != nil {
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "删除子类别失败"))
		return
	}

	SuccessWithMessage(c, "子类别删除成功", nil)
}
