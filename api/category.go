package api

import (
	"ledger/database"
	"ledger/middleware"
	"ledger/models"
	"ledger/query"

	"github.com/gin-gonic/gin"
)

// CategoryHandler 交易类别处理器
type CategoryHandler struct{}

// NewCategoryHandler 创建类别处理器
func NewCategoryHandler() *CategoryHandler {
	return &CategoryHandler{}
}

// ListCategories 类别列表
// @Summary 类别列表
// @Description 分页查询交易类别，支持名称模糊匹配，按名称排序
// @Tags 类别
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(50)
// @Param name query string false "名称模糊匹配"
// @Success 200 {object} PageResponse{data=[]models.Category} "查询成功"
// @Router /api/categories [get]
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	page, limit := parsePagination(c, 50)

	tx := database.DB.Model(&models.Category{})
	if name := c.Query("name"); name != "" {
		tx = tx.Where("name LIKE ?", "%"+name+"%")
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "查询类别失败"))
		return
	}

	var categories []models.Category
	if err := tx.Order("name ASC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&categories).Error; err != nil {
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "查询类别失败"))
		return
	}

	Page(c, categories, page, limit, total)
}

// GetCategory 查询单个类别（含子类别）
// @Summary 查询单个类别
// @Description 查询类别及其下的全部子类别
// @Tags 类别
// @Produce json
// @Security BearerAuth
// @Param id path string true "类别ID"
// @Success 200 {object} Response "查询成功"
// @Failure 404 {object} Response "类别不存在"
// @Router /api/categories/{id} [get]
func (h *CategoryHandler) GetCategory(c *gin.Context) {
	id := c.Param("id")

	var category models.Category
	if err := database.DB.First(&category, "id = ?", id).Error; err != nil {
		NotFound(c, CodeCategoryNotFound, "类别不存在")
		return
	}

	var subcategories []models.Subcategory
	if err := database.DB.Where("category_id = ?", id).
		Order("name ASC").Find(&subcategories).Error; err != nil {
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "查询子类别失败"))
		return
	}

	Success(c, gin.H{
		"category":      category,
		"subcategories": subcategories,
	})
}

// CategoryRequest 创建/更新类别请求
type CategoryRequest struct {
	Name string `json:"name" binding:"required,max=50"`
}

// CreateCategory 创建类别
// @Summary 创建类别
// @Description 创建交易类别，名称全局唯一，ID 由名称自动派生
// @Tags 类别
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CategoryRequest true "类别信息"
// @Success 200 {object} Response{data=models.Category} "创建成功"
// @Failure 409 {object} Response "类别名称已存在"
// @Router /api/categories [post]
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req CategoryRequest
	if !BindJSON(c, &req) {
		return
	}

	var count int64
	if err := database.DB.Model(&models.Category{}).Where("name = ?", req.Name).Count(&count).Error; err != nil {
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "创建类别失败"))
		return
	}
	if count > 0 {
		Conflict(c, CodeCategoryExists, "类别名称已存在")
		return
	}

	id, err := query.NextPrefixedID(database.DB, "categories", "cat", req.Name)
	if err != nil {
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "创建类别失败"))
		return
	}

	category := models.Category{
		ID:        id,
		Name:      req.Name,
		CreatedBy: middleware.GetCurrentUserID(c),
	}
	if err := database.DB.Create(&category).Error; err != nil {
		if isDuplicateKeyErr(err) {
			Conflict(c, CodeCategoryExists, "类别名称已存在")
			return
		}
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "创建类别失败"))
		return
	}

	SuccessWithMessage(c, "类别创建成功", category)
}

// UpdateCategory 更新类别
// @Summary 更新类别
// @Description 重命名类别，新名称不能与其他类别冲突
// @Tags 类别
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "类别ID"
// @Param request body CategoryRequest true "类别信息"
// @Success 200 {object} Response "更新成功"
// @Failure 404 {object} Response "类别不存在"
// @Failure 409 {object} Response "类别名称已存在"
// @Router /api/categories/{id} [put]
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	id := c.Param("id")

	var req CategoryRequest
	if !BindJSON(c, &req) {
		return
	}

	if err := query.FindResourceOrFail(database.DB, "categories", "id", id,
		CodeCategoryNotFound, "类别不存在"); err != nil {
		respondLookupError(c, err)
		return
	}

	var count int64
	if err := database.DB.Model(&models.Category{}).
		Where("name = ? AND id != ?", req.Name, id).
		Count(&count).Error; err != nil {
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "更新类别失败"))
		return
	}
	if count > 0 {
		Conflict(c, CodeCategoryExists, "类别名称已存在")
		return
	}

	sql, params, err := query.BuildUpdateQuery("categories",
		map[string]interface{}{"name": req.Name},
		"`id` = ?", []interface{}{id})
	if err != nil {
		InternalError(c, CodeInternalError, SafeErrorMessage(err, "更新类别失败"))
		return
	}
	if err := database.DB.Exec(sql, params...).Error; err != nil {
		if isDuplicateKeyErr(err) {
			Conflict(c, CodeCategoryExists, "类别名称已存在")
			return
		}
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "更新类别失败"))
		return
	}

	SuccessWithMessage(c, "类别更新成功", nil)
}

// DeleteCategory 删除类别
// @Summary 删除类别
// @Description 删除类别（软删除）；有子类别或被交易引用时拒绝
// @Tags 类别
// @Produce json
// @Security BearerAuth
// @Param id path string true "类别ID"
// @Success 200 {object} Response "删除成功"
// @Failure 400 {object} Response "类别仍被使用"
// @Failure 404 {object} Response "类别不存在"
// @Router /api/categories/{id} [delete]
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id := c.Param("id")

	if err := query.FindResourceOrFail(database.DB, "categories", "id", id,
		CodeCategoryNotFound, "类别不存在"); err != nil {
		respondLookupError(c, err)
		return
	}

	// 先查子类别，再查交易引用，两道闸都过了才能删
	var subCount int64
	if err := database.DB.Model(&models.Subcategory{}).Where("category_id = ?", id).Count(&subCount).Error; err != nil {
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "删除类别失败"))
		return
	}
	if subCount > 0 {
		BadRequest(c, CodeCategoryHasSubcats, "类别下存在子类别，请先删除子类别")
		return
	}

	var txnCount int64
	if err := database.DB.Model(&models.Transaction{}).Where("category_id = ?", id).Count(&txnCount).Error; err != nil {
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "删除类别失败"))
		return
	}
	if txnCount > 0 {
		BadRequest(c, CodeCategoryInUse, "类别已被交易引用，不能删除")
		return
	}

	if err := database.DB.Delete(&models.Category{}, "id = ?", id).Error; err != nil {
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "删除类别失败"))
		return
	}

	SuccessWithMessage(c, "类别删除成功", nil)
}
