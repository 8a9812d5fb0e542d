package api

import (
	"log"
	"time"

	"ledger/database"
	"ledger/middleware"
	"ledger/models"
	"ledger/query"
	"ledger/service"

	"github.com/gin-gonic/gin"
)

// TransactionHandler 交易记录处理器
type TransactionHandler struct {
	store *service.FileStore
}

// NewTransactionHandler 创建交易处理器
func NewTransactionHandler(store *service.FileStore) *TransactionHandler {
	return &TransactionHandler{store: store}
}

// transactionURI 交易路径参数，流水号格式不对直接拒绝
type transactionURI struct {
	ID string `uri:"id" json:"id" binding:"required,txnid"`
}

// ListTransactionsQuery 交易列表筛选参数
type ListTransactionsQuery struct {
	Type          string `form:"type" json:"type" binding:"omitempty,txntype"`
	CategoryID    string `form:"category_id" json:"category_id" binding:"omitempty,catid"`
	SubcategoryID string `form:"subcategory_id" json:"subcategory_id" binding:"omitempty,subid"`
	Description   string `form:"description" json:"description" binding:"omitempty,max=255"`
	DateFrom      string `form:"date_from" json:"date_from" binding:"omitempty,isodate"`
	DateTo        string `form:"date_to" json:"date_to" binding:"omitempty,isodate"`
}

// ListTransactions 交易列表
// @Summary 交易列表
// @Description 分页查询交易，支持按类型、类别、子类别、描述模糊、日期范围筛选，按日期倒序
// @Tags 交易
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(10)
// @Param type query string false "交易类型" Enums(income, expense)
// @Param category_id query string false "类别ID"
// @Param subcategory_id query string false "子类别ID"
// @Param description query string false "描述模糊匹配"
// @Param date_from query string false "起始日期 (YYYY-MM-DD)"
// @Param date_to query string false "截止日期 (YYYY-MM-DD)"
// @Success 200 {object} PageResponse{data=[]models.Transaction} "查询成功"
// @Router /api/transactions [get]
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	page, limit := parsePagination(c, 10)

	var q ListTransactionsQuery
	if !BindQuery(c, &q) {
		return
	}

	filters := map[string]interface{}{
		"type":             q.Type,
		"category_id":      q.CategoryID,
		"subcategory_id":   q.SubcategoryID,
		"description_like": q.Description,
		"date_date_from":   q.DateFrom,
		"date_date_to":     q.DateTo,
	}

	baseQuery := "SELECT * FROM `transactions` WHERE deleted_at IS NULL"
	countQuery := "SELECT COUNT(*) FROM `transactions` WHERE deleted_at IS NULL"

	listSQL, listParams, err := query.BuildSearchQuery("transactions", baseQuery, filters, nil)
	if err != nil {
		BadRequest(c, CodeValidationError, err.Error())
		return
	}
	countSQL, countParams, err := query.BuildSearchQuery("transactions", countQuery, filters, nil)
	if err != nil {
		BadRequest(c, CodeValidationError, err.Error())
		return
	}

	var total int64
	if err := database.DB.Raw(countSQL, countParams...).Scan(&total).Error; err != nil {
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "查询交易失败"))
		return
	}

	listSQL += " ORDER BY `date` DESC, `id` DESC LIMIT ? OFFSET ?"
	listParams = append(listParams, limit, (page-1)*limit)

	var transactions []models.Transaction
	if err := database.DB.Raw(listSQL, listParams...).Scan(&transactions).Error; err != nil {
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "查询交易失败"))
		return
	}

	Page(c, transactions, page, limit, total)
}

// GetTransaction 查询单笔交易
// @Summary 查询单笔交易
// @Tags 交易
// @Produce json
// @Security BearerAuth
// @Param id path string true "交易ID"
// @Success 200 {object} Response{data=models.Transaction} "查询成功"
// @Failure 404 {object} Response "交易不存在"
// @Router /api/transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	var uri transactionURI
	if !BindURI(c, &uri) {
		return
	}
	id := uri.ID

	var txn models.Transaction
	if err := database.DB.First(&txn, "id = ?", id).Error; err != nil {
		NotFound(c, CodeTransactionNotFound, "交易不存在")
		return
	}

	Success(c, txn)
}

// CreateTransactionRequest 创建交易请求
type CreateTransactionRequest struct {
	Amount        float64 `json:"amount" binding:"required,gt=0"`
	Type          string  `json:"type" binding:"required,txntype"`
	Description   string  `json:"description" binding:"omitempty,max=255"`
	Date          string  `json:"date" binding:"required,isodate"`
	CategoryID    *string `json:"category_id" binding:"omitempty,catid"`
	SubcategoryID *string `json:"subcategory_id" binding:"omitempty,subid"`
	ReceiptURL    *string `json:"receipt_url" binding:"omitempty,max=255"`
}

// validateCategoryRefs 校验类别/子类别引用
// 两者都给出时，子类别还必须归属于给定类别
func validateCategoryRefs(c *gin.Context, categoryID, subcategoryID *string) bool {
	if categoryID != nil {
		if err := query.FindResourceOrFail(database.DB, "categories", "id", *categoryID,
			CodeCategoryNotFound, "类别不存在"); err != nil {
			respondLookupError(c, err)
			return false
		}
	}
	if subcategoryID != nil {
		var sub models.Subcategory
		if err := database.DB.First(&sub, "id = ?", *subcategoryID).Error; err != nil {
			NotFound(c, CodeSubcategoryNotFound, "子类别不存在")
			return false
		}
		if categoryID != nil && sub.CategoryID != *categoryID {
			BadRequest(c, CodeSubcategoryNotInCat, "子类别不属于指定类别")
			return false
		}
	}
	return true
}

// CreateTransaction 创建交易
// @Summary 创建交易
// @Description 创建交易记录，流水号自动分配；类别与子类别引用会被校验
// @Tags 交易
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTransactionRequest true "交易信息"
// @Success 200 {object} Response{data=models.Transaction} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 404 {object} Response "类别或子类别不存在"
// @Router /api/transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	var req CreateTransactionRequest
	if !BindJSON(c, &req) {
		return
	}

	if !validateCategoryRefs(c, req.CategoryID, req.SubcategoryID) {
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		BadRequest(c, CodeValidationError, "日期格式应为 2006-01-02")
		return
	}

	txn := models.Transaction{
		Amount:        req.Amount,
		Type:          req.Type,
		Description:   req.Description,
		Date:          date,
		CategoryID:    req.CategoryID,
		SubcategoryID: req.SubcategoryID,
		ReceiptURL:    req.ReceiptURL,
		CreatedBy:     middleware.GetCurrentUserID(c),
	}

	// 流水号分配与写入之间没有锁，并发下可能撞号，撞了重取一次
	for attempt := 0; attempt < 2; attempt++ {
		id, err := query.NextTransactionID(database.DB)
		if err != nil {
			InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "分配交易流水号失败"))
			return
		}
		txn.ID = id

		err = database.DB.Create(&txn).Error
		if err == nil {
			SuccessWithMessage(c, "交易创建成功", txn)
			return
		}
		if !isDuplicateKeyErr(err) {
			InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "创建交易失败"))
			return
		}
	}
	Conflict(c, CodeDuplicateEntry, "交易流水号冲突，请重试")
}

// UpdateTransactionRequest 更新交易请求，字段均可选
type UpdateTransactionRequest struct {
	Amount        *float64 `json:"amount" binding:"omitempty,gt=0"`
	Type          *string  `json:"type" binding:"omitempty,txntype"`
	Description   *string  `json:"description" binding:"omitempty,max=255"`
	Date          *string  `json:"date" binding:"omitempty,isodate"`
	CategoryID    *string  `json:"category_id" binding:"omitempty,catid"`
	SubcategoryID *string  `json:"subcategory_id" binding:"omitempty,subid"`
	ReceiptURL    *string  `json:"receipt_url" binding:"omitempty,max=255"`
}

// UpdateTransaction 更新交易
// @Summary 更新交易
// @Description 部分更新交易；替换票据时尽力删除旧票据文件
// @Tags 交易
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "交易ID"
// @Param request body UpdateTransactionRequest true "待更新字段"
// @Success 200 {object} Response "更新成功"
// @Failure 400 {object} Response "无可更新字段"
// @Failure 404 {object} Response "交易不存在"
// @Router /api/transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	var uri transactionURI
	if !BindURI(c, &uri) {
		return
	}
	id := uri.ID

	var req UpdateTransactionRequest
	if !BindJSON(c, &req) {
		return
	}

	var existing models.Transaction
	if err := database.DB.First(&existing, "id = ?", id).Error; err != nil {
		NotFound(c, CodeTransactionNotFound, "交易不存在")
		return
	}

	// 引用校验时补上未变更的一侧，保证类别与子类别始终配套
	checkCategory := req.CategoryID
	if checkCategory == nil {
		checkCategory = existing.CategoryID
	}
	checkSubcategory := req.SubcategoryID
	if checkSubcategory == nil {
		checkSubcategory = existing.SubcategoryID
	}
	if (req.CategoryID != nil || req.SubcategoryID != nil) &&
		!validateCategoryRefs(c, checkCategory, checkSubcategory) {
		return
	}

	updates := map[string]interface{}{}
	if req.Amount != nil {
		updates["amount"] = *req.Amount
	}
	if req.Type != nil {
		updates["type"] = *req.Type
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Date != nil {
		date, err := time.Parse("2006-01-02", *req.Date)
		if err != nil {
			BadRequest(c, CodeValidationError, "日期格式应为 2006-01-02")
			return
		}
		updates["date"] = date
	}
	if req.CategoryID != nil {
		updates["category_id"] = *req.CategoryID
	}
	if req.SubcategoryID != nil {
		updates["subcategory_id"] = *req.SubcategoryID
	}
	if req.ReceiptURL != nil {
		updates["receipt_url"] = *req.ReceiptURL
	}

	sql, params, err := query.BuildUpdateQuery("transactions", updates, "`id` = ?", []interface{}{id})
	if err != nil {
		if err == query.ErrNoUpdateFields {
			BadRequest(c, CodeNoUpdateFields, "没有需要更新的字段")
			return
		}
		InternalError(c, CodeInternalError, SafeErrorMessage(err, "更新交易失败"))
		return
	}
	if err := database.DB.Exec(sql, params...).Error; err != nil {
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "更新交易失败"))
		return
	}

	// 票据被替换时清理旧文件，失败只记日志
	if req.ReceiptURL != nil && existing.ReceiptURL != nil && *existing.ReceiptURL != *req.ReceiptURL {
		if err := h.store.DeleteByURL(*existing.ReceiptURL); err != nil {
			log.Printf("删除旧票据文件失败 (%s): %v", *existing.ReceiptURL, err)
		}
	}

	SuccessWithMessage(c, "交易更新成功", nil)
}

// DeleteTransaction 删除交易
// @Summary 删除交易
// @Description 删除交易（软删除），附带的票据文件尽力删除
// @Tags 交易
// @Produce json
// @Security BearerAuth
// @Param id path string true "交易ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "交易不存在"
// @Router /api/transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	var uri transactionURI
	if !BindURI(c, &uri) {
		return
	}
	id := uri.ID

	var txn models.Transaction
	if err := database.DB.First(&txn, "id = ?", id).Error; err != nil {
		NotFound(c, CodeTransactionNotFound, "交易不存在")
		return
	}

	if err := database.DB.Delete(&models.Transaction{}, "id = ?", id).Error; err != nil {
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "删除交易失败"))
		return
	}

	if txn.ReceiptURL != nil {
		if err := h.store.DeleteByURL(*txn.ReceiptURL); err != nil {
			log.Printf("删除票据文件失败 (%s): %v", *txn.ReceiptURL, err)
		}
	}

	SuccessWithMessage(c, "交易删除成功", nil)
}

// DeleteTransactionReceipt 删除交易票据
// @Summary 删除交易票据
// @Description 删除交易附带的票据文件并清空 receipt_url；文件删除失败则整个操作失败
// @Tags 交易
// @Produce json
// @Security BearerAuth
// @Param id path string true "交易ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "交易不存在或没有票据"
// @Failure 500 {object} Response "票据文件删除失败"
// @Router /api/transactions/{id}/file [delete]
func (h *TransactionHandler) DeleteTransactionReceipt(c *gin.Context) {
	var uri transactionURI
	if !BindURI(c, &uri) {
		return
	}
	id := uri.ID

	var txn models.Transaction
	if err := database.DB.First(&txn, "id = ?", id).Error; err != nil {
		NotFound(c, CodeTransactionNotFound, "交易不存在")
		return
	}
	if txn.ReceiptURL == nil || *txn.ReceiptURL == "" {
		NotFound(c, CodeFileNotFound, "该交易没有票据")
		return
	}

	// 与交易删除不同：这里文件删不掉就不能声称删除成功
	if err := h.store.DeleteByURL(*txn.ReceiptURL); err != nil && err != service.ErrFileNotFound {
		InternalError(c, CodeFileDeleteError, SafeErrorMessage(err, "票据文件删除失败"))
		return
	}

	if err := database.DB.Model(&models.Transaction{}).Where("id = ?", id).
		Update("receipt_url", nil).Error; err != nil {
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "更新交易失败"))
		return
	}

	SuccessWithMessage(c, "票据删除成功", nil)
}
