package api

import (
	"ledger/database"
	"ledger/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// StatsHandler 交易统计处理器
type StatsHandler struct{}

// NewStatsHandler 创建统计处理器
func NewStatsHandler() *StatsHandler {
	return &StatsHandler{}
}

// TypeStat 按交易类型的汇总
type TypeStat struct {
	Type    string  `json:"type"`
	Total   float64 `json:"total"`
	Count   int64   `json:"count"`
	Average float64 `json:"average"`
}

// MonthStat 按月份的汇总
type MonthStat struct {
	Month   string  `json:"month"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
}

// CategoryStat 按类别的汇总
type CategoryStat struct {
	CategoryID   *string `json:"category_id"`
	CategoryName *string `json:"category_name"`
	Total        float64 `json:"total"`
	Count        int64   `json:"count"`
}

// Summary 交易统计汇总
// @Summary 交易统计汇总
// @Description 按类型、月份、类别三个维度汇总交易金额，可选日期范围过滤
// @Tags 交易
// @Produce json
// @Security BearerAuth
// @Param date_from query string false "起始日期 (YYYY-MM-DD)"
// @Param date_to query string false "截止日期 (YYYY-MM-DD)"
// @Success 200 {object} Response "统计成功"
// @Router /api/transactions/stats/summary [get]
func (h *StatsHandler) Summary(c *gin.Context) {
	dateFrom := c.Query("date_from")
	dateTo := c.Query("date_to")

	scope := func() *gorm.DB {
		tx := database.DB.Model(&models.Transaction{})
		if dateFrom != "" {
			tx = tx.Where("date >= ?", dateFrom)
		}
		if dateTo != "" {
			tx = tx.Where("date <= ?", dateTo)
		}
		return tx
	}

	var byType []TypeStat
	if err := scope().
		Select("type, SUM(amount) AS total, COUNT(*) AS count, AVG(amount) AS average").
		Group("type").
		Scan(&byType).Error; err != nil {
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "统计失败"))
		return
	}

	var byMonth []MonthStat
	if err := scope().
		Select("DATE_FORMAT(date, '%Y-%m') AS month, " +
			"SUM(CASE WHEN type = 'income' THEN amount ELSE 0 END) AS income, " +
			"SUM(CASE WHEN type = 'expense' THEN amount ELSE 0 END) AS expense").
		Group("month").
		Order("month ASC").
		Scan(&byMonth).Error; err != nil {
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "统计失败"))
		return
	}

	var byCategory []CategoryStat
	if err := scope().
		Select("transactions.category_id, categories.name AS category_name, SUM(transactions.amount) AS total, COUNT(*) AS count").
		Joins("LEFT JOIN categories ON categories.id = transactions.category_id").
		Group("transactions.category_id, categories.name").
		Order("total DESC").
		Scan(&byCategory).Error; err != nil {
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "统计失败"))
		return
	}

	Success(c, gin.H{
		"by_type":     byType,
		"by_month":    byMonth,
		"by_category": byCategory,
	})
}
