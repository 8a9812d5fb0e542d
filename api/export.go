package api

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"ledger/database"
	"ledger/models"
	"ledger/query"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// ExportHandler 交易导出处理器
type ExportHandler struct{}

// NewExportHandler 创建导出处理器
func NewExportHandler() *ExportHandler {
	return &ExportHandler{}
}

// exportRow 导出行（交易拼上类别/子类别名称）
type exportRow struct {
	models.Transaction
	CategoryName    *string
	SubcategoryName *string
}

// queryExportRows 按日期范围查询待导出交易
func queryExportRows(c *gin.Context) ([]exportRow, string, string, bool) {
	dateFrom := c.Query("date_from")
	dateTo := c.Query("date_to")

	filters := map[string]interface{}{
		"type":           c.Query("type"),
		"category_id":    c.Query("category_id"),
		"date_date_from": dateFrom,
		"date_date_to":   dateTo,
	}

	baseQuery := "SELECT transactions.*, categories.name AS category_name, subcategories.name AS subcategory_name " +
		"FROM `transactions` " +
		"LEFT JOIN categories ON categories.id = transactions.category_id " +
		"LEFT JOIN subcategories ON subcategories.id = transactions.subcategory_id " +
		"WHERE transactions.deleted_at IS NULL"

	sql, params, err := query.BuildSearchQuery("transactions", baseQuery, filters, nil)
	if err != nil {
		BadRequest(c, CodeValidationError, err.Error())
		return nil, "", "", false
	}
	sql += " ORDER BY transactions.date DESC, transactions.id DESC"

	var rows []exportRow
	if err := database.DB.Raw(sql, params...).Scan(&rows).Error; err != nil {
		InternalError(c, CodeDatabaseError, SafeErrorMessage(err, "查询交易失败"))
		return nil, "", "", false
	}

	if dateFrom == "" {
		dateFrom = "all"
	}
	if dateTo == "" {
		dateTo = time.Now().Format("2006-01-02")
	}
	return rows, dateFrom, dateTo, true
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

// ExportExcel 导出交易为 Excel
// @Summary 导出交易为 Excel
// @Description 按筛选条件导出交易记录为 xlsx 文件，末尾附汇总行
// @Tags 导出
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param date_from query string false "起始日期 (YYYY-MM-DD)"
// @Param date_to query string false "截止日期 (YYYY-MM-DD)"
// @Param type query string false "交易类型" Enums(income, expense)
// @Param category_id query string false "类别ID"
// @Success 200 {file} file "Excel 文件"
// @Router /api/transactions/export/excel [get]
func (h *ExportHandler) ExportExcel(c *gin.Context) {
	rows, dateFrom, dateTo, ok := queryExportRows(c)
	if !ok {
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "交易记录"
	f.SetSheetName("Sheet1", sheetName)

	// 表头样式
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})

	// 数据样式
	dataStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})

	// 设置列宽
	f.SetColWidth(sheetName, "A", "A", 12)
	f.SetColWidth(sheetName, "B", "B", 12)
	f.SetColWidth(sheetName, "C", "C", 10)
	f.SetColWidth(sheetName, "D", "D", 30)
	f.SetColWidth(sheetName, "E", "E", 12)
	f.SetColWidth(sheetName, "F", "F", 15)
	f.SetColWidth(sheetName, "G", "G", 15)

	// 写入表头
	headers := []string{"流水号", "金额", "类型", "描述", "日期", "类别", "子类别"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	// 写入数据
	var totalIncome, totalExpense float64
	for i, row := range rows {
		r := i + 2
		typeText := "收入"
		if row.Type == models.TransactionTypeExpense {
			typeText = "支出"
			totalExpense += row.Amount
		} else {
			totalIncome += row.Amount
		}
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", r), row.ID)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", r), row.Amount)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", r), typeText)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", r), row.Description)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", r), row.Date.Format("2006-01-02"))
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", r), derefOr(row.CategoryName, "-"))
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", r), derefOr(row.SubcategoryName, "-"))
		f.SetCellStyle(sheetName, fmt.Sprintf("A%d", r), fmt.Sprintf("G%d", r), dataStyle)
	}

	// 添加汇总行
	summaryRow := len(rows) + 2
	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"FFC000"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})

	f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryRow), "合计")
	f.SetCellValue(sheetName, fmt.Sprintf("B%d", summaryRow), fmt.Sprintf("收入 %.2f / 支出 %.2f", totalIncome, totalExpense))
	f.MergeCell(sheetName, fmt.Sprintf("B%d", summaryRow), fmt.Sprintf("E%d", summaryRow))
	f.SetCellValue(sheetName, fmt.Sprintf("F%d", summaryRow), fmt.Sprintf("共 %d 条记录", len(rows)))
	f.MergeCell(sheetName, fmt.Sprintf("F%d", summaryRow), fmt.Sprintf("G%d", summaryRow))
	f.SetCellStyle(sheetName, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("G%d", summaryRow), summaryStyle)

	// 设置响应头
	filename := fmt.Sprintf("交易记录_%s_%s.xlsx", dateFrom, dateTo)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", filename))

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, CodeInternalError, "生成 Excel 失败")
		return
	}
}

// ExportCSV 导出交易为 CSV
// @Summary 导出交易为 CSV
// @Description 按筛选条件导出交易记录为 CSV 文件（带 BOM，Excel 可直接打开）
// @Tags 导出
// @Produce text/csv
// @Security BearerAuth
// @Param date_from query string false "起始日期 (YYYY-MM-DD)"
// @Param date_to query string false "截止日期 (YYYY-MM-DD)"
// @Param type query string false "交易类型" Enums(income, expense)
// @Param category_id query string false "类别ID"
// @Success 200 {file} file "CSV 文件"
// @Router /api/transactions/export/csv [get]
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	rows, dateFrom, dateTo, ok := queryExportRows(c)
	if !ok {
		return
	}

	buf := new(bytes.Buffer)
	// 添加 BOM 以支持 Excel 中文显示
	buf.WriteString("\xEF\xBB\xBF")

	writer := csv.NewWriter(buf)

	headers := []string{"流水号", "金额", "类型", "描述", "日期", "类别", "子类别"}
	if err := writer.Write(headers); err != nil {
		InternalError(c, CodeInternalError, "生成 CSV 失败")
		return
	}

	for _, row := range rows {
		record := []string{
			row.ID,
			fmt.Sprintf("%.2f", row.Amount),
			row.Type,
			row.Description,
			row.Date.Format("2006-01-02"),
			derefOr(row.CategoryName, ""),
			derefOr(row.SubcategoryName, ""),
		}
		if err := writer.Write(record); err != nil {
			InternalError(c, CodeInternalError, "生成 CSV 失败")
			return
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		InternalError(c, CodeInternalError, "生成 CSV 失败")
		return
	}

	filename := fmt.Sprintf("transactions_%s_%s.csv", dateFrom, dateTo)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Header("Content-Length", fmt.Sprintf("%d", buf.Len()))

	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ExportJSON 导出交易为 JSON
// @Summary 导出交易为 JSON
// @Description 按筛选条件导出交易记录为 JSON 文件
// @Tags 导出
// @Produce json
// @Security BearerAuth
// @Param date_from query string false "起始日期 (YYYY-MM-DD)"
// @Param date_to query string false "截止日期 (YYYY-MM-DD)"
// @Param type query string false "交易类型" Enums(income, expense)
// @Param category_id query string false "类别ID"
// @Success 200 {object} Response "导出数据"
// @Router /api/transactions/export/json [get]
func (h *ExportHandler) ExportJSON(c *gin.Context) {
	rows, dateFrom, dateTo, ok := queryExportRows(c)
	if !ok {
		return
	}

	type jsonRow struct {
		ID              string  `json:"id"`
		Amount          float64 `json:"amount"`
		Type            string  `json:"type"`
		Description     string  `json:"description"`
		Date            string  `json:"date"`
		CategoryName    *string `json:"category_name"`
		SubcategoryName *string `json:"subcategory_name"`
	}

	out := make([]jsonRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, jsonRow{
			ID:              row.ID,
			Amount:          row.Amount,
			Type:            row.Type,
			Description:     row.Description,
			Date:            row.Date.Format("2006-01-02"),
			CategoryName:    row.CategoryName,
			SubcategoryName: row.SubcategoryName,
		})
	}

	filename := fmt.Sprintf("transactions_%s_%s.json", dateFrom, dateTo)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	Success(c, gin.H{
		"range": gin.H{"date_from": dateFrom, "date_to": dateTo},
		"count": len(out),
		"items": out,
	})
}
