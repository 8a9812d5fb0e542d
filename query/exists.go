package query

import (
	"fmt"

	"gorm.io/gorm"
)

// NotFoundError 资源不存在，携带机器可读错误码供接口层透传
type NotFoundError struct {
	Code    string
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// softDeleteTables 带 deleted_at 软删除列的表，探测时排除已删除行
var softDeleteTables = map[string]bool{
	"users":         true,
	"categories":    true,
	"subcategories": true,
	"transactions":  true,
}

// ResourceExists 存在性探测
func ResourceExists(db *gorm.DB, table, column string, value interface{}) (bool, error) {
	if !columnAllowed(table, column) {
		return false, fmt.Errorf("不允许的表或列: %s.%s", table, column)
	}
	tx := db.Table(table).Where(fmt.Sprintf("`%s` = ?", column), value)
	if softDeleteTables[table] {
		tx = tx.Where("deleted_at IS NULL")
	}
	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindResourceOrFail 存在性检查，不存在时返回携带定制 code/message 的 NotFoundError
func FindResourceOrFail(db *gorm.DB, table, column string, value interface{}, code, message string) error {
	exists, err := ResourceExists(db, table, column, value)
	if err != nil {
		return err
	}
	if !exists {
		return &NotFoundError{Code: code, Message: message}
	}
	return nil
}
