package models

import (
	"time"

	"gorm.io/gorm"
)

// 交易类型
const (
	TransactionTypeIncome  = "income"
	TransactionTypeExpense = "expense"
)

// TransactionIDPrefix 交易流水号前缀，流水号形如 txn-001
const TransactionIDPrefix = "txn-"

// Transaction 交易记录
// ID 为顺序流水号（txn-001 起，零填充 3 位，超过 999 后自然增长）
type Transaction struct {
	ID            string         `json:"id" gorm:"primaryKey;size:20"`
	Amount        float64        `json:"amount" gorm:"type:decimal(12,2);not null"`
	Type          string         `json:"type" gorm:"size:10;not null;index"`
	Description   string         `json:"description" gorm:"size:255"`
	Date          time.Time      `json:"date" gorm:"not null;index"`
	CategoryID    *string        `json:"category_id,omitempty" gorm:"size:64;index"`
	SubcategoryID *string        `json:"subcategory_id,omitempty" gorm:"size:64;index"`
	ReceiptURL    *string        `json:"receipt_url,omitempty" gorm:"size:255"`
	CreatedBy     string         `json:"created_by" gorm:"size:36;index"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName 设置表名
func (Transaction) TableName() string {
	return "transactions"
}
