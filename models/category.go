package models

import (
	"time"

	"gorm.io/gorm"
)

// Category 交易类别
// ID 形如 cat-food-1，由名称首词加序号生成
type Category struct {
	ID        string         `json:"id" gorm:"primaryKey;size:64"`
	Name      string         `json:"name" gorm:"size:50;not null;uniqueIndex"`
	CreatedBy string         `json:"created_by" gorm:"size:36;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName 设置表名
func (Category) TableName() string {
	return "categories"
}
