package models

import (
	"time"

	"gorm.io/gorm"
)

// Subcategory 交易子类别，必须挂在一个 Category 下
// 同一父类别内名称唯一；ID 形如 sub-lunch-1
type Subcategory struct {
	ID         string         `json:"id" gorm:"primaryKey;size:64"`
	Name       string         `json:"name" gorm:"size:50;not null;uniqueIndex:uk_subcategory_category_name"`
	CategoryID string         `json:"category_id" gorm:"size:64;not null;index;uniqueIndex:uk_subcategory_category_name"`
	CreatedBy  string         `json:"created_by" gorm:"size:36;index"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
	Category   Category       `json:"-" gorm:"foreignKey:CategoryID"`
}

// TableName 设置表名
func (Subcategory) TableName() string {
	return "subcategories"
}
