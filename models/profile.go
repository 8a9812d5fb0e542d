package models

import (
	"time"
)

// Profile 用户档案，与 User 一对一（共用同一标识）
type Profile struct {
	UserID      string     `json:"id" gorm:"primaryKey;size:36"`
	Name        string     `json:"name" gorm:"size:100;not null"`
	Phone       *string    `json:"phone,omitempty" gorm:"size:30"`
	Role        Role       `json:"role" gorm:"size:20;not null;default:viewer;index"`
	Active      bool       `json:"active" gorm:"default:true;index"`
	Avatar      *string    `json:"avatar,omitempty" gorm:"size:255"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	User        User       `json:"-" gorm:"foreignKey:UserID"`
}

// TableName 设置表名
func (Profile) TableName() string {
	return "profiles"
}
