package database

import (
	"fmt"
	"log"

	"ledger/config"
	"ledger/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Init 初始化数据库连接
func Init(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=%s&parseTime=True&loc=Local",
		cfg.Database.Username,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DBName,
		cfg.Database.Charset,
	)

	logMode := logger.Warn
	if cfg.Server.Mode == "debug" {
		logMode = logger.Info
	}

	var err error
	DB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logMode),
	})
	if err != nil {
		return fmt.Errorf("连接数据库失败: %w", err)
	}

	// 获取底层 *sql.DB 配置连接池
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	// 自动迁移数据库表
	if err := DB.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Category{},
		&models.Subcategory{},
		&models.Transaction{},
	); err != nil {
		return err
	}

	// 初始化管理员账号（仅当用户表为空时）
	// 用户只能由管理员创建，首个管理员必须由系统播种
	var userCount int64
	DB.Model(&models.User{}).Count(&userCount)
	if userCount == 0 {
		if err := seedAdmin(); err != nil {
			log.Printf("警告: 初始化管理员账号失败: %v", err)
		}
	}

	log.Println("数据库初始化成功")
	return nil
}

// seedAdmin 创建默认管理员，用户与档案在同一事务内写入
func seedAdmin() error {
	hashed, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return DB.Transaction(func(tx *gorm.DB) error {
		user := models.User{
			Email:    "admin@ledger.local",
			Password: string(hashed),
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		profile := models.Profile{
			UserID: user.ID,
			Name:   "Administrator",
			Role:   models.RoleAdministrator,
			Active: true,
		}
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}
		log.Printf("已创建默认管理员 admin@ledger.local（初始密码 admin123，请尽快修改）")
		return nil
	})
}

// GetDB 获取数据库连接
func GetDB() *gorm.DB {
	return DB
}
