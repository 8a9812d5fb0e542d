package api

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// 业务错误码（认证相关错误码见 middleware 包）
const (
	CodeValidationError  = "VALIDATION_ERROR"
	CodeNoUpdateFields   = "NO_UPDATE_FIELDS"
	CodeCannotModifySelf = "CANNOT_MODIFY_SELF"
	CodeCannotDeleteSelf = "CANNOT_DELETE_SELF"
	CodeAccessDenied     = "ACCESS_DENIED"

	CodeResourceNotFound    = "RESOURCE_NOT_FOUND"
	CodeUserNotFound        = "USER_NOT_FOUND"
	CodeCategoryNotFound    = "CATEGORY_NOT_FOUND"
	CodeSubcategoryNotFound = "SUBCATEGORY_NOT_FOUND"
	CodeTransactionNotFound = "TRANSACTION_NOT_FOUND"
	CodeFileNotFound        = "FILE_NOT_FOUND"

	CodeDuplicateEntry      = "DUPLICATE_ENTRY"
	CodeEmailExists         = "EMAIL_EXISTS"
	CodeCategoryExists      = "CATEGORY_EXISTS"
	CodeSubcategoryExists   = "SUBCATEGORY_EXISTS"
	CodeCategoryHasSubcats  = "CATEGORY_HAS_SUBCATEGORIES"
	CodeCategoryInUse       = "CATEGORY_IN_USE"
	CodeSubcategoryInUse    = "SUBCATEGORY_IN_USE"
	CodeSubcategoryNotInCat = "SUBCATEGORY_NOT_IN_CATEGORY"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"

	CodeInvalidFilename = "INVALID_FILENAME"
	CodeInvalidFileType = "INVALID_FILE_TYPE"
	CodeFileTooLarge    = "FILE_TOO_LARGE"

	CodeDatabaseError   = "DATABASE_ERROR"
	CodeFileDeleteError = "FILE_DELETE_ERROR"
	CodeInternalError   = "INTERNAL_ERROR"
)

// isDuplicateKeyErr 识别数据库唯一键冲突
// MySQL 返回 1062 Duplicate entry；gorm 开启错误翻译时返回 ErrDuplicatedKey
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "Error 1062")
}
