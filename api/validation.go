package api

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"time"

	"ledger/models"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// 标识符格式
var (
	categoryIDPattern    = regexp.MustCompile(`^cat-[a-z0-9]+-[0-9]+$`)
	subcategoryIDPattern = regexp.MustCompile(`^sub-[a-z0-9]+-[0-9]+$`)
	transactionIDPattern = regexp.MustCompile(`^txn-[0-9]+$`)
)

// RegisterValidators 注册自定义校验规则，进程启动时调用一次
// 字段名取 json tag，保证校验详情里的字段名与请求体一致
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return models.Role(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("txntype", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == models.TransactionTypeIncome || s == models.TransactionTypeExpense
	})
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("2006-01-02", fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("catid", func(fl validator.FieldLevel) bool {
		return categoryIDPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("subid", func(fl validator.FieldLevel) bool {
		return subcategoryIDPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("txnid", func(fl validator.FieldLevel) bool {
		return transactionIDPattern.MatchString(fl.Field().String())
	})
}

// FieldViolation 单字段校验失败详情
type FieldViolation struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// BindJSON 绑定并校验 JSON 请求体
// 校验失败时聚合所有违规字段统一返回 400 VALIDATION_ERROR，并返回 false
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		failValidation(c, err)
		return false
	}
	return true
}

// BindQuery 绑定并校验查询参数，失败处理同 BindJSON
func BindQuery(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		failValidation(c, err)
		return false
	}
	return true
}

// BindURI 绑定并校验路径参数，失败处理同 BindJSON
func BindURI(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindUri(obj); err != nil {
		failValidation(c, err)
		return false
	}
	return true
}

// failValidation 将绑定错误转为统一的校验失败响应
// validator 的错误逐条展开为 (field, message, value)，不在第一条就中断
func failValidation(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]FieldViolation, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, FieldViolation{
				Field:   fe.Field(),
				Message: violationMessage(fe),
				Value:   fe.Value(),
			})
		}
		FailWithDetails(c, http.StatusBadRequest, CodeValidationError, "参数校验失败", details)
		return
	}
	BadRequest(c, CodeValidationError, "请求格式错误: "+err.Error())
}

// violationMessage 按校验标签生成可读提示
func violationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "不能为空"
	case "email":
		return "邮箱格式不正确"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("长度不能小于 %s", fe.Param())
		}
		return fmt.Sprintf("不能小于 %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("长度不能大于 %s", fe.Param())
		}
		return fmt.Sprintf("不能大于 %s", fe.Param())
	case "gt":
		return fmt.Sprintf("必须大于 %s", fe.Param())
	case "gte":
		return fmt.Sprintf("不能小于 %s", fe.Param())
	case "lte":
		return fmt.Sprintf("不能大于 %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("取值必须为 %s 之一", strings.ReplaceAll(fe.Param(), " ", "/"))
	case "eqfield":
		return "两次输入不一致"
	case "uuid":
		return "必须为 UUID 格式"
	case "role":
		return "角色必须为 administrator/manager/viewer 之一"
	case "txntype":
		return "类型必须为 income/expense 之一"
	case "isodate":
		return "日期格式应为 2006-01-02"
	case "catid":
		return "类别ID格式应为 cat-<word>-<number>"
	case "subid":
		return "子类别ID格式应为 sub-<word>-<number>"
	case "txnid":
		return "交易ID格式应为 txn-<number>"
	default:
		return "格式不正确"
	}
}

// parsePagination 解析分页参数：page >= 1，limit 限定在 1-100
func parsePagination(c *gin.Context, defaultLimit int) (page, limit int) {
	type pageQuery struct {
		Page  int `form:"page"`
		Limit int `form:"limit"`
	}
	var q pageQuery
	_ = c.ShouldBindQuery(&q)

	page = q.Page
	if page <= 0 {
		page = 1
	}
	limit = q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
