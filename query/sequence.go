package query

import (
	"fmt"
	"strconv"
	"strings"

	"ledger/models"

	"gorm.io/gorm"
)

// NextTransactionID 分配下一个交易流水号
// 取现有 txn- 前缀流水号的最大数字后缀（按数值而非字典序），空表返回 txn-001，
// 其余递增并零填充到 3 位，数值超过 999 后位数自然增长。
// 读取包含软删除记录，保证流水号不复用。
//
// 读取与写入之间没有跨请求锁，并发创建可能分配到同一个号，
// 由 transactions 主键约束兜底，调用方捕获重复键错误后重试一次。
func NextTransactionID(db *gorm.DB) (string, error) {
	var ids []string
	if err := db.Unscoped().Model(&models.Transaction{}).
		Where("id LIKE ?", models.TransactionIDPrefix+"%").
		Pluck("id", &ids).Error; err != nil {
		return "", err
	}

	max := 0
	for _, id := range ids {
		n, err := strconv.Atoi(strings.TrimPrefix(id, models.TransactionIDPrefix))
		if err != nil || n <= 0 {
			continue
		}
		if n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s%03d", models.TransactionIDPrefix, max+1), nil
}

// NextPrefixedID 为类别/子类别分配形如 <prefix>-<word>-<n> 的标识
// word 取名称的首个小写单词，n 为该 prefix-word 组合下现有最大序号加一。
func NextPrefixedID(db *gorm.DB, table, prefix, name string) (string, error) {
	if _, ok := allowedColumns[table]; !ok {
		return "", fmt.Errorf("不允许的表: %s", table)
	}
	word := slugWord(name)
	idPrefix := prefix + "-" + word + "-"

	var ids []string
	if err := db.Unscoped().Table(table).
		Where("id LIKE ?", idPrefix+"%").
		Pluck("id", &ids).Error; err != nil {
		return "", err
	}

	max := 0
	for _, id := range ids {
		n, err := strconv.Atoi(strings.TrimPrefix(id, idPrefix))
		if err != nil || n <= 0 {
			continue
		}
		if n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s%d", idPrefix, max+1), nil
}

// slugWord 取名称首个单词并归一化为小写字母数字串
func slugWord(name string) string {
	fields := strings.Fields(strings.TrimSpace(name))
	if len(fields) == 0 {
		return "item"
	}
	var b strings.Builder
	for _, r := range strings.ToLower(fields[0]) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "item"
	}
	return b.String()
}
