// Package query 提供受限的动态 SQL 组装工具：
// 部分更新的 SET 子句、列表筛选的 WHERE 子句、交易流水号分配以及通用存在性检查。
// 表名与列名只接受固定白名单中的值，所有数据值一律走绑定参数。
package query

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNoUpdateFields 过滤掉空字段后没有可更新内容
var ErrNoUpdateFields = errors.New("没有需要更新的字段")

// allowedColumns 各表可出现在动态 SQL 中的列
var allowedColumns = map[string]map[string]bool{
	"users": {
		"id": true, "email": true, "password": true,
	},
	"profiles": {
		"user_id": true, "name": true, "phone": true, "role": true,
		"active": true, "avatar": true, "last_login_at": true,
	},
	"categories": {
		"id": true, "name": true, "created_by": true,
	},
	"subcategories": {
		"id": true, "name": true, "category_id": true, "created_by": true,
	},
	"transactions": {
		"id": true, "amount": true, "type": true, "description": true,
		"date": true, "category_id": true, "subcategory_id": true,
		"receipt_url": true, "created_by": true,
	},
}

func columnAllowed(table, column string) bool {
	cols, ok := allowedColumns[table]
	return ok && cols[column]
}

// BuildUpdateQuery 组装部分更新语句
// updates 中值为 nil 的字段会被跳过；剩余字段按列名排序生成 SET 列表，
// 并追加 updated_at = CURRENT_TIMESTAMP；全部被跳过时返回 ErrNoUpdateFields。
// 返回语句与按 更新值 -> where 参数 顺序排列的绑定参数。
func BuildUpdateQuery(table string, updates map[string]interface{}, where string, whereParams []interface{}) (string, []interface{}, error) {
	if _, ok := allowedColumns[table]; !ok {
		return "", nil, fmt.Errorf("不允许更新的表: %s", table)
	}

	columns := make([]string, 0, len(updates))
	for col, val := range updates {
		if val == nil {
			continue
		}
		if !columnAllowed(table, col) {
			return "", nil, fmt.Errorf("不允许更新的列: %s.%s", table, col)
		}
		columns = append(columns, col)
	}
	if len(columns) == 0 {
		return "", nil, ErrNoUpdateFields
	}
	sort.Strings(columns)

	setParts := make([]string, 0, len(columns)+1)
	params := make([]interface{}, 0, len(columns)+len(whereParams))
	for _, col := range columns {
		setParts = append(setParts, fmt.Sprintf("`%s` = ?", col))
		params = append(params, updates[col])
	}
	setParts = append(setParts, "`updated_at` = CURRENT_TIMESTAMP")

	sql := fmt.Sprintf("UPDATE `%s` SET %s WHERE %s", table, strings.Join(setParts, ", "), where)
	params = append(params, whereParams...)
	return sql, params, nil
}

// BuildSearchQuery 组装列表筛选语句
// 过滤键按后缀映射：_like -> LIKE，_date_from -> >=，_date_to -> <=，
// 其余为等值匹配；空串和 nil 值跳过。baseQuery 已含 WHERE 时以 AND 追加。
// 隐含的列名必须出现在 table 的白名单中。
func BuildSearchQuery(table, baseQuery string, filters map[string]interface{}, baseParams []interface{}) (string, []interface{}, error) {
	if _, ok := allowedColumns[table]; !ok {
		return "", nil, fmt.Errorf("不允许查询的表: %s", table)
	}

	keys := make([]string, 0, len(filters))
	for k, v := range filters {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sql := baseQuery
	params := append([]interface{}{}, baseParams...)
	hasWhere := strings.Contains(strings.ToUpper(baseQuery), " WHERE ")

	for _, key := range keys {
		var column, op string
		value := filters[key]
		switch {
		case strings.HasSuffix(key, "_like"):
			column, op = strings.TrimSuffix(key, "_like"), "LIKE"
			value = "%" + fmt.Sprintf("%v", value) + "%"
		case strings.HasSuffix(key, "_date_from"):
			column, op = strings.TrimSuffix(key, "_date_from"), ">="
		case strings.HasSuffix(key, "_date_to"):
			column, op = strings.TrimSuffix(key, "_date_to"), "<="
		default:
			column, op = key, "="
		}
		if !columnAllowed(table, column) {
			return "", nil, fmt.Errorf("不允许筛选的列: %s.%s", table, column)
		}

		if hasWhere {
			sql += fmt.Sprintf(" AND `%s` %s ?", column, op)
		} else {
			sql += fmt.Sprintf(" WHERE `%s` %s ?", column, op)
			hasWhere = true
		}
		params = append(params, value)
	}

	return sql, params, nil
}
