package utils

import (
	"errors"
	"strings"
)

// JobSortColumns 职位列表允许的排序字段（请求参数 -> 列名）
var JobSortColumns = map[string]string{
	"deadline":  "application_deadline",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"title":     "title",
	"jobCode":   "job_code",
}

// ResolveSortColumn 按白名单解析排序字段，防止 SQL 注入
func ResolveSortColumn(field string, allowed map[string]string) (string, error) {
	if field == "" {
		return "", errors.New("sort field cannot be empty")
	}
	column, ok := allowed[field]
	if !ok {
		return "", errors.New("sort field is not allowed")
	}
	return column, nil
}

// ValidateSortOrder 验证排序方向
func ValidateSortOrder(order string) error {
	upperOrder := strings.ToUpper(strings.TrimSpace(order))
	if upperOrder != "ASC" && upperOrder != "DESC" {
		return errors.New("sort order must be ASC or DESC")
	}
	return nil
}

// SanitizeSortOrder 清理排序方向，默认降序
func SanitizeSortOrder(order string) string {
	upperOrder := strings.ToUpper(strings.TrimSpace(order))
	if upperOrder == "ASC" || upperOrder == "DESC" {
		return upperOrder
	}
	return "DESC"
}
