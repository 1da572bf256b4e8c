package utils

import (
	"regexp"
	"strings"
	"unicode"
)

var jobCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// 字段长度上限
const (
	MaxTitleLength      = 200
	MaxDepartmentLength = 120
	MaxJobCodeLength    = 64
	MaxReasonLength     = 1000
)

// ValidateJobTitle 验证职位名称
func ValidateJobTitle(title string) error {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return ErrEmptyTitle
	}
	if len(trimmed) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if containsDangerousChars(trimmed) {
		return ErrDangerousChars
	}
	return nil
}

// ValidateDepartment 验证部门名称
func ValidateDepartment(department string) error {
	trimmed := strings.TrimSpace(department)
	if trimmed == "" {
		return ErrEmptyDepartment
	}
	if len(trimmed) > MaxDepartmentLength {
		return ErrDepartmentTooLong
	}
	if containsDangerousChars(trimmed) {
		return ErrDangerousChars
	}
	return nil
}

// ValidateJobCode 职位编码只允许字母、数字、连字符、下划线
func ValidateJobCode(code string) error {
	if code == "" {
		return ErrEmptyJobCode
	}
	if len(code) > MaxJobCodeLength {
		return ErrJobCodeTooLong
	}
	if !jobCodePattern.MatchString(code) {
		return ErrInvalidJobCode
	}
	return nil
}

// NormalizeReason 去除首尾空白，空白原因视为未提供
func NormalizeReason(reason *string) (*string, error) {
	if reason == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(stripControl(*reason))
	if trimmed == "" {
		return nil, nil
	}
	if len(trimmed) > MaxReasonLength {
		return nil, ErrReasonTooLong
	}
	return &trimmed, nil
}

// stripControl 移除控制字符（保留换行与制表符）
func stripControl(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// containsDangerousChars 检查常见的 XSS 与 SQL 注入片段
func containsDangerousChars(s string) bool {
	dangerousPatterns := []string{
		"<script",
		"</script>",
		"javascript:",
		"onerror=",
		"onload=",
		"';",
		"drop table",
		"delete from",
		"insert into",
		"union select",
		"<iframe",
	}

	lower := strings.ToLower(s)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// 错误定义
var (
	ErrEmptyTitle        = &ValidationError{Code: "EMPTY_TITLE", Message: "title cannot be empty"}
	ErrTitleTooLong      = &ValidationError{Code: "TITLE_TOO_LONG", Message: "title exceeds maximum length"}
	ErrEmptyDepartment   = &ValidationError{Code: "EMPTY_DEPARTMENT", Message: "department cannot be empty"}
	ErrDepartmentTooLong = &ValidationError{Code: "DEPARTMENT_TOO_LONG", Message: "department exceeds maximum length"}
	ErrDangerousChars    = &ValidationError{Code: "DANGEROUS_CHARS", Message: "value contains dangerous characters"}
	ErrEmptyJobCode      = &ValidationError{Code: "EMPTY_JOB_CODE", Message: "job code cannot be empty"}
	ErrJobCodeTooLong    = &ValidationError{Code: "JOB_CODE_TOO_LONG", Message: "job code exceeds maximum length"}
	ErrInvalidJobCode    = &ValidationError{Code: "INVALID_JOB_CODE", Message: "job code contains invalid characters"}
	ErrReasonTooLong     = &ValidationError{Code: "REASON_TOO_LONG", Message: "reason exceeds maximum length"}
)

// ValidationError 验证错误
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
