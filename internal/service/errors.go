package service

import (
	"errors"
	"fmt"
)

var (
	// ErrForbidden 缺少所需权限，在任何实体读取之前返回
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound 实体不存在
	ErrNotFound = errors.New("not found")
	// ErrInvalidState 当前状态不满足迁移前置条件
	ErrInvalidState = errors.New("invalid state")
	// ErrConflict 读取后状态已被并发请求修改
	ErrConflict = errors.New("stale state")
	// ErrDuplicateJobCode 职位编码已存在
	ErrDuplicateJobCode = errors.New("job code already exists")
	// ErrValidation 请求参数不合法
	ErrValidation = errors.New("validation failed")
)

// 状态错误的固定提示
const (
	MsgOnlyDraftCanBeSubmitted       = "Only Draft can be submitted."
	MsgOnlyPendingCanBeApproved      = "Only PendingApproval can be approved."
	MsgOnlyPendingCanBeRejected      = "Only PendingApproval can be rejected."
	MsgJobAlreadyClosed              = "Job is already closed."
	MsgOnlyUnsubmittedDraftDeletable = "Only Draft jobs without approval history can be deleted."
)

// StateError 状态前置条件失败，Message 直接返回给调用方
type StateError struct {
	Message string
}

func (e *StateError) Error() string { return e.Message }

func (e *StateError) Is(target error) bool { return target == ErrInvalidState }

// ValidationError 参数校验失败
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalidState(msg string) error {
	return &StateError{Message: msg}
}

func invalidField(field string, err error) error {
	return &ValidationError{Field: field, Message: err.Error()}
}
