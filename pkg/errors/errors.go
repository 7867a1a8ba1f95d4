package errors

import (
	"errors"
	"fmt"
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrAlreadyExists 唯一约束冲突：同一店铺同一月份的排班已存在
var ErrAlreadyExists = errors.New("记录已存在")

// ErrValidation 输入校验失败（配合 ValidationError 使用 errors.Is 判断）
var ErrValidation = errors.New("输入校验失败")

// ErrPersistence 持久化失败，事务已回滚
var ErrPersistence = errors.New("持久化失败")

// ValidationError 输入校验错误，指明出错的员工与字段
type ValidationError struct {
	WorkerID string
	Field    string
	Message  string
}

// NewValidationError 构造校验错误
func NewValidationError(workerID, field, message string) *ValidationError {
	return &ValidationError{WorkerID: workerID, Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.WorkerID == "" {
		return fmt.Sprintf("校验失败 [%s]: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("校验失败 [员工 %s, %s]: %s", e.WorkerID, e.Field, e.Message)
}

// Is 使 errors.Is(err, ErrValidation) 成立
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// PersistenceError 包装底层存储错误
type PersistenceError struct {
	Op  string
	Err error
}

// NewPersistenceError 构造持久化错误
func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrPersistence.Error(), e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is 使 errors.Is(err, ErrPersistence) 成立
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}
