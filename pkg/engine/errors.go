package engine

import (
	"errors"
	"fmt"
)

// ErrAlreadyRunning 循环已在运行
var ErrAlreadyRunning = errors.New("点击循环已在运行")

// 循环中止原因
const (
	CodeDispatchFailed = "dispatch_failed"
	CodeCaptureFailed  = "capture_failed"
)

// ValidationError 启动参数不合法
type ValidationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("参数 %s 不合法 (%v): %s", e.Field, e.Value, e.Reason)
}

// LoopError 导致循环中止的运行时错误
type LoopError struct {
	Code string
	Err  error
}

func (e *LoopError) Error() string {
	return fmt.Sprintf("点击循环中止 (%s): %v", e.Code, e.Err)
}

func (e *LoopError) Unwrap() error {
	return e.Err
}
