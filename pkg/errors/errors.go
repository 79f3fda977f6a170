package errors

import "errors"

// ErrOptimisticLock 按版本号更新时版本已变化（记录被并发写入）。
// Repository 返回该错误，由 Service 决定重新读取重试或放弃写入
var ErrOptimisticLock = errors.New("记录版本已变化")
