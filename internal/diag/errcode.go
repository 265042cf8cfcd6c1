package diag

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/PyThaiNLP/nlpo3/pkg/contract"
)

// Code 是最小错误分类代码。
// 仅用于日志/指标汇总与 HTTP 状态映射，与退出码解耦。
type Code string

const (
	CodeUnknown   Code = "unknown"
	CodeNotFound  Code = "not_found"
	CodeConflict  Code = "conflict"
	CodeInvariant Code = "invariant"
	CodeCancel    Code = "cancel"
	CodeIO        Code = "io"
)

// Classify 将错误归为最小分类。仅依赖哨兵错误与标准库错误类型。
func Classify(err error) Code {
	switch {
	case err == nil:
		return CodeUnknown
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCancel
	case errors.Is(err, contract.ErrDictionaryNotFound):
		return CodeNotFound
	case errors.Is(err, contract.ErrDuplicateName), errors.Is(err, contract.ErrReservedName):
		return CodeConflict
	case errors.Is(err, contract.ErrSourceUnreadable):
		return CodeIO
	case errors.Is(err, contract.ErrInvariantViolation),
		errors.Is(err, contract.ErrInvalidInput),
		errors.Is(err, contract.ErrInvalidName),
		errors.Is(err, contract.ErrSeqInvalid),
		errors.Is(err, contract.ErrPathInvalid):
		return CodeInvariant
	}
	var perr *os.PathError
	if errors.As(err, &perr) {
		return CodeIO
	}
	return CodeUnknown
}

// Record 记录一次失败：error 事件 + 计数。logger 可为 nil。
func Record(logger *Logger, comp, msg string, err error, fileID, batch string) {
	code := Classify(err)
	logger.ErrorWithKV(comp, string(code), msg, nil, fileID, batch, map[string]string{"err": err.Error()})
	IncOp(comp, "error", "error")
	if code != CodeUnknown {
		IncError(comp, string(code))
	}
}

// NowUTC 返回 RFC3339 UTC 时间字符串。
func NowUTC() string { return time.Now().UTC().Format(time.RFC3339) }
