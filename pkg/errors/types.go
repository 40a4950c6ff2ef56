package errors

import "errors"

// SkipMessageError 表示消息应被跳过（确认消费）而不是重新投递。
// 用于消费者幂等保护与过期消息丢弃。
type SkipMessageError struct {
	Reason string
}

func (e *SkipMessageError) Error() string {
	return "skip message: " + e.Reason
}

// IsSkipMessageError 判断是否为跳过消息错误。
func IsSkipMessageError(err error) bool {
	var skip *SkipMessageError
	return errors.As(err, &skip)
}

// NonRetryableError 表示重试也无法成功的错误（配置缺失、号码非法等）。
type NonRetryableError struct {
	Reason string
}

func (e *NonRetryableError) Error() string {
	return "non-retryable: " + e.Reason
}

// NewNonRetryableError 构造不可重试错误。
func NewNonRetryableError(reason string) *NonRetryableError {
	return &NonRetryableError{Reason: reason}
}

// IsNonRetryableError 判断是否为不可重试错误。
func IsNonRetryableError(err error) bool {
	var nr *NonRetryableError
	return errors.As(err, &nr)
}

// Is 对 errors.Is 的转发，避免调用方同时引入标准库 errors。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As 对 errors.As 的转发。
func As(err error, target any) bool {
	return errors.As(err, target)
}
