package errors

import "errors"

// Token 相关哨兵错误。
var (
	ErrTokenGeneratorNotInitialized = errors.New("token generator not initialized")
	ErrUnexpectedSigningMethod      = errors.New("unexpected signing method")
	ErrInvalidToken                 = errors.New("invalid token")
	ErrInvalidTokenClaims           = errors.New("invalid token claims")
	ErrInvalidTokenType             = errors.New("invalid token type")
	ErrUserIDNotFound               = errors.New("user id not found in token")
)

// 传输配置哨兵错误。
var (
	ErrSignNameRequired     = errors.New("sms sign name is required")
	ErrTemplateCodeRequired = errors.New("sms template code is required")
	ErrTtsCodeRequired      = errors.New("voice tts code is required")
)
