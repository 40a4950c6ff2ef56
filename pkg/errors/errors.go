package errors

func (d Definition) Error() string {
	return d.Message
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// 认证相关错误。
var (
	EmailAlreadyRegistered = Definition{Code: "EMAIL_ALREADY_REGISTERED", Message: "Email already registered"}
	InvalidCredentials     = Definition{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password"}
	Unauthorized           = Definition{Code: "UNAUTHORIZED", Message: "Unauthorized"}
	InvalidUserID          = Definition{Code: "INVALID_USER_ID", Message: "Invalid user ID format"}
	APIKeyInvalid          = Definition{Code: "API_KEY_INVALID", Message: "API key invalid"}
)

// 用户设置错误。
var (
	SettingsOutOfRange = Definition{Code: "SETTINGS_OUT_OF_RANGE", Message: "Notification settings out of range"}
	UserNotFound       = Definition{Code: "USER_NOT_FOUND", Message: "User not found"}
)

// 应用模块错误。
var (
	ApplicationNotFound    = Definition{Code: "APPLICATION_NOT_FOUND", Message: "Application not found"}
	ApplicationNameTaken   = Definition{Code: "APPLICATION_NAME_TAKEN", Message: "Application name already in use"}
	DefaultAppProtected    = Definition{Code: "DEFAULT_APP_PROTECTED", Message: "Default application cannot be deleted or renamed"}
	RecipientNotFound      = Definition{Code: "RECIPIENT_NOT_FOUND", Message: "Recipient not found"}
	RecipientLastRemaining = Definition{Code: "RECIPIENT_LAST_REMAINING", Message: "Application must keep at least one recipient"}
	RecipientLastActive    = Definition{Code: "RECIPIENT_LAST_ACTIVE", Message: "Application must keep at least one active recipient"}
	RecipientPhoneInvalid  = Definition{Code: "RECIPIENT_PHONE_INVALID", Message: "Recipient phone number invalid"}
	RecipientUnavailable   = Definition{Code: "RECIPIENT_UNAVAILABLE", Message: "No deliverable recipient, account owner has no phone"}
)

// 通知模块错误。
var (
	NotificationNotFound    = Definition{Code: "NOTIFICATION_NOT_FOUND", Message: "Notification not found"}
	NotificationRateLimited = Definition{Code: "NOTIFICATION_RATE_LIMITED", Message: "Duplicate notification suppressed by rate limit"}
	MessageRequired         = Definition{Code: "MESSAGE_REQUIRED", Message: "Notification message is required"}
)

// 传输模块错误。
var (
	TransportFailed      = Definition{Code: "TRANSPORT_FAILED", Message: "Delivery transport failed"}
	TransportUnavailable = Definition{Code: "TRANSPORT_UNAVAILABLE", Message: "Delivery transport not configured"}
)

// 通用错误。
var (
	TooManyRequests = Definition{Code: "TOO_MANY_REQUESTS", Message: "Too many requests"}
	InvalidRequest  = Definition{Code: "INVALID_REQUEST", Message: "Invalid request"}
)

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	EmailAlreadyRegistered.Code:  EmailAlreadyRegistered,
	InvalidCredentials.Code:      InvalidCredentials,
	Unauthorized.Code:            Unauthorized,
	InvalidUserID.Code:           InvalidUserID,
	APIKeyInvalid.Code:           APIKeyInvalid,
	SettingsOutOfRange.Code:      SettingsOutOfRange,
	UserNotFound.Code:            UserNotFound,
	ApplicationNotFound.Code:     ApplicationNotFound,
	ApplicationNameTaken.Code:    ApplicationNameTaken,
	DefaultAppProtected.Code:     DefaultAppProtected,
	RecipientNotFound.Code:       RecipientNotFound,
	RecipientLastRemaining.Code:  RecipientLastRemaining,
	RecipientLastActive.Code:     RecipientLastActive,
	RecipientPhoneInvalid.Code:   RecipientPhoneInvalid,
	RecipientUnavailable.Code:    RecipientUnavailable,
	NotificationNotFound.Code:    NotificationNotFound,
	NotificationRateLimited.Code: NotificationRateLimited,
	MessageRequired.Code:         MessageRequired,
	TransportFailed.Code:         TransportFailed,
	TransportUnavailable.Code:    TransportUnavailable,
	TooManyRequests.Code:         TooManyRequests,
	InvalidRequest.Code:          InvalidRequest,
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}
