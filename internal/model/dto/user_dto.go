package dto

// ========== User 相关 DTO ==========

// UserProfileData 用户资料数据
type UserProfileData struct {
	ID       string                  `json:"id"`
	Email    string                  `json:"email"`
	Name     string                  `json:"name"`
	Phone    string                  `json:"phone"`
	Settings NotificationSettingsDTO `json:"settings"`
}

// NotificationSettingsDTO 通知设置
type NotificationSettingsDTO struct {
	RateLimitWindow int  `json:"rate_limit_window"` // 分钟，1-60
	CallEnabled     bool `json:"call_enabled"`
	RetryEnabled    bool `json:"retry_enabled"`
	RetryDelay      int  `json:"retry_delay"` // 分钟，1-30
}

// UpdateUserSettingsRequest 更新用户设置请求，nil 字段保持不变
type UpdateUserSettingsRequest struct {
	Name            *string `json:"name"`
	Phone           *string `json:"phone"`
	RateLimitWindow *int    `json:"rate_limit_window"`
	CallEnabled     *bool   `json:"call_enabled"`
	RetryEnabled    *bool   `json:"retry_enabled"`
	RetryDelay      *int    `json:"retry_delay"`
}
