package dto

import "time"

// ========== Application 相关 DTO ==========

// ApplicationItem 应用项
type ApplicationItem struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	APIKey     string          `json:"api_key"`
	IsDefault  bool            `json:"is_default"`
	Recipients []RecipientItem `json:"recipients"`
	CreatedAt  time.Time       `json:"created_at"`
}

// RecipientItem 接收人项
type RecipientItem struct {
	Index    int    `json:"index"` // 在应用内的位置，更新/删除时引用
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	IsActive bool   `json:"is_active"`
}

// CreateApplicationRequest 创建应用请求
type CreateApplicationRequest struct {
	Name string `json:"name" binding:"required"`
}

// AddRecipientRequest 添加接收人请求
type AddRecipientRequest struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone" binding:"required"`
}

// UpdateRecipientRequest 更新接收人请求，nil 字段保持不变
type UpdateRecipientRequest struct {
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	IsActive *bool   `json:"is_active"`
}
