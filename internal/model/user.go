package model

// User 账户模型，一个账户拥有多个应用
type User struct {
	BaseModel
	PublicID     int64  `gorm:"uniqueIndex;not null" json:"public_id"`
	Email        string `gorm:"uniqueIndex;type:varchar(255);not null" json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null" json:"-"`
	Name         string `gorm:"type:varchar(64);not null;default:''" json:"name"`
	Phone        string `gorm:"type:varchar(32);not null;default:''" json:"phone"` // 接收人回退号码

	// 通知设置，直接挂在 users 表上
	RateLimitWindow int  `gorm:"type:smallint;not null;default:5" json:"rate_limit_window"` // 去重窗口，单位分钟，1-60
	CallEnabled     bool `gorm:"not null;default:false" json:"call_enabled"`                // 升级时是否外呼
	RetryEnabled    bool `gorm:"not null;default:true" json:"retry_enabled"`                // 是否安排升级重试
	RetryDelay      int  `gorm:"type:smallint;not null;default:5" json:"retry_delay"`       // 升级延迟，单位分钟，1-30
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// 通知设置边界
const (
	RateLimitWindowMin     = 1
	RateLimitWindowMax     = 60
	RateLimitWindowDefault = 5
	RetryDelayMin          = 1
	RetryDelayMax          = 30
	RetryDelayDefault      = 5
)

// ValidateSettings 校验通知设置是否在允许范围内
func (u *User) ValidateSettings() bool {
	if u.RateLimitWindow < RateLimitWindowMin || u.RateLimitWindow > RateLimitWindowMax {
		return false
	}
	if u.RetryDelay < RetryDelayMin || u.RetryDelay > RetryDelayMax {
		return false
	}
	return true
}
