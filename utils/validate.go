package utils

import (
	"regexp"
)

var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{6,14}$`)

// ValidatePhone 校验 E.164 风格的手机号
func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// MaskPhone 打码手机号，日志中只保留前三位和末两位
func MaskPhone(phone string) string {
	if len(phone) <= 5 {
		return "***"
	}
	return phone[:3] + "****" + phone[len(phone)-2:]
}
