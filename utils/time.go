package utils

import (
	"time"
)

// ParseTime 解析查询参数中的时间字符串，支持 RFC3339 与 "2006-01-02 15:04:05"
func ParseTime(timeStr string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, timeStr); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", timeStr)
}
