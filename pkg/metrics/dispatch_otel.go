package metrics

import (
	"context"
)

// 包级包装函数，指标未初始化（如单测环境）时静默跳过

// RecordSMSSent 记录短信发送成功
func RecordSMSSent(provider string) {
	ctx := context.Background()
	m := GetMetrics()
	if m != nil {
		m.RecordSMSSent(ctx, provider)
	}
}

// RecordSMSFailed 记录短信发送失败
func RecordSMSFailed(provider, reason string) {
	ctx := context.Background()
	m := GetMetrics()
	if m != nil {
		m.RecordSMSFailed(ctx, provider, reason)
	}
}

// RecordCallPlaced 记录外呼成功
func RecordCallPlaced(provider string) {
	ctx := context.Background()
	m := GetMetrics()
	if m != nil {
		m.RecordCallPlaced(ctx, provider)
	}
}

// RecordCallFailed 记录外呼失败
func RecordCallFailed(provider, reason string) {
	ctx := context.Background()
	m := GetMetrics()
	if m != nil {
		m.RecordCallFailed(ctx, provider, reason)
	}
}

// RecordDispatch 记录派发结果
func RecordDispatch(outcome string, duration float64) {
	ctx := context.Background()
	m := GetMetrics()
	if m != nil {
		m.RecordDispatch(ctx, outcome, duration)
	}
}

// RecordEscalation 记录升级重试
func RecordEscalation(method string) {
	ctx := context.Background()
	m := GetMetrics()
	if m != nil {
		m.RecordEscalation(ctx, method)
	}
}
