package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics OpenTelemetry 指标集合
type OTelMetrics struct {
	// 投递通道指标
	SMSSentTotal    metric.Int64Counter
	CallPlacedTotal metric.Int64Counter

	// 派发编排指标
	DispatchTotal    metric.Int64Counter
	DispatchDuration metric.Float64Histogram
	EscalationTotal  metric.Int64Counter
}

var (
	// 全局指标实例
	metrics *OTelMetrics
	// meter 用于创建指标
	meter = otel.Meter("consoleext")
)

// InitMetrics 初始化 OpenTelemetry 指标
func InitMetrics() error {
	var err error

	metrics = &OTelMetrics{}

	metrics.SMSSentTotal, err = meter.Int64Counter(
		"sms_sent_total",
		metric.WithDescription("Total number of alert SMS attempts"),
		metric.WithUnit("{sms}"),
	)
	if err != nil {
		return err
	}

	metrics.CallPlacedTotal, err = meter.Int64Counter(
		"voice_call_total",
		metric.WithDescription("Total number of voice call attempts"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	metrics.DispatchTotal, err = meter.Int64Counter(
		"notification_dispatch_total",
		metric.WithDescription("Total number of notification dispatches by outcome"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return err
	}

	metrics.DispatchDuration, err = meter.Float64Histogram(
		"notification_dispatch_duration_seconds",
		metric.WithDescription("Time spent dispatching a notification in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	metrics.EscalationTotal, err = meter.Int64Counter(
		"notification_escalation_total",
		metric.WithDescription("Total number of escalation retries by method"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// GetMetrics 获取全局指标实例
func GetMetrics() *OTelMetrics {
	return metrics
}

// RecordSMSSent 记录短信发送成功
func (m *OTelMetrics) RecordSMSSent(ctx context.Context, provider string) {
	m.SMSSentTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", "success"),
	))
}

// RecordSMSFailed 记录短信发送失败
func (m *OTelMetrics) RecordSMSFailed(ctx context.Context, provider, reason string) {
	m.SMSSentTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", "failed"),
		attribute.String("reason", reason),
	))
}

// RecordCallPlaced 记录外呼成功
func (m *OTelMetrics) RecordCallPlaced(ctx context.Context, provider string) {
	m.CallPlacedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", "success"),
	))
}

// RecordCallFailed 记录外呼失败
func (m *OTelMetrics) RecordCallFailed(ctx context.Context, provider, reason string) {
	m.CallPlacedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", "failed"),
		attribute.String("reason", reason),
	))
}

// RecordDispatch 记录一次派发结果，outcome 为通知终态
func (m *OTelMetrics) RecordDispatch(ctx context.Context, outcome string, duration float64) {
	m.DispatchTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
	m.DispatchDuration.Record(ctx, duration, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

// RecordEscalation 记录一次升级重试
func (m *OTelMetrics) RecordEscalation(ctx context.Context, method string) {
	m.EscalationTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
	))
}
