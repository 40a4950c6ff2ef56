package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ConsoleExt/internal/model"
)

func TestEscalateSendsRetrySMS(t *testing.T) {
	env := newDispatchEnv(t)
	user := seedUser(t, env.db, nil)
	app := seedApplication(t, env.db, user, "checkout", model.Recipients{
		{Name: "Alice", Phone: "+8613800000001", IsActive: true},
	})
	notification := seedNotification(t, env.db, user, app, "payment failed", model.NotificationStatusSent, time.Now())

	env.svc.Escalate(context.Background(), notification.ID)

	sms := env.client.CallsByMethod("sms")
	require.Len(t, sms, 1)
	assert.Equal(t, "RETRY: payment failed", sms[0].Message)

	attempts := loadAttempts(t, env.db, notification.ID)
	require.Len(t, attempts, 1)
	assert.Equal(t, model.DeliveryAttemptStatusSent, attempts[0].Status)
	assert.Equal(t, true, attempts[0].ResponseData["retry"])
	assert.Equal(t, "sms", attempts[0].ResponseData["method"])
}

func TestDispatchThenEscalationRoundTrip(t *testing.T) {
	env := newDispatchEnv(t)
	user := seedUser(t, env.db, func(u *model.User) {
		u.RetryDelay = 5
	})
	app := seedApplication(t, env.db, user, "checkout", model.Recipients{
		{Name: "Alice", Phone: "+8613800000001", IsActive: true},
	})
	notification := seedNotification(t, env.db, user, app, "db connection lost", model.NotificationStatusPending, time.Now())

	require.NoError(t, env.svc.Dispatch(context.Background(), notification.ID))

	delay, ok := env.scheduler.Delay(notification.ID)
	require.True(t, ok)
	assert.Equal(t, 5*time.Minute, delay)

	// 延迟到点，触发升级重试
	require.True(t, env.scheduler.Fire(notification.ID))

	sms := env.client.CallsByMethod("sms")
	require.Len(t, sms, 2)
	assert.Equal(t, "db connection lost", sms[0].Message)
	assert.Equal(t, "RETRY: db connection lost", sms[1].Message)
	assert.Equal(t, "+8613800000001", sms[1].Phone)

	assert.Equal(t, model.NotificationStatusSent, loadNotification(t, env.db, notification.ID).Status)

	attempts := loadAttempts(t, env.db, notification.ID)
	require.Len(t, attempts, 2)
	assert.EqualValues(t, 1, attempts[0].ResponseData["recipients"])
	assert.Equal(t, true, attempts[1].ResponseData["retry"])
	assert.Equal(t, "sms", attempts[1].ResponseData["method"])

	// 单次升级，不再重新排定
	assert.Equal(t, 0, env.scheduler.Pending())
}

func TestEscalatePlacesCallWhenEnabled(t *testing.T) {
	env := newDispatchEnv(t)
	user := seedUser(t, env.db, func(u *model.User) {
		u.CallEnabled = true
	})
	app := seedApplication(t, env.db, user, "checkout", model.Recipients{
		{Name: "Alice", Phone: "+8613800000001", IsActive: true},
	})
	notification := seedNotification(t, env.db, user, app, "payment failed", model.NotificationStatusSent, time.Now())

	env.svc.Escalate(context.Background(), notification.ID)

	calls := env.client.CallsByMethod("call")
	require.Len(t, calls, 1)
	// 外呼播报原始消息，不加 RETRY 前缀
	assert.Equal(t, "payment failed", calls[0].Message)

	attempts := loadAttempts(t, env.db, notification.ID)
	require.Len(t, attempts, 1)
	assert.Equal(t, "call", attempts[0].ResponseData["method"])
}

func TestEscalateUsesCurrentRecipientConfig(t *testing.T) {
	env := newDispatchEnv(t)
	user := seedUser(t, env.db, nil)
	app := seedApplication(t, env.db, user, "checkout", model.Recipients{
		{Name: "Alice", Phone: "+8613800000001", IsActive: true},
	})
	notification := seedNotification(t, env.db, user, app, "payment failed", model.NotificationStatusSent, time.Now())

	// 触发前换掉接收人，升级应使用新配置
	app.Recipients = model.Recipients{
		{Name: "Dave", Phone: "+8613800000009", IsActive: true},
	}
	require.NoError(t, env.db.Model(app).Update("recipients", app.Recipients).Error)

	env.svc.Escalate(context.Background(), notification.ID)

	sms := env.client.CallsByMethod("sms")
	require.Len(t, sms, 1)
	assert.Equal(t, "+8613800000009", sms[0].Phone)
}

func TestEscalateSkipsNonSentNotification(t *testing.T) {
	env := newDispatchEnv(t)
	user := seedUser(t, env.db, nil)
	app := seedApplication(t, env.db, user, "checkout", model.Recipients{
		{Name: "Alice", Phone: "+8613800000001", IsActive: true},
	})

	for _, status := range []model.NotificationStatus{
		model.NotificationStatusPending,
		model.NotificationStatusRateLimited,
		model.NotificationStatusFailed,
	} {
		notification := seedNotification(t, env.db, user, app, "payment failed "+string(status), status, time.Now())
		env.svc.Escalate(context.Background(), notification.ID)
		assert.Empty(t, loadAttempts(t, env.db, notification.ID), "status %s", status)
	}
	assert.Empty(t, env.client.Calls)
}

func TestEscalateSkipsMissingNotification(t *testing.T) {
	env := newDispatchEnv(t)

	env.svc.Escalate(context.Background(), 99999)
	assert.Empty(t, env.client.Calls)
}

func TestEscalateRecordsFailureButKeepsSent(t *testing.T) {
	env := newDispatchEnv(t)
	user := seedUser(t, env.db, nil)
	app := seedApplication(t, env.db, user, "checkout", model.Recipients{
		{Name: "Alice", Phone: "+8613800000001", IsActive: true},
	})
	notification := seedNotification(t, env.db, user, app, "payment failed", model.NotificationStatusSent, time.Now())

	env.client.FailAll = true
	env.svc.Escalate(context.Background(), notification.ID)

	// 升级失败只记录尝试，通知保持 sent
	assert.Equal(t, model.NotificationStatusSent, loadNotification(t, env.db, notification.ID).Status)

	attempts := loadAttempts(t, env.db, notification.ID)
	require.Len(t, attempts, 1)
	assert.Equal(t, model.DeliveryAttemptStatusFailed, attempts[0].Status)
	assert.NotEmpty(t, attempts[0].ResponseData["error"])
}

func TestEscalationDelayClampsToDefault(t *testing.T) {
	assert.Equal(t, 10*time.Minute, EscalationDelay(&model.User{RetryDelay: 10}))
	assert.Equal(t, time.Duration(model.RetryDelayDefault)*time.Minute, EscalationDelay(&model.User{RetryDelay: 0}))
	assert.Equal(t, time.Duration(model.RetryDelayDefault)*time.Minute, EscalationDelay(&model.User{RetryDelay: 31}))
}
