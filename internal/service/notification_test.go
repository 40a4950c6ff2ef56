package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ConsoleExt/internal/model"
	"ConsoleExt/internal/model/dto"
	pkgerrors "ConsoleExt/pkg/errors"
)

func TestIngestCreatesPendingAndPublishes(t *testing.T) {
	env := newDispatchEnv(t)
	user := seedUser(t, env.db, nil)
	app := seedApplication(t, env.db, user, "checkout", model.Recipients{})

	notification, err := env.svc.Ingest(context.Background(), app, dto.IngestRequest{
		Message:    "db connection lost",
		StackTrace: "at main.go:42",
		Context:    map[string]interface{}{"env": "prod"},
	})
	require.NoError(t, err)

	assert.Equal(t, model.NotificationStatusPending, notification.Status)
	assert.NotZero(t, notification.PublicID)
	assert.Len(t, notification.Hash, 64)

	require.Len(t, env.published, 1)
	assert.Equal(t, notification.ID, env.published[0].NotificationID)
	assert.Equal(t, user.ID, env.published[0].UserID)
	assert.NotEmpty(t, env.published[0].MessageID)
}

func TestIngestRequiresMessage(t *testing.T) {
	env := newDispatchEnv(t)
	user := seedUser(t, env.db, nil)
	app := seedApplication(t, env.db, user, "checkout", model.Recipients{})

	_, err := env.svc.Ingest(context.Background(), app, dto.IngestRequest{Message: ""})
	assert.ErrorIs(t, err, pkgerrors.MessageRequired)
	assert.Empty(t, env.published)
}

func TestIngestSurvivesPublishFailure(t *testing.T) {
	env := newDispatchEnv(t)
	user := seedUser(t, env.db, nil)
	app := seedApplication(t, env.db, user, "checkout", model.Recipients{})

	env.svc.SetPublishFunc(func(msg model.DispatchMessage) error {
		return assert.AnError
	})

	// 投递失败不影响入库，补偿扫描会重新投递
	notification, err := env.svc.Ingest(context.Background(), app, dto.IngestRequest{Message: "oops"})
	require.NoError(t, err)
	assert.Equal(t, model.NotificationStatusPending, loadNotification(t, env.db, notification.ID).Status)
}

func TestDispatchSendsToActiveRecipients(t *testing.T) {
	env := newDispatchEnv(t)
	user := seedUser(t, env.db, nil)
	app := seedApplication(t, env.db, user, "checkout", model.Recipients{
		{Name: "Alice", Phone: "+8613800000001", IsActive: true},
		{Name: "Bob", Phone: "+8613800000002", IsActive: false},
		{Name: "Carol", Phone: "+8613800000003", IsActive: true},
	})
	notification := seedNotification(t, env.db, user, app, "payment failed", model.NotificationStatusPending, time.Now())

	require.NoError(t, env.svc.Dispatch(context.Background(), notification.ID))

	assert.Equal(t, model.NotificationStatusSent, loadNotification(t, env.db, notification.ID).Status)

	// 只向激活的接收人发送
	sms := env.client.CallsByMethod("sms")
	require.Len(t, sms, 2)
	assert.Equal(t, "+8613800000001", sms[0].Phone)
	assert.Equal(t, "+8613800000003", sms[1].Phone)
	assert.Equal(t, "payment failed", sms[0].Message)

	attempts := loadAttempts(t, env.db, notification.ID)
	require.Len(t, attempts, 1)
	assert.Equal(t, model.DeliveryAttemptStatusSent, attempts[0].Status)
	assert.EqualValues(t, 2, attempts[0].ResponseData["recipients"])

	// 终态变更广播到事件总线
	assert.Equal(t, []string{"sent"}, env.events)
}

func TestDispatchFallsBackToOwner(t *testing.T) {
	env := newDispatchEnv(t)
	user := seedUser(t, env.db, func(u *model.User) {
		u.Phone = "+8613900000000"
	})
	app := seedApplication(t, env.db, user, "checkout", model.Recipients{
		{Name: "Bob", Phone: "+8613800000002", IsActive: false},
	})
	notification := seedNotification(t, env.db, user, app, "payment failed", model.NotificationStatusPending, time.Now())

	require.NoError(t, env.svc.Dispatch(context.Background(), notification.ID))

	sms := env.client.CallsByMethod("sms")
	require.Len(t, sms, 1)
	assert.Equal(t, "+8613900000000", sms[0].Phone)
	assert.Equal(t, model.NotificationStatusSent, loadNotification(t, env.db, notification.ID).Status)
}

func TestDispatchFailsWithoutAnyRecipient(t *testing.T) {
	env := newDispatchEnv(t)
	user := seedUser(t, env.db, func(u *model.User) {
		u.Phone = ""
	})
	app := seedApplication(t, env.db, user, "checkout", model.Recipients{})
	notification := seedNotification(t, env.db, user, app, "payment failed", model.NotificationStatusPending, time.Now())

	// 配置错误属于业务终态，不触发消息重试
	require.NoError(t, env.svc.Dispatch(context.Background(), notification.ID))

	assert.Equal(t, model.NotificationStatusFailed, loadNotification(t, env.db, notification.ID).Status)

	attempts := loadAttempts(t, env.db, notification.ID)
	require.Len(t, attempts, 1)
	assert.Equal(t, model.DeliveryAttemptStatusFailed, attempts[0].Status)
	assert.NotEmpty(t, attempts[0].ResponseData["error"])
	assert.Equal(t, 0, env.scheduler.Pending())
}

func TestDispatchFailsOnTransportError(t *testing.T) {
	env := newDispatchEnv(t)
	user := seedUser(t, env.db, nil)
	app := seedApplication(t, env.db, user, "checkout", model.Recipients{
		{Name: "Alice", Phone: "+8613800000001", IsActive: true},
	})
	notification := seedNotification(t, env.db, user, app, "payment failed", model.NotificationStatusPending, time.Now())

	env.client.FailAll = true
	require.NoError(t, env.svc.Dispatch(context.Background(), notification.ID))

	assert.Equal(t, model.NotificationStatusFailed, loadNotification(t, env.db, notification.ID).Status)

	attempts := loadAttempts(t, env.db, notification.ID)
	require.Len(t, attempts, 1)
	assert.Equal(t, model.DeliveryAttemptStatusFailed, attempts[0].Status)

	// 发送失败不安排升级重试
	assert.Equal(t, 0, env.scheduler.Pending())
}

func TestDispatchArmsEscalation(t *testing.T) {
	env := newDispatchEnv(t)
	user := seedUser(t, env.db, func(u *model.User) {
		u.RetryDelay = 10
	})
	app := seedApplication(t, env.db, user, "checkout", model.Recipients{
		{Name: "Alice", Phone: "+8613800000001", IsActive: true},
	})
	notification := seedNotification(t, env.db, user, app, "payment failed", model.NotificationStatusPending, time.Now())

	require.NoError(t, env.svc.Dispatch(context.Background(), notification.ID))

	delay, ok := env.scheduler.Delay(notification.ID)
	require.True(t, ok)
	assert.Equal(t, 10*time.Minute, delay)
}

func TestDispatchSkipsEscalationWhenRetryDisabled(t *testing.T) {
	env := newDispatchEnv(t)
	user := seedUser(t, env.db, func(u *model.User) {
		u.RetryEnabled = false
	})
	app := seedApplication(t, env.db, user, "checkout", model.Recipients{
		{Name: "Alice", Phone: "+8613800000001", IsActive: true},
	})
	notification := seedNotification(t, env.db, user, app, "payment failed", model.NotificationStatusPending, time.Now())

	require.NoError(t, env.svc.Dispatch(context.Background(), notification.ID))

	assert.Equal(t, model.NotificationStatusSent, loadNotification(t, env.db, notification.ID).Status)
	assert.Equal(t, 0, env.scheduler.Pending())
}

func TestDispatchSuppressesDuplicateInWindow(t *testing.T) {
	env := newDispatchEnv(t)
	user := seedUser(t, env.db, func(u *model.User) {
		u.RateLimitWindow = 5
	})
	app := seedApplication(t, env.db, user, "checkout", model.Recipients{
		{Name: "Alice", Phone: "+8613800000001", IsActive: true},
	})

	// 两分钟前同指纹的通知已成功发出
	seedNotification(t, env.db, user, app, "payment failed", model.NotificationStatusSent, time.Now().Add(-2*time.Minute))
	duplicate := seedNotification(t, env.db, user, app, "payment failed", model.NotificationStatusPending, time.Now())

	require.NoError(t, env.svc.Dispatch(context.Background(), duplicate.ID))

	assert.Equal(t, model.NotificationStatusRateLimited, loadNotification(t, env.db, duplicate.ID).Status)
	assert.Empty(t, env.client.Calls)

	// 被抑制的通知不产生投递尝试记录
	assert.Empty(t, loadAttempts(t, env.db, duplicate.ID))
	assert.Equal(t, 0, env.scheduler.Pending())
	assert.Equal(t, []string{"rate-limited"}, env.events)
}

func TestDispatchAllowsDuplicateOutsideWindow(t *testing.T) {
	env := newDispatchEnv(t)
	user := seedUser(t, env.db, func(u *model.User) {
		u.RateLimitWindow = 5
	})
	app := seedApplication(t, env.db, user, "checkout", model.Recipients{
		{Name: "Alice", Phone: "+8613800000001", IsActive: true},
	})

	seedNotification(t, env.db, user, app, "payment failed", model.NotificationStatusSent, time.Now().Add(-10*time.Minute))
	fresh := seedNotification(t, env.db, user, app, "payment failed", model.NotificationStatusPending, time.Now())

	require.NoError(t, env.svc.Dispatch(context.Background(), fresh.ID))

	assert.Equal(t, model.NotificationStatusSent, loadNotification(t, env.db, fresh.ID).Status)
	assert.Len(t, env.client.Calls, 1)
}

func TestDispatchIgnoresDifferentFingerprint(t *testing.T) {
	env := newDispatchEnv(t)
	user := seedUser(t, env.db, nil)
	app := seedApplication(t, env.db, user, "checkout", model.Recipients{
		{Name: "Alice", Phone: "+8613800000001", IsActive: true},
	})

	seedNotification(t, env.db, user, app, "payment failed", model.NotificationStatusSent, time.Now().Add(-1*time.Minute))
	other := seedNotification(t, env.db, user, app, "different error", model.NotificationStatusPending, time.Now())

	require.NoError(t, env.svc.Dispatch(context.Background(), other.ID))

	assert.Equal(t, model.NotificationStatusSent, loadNotification(t, env.db, other.ID).Status)
}

func TestDispatchSkipsTerminalStates(t *testing.T) {
	env := newDispatchEnv(t)
	user := seedUser(t, env.db, nil)
	app := seedApplication(t, env.db, user, "checkout", model.Recipients{
		{Name: "Alice", Phone: "+8613800000001", IsActive: true},
	})
	notification := seedNotification(t, env.db, user, app, "payment failed", model.NotificationStatusSent, time.Now())

	err := env.svc.Dispatch(context.Background(), notification.ID)
	assert.True(t, pkgerrors.IsSkipMessageError(err))
	assert.Empty(t, env.client.Calls)
}

func TestDispatchSkipsMissingNotification(t *testing.T) {
	env := newDispatchEnv(t)

	err := env.svc.Dispatch(context.Background(), 99999)
	assert.True(t, pkgerrors.IsSkipMessageError(err))
}

func TestDispatchFailsWhenApplicationDeleted(t *testing.T) {
	env := newDispatchEnv(t)
	user := seedUser(t, env.db, nil)
	app := seedApplication(t, env.db, user, "checkout", model.Recipients{
		{Name: "Alice", Phone: "+8613800000001", IsActive: true},
	})
	notification := seedNotification(t, env.db, user, app, "payment failed", model.NotificationStatusPending, time.Now())

	require.NoError(t, env.db.Delete(app).Error)

	require.NoError(t, env.svc.Dispatch(context.Background(), notification.ID))
	assert.Equal(t, model.NotificationStatusFailed, loadNotification(t, env.db, notification.ID).Status)
}

func TestResolveCancelsEscalation(t *testing.T) {
	env := newDispatchEnv(t)
	user := seedUser(t, env.db, nil)
	app := seedApplication(t, env.db, user, "checkout", model.Recipients{
		{Name: "Alice", Phone: "+8613800000001", IsActive: true},
	})
	notification := seedNotification(t, env.db, user, app, "payment failed", model.NotificationStatusPending, time.Now())

	require.NoError(t, env.svc.Dispatch(context.Background(), notification.ID))
	require.Equal(t, 1, env.scheduler.Pending())

	err := env.svc.Resolve(context.Background(), publicIDStr(user.PublicID), publicIDStr(notification.PublicID))
	require.NoError(t, err)
	assert.Equal(t, 0, env.scheduler.Pending())
}

func TestResolveRejectsForeignNotification(t *testing.T) {
	env := newDispatchEnv(t)
	owner := seedUser(t, env.db, nil)
	intruder := seedUser(t, env.db, nil)
	app := seedApplication(t, env.db, owner, "checkout", model.Recipients{})
	notification := seedNotification(t, env.db, owner, app, "payment failed", model.NotificationStatusSent, time.Now())

	err := env.svc.Resolve(context.Background(), publicIDStr(intruder.PublicID), publicIDStr(notification.PublicID))
	assert.ErrorIs(t, err, pkgerrors.NotificationNotFound)
}

func TestListNotificationsPagination(t *testing.T) {
	env := newDispatchEnv(t)
	user := seedUser(t, env.db, nil)
	app := seedApplication(t, env.db, user, "checkout", model.Recipients{})

	for i := 0; i < 5; i++ {
		seedNotification(t, env.db, user, app, fmt.Sprintf("error %d", i), model.NotificationStatusSent, time.Now())
	}

	items, cursor, err := env.svc.ListNotifications(context.Background(), publicIDStr(user.PublicID), dto.NotificationQuery{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, items, 3)
	require.NotEmpty(t, cursor)

	// 第二页拿剩下的两条，游标耗尽
	rest, next, err := env.svc.ListNotifications(context.Background(), publicIDStr(user.PublicID), dto.NotificationQuery{Limit: 3, Cursor: cursor})
	require.NoError(t, err)
	assert.Len(t, rest, 2)
	assert.Empty(t, next)

	// 倒序且无重叠
	assert.Equal(t, "error 4", items[0].Message)
	assert.Equal(t, "error 1", rest[0].Message)
}

func TestListNotificationsStatusFilter(t *testing.T) {
	env := newDispatchEnv(t)
	user := seedUser(t, env.db, nil)
	app := seedApplication(t, env.db, user, "checkout", model.Recipients{})

	seedNotification(t, env.db, user, app, "sent one", model.NotificationStatusSent, time.Now())
	seedNotification(t, env.db, user, app, "failed one", model.NotificationStatusFailed, time.Now())

	items, _, err := env.svc.ListNotifications(context.Background(), publicIDStr(user.PublicID), dto.NotificationQuery{Status: "failed"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "failed one", items[0].Message)
}

func TestGetNotificationDetailIncludesAttempts(t *testing.T) {
	env := newDispatchEnv(t)
	user := seedUser(t, env.db, nil)
	app := seedApplication(t, env.db, user, "checkout", model.Recipients{
		{Name: "Alice", Phone: "+8613800000001", IsActive: true},
	})
	notification := seedNotification(t, env.db, user, app, "payment failed", model.NotificationStatusPending, time.Now())

	require.NoError(t, env.svc.Dispatch(context.Background(), notification.ID))

	detail, err := env.svc.GetNotificationDetail(context.Background(), publicIDStr(user.PublicID), publicIDStr(notification.PublicID))
	require.NoError(t, err)

	assert.Equal(t, "payment failed", detail.Message)
	assert.Equal(t, "sent", detail.Status)
	require.Len(t, detail.Attempts, 1)
	assert.Equal(t, "sent", detail.Attempts[0].Status)
}

func TestSweepRepublishesStalePending(t *testing.T) {
	env := newDispatchEnv(t)
	user := seedUser(t, env.db, nil)
	app := seedApplication(t, env.db, user, "checkout", model.Recipients{})

	stale := seedNotification(t, env.db, user, app, "stuck", model.NotificationStatusPending, time.Now().Add(-30*time.Minute))
	seedNotification(t, env.db, user, app, "fresh", model.NotificationStatusPending, time.Now())
	seedNotification(t, env.db, user, app, "done", model.NotificationStatusSent, time.Now().Add(-30*time.Minute))

	count, err := env.svc.SweepPendingNotifications(context.Background(), 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.Len(t, env.published, 1)
	assert.Equal(t, stale.ID, env.published[0].NotificationID)
}
