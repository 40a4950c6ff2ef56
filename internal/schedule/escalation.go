package schedule

// 升级调度器：告警发送成功后延迟触发一次升级重试（电话或 RETRY 短信）
// 单次触发，不级联；通知被确认处理后可取消

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"ConsoleExt/pkg/logger"
)

// Scheduler 延迟任务调度接口，按通知 ID 索引，可注入替换便于测试
type Scheduler interface {
	// Schedule 在 delay 之后执行 task，同一通知重复调度会覆盖前一次
	Schedule(notificationID int64, delay time.Duration, task func())

	// Cancel 取消尚未触发的任务，任务不存在时为 no-op
	Cancel(notificationID int64)
}

var (
	timerSchedulerOnce sync.Once
	timerSchedulerInst *TimerScheduler
)

// TimerScheduler 基于 time.AfterFunc 的进程内实现
type TimerScheduler struct {
	mu     sync.Mutex
	timers map[int64]*time.Timer
	logger *zap.Logger
}

func GetScheduler() *TimerScheduler {
	timerSchedulerOnce.Do(func() {
		timerSchedulerInst = NewTimerScheduler()
	})
	return timerSchedulerInst
}

func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{
		timers: make(map[int64]*time.Timer),
		logger: logger.Logger,
	}
}

func (s *TimerScheduler) Schedule(notificationID int64, delay time.Duration, task func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// 同一通知只保留最后一次调度
	if old, ok := s.timers[notificationID]; ok {
		old.Stop()
	}

	s.timers[notificationID] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, notificationID)
		s.mu.Unlock()

		task()
	})

	s.logger.Debug("Escalation scheduled",
		zap.Int64("notification_id", notificationID),
		zap.Duration("delay", delay),
	)
}

func (s *TimerScheduler) Cancel(notificationID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[notificationID]; ok {
		timer.Stop()
		delete(s.timers, notificationID)
		s.logger.Debug("Escalation cancelled",
			zap.Int64("notification_id", notificationID),
		)
	}
}

// Pending 当前等待触发的任务数
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// ManualScheduler 手动触发的实现，测试里用来替代真实定时器
type ManualScheduler struct {
	mu      sync.Mutex
	entries map[int64]manualEntry
}

type manualEntry struct {
	delay time.Duration
	task  func()
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{
		entries: make(map[int64]manualEntry),
	}
}

func (s *ManualScheduler) Schedule(notificationID int64, delay time.Duration, task func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[notificationID] = manualEntry{delay: delay, task: task}
}

func (s *ManualScheduler) Cancel(notificationID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, notificationID)
}

// Fire 立即执行指定通知的任务，返回任务是否存在
func (s *ManualScheduler) Fire(notificationID int64) bool {
	s.mu.Lock()
	entry, ok := s.entries[notificationID]
	delete(s.entries, notificationID)
	s.mu.Unlock()

	if !ok {
		return false
	}
	entry.task()
	return true
}

// Delay 返回指定通知当前调度的延迟，不存在时返回 false
func (s *ManualScheduler) Delay(notificationID int64) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[notificationID]
	return entry.delay, ok
}

// Pending 当前等待触发的任务数
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
