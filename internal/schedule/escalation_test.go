package schedule

import (
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ConsoleExt/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func TestTimerSchedulerFires(t *testing.T) {
	s := NewTimerScheduler()

	fired := make(chan struct{})
	s.Schedule(1, 10*time.Millisecond, func() {
		close(fired)
	})

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("task did not fire")
	}

	assert.Eventually(t, func() bool { return s.Pending() == 0 }, time.Second, 5*time.Millisecond)
}

func TestTimerSchedulerCancel(t *testing.T) {
	s := NewTimerScheduler()

	var fired atomic.Bool
	s.Schedule(1, 20*time.Millisecond, func() {
		fired.Store(true)
	})
	s.Cancel(1)

	time.Sleep(50 * time.Millisecond)
	assert.False(t, fired.Load())
	assert.Equal(t, 0, s.Pending())
}

func TestTimerSchedulerCancelUnknownIsNoop(t *testing.T) {
	s := NewTimerScheduler()
	s.Cancel(42)
	assert.Equal(t, 0, s.Pending())
}

func TestTimerSchedulerRescheduleReplaces(t *testing.T) {
	s := NewTimerScheduler()

	var first, second atomic.Bool
	s.Schedule(1, 20*time.Millisecond, func() { first.Store(true) })
	s.Schedule(1, 30*time.Millisecond, func() { second.Store(true) })

	require.Equal(t, 1, s.Pending())

	time.Sleep(80 * time.Millisecond)
	assert.False(t, first.Load(), "replaced task must not fire")
	assert.True(t, second.Load())
}

func TestManualScheduler(t *testing.T) {
	s := NewManualScheduler()

	var fired atomic.Bool
	s.Schedule(7, 5*time.Minute, func() { fired.Store(true) })

	delay, ok := s.Delay(7)
	require.True(t, ok)
	assert.Equal(t, 5*time.Minute, delay)
	assert.Equal(t, 1, s.Pending())

	assert.True(t, s.Fire(7))
	assert.True(t, fired.Load())
	assert.Equal(t, 0, s.Pending())

	// 已触发的任务不能再次触发
	assert.False(t, s.Fire(7))
}

func TestManualSchedulerCancel(t *testing.T) {
	s := NewManualScheduler()

	s.Schedule(7, time.Minute, func() {})
	s.Cancel(7)

	assert.False(t, s.Fire(7))
	_, ok := s.Delay(7)
	assert.False(t, ok)
}
