package service

import (
	"testing"

	"ConsoleExt/internal/model"
)

func TestZZZProbeRetrySeed(t *testing.T) {
	env := newDispatchEnv(t)
	user := seedUser(t, env.db, func(u *model.User) {
		u.RetryEnabled = false
	})
	var got model.User
	if err := env.db.First(&got, user.ID).Error; err != nil {
		t.Fatal(err)
	}
	t.Logf("stored RetryEnabled=%v CallEnabled=%v ID=%d", got.RetryEnabled, got.CallEnabled, got.ID)
}
