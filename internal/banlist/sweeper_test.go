package banlist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teampoint/botcore/internal/models"
	"github.com/teampoint/botcore/internal/notify"
	"gorm.io/gorm"
)

func expiredBan(t *testing.T, db *gorm.DB, userID int64) {
	t.Helper()
	ban := models.TempBan{
		UserID:    userID,
		ExpiresAt: time.Now().Add(-time.Minute),
		Reason:    "expired",
		IssuedBy:  999,
		IssuedAt:  time.Now().Add(-time.Hour),
	}
	require.NoError(t, db.Create(&ban).Error)
}

func TestSweepLiftsExpiredBanAndNotifiesOnce(t *testing.T) {
	r, db := newRegistry(t)
	recorder := newRecorder()
	s := NewSweeper(r, recorder, time.Minute, time.Second)
	expiredBan(t, db, 1)

	s.RunOnce(context.Background())

	banned, err := r.IsBanned(1)
	require.NoError(t, err)
	assert.False(t, banned)
	assert.Equal(t, 1, recorder.count(1))

	var remaining int64
	require.NoError(t, db.Model(&models.TempBan{}).Count(&remaining).Error)
	assert.Equal(t, int64(0), remaining)
}

func TestSweepKeepsLiveBans(t *testing.T) {
	r, _ := newRegistry(t)
	recorder := newRecorder()
	s := NewSweeper(r, recorder, time.Minute, time.Second)
	_, err := r.AddTempBan(1, time.Hour, "spam", admin())
	require.NoError(t, err)

	s.RunOnce(context.Background())

	banned, err := r.IsBanned(1)
	require.NoError(t, err)
	assert.True(t, banned)
	assert.Equal(t, 0, recorder.count(1))
}

func TestSweepRespectsPermanentBan(t *testing.T) {
	r, db := newRegistry(t)
	recorder := newRecorder()
	s := NewSweeper(r, recorder, time.Minute, time.Second)
	require.NoError(t, r.AddPermanentBan(target(1), admin()))
	expiredBan(t, db, 1)

	s.RunOnce(context.Background())

	// Temp ban is gone but the block list still holds the user, so no
	// "access restored" message goes out.
	banned, err := r.IsBanned(1)
	require.NoError(t, err)
	assert.True(t, banned)
	assert.Equal(t, 0, recorder.count(1))
}

func TestSweepHandlesMultipleUsers(t *testing.T) {
	r, db := newRegistry(t)
	recorder := newRecorder()
	s := NewSweeper(r, recorder, time.Minute, time.Second)
	expiredBan(t, db, 1)
	expiredBan(t, db, 2)
	_, err := r.AddTempBan(3, time.Hour, "live", admin())
	require.NoError(t, err)

	s.RunOnce(context.Background())

	assert.Equal(t, 1, recorder.count(1))
	assert.Equal(t, 1, recorder.count(2))
	assert.Equal(t, 0, recorder.count(3))

	var remaining []models.TempBan
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, int64(3), remaining[0].UserID)
}

// The lift commits before the notification goes out; a failed send
// must not resurrect the ban.
func TestSweepLiftsBanWhenNotificationFails(t *testing.T) {
	r, db := newRegistry(t)
	failing := notify.Func(func(context.Context, int64, string) error {
		return errors.New("delivery service down")
	})
	s := NewSweeper(r, failing, time.Minute, time.Second)
	expiredBan(t, db, 1)

	s.RunOnce(context.Background())

	banned, err := r.IsBanned(1)
	require.NoError(t, err)
	assert.False(t, banned)

	var remaining int64
	require.NoError(t, db.Model(&models.TempBan{}).Count(&remaining).Error)
	assert.Equal(t, int64(0), remaining)
}

func TestSweeperStopsOnCancel(t *testing.T) {
	r, _ := newRegistry(t)
	s := NewSweeper(r, newRecorder(), time.Hour, time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}

func TestSweeperRunsStartupPass(t *testing.T) {
	r, db := newRegistry(t)
	recorder := newRecorder()
	s := NewSweeper(r, recorder, time.Hour, time.Second)
	expiredBan(t, db, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	// The startup pass should lift the ban well before the first tick.
	require.Eventually(t, func() bool {
		return recorder.count(1) == 1
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done
}
