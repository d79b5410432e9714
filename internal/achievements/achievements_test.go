package achievements

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teampoint/botcore/internal/audit"
	"github.com/teampoint/botcore/internal/models"
	"github.com/teampoint/botcore/internal/notify"
	"github.com/teampoint/botcore/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type recorderNotifier struct {
	mu   sync.Mutex
	sent map[int64][]string
}

func newRecorder() *recorderNotifier {
	return &recorderNotifier{sent: make(map[int64][]string)}
}

func (r *recorderNotifier) Notify(_ context.Context, userID int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent[userID] = append(r.sent[userID], text)
	return nil
}

func newService(t *testing.T) (*Service, *recorderNotifier) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	recorder := newRecorder()
	return New(db, audit.New(db), recorder, time.Second), recorder
}

var admin = types.Identity{ID: 99, DisplayName: "Admin", Username: "admin"}

func TestDefineAndList(t *testing.T) {
	s, _ := newService(t)
	require.NoError(t, s.Define("first-coin", "First Coin", admin))
	require.NoError(t, s.Define("veteran", "Veteran", admin))

	all, err := s.ListAll()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDefineDuplicateConflicts(t *testing.T) {
	s, _ := newService(t)
	require.NoError(t, s.Define("first-coin", "First Coin", admin))
	assert.ErrorIs(t, s.Define("first-coin", "Other Name", admin), types.ErrConflict)
}

func TestGrantNotifiesAndLists(t *testing.T) {
	s, recorder := newService(t)
	require.NoError(t, s.Define("first-coin", "First Coin", admin))

	user := types.Identity{ID: 1, DisplayName: "Alice"}
	require.NoError(t, s.Grant(context.Background(), user, "first-coin", admin))

	granted, err := s.ListForUser(1)
	require.NoError(t, err)
	require.Len(t, granted, 1)
	assert.Equal(t, "first-coin", granted[0].AchievementID)
	assert.Equal(t, "First Coin", granted[0].Name)
	assert.Equal(t, admin.Label(), granted[0].GrantedBy)

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	require.Len(t, recorder.sent[1], 1)
	assert.Contains(t, recorder.sent[1][0], "First Coin")
}

func TestGrantUndefinedNotFound(t *testing.T) {
	s, _ := newService(t)
	user := types.Identity{ID: 1, DisplayName: "Alice"}
	err := s.Grant(context.Background(), user, "missing", admin)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestGrantTwiceConflicts(t *testing.T) {
	s, _ := newService(t)
	require.NoError(t, s.Define("first-coin", "First Coin", admin))
	user := types.Identity{ID: 1, DisplayName: "Alice"}
	require.NoError(t, s.Grant(context.Background(), user, "first-coin", admin))
	err := s.Grant(context.Background(), user, "first-coin", admin)
	assert.ErrorIs(t, err, types.ErrConflict)
}

func TestRevoke(t *testing.T) {
	s, _ := newService(t)
	require.NoError(t, s.Define("first-coin", "First Coin", admin))
	user := types.Identity{ID: 1, DisplayName: "Alice"}
	require.NoError(t, s.Grant(context.Background(), user, "first-coin", admin))

	require.NoError(t, s.Revoke(1, "first-coin", admin))
	granted, err := s.ListForUser(1)
	require.NoError(t, err)
	assert.Empty(t, granted)

	assert.ErrorIs(t, s.Revoke(1, "first-coin", admin), types.ErrNotFound)
}

func TestDropRemovesGrants(t *testing.T) {
	s, _ := newService(t)
	require.NoError(t, s.Define("first-coin", "First Coin", admin))
	user := types.Identity{ID: 1, DisplayName: "Alice"}
	require.NoError(t, s.Grant(context.Background(), user, "first-coin", admin))

	require.NoError(t, s.Drop("first-coin", admin))

	granted, err := s.ListForUser(1)
	require.NoError(t, err)
	assert.Empty(t, granted)

	assert.ErrorIs(t, s.Drop("first-coin", admin), types.ErrNotFound)
}

// Ensure BestEffort does not panic with a nil notifier wired through LogOnly.
func TestGrantWithLogOnlyNotifier(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	s := New(db, audit.New(db), notify.LogOnly(), time.Second)

	require.NoError(t, s.Define("first-coin", "First Coin", admin))
	user := types.Identity{ID: 1, DisplayName: "Alice"}
	require.NoError(t, s.Grant(context.Background(), user, "first-coin", admin))
}
