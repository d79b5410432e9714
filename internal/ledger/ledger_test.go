package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teampoint/botcore/internal/models"
	"github.com/teampoint/botcore/internal/notify"
	"github.com/teampoint/botcore/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.Migrate(db))
	return db
}

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

func (r *recorderNotifier) count(userID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent[userID])
}

func ident(id int64) types.Identity {
	return types.Identity{ID: id, DisplayName: fmt.Sprintf("user %d", id)}
}

func TestGetBalanceDefaultsToZero(t *testing.T) {
	l := New(testDB(t), nil, time.Second)
	balance, err := l.GetBalance(42)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestAdjustCreatesAccount(t *testing.T) {
	l := New(testDB(t), nil, time.Second)
	balance, err := l.Adjust(1, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance)

	balance, err = l.GetBalance(1)
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance)
}

func TestAdjustFloorsAtZero(t *testing.T) {
	l := New(testDB(t), nil, time.Second)
	_, err := l.Adjust(1, 30)
	require.NoError(t, err)

	balance, err := l.Adjust(1, -100)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestAdjustDeductsExactAmount(t *testing.T) {
	l := New(testDB(t), nil, time.Second)
	_, err := l.Adjust(1, 100)
	require.NoError(t, err)

	balance, err := l.Adjust(1, -40)
	require.NoError(t, err)
	assert.Equal(t, int64(60), balance)
}

func TestTransferValidation(t *testing.T) {
	l := New(testDB(t), nil, time.Second)
	ctx := context.Background()

	err := l.Transfer(ctx, ident(1), ident(2), 0)
	assert.ErrorIs(t, err, types.ErrInvalidAmount)

	err = l.Transfer(ctx, ident(1), ident(2), -5)
	assert.ErrorIs(t, err, types.ErrInvalidAmount)

	err = l.Transfer(ctx, ident(1), ident(1), 10)
	assert.ErrorIs(t, err, types.ErrSelfTransfer)
}

func TestTransferInsufficientFundsLeavesBalancesUntouched(t *testing.T) {
	db := testDB(t)
	l := New(db, nil, time.Second)
	ctx := context.Background()
	_, err := l.Adjust(1, 100)
	require.NoError(t, err)

	err = l.Transfer(ctx, ident(1), ident(2), 150)
	assert.ErrorIs(t, err, types.ErrInsufficientFunds)

	balance, err := l.GetBalance(1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)
	balance, err = l.GetBalance(2)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)

	var records int64
	require.NoError(t, db.Model(&models.TransferRecord{}).Count(&records).Error)
	assert.Equal(t, int64(0), records)
}

func TestTransferMovesFundsAndAppendsRecord(t *testing.T) {
	db := testDB(t)
	recorder := newRecorder()
	l := New(db, recorder, time.Second)
	ctx := context.Background()
	_, err := l.Adjust(1, 100)
	require.NoError(t, err)

	require.NoError(t, l.Transfer(ctx, ident(1), ident(2), 60))

	balance, err := l.GetBalance(1)
	require.NoError(t, err)
	assert.Equal(t, int64(40), balance)
	balance, err = l.GetBalance(2)
	require.NoError(t, err)
	assert.Equal(t, int64(60), balance)

	var records []models.TransferRecord
	require.NoError(t, db.Find(&records).Error)
	require.Len(t, records, 1)
	assert.Equal(t, int64(1), records[0].FromID)
	assert.Equal(t, int64(2), records[0].ToID)
	assert.Equal(t, int64(60), records[0].Amount)
	assert.Equal(t, 1, recorder.count(2))
}

func TestTransferConservation(t *testing.T) {
	db := testDB(t)
	l := New(db, nil, time.Second)
	ctx := context.Background()
	for id := int64(1); id <= 3; id++ {
		_, err := l.Adjust(id, 100)
		require.NoError(t, err)
	}

	require.NoError(t, l.Transfer(ctx, ident(1), ident(2), 30))
	require.NoError(t, l.Transfer(ctx, ident(2), ident(3), 80))
	require.NoError(t, l.Transfer(ctx, ident(3), ident(1), 15))

	var total int64
	require.NoError(t, db.Model(&models.Account{}).Select("COALESCE(SUM(balance), 0)").Scan(&total).Error)
	assert.Equal(t, int64(300), total)
}

func TestConcurrentTransfersCannotOverdraw(t *testing.T) {
	db := testDB(t)
	l := New(db, nil, time.Second)
	_, err := l.Adjust(1, 100)
	require.NoError(t, err)

	const attempts = 10
	const amount = 30
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := range attempts {
		wg.Add(1)
		go func(target int64) {
			defer wg.Done()
			results <- l.Transfer(context.Background(), ident(1), ident(target), amount)
		}(int64(100 + i))
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, types.ErrInsufficientFunds):
			rejected++
		default:
			t.Fatalf("unexpected transfer error: %v", err)
		}
	}
	assert.Equal(t, 3, succeeded)
	assert.Equal(t, attempts-3, rejected)

	balance, err := l.GetBalance(1)
	require.NoError(t, err)
	assert.Equal(t, int64(100-3*amount), balance)
	assert.GreaterOrEqual(t, balance, int64(0))
}

// A deduction racing a credit must land on one of the two serial
// outcomes; in particular the floor must never wipe a concurrently
// credited balance to zero.
func TestConcurrentDeductAndCreditSerialize(t *testing.T) {
	db := testDB(t)
	l := New(db, nil, time.Second)
	for round := 0; round < 20; round++ {
		_, err := l.Adjust(1, 30)
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := l.Adjust(1, -100)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := l.Adjust(1, 500)
			assert.NoError(t, err)
		}()
		wg.Wait()

		balance, err := l.GetBalance(1)
		require.NoError(t, err)
		// deduct-then-credit floors 30 to 0 then adds 500;
		// credit-then-deduct reaches 530 then removes 100.
		assert.Contains(t, []int64{500, 430}, balance)

		require.NoError(t, db.Where("1 = 1").Delete(&models.Account{}).Error)
	}
}

func TestTransferCommitsWhenNotificationFails(t *testing.T) {
	db := testDB(t)
	l := New(db, notify.Func(func(context.Context, int64, string) error {
		return errors.New("delivery service down")
	}), time.Second)
	ctx := context.Background()
	_, err := l.Adjust(1, 100)
	require.NoError(t, err)

	// The failed send is swallowed; the committed transfer stands.
	require.NoError(t, l.Transfer(ctx, ident(1), ident(2), 60))

	balance, err := l.GetBalance(1)
	require.NoError(t, err)
	assert.Equal(t, int64(40), balance)
	balance, err = l.GetBalance(2)
	require.NoError(t, err)
	assert.Equal(t, int64(60), balance)

	var records int64
	require.NoError(t, db.Model(&models.TransferRecord{}).Count(&records).Error)
	assert.Equal(t, int64(1), records)
}

func TestTopBalances(t *testing.T) {
	l := New(testDB(t), nil, time.Second)
	for id, amount := range map[int64]int64{1: 10, 2: 90, 3: 50} {
		_, err := l.Adjust(id, amount)
		require.NoError(t, err)
	}
	_, err := l.Adjust(4, 0)
	require.NoError(t, err)

	top, err := l.TopBalances(2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, int64(2), top[0].UserID)
	assert.Equal(t, int64(3), top[1].UserID)
}

func TestAdjustAllCountsSuccesses(t *testing.T) {
	l := New(testDB(t), nil, time.Second)
	succeeded, err := l.AdjustAll([]int64{1, 2, 3}, 25)
	require.NoError(t, err)
	assert.Equal(t, 3, succeeded)

	balance, err := l.GetBalance(2)
	require.NoError(t, err)
	assert.Equal(t, int64(25), balance)
}
