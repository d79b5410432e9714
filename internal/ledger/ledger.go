package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/teampoint/botcore/internal/models"
	"github.com/teampoint/botcore/internal/notify"
	"github.com/teampoint/botcore/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger owns the point-currency balances. Every mutation is a single
// guarded SQL statement or a transaction, never a read-modify-write
// from Go, so concurrent callers cannot overdraw an account.
type Ledger struct {
	db            *gorm.DB
	notifier      notify.Notifier
	notifyTimeout time.Duration
}

func New(db *gorm.DB, notifier notify.Notifier, notifyTimeout time.Duration) *Ledger {
	return &Ledger{db: db, notifier: notifier, notifyTimeout: notifyTimeout}
}

// GetBalance returns the current balance, 0 for accounts that have
// never been touched.
func (l *Ledger) GetBalance(userID int64) (int64, error) {
	var account models.Account
	err := l.db.First(&account, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read balance of %d: %w", userID, err)
	}
	return account.Balance, nil
}

// Adjust applies delta to the account and returns the new balance.
// Negative deltas floor at zero: a deduction consumes at most what is
// there. The caller is responsible for any audit entry.
func (l *Ledger) Adjust(userID int64, delta int64) (int64, error) {
	var newBalance int64
	err := l.db.Transaction(func(tx *gorm.DB) error {
		if delta >= 0 {
			if err := credit(tx, userID, delta); err != nil {
				return err
			}
		} else {
			// One statement: deduct or floor, decided on the row the
			// UPDATE itself locks. Splitting this into a guarded debit
			// plus a fallback would let a credit committed between the
			// two statements be wiped by the floor.
			res := tx.Model(&models.Account{}).
				Where("user_id = ?", userID).
				Update("balance", gorm.Expr(
					"CASE WHEN balance >= ? THEN balance - ? ELSE 0 END", -delta, -delta))
			if res.Error != nil {
				return res.Error
			}
		}
		var account models.Account
		if err := tx.First(&account, "user_id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				newBalance = 0
				return nil
			}
			return err
		}
		newBalance = account.Balance
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("adjust balance of %d by %d: %w", userID, delta, err)
	}
	return newBalance, nil
}

// AdjustAll applies the same grant to every listed account and returns
// how many succeeded. Used for mass handouts; the per-account failures
// are counted, not fatal.
func (l *Ledger) AdjustAll(userIDs []int64, delta int64) (succeeded int, firstErr error) {
	for _, id := range userIDs {
		if _, err := l.Adjust(id, delta); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		succeeded++
	}
	return succeeded, firstErr
}

// Transfer moves amount from one account to the other as one
// transaction and appends the immutable TransferRecord. The debit is a
// guarded UPDATE, so two transfers racing on the same source cannot
// both pass the balance check. On any failure nothing is mutated.
func (l *Ledger) Transfer(ctx context.Context, from, to types.Identity, amount int64) error {
	if amount <= 0 {
		return types.ErrInvalidAmount
	}
	if from.ID == to.ID {
		return types.ErrSelfTransfer
	}
	err := l.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Account{}).
			Where("user_id = ? AND balance >= ?", from.ID, amount).
			Update("balance", gorm.Expr("balance - ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return types.ErrInsufficientFunds
		}
		if err := credit(tx, to.ID, amount); err != nil {
			return err
		}
		return tx.Create(&models.TransferRecord{
			CreatedAt: time.Now(),
			FromID:    from.ID,
			ToID:      to.ID,
			Amount:    amount,
			FromName:  from.DisplayName,
			ToName:    to.DisplayName,
		}).Error
	})
	if err != nil {
		if errors.Is(err, types.ErrInsufficientFunds) {
			return types.ErrInsufficientFunds
		}
		return fmt.Errorf("transfer %d from %d to %d: %w", amount, from.ID, to.ID, err)
	}
	// Only after commit; delivery failure never reverses the transfer.
	notify.BestEffort(ctx, l.notifier, l.notifyTimeout, to.ID,
		fmt.Sprintf("You received %d points from %s", amount, from.Label()))
	return nil
}

// TopBalances lists accounts with a positive balance, richest first.
func (l *Ledger) TopBalances(limit int) ([]models.Account, error) {
	if limit <= 0 {
		limit = 10
	}
	var accounts []models.Account
	err := l.db.Where("balance > 0").
		Order("balance DESC").
		Limit(limit).
		Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("list top balances: %w", err)
	}
	return accounts, nil
}

// credit adds amount to an account, creating it on first touch. The
// upsert keeps two concurrent credits to a fresh account from racing
// on the insert.
func credit(tx *gorm.DB, userID int64, amount int64) error {
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"balance": gorm.Expr("accounts.balance + ?", amount),
		}),
	}).Create(&models.Account{UserID: userID, Balance: amount}).Error
}
