package support

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/teampoint/botcore/internal/audit"
	"github.com/teampoint/botcore/internal/notify"
	"github.com/teampoint/botcore/internal/types"
)

// Phase is the position of a support conversation in its state
// machine. A claim starts Claimed; an admin reply moves it to
// AwaitingAddition; the user's addition moves it back.
type Phase int

const (
	PhaseClaimed Phase = iota
	PhaseAwaitingAddition
)

func (p Phase) String() string {
	switch p {
	case PhaseClaimed:
		return "claimed"
	case PhaseAwaitingAddition:
		return "awaiting_addition"
	default:
		return "unknown"
	}
}

// Claim is exclusive ownership of one subject's support conversation.
type Claim struct {
	SubjectID int64     `json:"subject_id"`
	AdminID   int64     `json:"admin_id"`
	Phase     Phase     `json:"phase"`
	ClaimedAt time.Time `json:"claimed_at"`
}

// Directory arbitrates support conversations. Claims are process-local
// and deliberately not persisted: after a restart every conversation
// is simply unclaimed again and stale Reply/Close calls get
// ErrNotFound. The mutex is never held across a notifier call.
type Directory struct {
	mu     sync.Mutex
	claims map[int64]*Claim

	notifier      notify.Notifier
	notifyTimeout time.Duration
	auditLog      *audit.Log
}

func NewDirectory(auditLog *audit.Log, notifier notify.Notifier, notifyTimeout time.Duration) *Directory {
	return &Directory{
		claims:        make(map[int64]*Claim),
		notifier:      notifier,
		notifyTimeout: notifyTimeout,
		auditLog:      auditLog,
	}
}

// Claim atomically takes ownership of the subject's conversation.
// Exactly one of any number of concurrent claimants wins; the rest get
// ErrConflict, including the current owner claiming again.
func (d *Directory) Claim(subject int64, admin types.Identity) error {
	d.mu.Lock()
	if _, taken := d.claims[subject]; taken {
		d.mu.Unlock()
		return types.ErrConflict
	}
	d.claims[subject] = &Claim{
		SubjectID: subject,
		AdminID:   admin.ID,
		Phase:     PhaseClaimed,
		ClaimedAt: time.Now(),
	}
	d.mu.Unlock()
	d.auditLog.Admin(admin, fmt.Sprintf("claimed support dialog with id:%d", subject))
	return nil
}

// Reply sends text to the subject on behalf of the owning admin and
// moves the claim to AwaitingAddition. Delivery is best-effort; a
// failed send does not roll the phase back.
func (d *Directory) Reply(ctx context.Context, admin types.Identity, subject int64, text string) error {
	d.mu.Lock()
	claim, ok := d.claims[subject]
	if !ok {
		d.mu.Unlock()
		return types.ErrNotFound
	}
	if claim.AdminID != admin.ID {
		d.mu.Unlock()
		return types.ErrNotOwner
	}
	claim.Phase = PhaseAwaitingAddition
	d.mu.Unlock()
	notify.BestEffort(ctx, d.notifier, d.notifyTimeout, subject,
		fmt.Sprintf("Reply from support:\n\n%s", text))
	d.auditLog.Admin(admin, fmt.Sprintf("replied in support dialog with id:%d", subject))
	return nil
}

// RecordAddition forwards the subject's follow-up to the owning admin
// and moves the claim back to Claimed. A closed claim yields
// ErrNotFound and a claim that is not waiting for an addition yields
// ErrConflict; either way the caller must tell the user instead of
// dropping the text.
func (d *Directory) RecordAddition(ctx context.Context, subject types.Identity, text string) error {
	d.mu.Lock()
	claim, ok := d.claims[subject.ID]
	if !ok {
		d.mu.Unlock()
		return types.ErrNotFound
	}
	if claim.Phase != PhaseAwaitingAddition {
		d.mu.Unlock()
		return types.ErrConflict
	}
	claim.Phase = PhaseClaimed
	adminID := claim.AdminID
	d.mu.Unlock()
	notify.BestEffort(ctx, d.notifier, d.notifyTimeout, adminID,
		fmt.Sprintf("Addition from %s:\n\n%s", subject.Label(), text))
	return nil
}

// Close releases the claim and tells the subject the dialog is over.
// Only the owning admin may close.
func (d *Directory) Close(ctx context.Context, admin types.Identity, subject int64) error {
	d.mu.Lock()
	claim, ok := d.claims[subject]
	if !ok {
		d.mu.Unlock()
		return types.ErrNotFound
	}
	if claim.AdminID != admin.ID {
		d.mu.Unlock()
		return types.ErrNotOwner
	}
	delete(d.claims, subject)
	d.mu.Unlock()
	notify.BestEffort(ctx, d.notifier, d.notifyTimeout, subject,
		"The support dialog was closed. Reach out again any time.")
	d.auditLog.Admin(admin, fmt.Sprintf("closed support dialog with id:%d", subject))
	return nil
}

// Owner reports which admin holds the claim, if any.
func (d *Directory) Owner(subject int64) (int64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	claim, ok := d.claims[subject]
	if !ok {
		return 0, false
	}
	return claim.AdminID, true
}

func (d *Directory) ActiveCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.claims)
}
