package ops

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/teampoint/botcore/internal/achievements"
	"github.com/teampoint/botcore/internal/audit"
	"github.com/teampoint/botcore/internal/banlist"
	"github.com/teampoint/botcore/internal/directory"
	"github.com/teampoint/botcore/internal/ledger"
	"github.com/teampoint/botcore/internal/models"
	"github.com/teampoint/botcore/internal/support"
	"github.com/teampoint/botcore/internal/types"
	"github.com/teampoint/botcore/internal/utils"
)

// Handlers bundles the core services behind the ops routes. The
// dispatcher in front of this API has already authenticated and
// authorized the acting admin; ids in request bodies are trusted.
type Handlers struct {
	Ledger       *ledger.Ledger
	Bans         *banlist.Registry
	Sweeper      *banlist.Sweeper
	Support      *support.Directory
	Users        *directory.Directory
	Achievements *achievements.Service
	Audit        *audit.Log
}

// errStatus maps the core error taxonomy onto HTTP statuses. Anything
// outside the taxonomy is a persistence problem and retryable.
func errStatus(err error) int {
	switch {
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, types.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, types.ErrInvalidAmount),
		errors.Is(err, types.ErrSelfTransfer),
		errors.Is(err, types.ErrInvalidDuration),
		errors.Is(err, types.ErrInsufficientFunds):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) fail(ctx *gin.Context, op string, err error) {
	status := errStatus(err)
	if status == http.StatusInternalServerError {
		utils.Logger.WithFields(logrus.Fields{
			"type":  "system",
			"op":    op,
			"error": err.Error(),
		}).Error("Operation failed")
		ctx.JSON(status, types.ErrorResponse{Error: "temporary failure, retry"})
		return
	}
	ctx.JSON(status, types.ErrorResponse{Error: err.Error()})
}

// identity resolves an id to the stored identity, falling back to a
// bare id when the user was never registered.
func (h *Handlers) identity(userID int64) types.Identity {
	if id, err := h.Users.Get(userID); err == nil {
		return id
	}
	return types.Identity{ID: userID}
}

func (h *Handlers) claimDialog(ctx *gin.Context) {
	var req claimRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Failed to parse the body"})
		return
	}
	if err := h.Support.Claim(req.SubjectID, h.identity(req.AdminID)); err != nil {
		h.fail(ctx, "support_claim", err)
		return
	}
	ctx.JSON(http.StatusOK, types.SuccessResponse{Message: "Dialog claimed"})
}

func (h *Handlers) replyDialog(ctx *gin.Context) {
	var req replyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Failed to parse the body"})
		return
	}
	if err := h.Support.Reply(ctx.Request.Context(), h.identity(req.AdminID), req.SubjectID, req.Text); err != nil {
		h.fail(ctx, "support_reply", err)
		return
	}
	ctx.JSON(http.StatusOK, types.SuccessResponse{Message: "Reply sent"})
}

func (h *Handlers) recordAddition(ctx *gin.Context) {
	var req additionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Failed to parse the body"})
		return
	}
	if err := h.Support.RecordAddition(ctx.Request.Context(), h.identity(req.SubjectID), req.Text); err != nil {
		h.fail(ctx, "support_addition", err)
		return
	}
	ctx.JSON(http.StatusOK, types.SuccessResponse{Message: "Addition forwarded"})
}

func (h *Handlers) closeDialog(ctx *gin.Context) {
	var req closeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Failed to parse the body"})
		return
	}
	if err := h.Support.Close(ctx.Request.Context(), h.identity(req.AdminID), req.SubjectID); err != nil {
		h.fail(ctx, "support_close", err)
		return
	}
	ctx.JSON(http.StatusOK, types.SuccessResponse{Message: "Dialog closed"})
}

func (h *Handlers) getBalance(ctx *gin.Context) {
	userID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Invalid user id"})
		return
	}
	balance, err := h.Ledger.GetBalance(userID)
	if err != nil {
		h.fail(ctx, "get_balance", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"user_id": userID, "balance": balance})
}

func (h *Handlers) topBalances(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	accounts, err := h.Ledger.TopBalances(limit)
	if err != nil {
		h.fail(ctx, "top_balances", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

func (h *Handlers) transfer(ctx *gin.Context) {
	var req transferRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Failed to parse the body"})
		return
	}
	from := h.identity(req.FromID)
	to := h.identity(req.ToID)
	if err := h.Ledger.Transfer(ctx.Request.Context(), from, to, req.Amount); err != nil {
		h.fail(ctx, "transfer", err)
		return
	}
	ctx.JSON(http.StatusOK, types.SuccessResponse{Message: "Transfer completed"})
}

func (h *Handlers) adjustBalance(ctx *gin.Context) {
	var req adjustRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Failed to parse the body"})
		return
	}
	newBalance, err := h.Ledger.Adjust(req.UserID, req.Delta)
	if err != nil {
		h.fail(ctx, "adjust_balance", err)
		return
	}
	h.Audit.Admin(h.identity(req.AdminID),
		"adjusted balance of id:"+strconv.FormatInt(req.UserID, 10)+" by "+strconv.FormatInt(req.Delta, 10))
	ctx.JSON(http.StatusOK, gin.H{"user_id": req.UserID, "balance": newBalance})
}

func (h *Handlers) massAdjust(ctx *gin.Context) {
	var req massAdjustRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Failed to parse the body"})
		return
	}
	if req.Delta <= 0 {
		ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: types.ErrInvalidAmount.Error()})
		return
	}
	ids, err := h.Users.AllIDs()
	if err != nil {
		h.fail(ctx, "mass_adjust", err)
		return
	}
	succeeded, firstErr := h.Ledger.AdjustAll(ids, req.Delta)
	if firstErr != nil {
		utils.Logger.WithFields(logrus.Fields{
			"type":  "system",
			"op":    "mass_adjust",
			"error": firstErr.Error(),
		}).Warn("Some mass grants failed")
	}
	h.Audit.Admin(h.identity(req.AdminID),
		"mass grant of "+strconv.FormatInt(req.Delta, 10)+" to "+strconv.Itoa(succeeded)+" users")
	ctx.JSON(http.StatusOK, gin.H{"granted": succeeded, "total": len(ids)})
}

func (h *Handlers) isBanned(ctx *gin.Context) {
	userID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Invalid user id"})
		return
	}
	banned, err := h.Bans.IsBanned(userID)
	if err != nil {
		h.fail(ctx, "is_banned", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"user_id": userID, "banned": banned})
}

func (h *Handlers) listBans(ctx *gin.Context) {
	permanent, err := h.Bans.ListPermanentBans()
	if err != nil {
		h.fail(ctx, "list_bans", err)
		return
	}
	temp, err := h.Bans.ListTempBans()
	if err != nil {
		h.fail(ctx, "list_bans", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"permanent": permanent, "temporary": temp})
}

func (h *Handlers) addPermanentBan(ctx *gin.Context) {
	var req permBanRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Failed to parse the body"})
		return
	}
	target, err := h.Users.Lookup(req.Target)
	if err != nil {
		h.fail(ctx, "add_permanent_ban", err)
		return
	}
	if err := h.Bans.AddPermanentBan(target, h.identity(req.AdminID)); err != nil {
		h.fail(ctx, "add_permanent_ban", err)
		return
	}
	ctx.JSON(http.StatusOK, types.SuccessResponse{Message: "User banned"})
}

func (h *Handlers) removePermanentBan(ctx *gin.Context) {
	userID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Invalid user id"})
		return
	}
	adminID, err := strconv.ParseInt(ctx.Query("admin_id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Invalid admin id"})
		return
	}
	if err := h.Bans.RemovePermanentBan(userID, h.identity(adminID)); err != nil {
		h.fail(ctx, "remove_permanent_ban", err)
		return
	}
	ctx.JSON(http.StatusOK, types.SuccessResponse{Message: "User unbanned"})
}

func (h *Handlers) addTempBan(ctx *gin.Context) {
	var req tempBanRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Failed to parse the body"})
		return
	}
	target, err := h.Users.Lookup(req.Target)
	if err != nil {
		h.fail(ctx, "add_temp_ban", err)
		return
	}
	duration := time.Duration(req.DurationMinutes) * time.Minute
	expiresAt, err := h.Bans.AddTempBan(target.ID, duration, req.Reason, h.identity(req.AdminID))
	if err != nil {
		h.fail(ctx, "add_temp_ban", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"user_id": target.ID, "expires_at": expiresAt})
}

func (h *Handlers) removeTempBan(ctx *gin.Context) {
	userID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Invalid user id"})
		return
	}
	adminID, err := strconv.ParseInt(ctx.Query("admin_id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Invalid admin id"})
		return
	}
	if err := h.Bans.RemoveTempBan(userID, h.identity(adminID)); err != nil {
		h.fail(ctx, "remove_temp_ban", err)
		return
	}
	ctx.JSON(http.StatusOK, types.SuccessResponse{Message: "Temp ban removed"})
}

func (h *Handlers) runSweepOnce(ctx *gin.Context) {
	h.Sweeper.RunOnce(ctx.Request.Context())
	ctx.JSON(http.StatusOK, types.SuccessResponse{Message: "Sweep completed"})
}

func (h *Handlers) registerUser(ctx *gin.Context) {
	var req registerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Failed to parse the body"})
		return
	}
	id := types.Identity{ID: req.UserID, DisplayName: req.FullName, Username: req.Username}
	if err := h.Users.Register(id); err != nil {
		h.fail(ctx, "register_user", err)
		return
	}
	ctx.JSON(http.StatusCreated, types.SuccessResponse{Message: "User registered"})
}

func (h *Handlers) resolveUser(ctx *gin.Context) {
	id, err := h.Users.Lookup(ctx.Param("identifier"))
	if err != nil {
		h.fail(ctx, "resolve_user", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"id": id.ID, "full_name": id.DisplayName, "username": id.Username})
}

func (h *Handlers) defineAchievement(ctx *gin.Context) {
	var req defineAchievementRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Failed to parse the body"})
		return
	}
	if err := h.Achievements.Define(req.ID, req.Name, h.identity(req.AdminID)); err != nil {
		h.fail(ctx, "define_achievement", err)
		return
	}
	ctx.JSON(http.StatusCreated, types.SuccessResponse{Message: "Achievement defined"})
}

func (h *Handlers) dropAchievement(ctx *gin.Context) {
	adminID, err := strconv.ParseInt(ctx.Query("admin_id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Invalid admin id"})
		return
	}
	if err := h.Achievements.Drop(ctx.Param("id"), h.identity(adminID)); err != nil {
		h.fail(ctx, "drop_achievement", err)
		return
	}
	ctx.JSON(http.StatusOK, types.SuccessResponse{Message: "Achievement dropped"})
}

func (h *Handlers) listAchievements(ctx *gin.Context) {
	all, err := h.Achievements.ListAll()
	if err != nil {
		h.fail(ctx, "list_achievements", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"achievements": all})
}

func (h *Handlers) grantAchievement(ctx *gin.Context) {
	var req grantAchievementRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Failed to parse the body"})
		return
	}
	target, err := h.Users.Lookup(req.Target)
	if err != nil {
		h.fail(ctx, "grant_achievement", err)
		return
	}
	if err := h.Achievements.Grant(ctx.Request.Context(), target, req.AchievementID, h.identity(req.AdminID)); err != nil {
		h.fail(ctx, "grant_achievement", err)
		return
	}
	ctx.JSON(http.StatusOK, types.SuccessResponse{Message: "Achievement granted"})
}

func (h *Handlers) revokeAchievement(ctx *gin.Context) {
	var req revokeAchievementRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Failed to parse the body"})
		return
	}
	if err := h.Achievements.Revoke(req.UserID, req.AchievementID, h.identity(req.AdminID)); err != nil {
		h.fail(ctx, "revoke_achievement", err)
		return
	}
	ctx.JSON(http.StatusOK, types.SuccessResponse{Message: "Achievement revoked"})
}

func (h *Handlers) userAchievements(ctx *gin.Context) {
	userID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Invalid user id"})
		return
	}
	granted, err := h.Achievements.ListForUser(userID)
	if err != nil {
		h.fail(ctx, "user_achievements", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"achievements": granted})
}

func (h *Handlers) auditTail(ctx *gin.Context) {
	kind := ctx.Param("kind")
	switch kind {
	case models.AuditAdmin, models.AuditSystem, models.AuditError:
	default:
		ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Unknown audit kind"})
		return
	}
	count, _ := strconv.Atoi(ctx.DefaultQuery("count", "20"))
	entries, err := h.Audit.Tail(kind, count)
	if err != nil {
		h.fail(ctx, "audit_tail", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *Handlers) stats(ctx *gin.Context) {
	userCount, err := h.Users.Count()
	if err != nil {
		h.fail(ctx, "stats", err)
		return
	}
	newUsers, err := h.Users.NewSince(time.Now().Add(-24 * time.Hour))
	if err != nil {
		h.fail(ctx, "stats", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"users":          userCount,
		"users_last_24h": newUsers,
		"active_dialogs": h.Support.ActiveCount(),
	})
}
