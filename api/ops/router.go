package ops

import (
	"net/http"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"
	"github.com/teampoint/botcore/internal/types"
	"github.com/teampoint/botcore/internal/utils/values"
)

// LoadOpsRouter mounts the command surface consumed by the external
// dispatcher. Every route sits behind the x-api-key check; callers are
// assumed to have done the actual admin/user authorization already.
func LoadOpsRouter(r *gin.RouterGroup, h *Handlers) {
	opsRouter := r.Group("/ops")
	opsRouter.Use(func(ctx *gin.Context) {
		apiKeyHeader := ctx.GetHeader("x-api-key")
		if apiKeyHeader == "" {
			ctx.JSON(http.StatusUnauthorized, types.ErrorResponse{Error: "APIKey header is required"})
			ctx.Abort()
			return
		}
		want := values.GetConfig().Server.OpsAPIKey
		if xxhash.Sum64String(apiKeyHeader) != xxhash.Sum64String(want) {
			ctx.JSON(http.StatusUnauthorized, types.ErrorResponse{Error: "Invalid Token"})
			ctx.Abort()
			return
		}
		ctx.Next()
	})

	opsRouter.POST("/support/claim", h.claimDialog)
	opsRouter.POST("/support/reply", h.replyDialog)
	opsRouter.POST("/support/addition", h.recordAddition)
	opsRouter.POST("/support/close", h.closeDialog)

	opsRouter.GET("/ledger/balance/:id", h.getBalance)
	opsRouter.GET("/ledger/top", h.topBalances)
	opsRouter.POST("/ledger/transfer", h.transfer)
	opsRouter.POST("/ledger/adjust", h.adjustBalance)
	opsRouter.POST("/ledger/mass-adjust", h.massAdjust)

	opsRouter.GET("/bans/check/:id", h.isBanned)
	opsRouter.GET("/bans", h.listBans)
	opsRouter.POST("/bans/permanent", h.addPermanentBan)
	opsRouter.DELETE("/bans/permanent/:id", h.removePermanentBan)
	opsRouter.POST("/bans/temp", h.addTempBan)
	opsRouter.DELETE("/bans/temp/:id", h.removeTempBan)
	opsRouter.POST("/bans/sweep", h.runSweepOnce)

	opsRouter.POST("/users/register", h.registerUser)
	opsRouter.GET("/users/resolve/:identifier", h.resolveUser)

	opsRouter.POST("/achievements", h.defineAchievement)
	opsRouter.DELETE("/achievements/:id", h.dropAchievement)
	opsRouter.GET("/achievements", h.listAchievements)
	opsRouter.POST("/achievements/grant", h.grantAchievement)
	opsRouter.POST("/achievements/revoke", h.revokeAchievement)
	opsRouter.GET("/achievements/user/:id", h.userAchievements)

	opsRouter.GET("/audit/:kind", h.auditTail)
	opsRouter.GET("/stats", h.stats)
}
