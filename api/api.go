package api

import (
	"github.com/gin-gonic/gin"
	"github.com/teampoint/botcore/api/ops"
)

func LoadRoutes(r *gin.Engine, handlers *ops.Handlers) {
	apiRouter := r.Group("/api")

	ops.LoadOpsRouter(apiRouter, handlers)
	apiRouter.GET("/ping", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"msg": "pong"})
	})
}
