package controllers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthController reports service liveness and database reachability.
type HealthController struct {
	version string
	db      *sql.DB
}

func NewHealthController(version string, db *sql.DB) *HealthController {
	return &HealthController{version: version, db: db}
}

func (c *HealthController) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", c.Health)
}

func (c *HealthController) Health(ctx *gin.Context) {
	if c.db != nil {
		pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		if err := c.db.PingContext(pingCtx); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"version": c.version, "status": "error"})
			return
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"version": c.version, "status": "ok"})
}
