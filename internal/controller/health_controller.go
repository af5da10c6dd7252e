package controller

import (
	"context"
	"h2ala_backend/internal/service"
	"h2ala_backend/internal/util"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type HealthController struct {
	State *service.LearnerState
	DB    *gorm.DB
	Redis *redis.Client
}

func NewHealthController(state *service.LearnerState, db *gorm.DB, rdb *redis.Client) *HealthController {
	return &HealthController{State: state, DB: db, Redis: rdb}
}

// @Summary 健康检查
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	components := gin.H{}
	healthy := true

	if _, err := c.State.Snapshot(); err != nil {
		components["learnerState"] = "down"
		healthy = false
	} else {
		components["learnerState"] = "up"
	}

	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	if c.DB != nil {
		components["database"] = "up"
		sqlDB, err := c.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(pingCtx)
		}
		if err != nil {
			components["database"] = "down"
			healthy = false
		}
	}

	if c.Redis != nil {
		components["redis"] = "up"
		if err := c.Redis.Ping(pingCtx).Err(); err != nil {
			components["redis"] = "down"
			healthy = false
		}
	}

	if !healthy {
		ctx.JSON(http.StatusServiceUnavailable, util.Response{
			Code:    http.StatusServiceUnavailable,
			Message: "unhealthy",
			Data:    gin.H{"status": "degraded", "components": components},
		})
		return
	}
	util.Success(ctx, gin.H{"status": "ok", "components": components})
}
