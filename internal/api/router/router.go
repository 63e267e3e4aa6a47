package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sarthakk1890/Schedule-slot-swapper/config"
	"github.com/sarthakk1890/Schedule-slot-swapper/internal/api/handler"
	"github.com/sarthakk1890/Schedule-slot-swapper/internal/api/middleware"
	"github.com/sarthakk1890/Schedule-slot-swapper/internal/ws"
	"github.com/sarthakk1890/Schedule-slot-swapper/pkg/jwt"
	"github.com/sarthakk1890/Schedule-slot-swapper/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, wsHandler *ws.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(1 << 20)) // 1MB

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证；登录注册带限流）
		auth := v1.Group("/auth")
		{
			auth.POST("/signup", middleware.RateLimit(rdb, 10, time.Minute), h.Auth.Signup)
			auth.POST("/login", middleware.RateLimit(rdb, 20, time.Minute), h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// WebSocket 接入（自带握手鉴权，不走 JWTAuth 中间件）
		v1.GET("/ws", wsHandler.Serve)

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb, logger))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)

			// 时段模块
			slots := authorized.Group("/slots")
			{
				slots.POST("", h.Slot.CreateSlot)
				slots.GET("/me", h.Slot.ListMySlots)
				slots.PUT("/:id", h.Slot.UpdateSlot)
				slots.DELETE("/:id", h.Slot.DeleteSlot)
				slots.POST("/import", h.Slot.ImportSlots)
			}

			// 换班模块
			authorized.GET("/swappable-slots", h.Swap.ListSwappableSlots)
			authorized.POST("/swap-request", h.Swap.CreateSwapRequest)
			authorized.POST("/swap-response/:id", h.Swap.RespondSwapRequest)
			swapRequests := authorized.Group("/swap-requests")
			{
				swapRequests.GET("/incoming", h.Swap.ListIncoming)
				swapRequests.GET("/outgoing", h.Swap.ListOutgoing)
				swapRequests.GET("/all", h.Swap.ListAll)
			}

			// 通知模块
			notifications := authorized.Group("/notifications")
			{
				notifications.GET("", h.Notification.ListNotifications)
				notifications.PUT("/:id/read", h.Notification.MarkRead)
				notifications.PUT("/read-all", h.Notification.MarkAllRead)
			}

			// 导出模块
			export := authorized.Group("/export")
			{
				export.GET("/slots", h.Export.ExportSlots)
			}
		}
	}

	return r
}
