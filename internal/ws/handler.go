package ws

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/net/websocket"

	"github.com/sarthakk1890/Schedule-slot-swapper/pkg/jwt"
	"github.com/sarthakk1890/Schedule-slot-swapper/pkg/redis"
	"github.com/sarthakk1890/Schedule-slot-swapper/pkg/response"
)

// Handler WebSocket 接入层
//
// 浏览器原生 WebSocket API 无法自定义请求头，握手鉴权支持两种途径：
// ?token= 查询参数（浏览器）与 Authorization: Bearer 头（其它客户端）
type Handler struct {
	hub    *Hub
	jwtMgr *jwt.Manager
	rdb    *redis.Client
	logger *zap.Logger
}

// NewHandler 创建 WebSocket Handler
func NewHandler(hub *Hub, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *Handler {
	return &Handler{hub: hub, jwtMgr: jwtMgr, rdb: rdb, logger: logger}
}

// Serve 处理 GET /api/v1/ws 升级请求
func (h *Handler) Serve(c *gin.Context) {
	userID, ok := h.authenticate(c)
	if !ok {
		return
	}

	srv := websocket.Server{
		// 放行所有 Origin；跨域控制在网关层处理
		Handshake: func(cfg *websocket.Config, r *http.Request) error { return nil },
		Handler: func(conn *websocket.Conn) {
			h.serveConn(conn, userID)
		},
	}
	srv.ServeHTTP(c.Writer, c.Request)
}

// serveConn 连接生命周期：注册 → 阻塞读直到断开 → 注销
func (h *Handler) serveConn(conn *websocket.Conn, userID string) {
	defer conn.Close()

	p := newPeer(conn)
	h.hub.register(userID, p)
	defer h.hub.unregister(userID, p)

	h.logger.Info("WebSocket 连接建立", zap.String("user_id", userID))

	// 推送为单向下行；读循环仅消费客户端心跳并感知断开
	decoder := json.NewDecoder(conn)
	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if !errors.Is(err, io.EOF) {
				h.logger.Debug("WebSocket 读取结束", zap.String("user_id", userID), zap.Error(err))
			}
			break
		}
	}

	h.logger.Info("WebSocket 连接断开", zap.String("user_id", userID))
}

// authenticate 握手鉴权；失败时已写入响应并返回 ok=false
func (h *Handler) authenticate(c *gin.Context) (string, bool) {
	token := c.Query("token")
	if token == "" {
		auth := c.GetHeader("Authorization")
		if strings.HasPrefix(auth, "Bearer ") {
			token = strings.TrimPrefix(auth, "Bearer ")
		}
	}
	if token == "" {
		response.Unauthorized(c, 10002, "缺少认证令牌")
		return "", false
	}

	claims, err := h.jwtMgr.ParseToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			response.Unauthorized(c, 10002, "Token 已过期")
		} else {
			response.Unauthorized(c, 10002, "Token 无效")
		}
		return "", false
	}
	if claims.TokenType != "access" {
		response.Unauthorized(c, 10002, "Token 类型无效")
		return "", false
	}

	if h.rdb != nil {
		blacklisted, err := h.rdb.IsBlacklisted(c.Request.Context(), claims.ID)
		if err != nil {
			h.logger.Warn("黑名单检查失败", zap.Error(err))
		} else if blacklisted {
			response.Unauthorized(c, 10002, "Token 已注销")
			return "", false
		}
	}

	return claims.UserID, true
}
