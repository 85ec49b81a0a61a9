package api

import (
	"net/http"

	"go-file-vault/internal/interfaces"
	"go-file-vault/internal/notify"
	"go-file-vault/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: 生产环境应该配置具体的域名
		return true // 允许所有来源
	},
}

// WSHandler 处理通知websocket连接
type WSHandler struct {
	hub interfaces.ConnectionManager
}

func NewWSHandler(hub interfaces.ConnectionManager) *WSHandler {
	return &WSHandler{hub: hub}
}

// HandleConnection 将认证后的连接升级为websocket并注册到Hub
func (h *WSHandler) HandleConnection(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.L.Error("Failed to upgrade WebSocket connection", zap.Uint("userID", userID), zap.Error(err))
		return
	}
	logger.L.Info("Notification connection upgraded", zap.Uint("userID", userID))

	client := notify.NewClient(userID, conn, h.hub)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
