package notify

import (
	"errors"
	"sync"
	"time"

	"go-file-vault/internal/interfaces"
	"go-file-vault/pkg/config"
	"go-file-vault/pkg/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client 一条通知websocket连接。
// 通知是单向的(服务端到客户端)，ReadPump只负责维持连接和处理关闭。
type Client struct {
	userID  uint
	conn    *websocket.Conn
	send    chan []byte
	mu      sync.Mutex
	closed  bool
	manager interfaces.ConnectionManager

	writeWait      time.Duration
	pongWait       time.Duration
	maxMessageSize int64
}

func NewClient(userID uint, conn *websocket.Conn, manager interfaces.ConnectionManager) *Client {
	wsConfig := config.GlobalConfig.WebSocket

	sendBufferSize := wsConfig.SendBufferSize
	if sendBufferSize <= 0 {
		sendBufferSize = 256
	}
	writeWait := time.Duration(wsConfig.WriteWaitSeconds) * time.Second
	if writeWait <= 0 {
		writeWait = 10 * time.Second
	}
	pongWait := time.Duration(wsConfig.PongWaitSeconds) * time.Second
	if pongWait <= 0 {
		pongWait = 60 * time.Second
	}
	maxMessageSize := int64(wsConfig.MaxMessageSize)
	if maxMessageSize <= 0 {
		maxMessageSize = 512
	}

	return &Client{
		userID:         userID,
		conn:           conn,
		send:           make(chan []byte, sendBufferSize),
		manager:        manager,
		writeWait:      writeWait,
		pongWait:       pongWait,
		maxMessageSize: maxMessageSize,
	}
}

func (c *Client) GetUserID() uint {
	return c.userID
}

// QueueBytes 将数据排入发送缓冲，缓冲满时立即报错而不阻塞
func (c *Client) QueueBytes(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("client is closed")
	}
	select {
	case c.send <- data:
		return nil
	default:
		return errors.New("client send buffer is full")
	}
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump 消耗入站帧以处理pong和关闭，忽略客户端发来的数据
func (c *Client) ReadPump() {
	defer func() {
		c.manager.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.L.Warn("Unexpected websocket close", zap.Uint("userID", c.userID), zap.Error(err))
			}
			return
		}
		// 通知通道是单向的，入站数据被忽略
	}
}

func (c *Client) WritePump() {
	pingPeriod := (c.pongWait * 9) / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				// send通道已关闭
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.L.Warn("Failed to write notification", zap.Uint("userID", c.userID), zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
