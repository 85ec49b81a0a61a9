package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-file-vault/pkg/config"
	"go-file-vault/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func setupTestNotify(t *testing.T) {
	if err := config.InitTest(); err != nil {
		t.Fatalf("Failed to initialize config: %v", err)
	}

	if err := logger.InitLogger("debug", false); err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}
}

// 测试服务器设置
func setupTestServer(t *testing.T, hub *Hub, userID uint) string {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	router.GET("/ws", func(c *gin.Context) {
		conn, err := testUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			t.Errorf("Failed to upgrade connection: %v", err)
			return
		}

		client := NewClient(userID, conn, hub)
		hub.Register(client)

		go client.WritePump()
		go client.ReadPump()
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	// 将 http:// 替换为 ws://
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

// 创建WebSocket客户端连接
func connectWebSocket(t *testing.T, url string) *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket server: %v", err)
	}
	return conn
}

func TestHubConnectionLifecycle(t *testing.T) {
	setupTestNotify(t)
	hub := NewHub()
	go hub.Run()

	wsURL := setupTestServer(t, hub, 1)

	conn := connectWebSocket(t, wsURL)
	assert.NotNil(t, conn)

	// 等待注册完成
	assert.Eventually(t, func() bool {
		return hub.IsClientConnected(1)
	}, time.Second, 10*time.Millisecond)

	conn.Close()

	// 连接断开后客户端应被注销
	assert.Eventually(t, func() bool {
		return !hub.IsClientConnected(1)
	}, time.Second, 10*time.Millisecond)
}

func TestHubNotificationDelivery(t *testing.T) {
	setupTestNotify(t)
	hub := NewHub()
	go hub.Run()

	wsURL := setupTestServer(t, hub, 42)

	conn := connectWebSocket(t, wsURL)
	defer conn.Close()

	assert.Eventually(t, func() bool {
		return hub.IsClientConnected(42)
	}, time.Second, 10*time.Millisecond)

	expiresAt := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	notification := ShareNotification{
		LinkID:     "link-1",
		FileName:   "report.pdf",
		SenderName: "alice",
		ExpiresAt:  expiresAt,
	}
	data, err := json.Marshal(notification)
	assert.NoError(t, err)

	sent, err := hub.SendToUser(42, data)
	assert.NoError(t, err)
	assert.True(t, sent)

	// 客户端应收到完整的通知
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, received, err := conn.ReadMessage()
	assert.NoError(t, err)

	var got ShareNotification
	assert.NoError(t, json.Unmarshal(received, &got))
	assert.Equal(t, "link-1", got.LinkID)
	assert.Equal(t, "report.pdf", got.FileName)
	assert.Equal(t, "alice", got.SenderName)
	assert.True(t, got.ExpiresAt.Equal(expiresAt))
}

func TestHubOfflineRecipient(t *testing.T) {
	setupTestNotify(t)
	hub := NewHub()
	go hub.Run()

	// 没有任何客户端连接时投递不报错，通知被静默丢弃
	_, err := hub.SendToUser(7, []byte(`{"link_id":"x"}`))
	assert.NoError(t, err)
	assert.False(t, hub.IsClientConnected(7))
}
