package notify

import (
	"errors"
	"go-file-vault/internal/interfaces"
	"go-file-vault/pkg/logger"

	"go.uber.org/zap"
)

type directMessage struct {
	userID uint
	data   []byte
}

// Hub 基于Go通道的进程内通知中心。
// clients map只由Run这一个goroutine操作，不需要加锁。
type Hub struct {
	clients    map[uint]interfaces.Client
	register   chan interfaces.Client
	unregister chan interfaces.Client
	direct     chan directMessage
	present    chan presenceQuery
}

type presenceQuery struct {
	userID uint
	reply  chan bool
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint]interfaces.Client),
		register:   make(chan interfaces.Client),
		unregister: make(chan interfaces.Client),
		direct:     make(chan directMessage, 64),
		present:    make(chan presenceQuery),
	}
}

func (h *Hub) Register(client interfaces.Client) {
	h.register <- client
}

func (h *Hub) Unregister(client interfaces.Client) {
	h.unregister <- client
}

// SendToUser 将通知投递给在线用户。
// 用户不在线时返回false不报错，通知是尽力而为的
func (h *Hub) SendToUser(userID uint, data []byte) (bool, error) {
	select {
	case h.direct <- directMessage{userID: userID, data: data}:
		return true, nil
	default:
		logger.L.Warn("Hub direct channel full. Dropping notification.", zap.Uint("userID", userID))
		return false, errors.New("hub direct channel is full")
	}
}

func (h *Hub) IsClientConnected(userID uint) bool {
	q := presenceQuery{userID: userID, reply: make(chan bool, 1)}
	h.present <- q
	return <-q.reply
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			// 注册新客户端，同一用户的旧连接被替换
			if old, ok := h.clients[client.GetUserID()]; ok {
				old.Close()
			}
			h.clients[client.GetUserID()] = client
			logger.L.Info("Notification client registered", zap.Uint("userID", client.GetUserID()))

		case client := <-h.unregister:
			// 注销客户端
			if registered, ok := h.clients[client.GetUserID()]; ok && registered == client {
				delete(h.clients, client.GetUserID())
				client.Close()
				logger.L.Info("Notification client unregistered", zap.Uint("userID", client.GetUserID()))
			}

		case msg := <-h.direct:
			client, ok := h.clients[msg.userID]
			if !ok {
				// 收件人不在线，通知被丢弃
				logger.L.Debug("Recipient not connected, dropping notification", zap.Uint("userID", msg.userID))
				continue
			}
			if err := client.QueueBytes(msg.data); err != nil {
				logger.L.Warn("Client send buffer full, closing connection",
					zap.Uint("userID", msg.userID), zap.Error(err))
				delete(h.clients, msg.userID)
				client.Close()
			}

		case q := <-h.present:
			_, ok := h.clients[q.userID]
			q.reply <- ok
		}
	}
}
