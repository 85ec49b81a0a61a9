package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go-file-vault/internal/interfaces"
	"go-file-vault/pkg/config"
	"go-file-vault/pkg/logger"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// KafkaDirectMessage Kafka直达消息的信封
type KafkaDirectMessage struct {
	UserID  uint   `json:"user_id"`
	Payload []byte `json:"payload"`
}

// KafkaHub 实现interfaces.ConnectionManager的Kafka版本。
// 多实例部署时收件人可能连接在别的实例上，
// 通知经Kafka主题转发到持有该连接的实例。
type KafkaHub struct {
	clients    map[uint]interfaces.Client
	clientsMu  sync.RWMutex
	producer   sarama.SyncProducer
	consumer   sarama.ConsumerGroup
	ctx        context.Context
	cancelFunc context.CancelFunc

	cfg *config.KafkaConfig
}

// 创建一个新的KafkaHub
func NewKafkaHub() (*KafkaHub, error) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := &config.GlobalConfig.Messaging.Kafka

	// 配置Kafka
	kConfig := sarama.NewConfig()
	kConfig.Producer.RequiredAcks = sarama.WaitForAll
	kConfig.Producer.Return.Successes = true
	kConfig.Producer.Retry.Max = 3
	kConfig.Consumer.Return.Errors = true
	kConfig.Version = sarama.V2_8_0_0

	// 创建生产者
	producer, err := sarama.NewSyncProducer(cfg.Brokers, kConfig)
	if err != nil {
		logger.L.Error("Failed to start Kafka producer", zap.Error(err))
		cancel()
		return nil, fmt.Errorf("failed to start Kafka producer: %w", err)
	}

	// 创建消费者组
	consumer, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.ConsumerGroup, kConfig)
	if err != nil {
		logger.L.Error("Failed to start Kafka consumer group", zap.Error(err))
		producer.Close()
		cancel()
		return nil, fmt.Errorf("failed to start Kafka consumer group: %w", err)
	}

	return &KafkaHub{
		clients:    make(map[uint]interfaces.Client),
		producer:   producer,
		consumer:   consumer,
		ctx:        ctx,
		cancelFunc: cancel,
		cfg:        cfg,
	}, nil
}

func (h *KafkaHub) StartConsumer() {
	go h.consumeMessages()
}

// 关闭KafkaHub
func (h *KafkaHub) Close() error {
	h.cancelFunc()

	if err := h.producer.Close(); err != nil {
		logger.L.Error("Failed to close Kafka producer", zap.Error(err))
	}
	if err := h.consumer.Close(); err != nil {
		logger.L.Error("Failed to close Kafka consumer group", zap.Error(err))
	}

	return nil
}

// Register 在Hub中注册客户端
func (h *KafkaHub) Register(client interfaces.Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	userID := client.GetUserID()
	if old, ok := h.clients[userID]; ok {
		old.Close()
	}
	h.clients[userID] = client
	logger.L.Info("Client registered with KafkaHub", zap.Uint("userID", userID))
}

// Unregister 从Hub中注销客户端
func (h *KafkaHub) Unregister(client interfaces.Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	userID := client.GetUserID()
	if registered, ok := h.clients[userID]; ok && registered == client {
		client.Close()
		delete(h.clients, userID)
		logger.L.Info("Client unregistered from KafkaHub", zap.Uint("userID", userID))
	}
}

// 构建Kafka主题名称
func (h *KafkaHub) buildTopicName() string {
	return fmt.Sprintf("%s_notifications", h.cfg.TopicPrefix)
}

// SendToUser 发送通知给指定用户。
// 本地在线直接投递，否则发布到Kafka让持有连接的实例投递
func (h *KafkaHub) SendToUser(userID uint, data []byte) (bool, error) {
	h.clientsMu.RLock()
	client, online := h.clients[userID]
	h.clientsMu.RUnlock()

	if online {
		if err := client.QueueBytes(data); err != nil {
			logger.L.Warn("Failed to queue notification to local client",
				zap.Uint("targetUserID", userID), zap.Error(err))
			return false, fmt.Errorf("failed to queue notification: %w", err)
		}
		return true, nil
	}

	directMsg := &KafkaDirectMessage{
		UserID:  userID,
		Payload: data,
	}

	msgBytes, err := json.Marshal(directMsg)
	if err != nil {
		return false, fmt.Errorf("failed to marshal direct message: %w", err)
	}

	kafkaMsg := &sarama.ProducerMessage{
		Topic: h.buildTopicName(),
		Value: sarama.ByteEncoder(msgBytes),
	}

	if _, _, err := h.producer.SendMessage(kafkaMsg); err != nil {
		logger.L.Error("Failed to send notification to Kafka",
			zap.Uint("userID", userID), zap.Error(err))
		return false, fmt.Errorf("failed to send notification to Kafka: %w", err)
	}

	// 已发布到Kafka，但用户可能在任何实例上也可能不在线
	return false, nil
}

// 检查客户端是否连接
func (h *KafkaHub) IsClientConnected(userID uint) bool {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// 消费Kafka消息
func (h *KafkaHub) consumeMessages() {
	handler := &kafkaConsumerHandler{hub: h}

	for {
		if h.ctx.Err() != nil {
			return
		}
		if err := h.consumer.Consume(h.ctx, []string{h.buildTopicName()}, handler); err != nil {
			logger.L.Error("Kafka consumer error", zap.Error(err))
		}
	}
}

type kafkaConsumerHandler struct {
	hub *KafkaHub
}

func (kafkaConsumerHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (kafkaConsumerHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (c *kafkaConsumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		var directMsg KafkaDirectMessage
		if err := json.Unmarshal(msg.Value, &directMsg); err != nil {
			logger.L.Error("Failed to unmarshal Kafka notification", zap.Error(err))
			session.MarkMessage(msg, "")
			continue
		}

		// 只有持有该用户连接的实例投递通知
		c.hub.clientsMu.RLock()
		client, online := c.hub.clients[directMsg.UserID]
		c.hub.clientsMu.RUnlock()

		if online {
			if err := client.QueueBytes(directMsg.Payload); err != nil {
				logger.L.Warn("Failed to deliver Kafka notification",
					zap.Uint("userID", directMsg.UserID), zap.Error(err))
			}
		}

		session.MarkMessage(msg, "")
	}
	return nil
}
