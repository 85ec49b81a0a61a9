package notify

import (
	"errors"

	"go-file-vault/internal/interfaces"
	"go-file-vault/pkg/config"
	"go-file-vault/pkg/logger"

	"go.uber.org/zap"
)

// CreateHub 根据配置创建相应的Hub实现
func CreateHub() (interfaces.ConnectionManager, error) {
	provider := config.GlobalConfig.Messaging.Provider
	logger.L.Info("Creating notification hub", zap.String("provider", provider))

	switch provider {
	case "channel":
		// 基于Go通道的进程内Hub
		return NewHub(), nil

	case "kafka":
		// 基于Kafka的多实例Hub
		return NewKafkaHub()

	default:
		return nil, errors.New("unsupported messaging provider")
	}
}

// 启动Hub
func StartHub(hub interfaces.ConnectionManager) error {
	switch h := hub.(type) {
	case *Hub:
		go h.Run()
		return nil
	case *KafkaHub:
		h.StartConsumer()
		return nil
	default:
		return errors.New("unknown hub type")
	}
}
