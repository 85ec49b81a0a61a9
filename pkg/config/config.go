package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Keys      KeysConfig      `mapstructure:"keys"`
	File      *FileConfig     `mapstructure:"file"`
	Sweeper   SweeperConfig   `mapstructure:"sweeper"`
	Messaging MessagingConfig `mapstructure:"messaging"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// KeysConfig 私钥的可信存储目录
type KeysConfig struct {
	PrivateKeyDir string `mapstructure:"private_key_dir"`
}

type FileConfig struct {
	MaxFileSize int64 `mapstructure:"max_file_size"`
}

// SweeperConfig 过期清扫任务配置
type SweeperConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type MessagingConfig struct {
	Provider string      `mapstructure:"provider"` // channel 或 kafka
	Kafka    KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	TopicPrefix   string   `mapstructure:"topic_prefix"`
	ConsumerGroup string   `mapstructure:"consumer_group"`
}

type WebSocketConfig struct {
	SendBufferSize   int `mapstructure:"send_buffer_size"`
	WriteWaitSeconds int `mapstructure:"write_wait_seconds"`
	PongWaitSeconds  int `mapstructure:"pong_wait_seconds"`
	MaxMessageSize   int `mapstructure:"max_message_size"`
}

var GlobalConfig Config

func Init() error {
	// 获取项目根目录
	_, b, _, _ := runtime.Caller(0)
	basepath := filepath.Dir(filepath.Dir(filepath.Dir(b)))

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(filepath.Join(basepath, "config"))

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := viper.Unmarshal(&GlobalConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return nil
}

// 测试用的配置文件
func InitTest() error {
	// 获取项目根目录
	_, b, _, _ := runtime.Caller(0)
	basepath := filepath.Dir(filepath.Dir(filepath.Dir(b)))

	viper.SetConfigName("config.test")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(filepath.Join(basepath, "config"))

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := viper.Unmarshal(&GlobalConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return nil
}
