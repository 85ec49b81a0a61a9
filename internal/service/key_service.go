package service

import (
	"crypto/rsa"
	"fmt"
	"os"
	"path/filepath"

	"go-file-vault/internal/repository"
	"go-file-vault/pkg/config"
	"go-file-vault/pkg/crypto"
	"go-file-vault/pkg/logger"

	"go.uber.org/zap"
)

// KeyService 管理每个用户的RSA密钥对：
// 公钥以base64(PEM)形式存入用户记录，
// 私钥以PEM文件形式写入可信存储目录，只有本进程可读。
// 每次解密都重新读取私钥，不做缓存，尽量缩短密钥材料在内存中的驻留时间。
type KeyService struct {
	userRepo *repository.UserRepository
	keyDir   string
}

// 创建一个新的密钥服务实例
func NewKeyService(userRepo *repository.UserRepository) *KeyService {
	keyDir := "assets/private_keys"
	if config.GlobalConfig.Keys.PrivateKeyDir != "" {
		keyDir = config.GlobalConfig.Keys.PrivateKeyDir
	}
	return &KeyService{
		userRepo: userRepo,
		keyDir:   keyDir,
	}
}

// GenerateAndStore 为用户生成密钥对并持久化，返回编码后的公钥。
// 先写私钥文件再写用户记录：记录更新失败时删除私钥文件，
// 保证不会出现存了公钥却取不到私钥的用户。
func (s *KeyService) GenerateAndStore(userID uint) (string, error) {
	privateKey, err := crypto.GenerateKeyPair()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.keyDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create key directory: %w", err)
	}

	pemPath := s.privateKeyPath(userID)
	if err := os.WriteFile(pemPath, crypto.EncodePrivateKeyPEM(privateKey), 0600); err != nil {
		return "", fmt.Errorf("failed to write private key: %w", err)
	}

	publicKeyB64 := crypto.EncodePublicKeyB64(&privateKey.PublicKey)
	if err := s.userRepo.SavePublicKey(userID, publicKeyB64); err != nil {
		// 回滚私钥文件，整个操作视为失败
		if rmErr := os.Remove(pemPath); rmErr != nil {
			logger.L.Error("Failed to remove private key after record update failure",
				zap.Uint("userID", userID), zap.Error(rmErr))
		}
		return "", fmt.Errorf("failed to save public key: %w", err)
	}

	logger.L.Info("Generated keypair for user", zap.Uint("userID", userID))
	return publicKeyB64, nil
}

// FetchPublic 从用户记录读取并解码公钥
func (s *KeyService) FetchPublic(userID uint) (*rsa.PublicKey, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.PublicKey == "" {
		return nil, ErrKeyNotFound
	}
	return crypto.DecodePublicKeyB64(user.PublicKey)
}

// FetchPrivate 从可信存储读取并解析私钥，每次调用都重新读取
func (s *KeyService) FetchPrivate(userID uint) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(s.privateKeyPath(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	return crypto.DecodePrivateKeyPEM(data)
}

// 私钥文件路径由用户身份确定
func (s *KeyService) privateKeyPath(userID uint) string {
	return filepath.Join(s.keyDir, fmt.Sprintf("user_%d.pem", userID))
}
