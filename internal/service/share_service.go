package service

import (
	"encoding/json"
	"errors"
	"time"

	"go-file-vault/internal/interfaces"
	"go-file-vault/internal/model"
	"go-file-vault/internal/notify"
	"go-file-vault/internal/repository"
	"go-file-vault/pkg/crypto"
	"go-file-vault/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ShareService 实现安全文件交换的核心流程：
// 发送时用收件人公钥做混合加密并以事务保存文件和链接，
// 取回时校验身份、口令、有效期后用调用者私钥解密。
type ShareService struct {
	fileRepo   *repository.FileRepository
	userRepo   *repository.UserRepository
	keyService *KeyService
	hub        interfaces.ConnectionManager // 可为nil，通知是尽力而为的
}

// 创建一个新的文件分享服务实例
func NewShareService(
	fileRepo *repository.FileRepository,
	userRepo *repository.UserRepository,
	keyService *KeyService,
	hub interfaces.ConnectionManager,
) *ShareService {
	return &ShareService{
		fileRepo:   fileRepo,
		userRepo:   userRepo,
		keyService: keyService,
		hub:        hub,
	}
}

// Send 加密文件并创建分享链接，返回链接ID。
// 过期时间必须严格在未来；收件人必须已生成公钥。
func (s *ShareService) Send(
	senderID uint,
	recipientEmail string,
	fileName string,
	data []byte,
	accessPassword string,
	expiresAt time.Time,
) (string, error) {
	if !expiresAt.After(time.Now()) {
		return "", ErrInvalidExpiration
	}

	recipient, err := s.userRepo.FindByEmail(recipientEmail)
	if err != nil {
		return "", err
	}
	if recipient == nil || recipient.PublicKey == "" {
		return "", ErrRecipientNotReady
	}

	publicKey, err := crypto.DecodePublicKeyB64(recipient.PublicKey)
	if err != nil {
		logger.L.Error("Stored public key is malformed",
			zap.Uint("recipientID", recipient.ID), zap.Error(err))
		return "", ErrRecipientNotReady
	}

	// 访问口令与账户密码使用同一套哈希方案
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(accessPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	wrappedKey, ciphertext, iv, err := crypto.Encrypt(data, publicKey)
	if err != nil {
		logger.L.Error("Failed to encrypt file", zap.Error(err))
		return "", err
	}

	file := &model.EncryptedFile{
		ID:              uuid.NewString(),
		OwnerID:         senderID,
		FileName:        fileName,
		FileSize:        int64(len(data)),
		EncryptedAESKey: wrappedKey,
		EncryptedData:   ciphertext,
		IV:              iv,
	}
	link := &model.SharedLink{
		ID:          uuid.NewString(),
		FileID:      file.ID,
		RecipientID: recipient.ID,
		Password:    string(hashedPassword),
		ExpiresAt:   expiresAt,
	}

	if err := s.fileRepo.CreateFileWithLink(file, link); err != nil {
		return "", err
	}

	logger.L.Info("File encrypted and shared",
		zap.String("linkID", link.ID),
		zap.Uint("senderID", senderID),
		zap.Uint("recipientID", recipient.ID),
		zap.Int64("size", file.FileSize))

	s.notifyRecipient(senderID, recipient.ID, link, fileName)

	return link.ID, nil
}

// Receive 校验访问条件并解密文件。
// 成功取回不会删除链接，过期前可以重复取回。
func (s *ShareService) Receive(callerID uint, linkID, accessPassword string) (string, []byte, error) {
	link, err := s.fileRepo.FindLink(linkID, callerID)
	if err != nil {
		return "", nil, err
	}
	if link == nil {
		// 不存在、不属于调用者、已过期——统一为同一个错误
		return "", nil, ErrLinkNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(link.Password), []byte(accessPassword)); err != nil {
		return "", nil, ErrAccessDenied
	}

	file, err := s.fileRepo.FindFile(link.FileID)
	if err != nil {
		return "", nil, err
	}
	if file == nil {
		logger.L.Error("Shared link references a missing file",
			zap.String("linkID", link.ID), zap.String("fileID", link.FileID))
		return "", nil, ErrFileMissing
	}

	// 每次解密都从可信存储重新读取私钥
	privateKey, err := s.keyService.FetchPrivate(callerID)
	if err != nil {
		return "", nil, err
	}

	plain, err := crypto.Decrypt(file.EncryptedAESKey, file.EncryptedData, file.IV, privateKey)
	if err != nil {
		// 密钥解包失败和填充无效分别记录，
		// 但对调用者都是同一个不透明的解密失败
		switch {
		case errors.Is(err, crypto.ErrKeyUnwrap):
			logger.L.Error("Failed to unwrap AES key",
				zap.String("linkID", link.ID), zap.Uint("callerID", callerID), zap.Error(err))
		case errors.Is(err, crypto.ErrPadding):
			logger.L.Error("Invalid padding during file decryption",
				zap.String("linkID", link.ID), zap.Uint("callerID", callerID), zap.Error(err))
		default:
			logger.L.Error("Failed to decrypt file",
				zap.String("linkID", link.ID), zap.Uint("callerID", callerID), zap.Error(err))
		}
		return "", nil, errors.New("decryption failed")
	}

	return file.FileName, plain, nil
}

// GetSentFiles 获取用户发出的所有分享
func (s *ShareService) GetSentFiles(userID uint) ([]repository.SentFileDetails, error) {
	return s.fileRepo.FindSentFiles(userID)
}

// GetReceivedFiles 获取分享给用户的所有文件
func (s *ShareService) GetReceivedFiles(userID uint) ([]repository.ReceivedFileDetails, error) {
	return s.fileRepo.FindReceivedFiles(userID)
}

// 向在线的收件人推送分享通知，失败不影响发送结果
func (s *ShareService) notifyRecipient(senderID, recipientID uint, link *model.SharedLink, fileName string) {
	if s.hub == nil {
		return
	}

	senderName := ""
	if sender, err := s.userRepo.FindByID(senderID); err == nil && sender != nil {
		senderName = sender.Username
	}

	notification := notify.ShareNotification{
		LinkID:     link.ID,
		FileName:   fileName,
		SenderName: senderName,
		ExpiresAt:  link.ExpiresAt,
	}
	data, err := json.Marshal(notification)
	if err != nil {
		logger.L.Error("Failed to marshal share notification", zap.Error(err))
		return
	}

	if _, err := s.hub.SendToUser(recipientID, data); err != nil {
		logger.L.Warn("Failed to deliver share notification",
			zap.Uint("recipientID", recipientID), zap.Error(err))
	}
}
