package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go-file-vault/internal/service"
	"go-file-vault/pkg/config"
	"go-file-vault/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FileHandler 处理文件发送和取回的API请求
type FileHandler struct {
	shareService *service.ShareService
}

// 创建一个新的文件处理器
func NewFileHandler(shareService *service.ShareService) *FileHandler {
	return &FileHandler{shareService: shareService}
}

type receiveFileRequest struct {
	LinkID   string `json:"link_id" binding:"required,uuid"`
	Password string `json:"password" binding:"required"`
}

// SendFile 加密上传的文件并分享给收件人
func (h *FileHandler) SendFile(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}

	// 从表单数据中获取文件
	file, err := c.FormFile("fileUpload")
	if err != nil {
		logger.L.Warn("Failed to get file from request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid file"})
		return
	}

	// 检查文件大小限制
	maxSize := int64(50 * 1024 * 1024) // 默认50MB
	if config.GlobalConfig.File != nil && config.GlobalConfig.File.MaxFileSize > 0 {
		maxSize = config.GlobalConfig.File.MaxFileSize
	}
	if file.Size > maxSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("file too large, max size is %d MB", maxSize/1024/1024),
		})
		return
	}

	recipientEmail := c.PostForm("recipient_email")
	password := c.PostForm("password")
	expirationDate := c.PostForm("expiration_date")
	if recipientEmail == "" || password == "" || expirationDate == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "recipient_email, password and expiration_date are required"})
		return
	}

	expiresAt, err := time.Parse(time.RFC3339, expirationDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expiration_date must be RFC3339"})
		return
	}

	src, err := file.Open()
	if err != nil {
		logger.L.Error("Failed to open uploaded file", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read file"})
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		logger.L.Error("Failed to read uploaded file", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read file"})
		return
	}

	linkID, err := h.shareService.Send(userID, recipientEmail, file.Filename, data, password, expiresAt)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidExpiration), errors.Is(err, service.ErrRecipientNotReady):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			logger.L.Error("Failed to send file", zap.Error(err), zap.String("filename", file.Filename))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send file"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "File uploaded and encrypted successfully",
		"link_id":   linkID,
		"file_name": file.Filename,
		"file_size": file.Size,
	})
}

// ReceiveFile 校验访问条件、解密并下载文件
func (h *FileHandler) ReceiveFile(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}

	var req receiveFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fileName, data, err := h.shareService.Receive(userID, req.LinkID, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLinkNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrAccessDenied):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		default:
			// 密码学和存储故障只给调用者不透明的失败
			logger.L.Error("Failed to receive file", zap.Error(err), zap.String("linkID", req.LinkID))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve file"})
		}
		return
	}

	// 设置下载头
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Transfer-Encoding", "binary")
	c.Header("Content-Disposition", "attachment; filename="+fileName)
	c.Header("Content-Length", strconv.Itoa(len(data)))
	c.Data(http.StatusOK, "application/octet-stream", data)
}

// SentFiles 列出用户发出的所有分享
func (h *FileHandler) SentFiles(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}

	files, err := h.shareService.GetSentFiles(userID)
	if err != nil {
		logger.L.Error("Failed to list sent files", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list sent files"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"files": files})
}

// ReceivedFiles 列出分享给用户的所有文件
func (h *FileHandler) ReceivedFiles(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}

	files, err := h.shareService.GetReceivedFiles(userID)
	if err != nil {
		logger.L.Error("Failed to list received files", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list received files"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"files": files})
}

// 从gin上下文取出认证中间件写入的用户ID
func getUserIDFromContext(c *gin.Context) (uint, bool) {
	userIDValue, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return 0, false
	}
	userID, ok := userIDValue.(uint)
	if !ok {
		logger.L.Error("Invalid userID type in context", zap.Any("userIDValue", userIDValue))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID in context"})
		return 0, false
	}
	return userID, true
}
