package api

import (
	"net/http"

	"go-file-vault/internal/service"
	"go-file-vault/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserHandler 处理用户资料相关的API请求
type UserHandler struct {
	userService *service.UserService
}

// 创建一个新的用户处理器实例
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

type updateNameRequest struct {
	Name string `json:"name" binding:"required,min=3,max=30"`
}

type updatePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

// GetMe 返回当前用户资料
func (h *UserHandler) GetMe(c *gin.Context) {
	user, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateName 修改用户名
func (h *UserHandler) UpdateName(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}

	var req updateNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.userService.UpdateName(userID, req.Name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Name updated successfully"})
}

// UpdatePassword 修改登陆密码
func (h *UserHandler) UpdatePassword(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}

	var req updatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.userService.UpdatePassword(userID, req.OldPassword, req.NewPassword); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

// SearchEmails 按邮箱搜索可作为收件人的用户
func (h *UserHandler) SearchEmails(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}

	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing search query"})
		return
	}

	users, err := h.userService.SearchEmails(userID, query)
	if err != nil {
		logger.L.Error("Failed to search emails", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to search users"})
		return
	}

	emails := make([]string, 0, len(users))
	for _, user := range users {
		emails = append(emails, user.Email)
	}

	c.JSON(http.StatusOK, gin.H{"emails": emails})
}
