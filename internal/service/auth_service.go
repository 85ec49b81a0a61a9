package service

import (
	"errors"

	"go-file-vault/internal/model"
	"go-file-vault/internal/repository"
	"go-file-vault/pkg/logger"
	"go-file-vault/pkg/utils"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// 处理认证相关业务逻辑
type AuthService struct {
	userRepo   *repository.UserRepository
	keyService *KeyService
}

// 创建一个新的认证服务实例
func NewAuthService(userRepo *repository.UserRepository, keyService *KeyService) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		keyService: keyService,
	}
}

// 用户注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=30"`
	Password string `json:"password" binding:"required,min=6"`
	Email    string `json:"email" binding:"required,email"`
}

// 用户登陆请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// 注册新用户并生成他的密钥对。
// 密钥对只在注册时生成一次，之后不再轮换。
func (s *AuthService) Register(req RegisterRequest) (*model.User, error) {
	// 检查用户名是否已存在
	existingUser, err := s.userRepo.FindByUsername(req.Username)
	if err != nil {
		return nil, err
	}
	if existingUser != nil {
		return nil, errors.New("username already exists")
	}

	// 检查邮箱是否已存在
	existingEmail, err := s.userRepo.FindByEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if existingEmail != nil {
		return nil, errors.New("email already exists")
	}

	// 加密密码
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	// 创建用户
	user := &model.User{
		Username: req.Username,
		Password: string(hashedPassword),
		Email:    req.Email,
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	// 生成密钥对。失败时用户保持无钥状态，不能作为收件人，
	// 注册整体视为失败
	if _, err := s.keyService.GenerateAndStore(user.ID); err != nil {
		logger.L.Error("Failed to generate keypair at registration",
			zap.Uint("userID", user.ID), zap.Error(err))
		return nil, err
	}

	return user, nil
}

// 用户登陆
func (s *AuthService) Login(req LoginRequest) (string, *model.User, error) {
	// 查找用户
	user, err := s.userRepo.FindByEmail(req.Email)
	if err != nil {
		return "", nil, err
	}
	if user == nil {
		return "", nil, errors.New("invalid email or password")
	}

	// 验证密码
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return "", nil, errors.New("invalid email or password")
	}

	// 生成JWT令牌
	token, err := utils.GenerateToken(user.ID)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}
