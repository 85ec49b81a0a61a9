package service

import (
	"errors"

	"go-file-vault/internal/model"
	"go-file-vault/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// 处理用户资料相关业务逻辑
type UserService struct {
	userRepo *repository.UserRepository
}

// 创建一个新的用户服务实例
func NewUserService(userRepo *repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// 修改用户名
func (s *UserService) UpdateName(userID uint, name string) error {
	existing, err := s.userRepo.FindByUsername(name)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != userID {
		return errors.New("username already exists")
	}
	return s.userRepo.UpdateName(userID, name)
}

// 修改登陆密码，需要校验旧密码
func (s *UserService) UpdatePassword(userID uint, oldPassword, newPassword string) error {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return errors.New("user not found")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return errors.New("old password is incorrect")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.userRepo.UpdatePassword(userID, string(hashed))
}

// SearchEmails 搜索可作为收件人的用户邮箱，
// 只返回已生成公钥的用户，排除搜索者本人
func (s *UserService) SearchEmails(userID uint, query string) ([]model.User, error) {
	return s.userRepo.SearchByEmail(userID, query)
}
