package repository

import (
	"errors"
	"go-file-vault/internal/model"
	"go-file-vault/pkg/db"

	"gorm.io/gorm"
)

// UserRepository 处理用户数据持久化
type UserRepository struct {
	db *gorm.DB
}

// 创建一个新的用户存储库实例
func NewUserRepository() *UserRepository {
	return &UserRepository{db: db.DB}
}

// 新建用户
func (r *UserRepository) Create(user *model.User) error {
	return r.db.Create(user).Error
}

// 通过用户名查找用户
func (r *UserRepository) FindByUsername(username string) (*model.User, error) {
	var user model.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // 用户不存在
		}
		return nil, err
	}
	return &user, nil
}

// 通过邮箱查找用户
func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // 用户不存在
		}
		return nil, err
	}
	return &user, nil
}

// 通过ID查找用户
func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // 用户不存在
		}
		return nil, err
	}
	return &user, nil
}

// SavePublicKey 将base64编码的公钥写入用户记录
func (r *UserRepository) SavePublicKey(userID uint, publicKeyB64 string) error {
	return r.db.Model(&model.User{}).Where("id = ?", userID).
		Update("public_key", publicKeyB64).Error
}

// UpdateName 修改用户名
func (r *UserRepository) UpdateName(userID uint, name string) error {
	return r.db.Model(&model.User{}).Where("id = ?", userID).
		Update("username", name).Error
}

// UpdatePassword 修改登陆密码(已哈希)
func (r *UserRepository) UpdatePassword(userID uint, hashedPassword string) error {
	return r.db.Model(&model.User{}).Where("id = ?", userID).
		Update("password", hashedPassword).Error
}

// SearchByEmail 按邮箱模糊搜索可作为收件人的用户：
// 必须已生成公钥，且排除搜索者本人
func (r *UserRepository) SearchByEmail(userID uint, query string) ([]model.User, error) {
	var users []model.User
	err := r.db.Where("email LIKE ? AND public_key <> '' AND id != ?",
		"%"+query+"%", userID).Find(&users).Error
	return users, err
}
