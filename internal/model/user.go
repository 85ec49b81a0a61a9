package model

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Username string `gorm:"type:varchar(30);not null;uniqueIndex" json:"username"`
	Email    string `gorm:"type:varchar(100);not null;uniqueIndex" json:"email"`
	Password string `gorm:"type:varchar(100);not null" json:"-"`
	// base64编码的PKCS#1 PEM公钥，为空表示尚未生成密钥，
	// 此时该用户不能作为收件人
	PublicKey string         `gorm:"type:text" json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
