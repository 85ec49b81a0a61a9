package model

import "time"

// EncryptedFile 表示一份加密后的文件负载，创建后不可变。
// 与SharedLink一一对应，但作为独立记录存储，
// 删除分享链接和删除文件是两个显式的耦合操作。
type EncryptedFile struct {
	ID       string `gorm:"type:varchar(36);primaryKey"`
	OwnerID  uint   `gorm:"not null;index"` // 发送者
	FileName string `gorm:"type:varchar(255);not null"`
	FileSize int64  `gorm:"not null"`
	// RSA包裹的AES密钥
	EncryptedAESKey []byte `gorm:"type:blob;not null"`
	// AES-256-CBC密文
	EncryptedData []byte `gorm:"type:longblob;not null"`
	// 初始化向量，非秘密，与密文一起存储
	IV        []byte    `gorm:"type:blob;not null"`
	CreatedAt time.Time

	Owner User `gorm:"foreignKey:OwnerID"`
}
