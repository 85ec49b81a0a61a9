package model

import "time"

// SharedLink 记录加密文件的访问条件：收件人、访问口令哈希、过期时间。
// 成功取回不会删除链接，链接在过期前可多次使用；
// 只有过期清扫任务才会删除它。
type SharedLink struct {
	ID          string `gorm:"type:varchar(36);primaryKey"`
	FileID      string `gorm:"type:varchar(36);not null;index"`
	RecipientID uint   `gorm:"not null;index"`
	// 访问口令的bcrypt哈希，与账户密码使用同一套哈希方案
	Password string `gorm:"type:varchar(100);not null"`
	// 过期判断总是与解析时、清扫时的墙钟时间比较，从不缓存
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time

	File      EncryptedFile `gorm:"foreignKey:FileID"`
	Recipient User          `gorm:"foreignKey:RecipientID"`
}
