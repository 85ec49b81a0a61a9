package repository

import (
	"errors"
	"go-file-vault/internal/model"
	"go-file-vault/pkg/db"
	"time"

	"gorm.io/gorm"
)

// FileRepository 处理加密文件和分享链接的持久化
type FileRepository struct {
	db *gorm.DB
}

// 创建一个新的文件存储库实例
func NewFileRepository() *FileRepository {
	return &FileRepository{db: db.DB}
}

// SentFileDetails 用户发出的分享概要
type SentFileDetails struct {
	LinkID         string    `json:"link_id"`
	FileName       string    `json:"file_name"`
	FileSize       int64     `json:"file_size"`
	RecipientEmail string    `json:"recipient_email"`
	ExpiresAt      time.Time `json:"expires_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// ReceivedFileDetails 分享给用户的文件概要
type ReceivedFileDetails struct {
	LinkID      string    `json:"link_id"`
	FileName    string    `json:"file_name"`
	FileSize    int64     `json:"file_size"`
	SenderEmail string    `json:"sender_email"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateFileWithLink 在同一事务中保存加密文件和它的分享链接，
// 二者要么同时存在要么都不存在
func (r *FileRepository) CreateFileWithLink(file *model.EncryptedFile, link *model.SharedLink) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(file).Error; err != nil {
			return err
		}
		if err := tx.Create(link).Error; err != nil {
			return err
		}
		return nil
	})
}

// FindLink 查找对指定收件人仍然有效的分享链接。
// 链接不存在、收件人不匹配、已过期三种情况都返回nil，
// 调用方无法区分，避免泄露链接是否存在
func (r *FileRepository) FindLink(linkID string, recipientID uint) (*model.SharedLink, error) {
	var link model.SharedLink
	err := r.db.Where("id = ? AND recipient_id = ? AND expires_at > ?",
		linkID, recipientID, time.Now()).First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// FindFile 查找加密文件
func (r *FileRepository) FindFile(fileID string) (*model.EncryptedFile, error) {
	var file model.EncryptedFile
	if err := r.db.Where("id = ?", fileID).First(&file).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &file, nil
}

// FindSentFiles 查询用户发出的所有分享
func (r *FileRepository) FindSentFiles(userID uint) ([]SentFileDetails, error) {
	var details []SentFileDetails
	err := r.db.Raw(`
        SELECT
            sl.id AS link_id,
            f.file_name,
            f.file_size,
            u.email AS recipient_email,
            sl.expires_at,
            sl.created_at
        FROM shared_links sl
        JOIN encrypted_files f ON sl.file_id = f.id
        JOIN users u ON sl.recipient_id = u.id
        WHERE f.owner_id = ?
        ORDER BY sl.created_at DESC`,
		userID).Scan(&details).Error
	return details, err
}

// FindReceivedFiles 查询分享给用户的所有文件
func (r *FileRepository) FindReceivedFiles(userID uint) ([]ReceivedFileDetails, error) {
	var details []ReceivedFileDetails
	err := r.db.Raw(`
        SELECT
            sl.id AS link_id,
            f.file_name,
            f.file_size,
            u.email AS sender_email,
            sl.expires_at,
            sl.created_at
        FROM shared_links sl
        JOIN encrypted_files f ON sl.file_id = f.id
        JOIN users u ON f.owner_id = u.id
        WHERE sl.recipient_id = ?
        ORDER BY sl.created_at DESC`,
		userID).Scan(&details).Error
	return details, err
}

// FindExpiredLinkIDs 查询所有已过期的分享链接ID
func (r *FileRepository) FindExpiredLinkIDs(now time.Time) ([]string, error) {
	var ids []string
	err := r.db.Model(&model.SharedLink{}).
		Where("expires_at < ?", now).
		Pluck("id", &ids).Error
	return ids, err
}

// FindFileIDsForLinks 查询一批链接引用的文件ID
func (r *FileRepository) FindFileIDsForLinks(linkIDs []string) ([]string, error) {
	var ids []string
	err := r.db.Model(&model.SharedLink{}).
		Where("id IN ?", linkIDs).
		Pluck("file_id", &ids).Error
	return ids, err
}

// DeleteLinksAndFiles 在同一事务中删除链接和文件。
// 先删链接再删文件：中途失败时只会留下无法访问的孤儿文件，
// 不会留下指向已删除文件的链接
func (r *FileRepository) DeleteLinksAndFiles(linkIDs, fileIDs []string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if len(linkIDs) > 0 {
			if err := tx.Where("id IN ?", linkIDs).Delete(&model.SharedLink{}).Error; err != nil {
				return err
			}
		}
		if len(fileIDs) > 0 {
			if err := tx.Where("id IN ?", fileIDs).Delete(&model.EncryptedFile{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteOrphanFiles 删除没有任何链接引用的文件，
// 保证上一轮清扫中断后最终仍能收敛
func (r *FileRepository) DeleteOrphanFiles() (int64, error) {
	result := r.db.Where("id NOT IN (SELECT file_id FROM shared_links)").
		Delete(&model.EncryptedFile{})
	return result.RowsAffected, result.Error
}
