package notify

import "time"

// ShareNotification 告知收件人有新文件分享给了他。
// 小的控制事件，JSON编码后经websocket投递。
type ShareNotification struct {
	LinkID     string    `json:"link_id"`
	FileName   string    `json:"file_name"`
	SenderName string    `json:"sender_name"`
	ExpiresAt  time.Time `json:"expires_at"`
}
