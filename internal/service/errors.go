package service

import "errors"

// 业务错误。API层用errors.Is映射HTTP状态码。
var (
	// 过期时间必须严格在未来
	ErrInvalidExpiration = errors.New("expiration date must be in the future")
	// 收件人不存在或尚未生成公钥
	ErrRecipientNotReady = errors.New("recipient is not ready to receive files")
	// 链接不存在、不属于调用者、或已过期。三种情况统一为同一个错误，
	// 防止探测链接是否存在
	ErrLinkNotFound = errors.New("shared link does not exist or has expired")
	// 访问口令不匹配
	ErrAccessDenied = errors.New("the provided password is incorrect")
	// 链接指向的文件记录缺失，数据完整性故障
	ErrFileMissing = errors.New("file record is missing")
	// 用户没有可取回的密钥
	ErrKeyNotFound = errors.New("key not found")
)
