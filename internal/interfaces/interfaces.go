package interfaces

// 一个已连接的通知客户端
type Client interface {
	GetUserID() uint
	QueueBytes(data []byte) error
	Close()
}

// ConnectionManager 管理通知连接并向用户投递消息。
// notify.Hub(进程内)和notify.KafkaHub(多实例)都实现它。
type ConnectionManager interface {
	Register(client Client)
	Unregister(client Client)
	SendToUser(userID uint, data []byte) (sent bool, err error)
	IsClientConnected(userID uint) bool
}
