package util

// 快照槽位后端
const (
	StorageLocal    = "local"
	StorageRedis    = "redis"
	StorageMinio    = "minio"
	StorageOSS      = "oss"
	StorageDatabase = "database"
)

const (
	DefaultChatTitle      = "New Chat"
	WelcomeMessage        = "Hello! I'm your AI Tutor. I'm here to help you learn, not just give you answers. What are we working on today?"
	AttachmentPlaceholder = "[Attachment]"
)

// 附件允许的 MIME 前缀
const (
	MimeImage = "image/"
	MimeAudio = "audio/"
	MimePDF   = "application/pdf"
)
