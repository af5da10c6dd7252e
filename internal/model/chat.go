package model

import "time"

type MessageRole string

const (
	RoleUser  MessageRole = "user"
	RoleModel MessageRole = "model"
)

type AttachmentType string

const (
	AttachmentImage AttachmentType = "image"
	AttachmentPDF   AttachmentType = "pdf"
	AttachmentAudio AttachmentType = "audio"
)

// Attachment 消息附件，Data 为 base64 编码内容
type Attachment struct {
	Type     AttachmentType `json:"type"`
	MimeType string         `json:"mimeType"`
	Data     string         `json:"data"`
	Name     string         `json:"name,omitempty"`
}

type Message struct {
	ID         string      `json:"id"`
	Role       MessageRole `json:"role"`
	Content    string      `json:"content"`
	Timestamp  time.Time   `json:"timestamp"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

func (m Message) Clone() Message {
	if m.Attachment != nil {
		a := *m.Attachment
		m.Attachment = &a
	}
	return m
}

// ChatConversation 学生与 AI 导师的一条会话，消息只追加不修改
type ChatConversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Messages  []Message `json:"messages"`
}

func (c ChatConversation) Clone() ChatConversation {
	c.Messages = cloneSlice(c.Messages, Message.Clone)
	return c
}
