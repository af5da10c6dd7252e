package service

import (
	"context"
	"h2ala_backend/internal/model"
	"sync"
)

const inboxBuffer = 16

// InboxRelay 把教师消息转发到其他实例的收件箱
type InboxRelay interface {
	PublishInbox(ctx context.Context, msg model.TeacherMessage) error
}

type inboxSub struct {
	ch chan model.TeacherMessage
}

// Inbox 学生收件箱的推送通道，替代前端定时轮询
type Inbox struct {
	mu    sync.RWMutex
	subs  map[string]map[*inboxSub]struct{}
	relay InboxRelay
}

func NewInbox() *Inbox {
	return &Inbox{subs: make(map[string]map[*inboxSub]struct{})}
}

func (in *Inbox) SetRelay(r InboxRelay) {
	in.mu.Lock()
	in.relay = r
	in.mu.Unlock()
}

// Subscribe 返回只读通道和取消函数；取消后通道被关闭
func (in *Inbox) Subscribe(studentID string) (<-chan model.TeacherMessage, func()) {
	sub := &inboxSub{ch: make(chan model.TeacherMessage, inboxBuffer)}

	in.mu.Lock()
	if in.subs[studentID] == nil {
		in.subs[studentID] = make(map[*inboxSub]struct{})
	}
	in.subs[studentID][sub] = struct{}{}
	in.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			in.mu.Lock()
			defer in.mu.Unlock()
			if set := in.subs[studentID]; set != nil {
				delete(set, sub)
				if len(set) == 0 {
					delete(in.subs, studentID)
				}
			}
			close(sub.ch)
		})
	}
}

// Publish 本地投递并转发给其他实例
func (in *Inbox) Publish(ctx context.Context, msg model.TeacherMessage) error {
	in.Deliver(msg)

	in.mu.RLock()
	relay := in.relay
	in.mu.RUnlock()
	if relay == nil {
		return nil
	}
	return relay.PublishInbox(ctx, msg)
}

// Deliver 只投递给本实例的订阅者，慢消费者的消息被丢弃，客户端可通过列表接口补齐
func (in *Inbox) Deliver(msg model.TeacherMessage) int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	n := 0
	for sub := range in.subs[msg.StudentID] {
		select {
		case sub.ch <- msg:
			n++
		default:
		}
	}
	return n
}

func (in *Inbox) Subscribers(studentID string) int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.subs[studentID])
}
