package service

import "sync"

type subscriber struct {
	id uint64
	fn func()
}

// ChangeBus 无负载的变更通知：订阅者收到通知后自行通过 getter 重新读取状态
type ChangeBus struct {
	mu     sync.Mutex
	nextID uint64
	subs   []subscriber
}

func NewChangeBus() *ChangeBus {
	return &ChangeBus{}
}

// Subscribe 返回的取消函数可重复调用
func (b *ChangeBus) Subscribe(fn func()) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscriber{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Notify 按订阅顺序同步调用每个订阅者，调用期间不持有锁
func (b *ChangeBus) Notify() {
	b.mu.Lock()
	subs := make([]subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		s.fn()
	}
}

func (b *ChangeBus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
