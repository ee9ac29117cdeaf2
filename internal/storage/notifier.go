package storage

import (
	"sync"

	"netmodifier/pkg/domain"
)

// notifier 变更通知的扇出
type notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan domain.StorageChange
	closed bool
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[int]chan domain.StorageChange)}
}

func (n *notifier) subscribe() (<-chan domain.StorageChange, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan domain.StorageChange, subscriberBuffer)
	if n.closed {
		close(ch)
		return ch, func() {}
	}

	id := n.nextID
	n.nextID++
	n.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			if c, ok := n.subs[id]; ok {
				delete(n.subs, id)
				close(c)
			}
		})
	}
}

// publish 非阻塞发送；缓冲已满的订阅者已有待处理的通知，本条丢弃
func (n *notifier) publish(change domain.StorageChange) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.subs {
		select {
		case ch <- change:
		default:
		}
	}
}

func (n *notifier) close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}
	n.closed = true
	for id, ch := range n.subs {
		delete(n.subs, id)
		close(ch)
	}
}
