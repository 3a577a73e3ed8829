package unit

import (
	"context"
	"sync"
)

// mailbox is an unbounded FIFO of encoded messages. push never blocks so the
// controller can post while holding its own lock.
type mailbox struct {
	mu     sync.Mutex
	queue  [][]byte
	notify chan struct{}
	closed bool
}

func newMailbox() *mailbox {
	return &mailbox{notify: make(chan struct{}, 1)}
}

// push appends data and reports false if the mailbox is closed.
func (m *mailbox) push(data []byte) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.queue = append(m.queue, data)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
	return true
}

// pop waits for the next message. ok is false once the mailbox is closed or
// ctx is done.
func (m *mailbox) pop(ctx context.Context) (data []byte, ok bool) {
	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return nil, false
		}
		if len(m.queue) > 0 {
			data = m.queue[0]
			m.queue[0] = nil
			m.queue = m.queue[1:]
			m.mu.Unlock()
			return data, true
		}
		m.mu.Unlock()

		select {
		case <-m.notify:
		case <-ctx.Done():
			return nil, false
		}
	}
}

func (m *mailbox) close() {
	m.mu.Lock()
	m.closed = true
	m.queue = nil
	m.mu.Unlock()
}
