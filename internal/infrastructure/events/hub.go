package events

import (
	"sync"

	"mess-backend/internal/domain"
)

// Hub fans the current order set out to subscribers whenever an order
// changes. Delivery is synchronous on the publisher's goroutine and
// at-least-once; callbacks must not block.
type Hub struct {
	mu      sync.RWMutex
	nextID  int64
	mess    map[string]map[int64]func([]domain.Order)
	student map[string]map[int64]func([]domain.Order)
}

func NewHub() *Hub {
	return &Hub{
		mess:    make(map[string]map[int64]func([]domain.Order)),
		student: make(map[string]map[int64]func([]domain.Order)),
	}
}

// SubscribeMess registers fn for a mess's order feed and returns the
// cancel func that releases the subscription.
func (h *Hub) SubscribeMess(messID string, fn func([]domain.Order)) func() {
	return h.subscribe(h.mess, messID, fn)
}

func (h *Hub) SubscribeStudent(studentID string, fn func([]domain.Order)) func() {
	return h.subscribe(h.student, studentID, fn)
}

func (h *Hub) PublishMess(messID string, orders []domain.Order) {
	h.publish(h.mess, messID, orders)
}

func (h *Hub) PublishStudent(studentID string, orders []domain.Order) {
	h.publish(h.student, studentID, orders)
}

func (h *Hub) subscribe(subs map[string]map[int64]func([]domain.Order), key string, fn func([]domain.Order)) func() {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if subs[key] == nil {
		subs[key] = make(map[int64]func([]domain.Order))
	}
	subs[key][id] = fn
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(subs[key], id)
		if len(subs[key]) == 0 {
			delete(subs, key)
		}
	}
}

func (h *Hub) publish(subs map[string]map[int64]func([]domain.Order), key string, orders []domain.Order) {
	h.mu.RLock()
	fns := make([]func([]domain.Order), 0, len(subs[key]))
	for _, fn := range subs[key] {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(orders)
	}
}
