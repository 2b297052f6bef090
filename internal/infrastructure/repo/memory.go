package repo

import (
	"crypto/rand"
	"encoding/hex"
	"sort"
	"sync"

	"mess-backend/internal/domain"
)

// MemoryOrderRepo backs dev mode and tests. Insertion order breaks ties
// so newest-first stays deterministic when timestamps collide.
type MemoryOrderRepo struct {
	mu    sync.RWMutex
	m     map[string]*domain.Order
	order []string
}

func NewMemoryOrderRepo() *MemoryOrderRepo {
	return &MemoryOrderRepo{m: make(map[string]*domain.Order)}
}

func (r *MemoryOrderRepo) Create(o *domain.Order) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := newID()
	o.ID = id
	cp := *o
	r.m[id] = &cp
	r.order = append(r.order, id)
	return id, nil
}

func (r *MemoryOrderRepo) Get(id string) (*domain.Order, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.m[id]
	if !ok {
		return nil, false
	}
	cp := *o
	return &cp, true
}

func (r *MemoryOrderRepo) Put(o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[o.ID]; !ok {
		r.order = append(r.order, o.ID)
	}
	cp := *o
	r.m[o.ID] = &cp
	return nil
}

func (r *MemoryOrderRepo) ByMess(messID string) ([]domain.Order, error) {
	return r.filter(func(o *domain.Order) bool { return o.MessID == messID }), nil
}

func (r *MemoryOrderRepo) ByStudent(studentID string) ([]domain.Order, error) {
	return r.filter(func(o *domain.Order) bool { return o.StudentID == studentID }), nil
}

func (r *MemoryOrderRepo) ByCheckoutKey(studentID, key string) ([]domain.Order, error) {
	return r.filter(func(o *domain.Order) bool {
		return o.StudentID == studentID && o.CheckoutKey == key
	}), nil
}

func (r *MemoryOrderRepo) filter(keep func(*domain.Order) bool) []domain.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Order, 0)
	for i := len(r.order) - 1; i >= 0; i-- {
		o := r.m[r.order[i]]
		if keep(o) {
			out = append(out, *o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

type MemoryUserRepo struct {
	mu sync.RWMutex
	m  map[string]*domain.User
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{m: make(map[string]*domain.User)}
}

func (r *MemoryUserRepo) PutUser(u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.m[u.UserID] = &cp
	return nil
}

func (r *MemoryUserRepo) GetUser(id string) (*domain.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.m[id]
	if !ok {
		return nil, false
	}
	cp := *u
	return &cp, true
}

func (r *MemoryUserRepo) GetUserByEmail(email string) (*domain.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.m {
		if u.Email == email {
			cp := *u
			return &cp, true
		}
	}
	return nil, false
}

type MemoryMessRepo struct {
	mu sync.RWMutex
	m  map[string]*domain.Mess
}

func NewMemoryMessRepo() *MemoryMessRepo {
	return &MemoryMessRepo{m: make(map[string]*domain.Mess)}
}

func (r *MemoryMessRepo) PutMess(m *domain.Mess) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.m[m.ID] = &cp
	return nil
}

func (r *MemoryMessRepo) GetMess(id string) (*domain.Mess, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.m[id]
	if !ok {
		return nil, false
	}
	cp := *m
	return &cp, true
}

func (r *MemoryMessRepo) ListMesses() ([]domain.Mess, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Mess, 0, len(r.m))
	for _, m := range r.m {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func newID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
