package usecase

import (
	"fmt"
	"time"

	"mess-backend/internal/domain"
	"mess-backend/internal/orderstatus"
)

type OrderRepo interface {
	Create(*domain.Order) (string, error)
	Get(id string) (*domain.Order, bool)
	Put(*domain.Order) error
	ByMess(messID string) ([]domain.Order, error)
	ByStudent(studentID string) ([]domain.Order, error)
	ByCheckoutKey(studentID, key string) ([]domain.Order, error)
}

type PaymentGateway interface {
	VerifySignature(gatewayOrderID, paymentID, signature string) bool
}

type OrderFeed interface {
	PublishMess(messID string, orders []domain.Order)
	PublishStudent(studentID string, orders []domain.Order)
}

type EventPublisher interface {
	PublishOrderEvent(evt domain.OrderEvent) error
}

type Customer struct {
	ID    string
	Name  string
	Email string
	Phone string
}

// Checkout is one student checkout event. The cart may contain items
// from several messes; each mess group becomes its own order.
type Checkout struct {
	Cart        []domain.CartItem
	OrderType   domain.OrderType
	Address     *domain.Address
	Customer    Customer
	CheckoutKey string
}

// PaymentConfirmation is the gateway's callback payload for a completed
// online payment, verified before any order is persisted.
type PaymentConfirmation struct {
	GatewayOrderID string
	PaymentID      string
	Signature      string
}

type OrderService struct {
	Repo    OrderRepo
	Gateway PaymentGateway
	Feed    OrderFeed
	Events  EventPublisher
}

// PlaceCashOrders splits the cart by mess and creates one pending cash
// order per mess. Sibling orders already created are kept if a later one
// fails; there is no transaction spanning the checkout.
func (s *OrderService) PlaceCashOrders(co Checkout) ([]string, error) {
	if err := s.validate(co); err != nil {
		return nil, err
	}
	if ids, ok := s.replay(co); ok {
		return ids, nil
	}
	return s.createOrders(co, func(o *domain.Order, now time.Time) {
		o.PaymentMethod = domain.PayCash
		o.PaymentStatus = domain.PaymentPending
		o.Status = domain.OrderPending
	})
}

// PlaceOnlineOrders verifies the payment confirmation first; nothing is
// persisted when verification fails. Verified checkouts are stored as
// already paid.
func (s *OrderService) PlaceOnlineOrders(co Checkout, conf PaymentConfirmation) ([]string, error) {
	if err := s.validate(co); err != nil {
		return nil, err
	}
	if conf.GatewayOrderID == "" || conf.PaymentID == "" || conf.Signature == "" {
		return nil, ErrPaymentVerificationFailed
	}
	if s.Gateway == nil || !s.Gateway.VerifySignature(conf.GatewayOrderID, conf.PaymentID, conf.Signature) {
		return nil, ErrPaymentVerificationFailed
	}
	if ids, ok := s.replay(co); ok {
		return ids, nil
	}
	return s.createOrders(co, func(o *domain.Order, now time.Time) {
		o.PaymentMethod = domain.PayOnline
		o.PaymentStatus = domain.PaymentCompleted
		o.Status = domain.OrderPaid
		o.PaymentID = conf.PaymentID
		paidAt := now
		o.PaidAt = &paidAt
	})
}

// UpdateStatus applies one transition from the status table, stamping
// the transition's own timestamp next to status and updatedAt. The store
// accepts any status; legality is checked here, at the usecase boundary.
func (s *OrderService) UpdateStatus(orderID string, next domain.OrderStatus) (*domain.Order, error) {
	o, ok := s.Repo.Get(orderID)
	if !ok {
		return nil, ErrNotFound("order")
	}
	legal := false
	for _, a := range orderstatus.NextActions(o.Status, o.OrderType) {
		if a.Status == next {
			legal = true
			break
		}
	}
	if !legal {
		return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, o.Status, next)
	}
	now := time.Now().UTC()
	o.Status = next
	o.UpdatedAt = now
	switch next {
	case domain.OrderConfirmed:
		o.ConfirmedAt = &now
	case domain.OrderPreparing:
		o.PreparingAt = &now
	case domain.OrderReady:
		o.ReadyAt = &now
	case domain.OrderOutForDelivery:
		o.OutForDeliveryAt = &now
	case domain.OrderDelivered:
		o.DeliveredAt = &now
	case domain.OrderCancelled:
		o.CancelledAt = &now
	}
	if err := s.Repo.Put(o); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	s.notify(o)
	return o, nil
}

func (s *OrderService) Order(id string) (*domain.Order, error) {
	o, ok := s.Repo.Get(id)
	if !ok {
		return nil, ErrNotFound("order")
	}
	return o, nil
}

func (s *OrderService) OrdersForMess(messID string) ([]domain.Order, error) {
	return s.Repo.ByMess(messID)
}

func (s *OrderService) OrdersForStudent(studentID string) ([]domain.Order, error) {
	return s.Repo.ByStudent(studentID)
}

func (s *OrderService) validate(co Checkout) error {
	if len(co.Cart) == 0 {
		return ErrBadRequest("cart is empty")
	}
	if co.OrderType != domain.OrderWalkin && co.OrderType != domain.OrderDelivery {
		return ErrBadRequest("invalid order type")
	}
	if co.OrderType == domain.OrderDelivery && co.Address == nil {
		return ErrBadRequest("delivery address required")
	}
	if co.Customer.ID == "" {
		return ErrBadRequest("customer required")
	}
	for _, it := range co.Cart {
		if it.MessID == "" || it.Name == "" || it.Price < 0 || it.Quantity < 1 {
			return ErrBadRequest("invalid cart item")
		}
	}
	return nil
}

// replay returns the ids of a previous checkout with the same key, so a
// retried client call does not create a duplicate order set.
func (s *OrderService) replay(co Checkout) ([]string, bool) {
	if co.CheckoutKey == "" {
		return nil, false
	}
	prev, err := s.Repo.ByCheckoutKey(co.Customer.ID, co.CheckoutKey)
	if err != nil || len(prev) == 0 {
		return nil, false
	}
	ids := make([]string, 0, len(prev))
	for _, o := range prev {
		ids = append(ids, o.ID)
	}
	return ids, true
}

func (s *OrderService) createOrders(co Checkout, assign func(*domain.Order, time.Time)) ([]string, error) {
	groups, messIDs := groupCart(co.Cart)
	ids := make([]string, 0, len(messIDs))
	for _, messID := range messIDs {
		items := groups[messID]
		now := time.Now().UTC()
		o := &domain.Order{
			MessID:       messID,
			MessName:     items[0].MessName,
			StudentID:    co.Customer.ID,
			StudentName:  co.Customer.Name,
			StudentEmail: co.Customer.Email,
			StudentPhone: co.Customer.Phone,
			OrderType:    co.OrderType,
			CheckoutKey:  co.CheckoutKey,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if co.OrderType == domain.OrderDelivery {
			o.DeliveryAddress = co.Address
		}
		for _, it := range items {
			o.Items = append(o.Items, domain.OrderItem{Name: it.Name, Price: it.Price, Quantity: it.Quantity})
			o.Total += it.Price * float64(it.Quantity)
		}
		assign(o, now)
		id, err := s.Repo.Create(o)
		if err != nil {
			return ids, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		o.ID = id
		ids = append(ids, id)
		s.notify(o)
	}
	return ids, nil
}

func groupCart(cart []domain.CartItem) (map[string][]domain.CartItem, []string) {
	groups := make(map[string][]domain.CartItem)
	order := make([]string, 0, 2)
	for _, it := range cart {
		if _, ok := groups[it.MessID]; !ok {
			order = append(order, it.MessID)
		}
		groups[it.MessID] = append(groups[it.MessID], it)
	}
	return groups, order
}

func (s *OrderService) notify(o *domain.Order) {
	if s.Feed != nil {
		if byMess, err := s.Repo.ByMess(o.MessID); err == nil {
			s.Feed.PublishMess(o.MessID, byMess)
		}
		if byStudent, err := s.Repo.ByStudent(o.StudentID); err == nil {
			s.Feed.PublishStudent(o.StudentID, byStudent)
		}
	}
	if s.Events != nil {
		_ = s.Events.PublishOrderEvent(domain.OrderEvent{
			OrderID:   o.ID,
			MessID:    o.MessID,
			StudentID: o.StudentID,
			Status:    o.Status,
		})
	}
}
