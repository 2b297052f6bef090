package usecase

import (
	"errors"
	"testing"
	"time"

	"mess-backend/internal/domain"
	"mess-backend/internal/infrastructure/repo"
)

type fakeGateway struct {
	ok bool
}

func (g fakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return g.ok
}

type recordFeed struct {
	messPushes    int
	studentPushes int
	lastMess      []domain.Order
}

func (f *recordFeed) PublishMess(messID string, orders []domain.Order) {
	f.messPushes++
	f.lastMess = orders
}

func (f *recordFeed) PublishStudent(studentID string, orders []domain.Order) {
	f.studentPushes++
}

type recordEvents struct {
	events []domain.OrderEvent
}

func (e *recordEvents) PublishOrderEvent(evt domain.OrderEvent) error {
	e.events = append(e.events, evt)
	return nil
}

// flakyRepo fails Create after a set number of successes.
type flakyRepo struct {
	*repo.MemoryOrderRepo
	creates   int
	failAfter int
}

func (r *flakyRepo) Create(o *domain.Order) (string, error) {
	if r.creates >= r.failAfter {
		return "", errors.New("connection reset")
	}
	r.creates++
	return r.MemoryOrderRepo.Create(o)
}

func newOrderService() (*OrderService, *recordFeed) {
	feed := &recordFeed{}
	return &OrderService{
		Repo:    repo.NewMemoryOrderRepo(),
		Gateway: fakeGateway{ok: true},
		Feed:    feed,
	}, feed
}

func sampleCart() []domain.CartItem {
	return []domain.CartItem{
		{MessID: "mess-a", MessName: "Annapurna", Name: "Thali", Price: 100, Quantity: 2},
		{MessID: "mess-a", MessName: "Annapurna", Name: "Lassi", Price: 50, Quantity: 1},
		{MessID: "mess-b", MessName: "Sharma Mess", Name: "Dosa", Price: 60, Quantity: 1},
	}
}

func sampleCustomer() Customer {
	return Customer{ID: "student-1", Name: "Ravi", Email: "ravi@example.com"}
}

func TestPlaceCashOrdersSplitsCartByMess(t *testing.T) {
	svc, _ := newOrderService()
	ids, err := svc.PlaceCashOrders(Checkout{
		Cart:      sampleCart(),
		OrderType: domain.OrderWalkin,
		Customer:  sampleCustomer(),
	})
	if err != nil {
		t.Fatalf("PlaceCashOrders error: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(ids))
	}
	byMess := map[string]*domain.Order{}
	for _, id := range ids {
		o, err := svc.Order(id)
		if err != nil {
			t.Fatalf("Order(%s): %v", id, err)
		}
		byMess[o.MessID] = o
	}
	a, b := byMess["mess-a"], byMess["mess-b"]
	if a == nil || b == nil {
		t.Fatalf("orders not split by mess: %v", byMess)
	}
	if a.Total != 250 {
		t.Fatalf("mess-a total = %v, want 250", a.Total)
	}
	if b.Total != 60 {
		t.Fatalf("mess-b total = %v, want 60", b.Total)
	}
	for _, o := range byMess {
		if o.PaymentMethod != domain.PayCash || o.PaymentStatus != domain.PaymentPending {
			t.Fatalf("unexpected payment fields: %+v", o)
		}
		if o.Status != domain.OrderPending {
			t.Fatalf("status = %s, want pending", o.Status)
		}
		if o.StudentName != "Ravi" {
			t.Fatalf("student name missing")
		}
	}
}

func TestPlaceCashOrdersValidation(t *testing.T) {
	svc, _ := newOrderService()
	if _, err := svc.PlaceCashOrders(Checkout{OrderType: domain.OrderWalkin, Customer: sampleCustomer()}); err == nil {
		t.Fatalf("empty cart should fail")
	}
	if _, err := svc.PlaceCashOrders(Checkout{
		Cart:      sampleCart(),
		OrderType: domain.OrderDelivery,
		Customer:  sampleCustomer(),
	}); err == nil {
		t.Fatalf("delivery without address should fail")
	}
}

func TestCheckoutKeyReplay(t *testing.T) {
	svc, _ := newOrderService()
	co := Checkout{
		Cart:        sampleCart(),
		OrderType:   domain.OrderWalkin,
		Customer:    sampleCustomer(),
		CheckoutKey: "checkout-123",
	}
	first, err := svc.PlaceCashOrders(co)
	if err != nil {
		t.Fatalf("first checkout: %v", err)
	}
	second, err := svc.PlaceCashOrders(co)
	if err != nil {
		t.Fatalf("replayed checkout: %v", err)
	}
	if len(second) != len(first) {
		t.Fatalf("replay returned %d ids, want %d", len(second), len(first))
	}
	all, _ := svc.OrdersForStudent("student-1")
	if len(all) != 2 {
		t.Fatalf("replay created duplicates: %d orders", len(all))
	}
}

func TestUpdateStatusStampsTimestamp(t *testing.T) {
	svc, _ := newOrderService()
	ids, err := svc.PlaceCashOrders(Checkout{
		Cart:      sampleCart()[:1],
		OrderType: domain.OrderWalkin,
		Customer:  sampleCustomer(),
	})
	if err != nil || len(ids) != 1 {
		t.Fatalf("setup: %v %v", ids, err)
	}
	created, _ := svc.Order(ids[0])

	if _, err := svc.UpdateStatus(ids[0], domain.OrderConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	o, err := svc.UpdateStatus(ids[0], domain.OrderPreparing)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if o.Status != domain.OrderPreparing {
		t.Fatalf("status = %s", o.Status)
	}
	if o.PreparingAt == nil {
		t.Fatalf("preparingAt not stamped")
	}
	if o.PreparingAt.Before(o.CreatedAt) {
		t.Fatalf("preparingAt %v before createdAt %v", o.PreparingAt, o.CreatedAt)
	}
	if !o.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("createdAt changed")
	}
	if o.Total != created.Total {
		t.Fatalf("total changed on status update")
	}
}

func TestUpdateStatusRejectsIllegalTransition(t *testing.T) {
	svc, _ := newOrderService()
	ids, _ := svc.PlaceCashOrders(Checkout{
		Cart:      sampleCart()[:1],
		OrderType: domain.OrderWalkin,
		Customer:  sampleCustomer(),
	})
	if _, err := svc.UpdateStatus(ids[0], domain.OrderDelivered); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("pending -> delivered should be illegal, got %v", err)
	}
	if _, err := svc.UpdateStatus("nope", domain.OrderConfirmed); err == nil {
		t.Fatalf("unknown order should fail")
	}
}

func TestWalkinSkipsOutForDelivery(t *testing.T) {
	svc, _ := newOrderService()
	ids, _ := svc.PlaceCashOrders(Checkout{
		Cart:      sampleCart()[:1],
		OrderType: domain.OrderWalkin,
		Customer:  sampleCustomer(),
	})
	for _, next := range []domain.OrderStatus{domain.OrderConfirmed, domain.OrderPreparing, domain.OrderReady} {
		if _, err := svc.UpdateStatus(ids[0], next); err != nil {
			t.Fatalf("%s: %v", next, err)
		}
	}
	if _, err := svc.UpdateStatus(ids[0], domain.OrderOutForDelivery); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("walkin ready -> out_for_delivery should be illegal, got %v", err)
	}
	o, err := svc.UpdateStatus(ids[0], domain.OrderDelivered)
	if err != nil {
		t.Fatalf("ready -> delivered: %v", err)
	}
	if o.DeliveredAt == nil {
		t.Fatalf("deliveredAt not stamped")
	}
	if _, err := svc.UpdateStatus(ids[0], domain.OrderCancelled); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("delivered is terminal, got %v", err)
	}
}

func TestPlaceOnlineOrders(t *testing.T) {
	svc, _ := newOrderService()
	addr := &domain.Address{Street: "Hostel 5", City: "Pune", State: "MH", Pincode: "411001"}
	ids, err := svc.PlaceOnlineOrders(Checkout{
		Cart: []domain.CartItem{
			{MessID: "mess-a", MessName: "Annapurna", Name: "Thali", Price: 300, Quantity: 1},
		},
		OrderType: domain.OrderDelivery,
		Address:   addr,
		Customer:  sampleCustomer(),
	}, PaymentConfirmation{
		GatewayOrderID: "order_abc",
		PaymentID:      "pay_abc",
		Signature:      "sig",
	})
	if err != nil {
		t.Fatalf("PlaceOnlineOrders: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected 1 order, got %d", len(ids))
	}
	o, _ := svc.Order(ids[0])
	if o.Status != domain.OrderPaid {
		t.Fatalf("status = %s, want paid", o.Status)
	}
	if o.PaymentStatus != domain.PaymentCompleted || o.PaymentMethod != domain.PayOnline {
		t.Fatalf("payment fields wrong: %+v", o)
	}
	if o.PaidAt == nil {
		t.Fatalf("paidAt not set")
	}
	if o.Total != 300 {
		t.Fatalf("total = %v, want 300", o.Total)
	}
	if o.DeliveryAddress == nil || o.DeliveryAddress.Street != "Hostel 5" {
		t.Fatalf("delivery address not carried")
	}
}

func TestPlaceOnlineOrdersVerificationFailure(t *testing.T) {
	svc, _ := newOrderService()
	svc.Gateway = fakeGateway{ok: false}
	_, err := svc.PlaceOnlineOrders(Checkout{
		Cart:      sampleCart(),
		OrderType: domain.OrderWalkin,
		Customer:  sampleCustomer(),
	}, PaymentConfirmation{GatewayOrderID: "o", PaymentID: "p", Signature: "s"})
	if !errors.Is(err, ErrPaymentVerificationFailed) {
		t.Fatalf("expected verification failure, got %v", err)
	}
	all, _ := svc.OrdersForStudent("student-1")
	if len(all) != 0 {
		t.Fatalf("orders persisted despite failed verification: %d", len(all))
	}
}

func TestPartialFailureKeepsSiblings(t *testing.T) {
	svc, _ := newOrderService()
	svc.Repo = &flakyRepo{MemoryOrderRepo: repo.NewMemoryOrderRepo(), failAfter: 1}

	ids, err := svc.PlaceCashOrders(Checkout{
		Cart:      sampleCart(),
		OrderType: domain.OrderWalkin,
		Customer:  sampleCustomer(),
	})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected the id created before the failure, got %v", ids)
	}
	persisted, _ := svc.OrdersForStudent("student-1")
	if len(persisted) != 1 {
		t.Fatalf("sibling order not kept: %d persisted", len(persisted))
	}
	if persisted[0].ID != ids[0] {
		t.Fatalf("persisted id %s does not match returned %s", persisted[0].ID, ids[0])
	}
}

func TestEventsPublishedOnCreateAndUpdate(t *testing.T) {
	svc, _ := newOrderService()
	rec := &recordEvents{}
	svc.Events = rec

	ids, err := svc.PlaceCashOrders(Checkout{
		Cart:      sampleCart()[:1],
		OrderType: domain.OrderWalkin,
		Customer:  sampleCustomer(),
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if len(rec.events) != 1 {
		t.Fatalf("create did not publish an event: %d", len(rec.events))
	}
	if rec.events[0].OrderID != ids[0] || rec.events[0].Status != domain.OrderPending {
		t.Fatalf("unexpected event: %+v", rec.events[0])
	}

	if _, err := svc.UpdateStatus(ids[0], domain.OrderConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if len(rec.events) != 2 {
		t.Fatalf("update did not publish an event: %d", len(rec.events))
	}
	last := rec.events[len(rec.events)-1]
	if last.Status != domain.OrderConfirmed || last.MessID != "mess-a" || last.StudentID != "student-1" {
		t.Fatalf("unexpected event: %+v", last)
	}
}

func TestOrdersForMessEmpty(t *testing.T) {
	svc, _ := newOrderService()
	out, err := svc.OrdersForMess("no-such-mess")
	if err != nil {
		t.Fatalf("empty query should not fail: %v", err)
	}
	if out == nil || len(out) != 0 {
		t.Fatalf("want empty slice, got %v", out)
	}
}

func TestFeedNotifiedOnCreateAndUpdate(t *testing.T) {
	svc, feed := newOrderService()
	ids, _ := svc.PlaceCashOrders(Checkout{
		Cart:      sampleCart()[:1],
		OrderType: domain.OrderWalkin,
		Customer:  sampleCustomer(),
	})
	if feed.messPushes != 1 || feed.studentPushes != 1 {
		t.Fatalf("create did not notify: mess=%d student=%d", feed.messPushes, feed.studentPushes)
	}
	if _, err := svc.UpdateStatus(ids[0], domain.OrderConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if feed.messPushes != 2 {
		t.Fatalf("update did not notify mess feed")
	}
	if len(feed.lastMess) != 1 || feed.lastMess[0].Status != domain.OrderConfirmed {
		t.Fatalf("feed snapshot stale: %+v", feed.lastMess)
	}
}

func TestOrdersNewestFirst(t *testing.T) {
	svc, _ := newOrderService()
	for i := 0; i < 3; i++ {
		_, err := svc.PlaceCashOrders(Checkout{
			Cart: []domain.CartItem{
				{MessID: "mess-a", MessName: "Annapurna", Name: "Thali", Price: 100, Quantity: 1},
			},
			OrderType: domain.OrderWalkin,
			Customer:  sampleCustomer(),
		})
		if err != nil {
			t.Fatalf("checkout %d: %v", i, err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	out, _ := svc.OrdersForMess("mess-a")
	if len(out) != 3 {
		t.Fatalf("got %d orders", len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i].CreatedAt.After(out[i-1].CreatedAt) {
			t.Fatalf("orders not newest-first: %v then %v", out[i-1].CreatedAt, out[i].CreatedAt)
		}
	}
}
