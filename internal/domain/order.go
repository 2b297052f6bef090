package domain

import "time"

type OrderStatus string

const (
	OrderPending        OrderStatus = "pending"
	OrderPaid           OrderStatus = "paid"
	OrderConfirmed      OrderStatus = "confirmed"
	OrderPreparing      OrderStatus = "preparing"
	OrderReady          OrderStatus = "ready"
	OrderOutForDelivery OrderStatus = "out_for_delivery"
	OrderDelivered      OrderStatus = "delivered"
	OrderCancelled      OrderStatus = "cancelled"
)

type OrderType string

const (
	OrderWalkin   OrderType = "walkin"
	OrderDelivery OrderType = "delivery"
)

type PaymentMethod string

const (
	PayCash   PaymentMethod = "cash"
	PayOnline PaymentMethod = "online"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

type OrderItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

type Address struct {
	Street   string `json:"street"`
	Landmark string `json:"landmark,omitempty"`
	City     string `json:"city"`
	State    string `json:"state"`
	Pincode  string `json:"pincode"`
}

// OrderEvent is the broadcast payload emitted when an order is created
// or changes status.
type OrderEvent struct {
	OrderID   string      `json:"order_id"`
	MessID    string      `json:"mess_id"`
	StudentID string      `json:"student_id"`
	Status    OrderStatus `json:"status"`
}

type Order struct {
	ID               string        `json:"id"`
	MessID           string        `json:"messId"`
	MessName         string        `json:"messName"`
	StudentID        string        `json:"studentId"`
	StudentName      string        `json:"studentName"`
	StudentEmail     string        `json:"studentEmail,omitempty"`
	StudentPhone     string        `json:"studentPhone,omitempty"`
	Items            []OrderItem   `json:"items"`
	Total            float64       `json:"total"`
	OrderType        OrderType     `json:"orderType"`
	DeliveryAddress  *Address      `json:"deliveryAddress,omitempty"`
	PaymentMethod    PaymentMethod `json:"paymentMethod"`
	PaymentStatus    PaymentStatus `json:"paymentStatus"`
	Status           OrderStatus   `json:"status"`
	CheckoutKey      string        `json:"-"`
	PaymentID        string        `json:"-"`
	PaidAt           *time.Time    `json:"paidAt,omitempty"`
	ConfirmedAt      *time.Time    `json:"confirmedAt,omitempty"`
	PreparingAt      *time.Time    `json:"preparingAt,omitempty"`
	ReadyAt          *time.Time    `json:"readyAt,omitempty"`
	OutForDeliveryAt *time.Time    `json:"outForDeliveryAt,omitempty"`
	DeliveredAt      *time.Time    `json:"deliveredAt,omitempty"`
	CancelledAt      *time.Time    `json:"cancelledAt,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}
