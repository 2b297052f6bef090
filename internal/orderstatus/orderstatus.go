package orderstatus

import "mess-backend/internal/domain"

// Action is one status transition an owner may apply to an order.
type Action struct {
	Status domain.OrderStatus `json:"status"`
	Label  string             `json:"label"`
	Color  string             `json:"color"`
}

// Info is the display metadata for a status.
type Info struct {
	Label       string `json:"label"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

// NextActions returns the legal transitions out of the current status.
// Terminal and unknown statuses get no actions; out of "ready" the flow
// forks on the order type (delivery goes through out_for_delivery,
// walk-in completes directly).
func NextActions(current domain.OrderStatus, orderType domain.OrderType) []Action {
	switch current {
	case domain.OrderPending:
		return []Action{
			{Status: domain.OrderConfirmed, Label: "Confirm Order", Color: "blue"},
			{Status: domain.OrderCancelled, Label: "Cancel Order", Color: "red"},
		}
	case domain.OrderConfirmed:
		return []Action{
			{Status: domain.OrderPreparing, Label: "Start Preparing", Color: "orange"},
			{Status: domain.OrderCancelled, Label: "Cancel Order", Color: "red"},
		}
	case domain.OrderPreparing:
		return []Action{
			{Status: domain.OrderReady, Label: "Mark as Ready", Color: "purple"},
			{Status: domain.OrderCancelled, Label: "Cancel Order", Color: "red"},
		}
	case domain.OrderReady:
		if orderType == domain.OrderDelivery {
			return []Action{
				{Status: domain.OrderOutForDelivery, Label: "Out for Delivery", Color: "indigo"},
			}
		}
		return []Action{
			{Status: domain.OrderDelivered, Label: "Mark as Completed", Color: "green"},
		}
	case domain.OrderOutForDelivery:
		return []Action{
			{Status: domain.OrderDelivered, Label: "Mark as Delivered", Color: "green"},
		}
	}
	return []Action{}
}

// StatusInfo never fails: anything outside the lifecycle (including the
// "paid" state stamped on online checkouts) gets the generic descriptor.
func StatusInfo(status domain.OrderStatus) Info {
	switch status {
	case domain.OrderPending:
		return Info{Label: "Pending", Color: "yellow", Icon: "⏳", Description: "Waiting for confirmation"}
	case domain.OrderConfirmed:
		return Info{Label: "Confirmed", Color: "blue", Icon: "✅", Description: "Order confirmed"}
	case domain.OrderPreparing:
		return Info{Label: "Preparing", Color: "orange", Icon: "👨‍🍳", Description: "Food being prepared"}
	case domain.OrderReady:
		return Info{Label: "Ready", Color: "purple", Icon: "📦", Description: "Ready for pickup/delivery"}
	case domain.OrderOutForDelivery:
		return Info{Label: "Out for Delivery", Color: "indigo", Icon: "🚚", Description: "On the way to customer"}
	case domain.OrderDelivered:
		return Info{Label: "Delivered", Color: "green", Icon: "🎉", Description: "Order delivered successfully"}
	case domain.OrderCancelled:
		return Info{Label: "Cancelled", Color: "red", Icon: "❌", Description: "Order cancelled"}
	}
	return Info{Label: string(status), Color: "gray", Icon: "❓", Description: "Unknown status"}
}

// Progress maps a status to a completion percentage for the order
// timeline. Cancelled resets to 0 no matter how far the order got.
func Progress(status domain.OrderStatus) int {
	switch status {
	case domain.OrderConfirmed:
		return 20
	case domain.OrderPreparing:
		return 40
	case domain.OrderReady:
		return 70
	case domain.OrderOutForDelivery:
		return 90
	case domain.OrderDelivered:
		return 100
	}
	return 0
}
