package domain

import "time"

type MenuItem struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Available   bool    `json:"available"`
}

type Mess struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	Menu        []MenuItem `json:"menu"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// CartItem is one line of a student's checkout cart. A cart may span
// multiple messes; checkout splits it into one order per mess.
type CartItem struct {
	MessID   string  `json:"messId"`
	MessName string  `json:"messName"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}
