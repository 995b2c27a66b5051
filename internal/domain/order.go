package domain

import "time"

// Order is the persisted order header. Items live in their own rows and
// are loaded separately; an order exclusively owns its items.
type Order struct {
	ID            int64     `json:"id"`
	CustomerID    int64     `json:"customerId"`
	CustomerEmail string    `json:"customerEmail"`
	CreatedAt     time.Time `json:"createdAt"`
}

// OrderItem is one reserved line of an order.
type OrderItem struct {
	ID        int64 `json:"id"`
	OrderID   int64 `json:"orderId"`
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// LineItem is one (product, quantity) pair of an incoming order request.
type LineItem struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// OrderRequest is the inbound shape of a placement request.
type OrderRequest struct {
	CustomerID    int64      `json:"customerId"`
	CustomerEmail string     `json:"customerEmail"`
	Items         []LineItem `json:"items"`
}

// OrderedItem is a line item that was successfully reserved. ProductName
// comes from the product snapshot taken before the reservation.
type OrderedItem struct {
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
}

// FailedItem is a line item that could not be reserved.
type FailedItem struct {
	ProductID int64  `json:"productId"`
	Reason    string `json:"reason"`
}

// OrderResult is the aggregate outcome of a placement request. OrderID is
// nil when no item could be reserved and no order was persisted.
type OrderResult struct {
	OrderID         *int64        `json:"orderId,omitempty"`
	CustomerID      int64         `json:"customerId"`
	CustomerEmail   string        `json:"customerEmail"`
	SuccessfulItems []OrderedItem `json:"successfulItems"`
	FailedItems     []FailedItem  `json:"failedItems"`
}
