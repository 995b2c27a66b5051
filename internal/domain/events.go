package domain

import "time"

// OrderPlacedEvent is published after an order and its reserved items have
// been persisted. Items carries only the reserved lines; rejected lines
// never leave the placement response.
type OrderPlacedEvent struct {
	EventID       string        `json:"eventId"`
	OrderID       int64         `json:"orderId"`
	CustomerID    int64         `json:"customerId"`
	CustomerEmail string        `json:"customerEmail"`
	Items         []OrderedItem `json:"items"`
	Timestamp     time.Time     `json:"timestamp"`
}
