package domain

import "time"

// Product is a read-only snapshot of a catalog product. Within the order
// workflow it is an external fact fetched from the catalog service and may
// be stale by the time a reservation is attempted; the catalog remains the
// sole authority on whether a stock reduction is valid.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       int64     `json:"price"`
	Quantity    int       `json:"quantity"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
