package orders

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/ashendre1/order-saga/internal/domain"
)

var meter = otel.Meter("orders")

// reasonProductUnavailable is the catch-all rejection reason for any remote
// lookup or reservation failure. Insufficient stock gets its own reason;
// everything else collapses into this one.
const reasonProductUnavailable = "Product not found"

// OrderWriter is the slice of the order store the placement workflow needs.
type OrderWriter interface {
	CreateOrder(ctx context.Context, customerID int64, customerEmail string, createdAt time.Time) (*domain.Order, error)
	AddItems(ctx context.Context, orderID int64, items []domain.LineItem) error
}

// Placer coordinates order placement across the catalog service and the
// order store. Each line item is checked and reserved independently and
// concurrently; an order is persisted only when at least one item was
// reserved. There is no distributed transaction and no compensation: stock
// already reduced remotely stays reduced even if persisting the order
// fails afterwards.
type Placer struct {
	gateway StockGateway
	store   OrderWriter
	logger  *slog.Logger

	itemsReserved metric.Int64Counter
	itemsRejected metric.Int64Counter
}

func NewPlacer(gateway StockGateway, store OrderWriter, logger *slog.Logger) *Placer {
	itemsReserved, _ := meter.Int64Counter("orders.items.reserved",
		metric.WithDescription("Line items whose stock was successfully reserved"))
	itemsRejected, _ := meter.Int64Counter("orders.items.rejected",
		metric.WithDescription("Line items rejected during placement"))

	return &Placer{
		gateway:       gateway,
		store:         store,
		logger:        logger,
		itemsReserved: itemsReserved,
		itemsRejected: itemsRejected,
	}
}

// PlaceOrder runs the placement workflow for a validated request. Per-item
// failures never fail the call; only a store failure does, and by then any
// reserved stock has already been committed remotely.
func (p *Placer) PlaceOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderResult, error) {
	p.logger.Info("processing order",
		"customer_id", req.CustomerID, "item_count", len(req.Items))

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		reserved []domain.OrderedItem
		failed   []domain.FailedItem
	)

	for _, item := range req.Items {
		wg.Add(1)
		go func(item domain.LineItem) {
			defer wg.Done()

			ordered, failure := p.processItem(ctx, item)

			mu.Lock()
			defer mu.Unlock()
			if failure != nil {
				failed = append(failed, *failure)
				return
			}
			reserved = append(reserved, *ordered)
		}(item)
	}
	wg.Wait()

	p.itemsReserved.Add(ctx, int64(len(reserved)))
	p.itemsRejected.Add(ctx, int64(len(failed)))

	if len(reserved) == 0 {
		p.logger.Info("no items could be reserved, skipping order creation",
			"customer_id", req.CustomerID, "failed_count", len(failed))
		return assembleResult(req, nil, reserved, failed), nil
	}

	order, err := p.store.CreateOrder(ctx, req.CustomerID, req.CustomerEmail, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	items := make([]domain.LineItem, 0, len(reserved))
	for _, it := range reserved {
		items = append(items, domain.LineItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	if err := p.store.AddItems(ctx, order.ID, items); err != nil {
		return nil, fmt.Errorf("add items to order %d: %w", order.ID, err)
	}

	p.logger.Info("order created",
		"order_id", order.ID, "reserved_count", len(reserved), "failed_count", len(failed))

	return assembleResult(req, order, reserved, failed), nil
}

// processItem runs the per-item decision procedure: fetch the product
// snapshot, compare its quantity against the request, then ask the catalog
// to reduce stock. The catalog may still refuse the reduction even after
// the snapshot looked sufficient; that refusal, like any fetch failure,
// takes the catch-all rejection path.
func (p *Placer) processItem(ctx context.Context, item domain.LineItem) (*domain.OrderedItem, *domain.FailedItem) {
	product, err := p.gateway.FetchProduct(ctx, item.ProductID)
	if err != nil {
		p.logger.Warn("product lookup failed", "product_id", item.ProductID, "error", err)
		return nil, &domain.FailedItem{ProductID: item.ProductID, Reason: reasonProductUnavailable}
	}

	if product.Quantity < item.Quantity {
		p.logger.Warn("insufficient stock",
			"product_id", item.ProductID, "available", product.Quantity, "requested", item.Quantity)
		return nil, &domain.FailedItem{
			ProductID: item.ProductID,
			Reason:    fmt.Sprintf("Insufficient stock. Available: %d, Requested: %d", product.Quantity, item.Quantity),
		}
	}

	if _, err := p.gateway.ReduceStock(ctx, item.ProductID, item.Quantity); err != nil {
		p.logger.Warn("stock reservation failed", "product_id", item.ProductID, "error", err)
		return nil, &domain.FailedItem{ProductID: item.ProductID, Reason: reasonProductUnavailable}
	}

	p.logger.Info("item reserved",
		"product_id", product.ID, "product_name", product.Name, "quantity", item.Quantity)

	return &domain.OrderedItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    item.Quantity,
	}, nil
}

// assembleResult maps the collected outcomes and the optionally persisted
// order into the response shape. Pure; order is nil when nothing was
// reserved.
func assembleResult(req domain.OrderRequest, order *domain.Order, reserved []domain.OrderedItem, failed []domain.FailedItem) *domain.OrderResult {
	result := &domain.OrderResult{
		CustomerID:      req.CustomerID,
		CustomerEmail:   req.CustomerEmail,
		SuccessfulItems: []domain.OrderedItem{},
		FailedItems:     []domain.FailedItem{},
	}

	if order != nil {
		id := order.ID
		result.OrderID = &id
		result.CustomerID = order.CustomerID
		result.CustomerEmail = order.CustomerEmail
	}

	result.SuccessfulItems = append(result.SuccessfulItems, reserved...)
	result.FailedItems = append(result.FailedItems, failed...)

	return result
}
