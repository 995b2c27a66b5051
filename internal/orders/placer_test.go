package orders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/ashendre1/order-saga/internal/domain"
)

type fakeGateway struct {
	mu          sync.Mutex
	products    map[int64]domain.Product
	fetchErr    map[int64]error
	reduceErr   map[int64]error
	fetchDelay  time.Duration
	reduceCalls int
}

func (g *fakeGateway) FetchProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	if g.fetchDelay > 0 {
		time.Sleep(time.Duration(rand.Int63n(int64(g.fetchDelay))))
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err, ok := g.fetchErr[productID]; ok {
		return nil, err
	}

	product, ok := g.products[productID]
	if !ok {
		return nil, ErrProductNotFound
	}
	return &product, nil
}

func (g *fakeGateway) CheckAvailability(ctx context.Context, productID int64, quantity int) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	product, ok := g.products[productID]
	if !ok {
		return false, ErrProductNotFound
	}
	return product.Quantity >= quantity, nil
}

func (g *fakeGateway) ReduceStock(ctx context.Context, productID int64, quantity int) (*domain.Product, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.reduceCalls++

	if err, ok := g.reduceErr[productID]; ok {
		return nil, err
	}

	product, ok := g.products[productID]
	if !ok {
		return nil, ErrProductNotFound
	}
	if product.Quantity < quantity {
		return nil, ErrReservationRejected
	}

	product.Quantity -= quantity
	g.products[productID] = product
	return &product, nil
}

type fakeStore struct {
	mu          sync.Mutex
	nextID      int64
	orders      []domain.Order
	items       map[int64][]domain.LineItem
	createErr   error
	addItemsErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID: 1,
		items:  make(map[int64][]domain.LineItem),
	}
}

func (s *fakeStore) CreateOrder(ctx context.Context, customerID int64, customerEmail string, createdAt time.Time) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createErr != nil {
		return nil, s.createErr
	}

	order := domain.Order{
		ID:            s.nextID,
		CustomerID:    customerID,
		CustomerEmail: customerEmail,
		CreatedAt:     createdAt,
	}
	s.nextID++
	s.orders = append(s.orders, order)
	return &order, nil
}

func (s *fakeStore) AddItems(ctx context.Context, orderID int64, items []domain.LineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.addItemsErr != nil {
		return s.addItemsErr
	}

	s.items[orderID] = append(s.items[orderID], items...)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPlacer_PlaceOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("persists order when every item is reserved", func(t *testing.T) {
		gw := &fakeGateway{products: map[int64]domain.Product{
			1: {ID: 1, Name: "Laptop", Quantity: 10},
			2: {ID: 2, Name: "Keyboard", Quantity: 5},
		}}
		store := newFakeStore()
		placer := NewPlacer(gw, store, testLogger())

		result, err := placer.PlaceOrder(ctx, domain.OrderRequest{
			CustomerID:    7,
			CustomerEmail: "customer@example.com",
			Items: []domain.LineItem{
				{ProductID: 1, Quantity: 2},
				{ProductID: 2, Quantity: 1},
			},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.OrderID == nil {
			t.Fatal("expected an order id")
		}
		if len(result.SuccessfulItems) != 2 {
			t.Fatalf("expected 2 successful items, got %d", len(result.SuccessfulItems))
		}
		if len(result.FailedItems) != 0 {
			t.Fatalf("expected no failed items, got %d", len(result.FailedItems))
		}
		if got := len(store.items[*result.OrderID]); got != 2 {
			t.Fatalf("expected 2 stored items, got %d", got)
		}
		if gw.products[1].Quantity != 8 {
			t.Fatalf("expected remote stock reduced to 8, got %d", gw.products[1].Quantity)
		}
	})

	t.Run("skips persistence when no item can be reserved", func(t *testing.T) {
		gw := &fakeGateway{products: map[int64]domain.Product{
			1: {ID: 1, Name: "Laptop", Quantity: 1},
			2: {ID: 2, Name: "Keyboard", Quantity: 0},
		}}
		store := newFakeStore()
		placer := NewPlacer(gw, store, testLogger())

		result, err := placer.PlaceOrder(ctx, domain.OrderRequest{
			CustomerID:    7,
			CustomerEmail: "customer@example.com",
			Items: []domain.LineItem{
				{ProductID: 1, Quantity: 5},
				{ProductID: 2, Quantity: 1},
			},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.OrderID != nil {
			t.Fatalf("expected no order id, got %d", *result.OrderID)
		}
		if result.CustomerID != 7 || result.CustomerEmail != "customer@example.com" {
			t.Fatalf("expected request customer echoed back, got %d/%s", result.CustomerID, result.CustomerEmail)
		}
		if len(result.SuccessfulItems) != 0 {
			t.Fatalf("expected no successful items, got %d", len(result.SuccessfulItems))
		}
		if len(result.FailedItems) != 2 {
			t.Fatalf("expected 2 failed items, got %d", len(result.FailedItems))
		}
		if len(store.orders) != 0 {
			t.Fatalf("expected no persisted order, got %d", len(store.orders))
		}
		if gw.reduceCalls != 0 {
			t.Fatalf("expected no reservation attempts, got %d", gw.reduceCalls)
		}
	})

	t.Run("mixed request keeps exact insufficient stock reason", func(t *testing.T) {
		gw := &fakeGateway{products: map[int64]domain.Product{
			1: {ID: 1, Name: "Laptop", Quantity: 5},
			2: {ID: 2, Name: "Keyboard", Quantity: 1},
		}}
		store := newFakeStore()
		placer := NewPlacer(gw, store, testLogger())

		result, err := placer.PlaceOrder(ctx, domain.OrderRequest{
			CustomerID:    7,
			CustomerEmail: "customer@example.com",
			Items: []domain.LineItem{
				{ProductID: 1, Quantity: 2},
				{ProductID: 2, Quantity: 3},
			},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.OrderID == nil {
			t.Fatal("expected an order id")
		}
		if len(result.SuccessfulItems) != 1 || result.SuccessfulItems[0].ProductID != 1 {
			t.Fatalf("expected product 1 reserved, got %+v", result.SuccessfulItems)
		}
		if result.SuccessfulItems[0].ProductName != "Laptop" {
			t.Fatalf("expected product name from snapshot, got %q", result.SuccessfulItems[0].ProductName)
		}
		if len(result.FailedItems) != 1 {
			t.Fatalf("expected 1 failed item, got %d", len(result.FailedItems))
		}
		want := "Insufficient stock. Available: 1, Requested: 3"
		if result.FailedItems[0].Reason != want {
			t.Fatalf("expected reason %q, got %q", want, result.FailedItems[0].Reason)
		}
	})

	t.Run("fetch failure rejects only the failed item", func(t *testing.T) {
		gw := &fakeGateway{
			products: map[int64]domain.Product{
				1: {ID: 1, Name: "Laptop", Quantity: 5},
			},
			fetchErr: map[int64]error{
				2: fmt.Errorf("fetch product 2: %w", context.DeadlineExceeded),
			},
		}
		store := newFakeStore()
		placer := NewPlacer(gw, store, testLogger())

		result, err := placer.PlaceOrder(ctx, domain.OrderRequest{
			CustomerID:    7,
			CustomerEmail: "customer@example.com",
			Items: []domain.LineItem{
				{ProductID: 1, Quantity: 2},
				{ProductID: 2, Quantity: 1},
			},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.OrderID == nil {
			t.Fatal("expected an order id despite one failed item")
		}
		if len(result.FailedItems) != 1 {
			t.Fatalf("expected 1 failed item, got %d", len(result.FailedItems))
		}
		if result.FailedItems[0].Reason != "Product not found" {
			t.Fatalf("expected catch-all reason, got %q", result.FailedItems[0].Reason)
		}
	})

	t.Run("reservation failure takes the catch-all path", func(t *testing.T) {
		gw := &fakeGateway{
			products: map[int64]domain.Product{
				1: {ID: 1, Name: "Laptop", Quantity: 5},
			},
			reduceErr: map[int64]error{
				1: errors.New("connection reset"),
			},
		}
		store := newFakeStore()
		placer := NewPlacer(gw, store, testLogger())

		result, err := placer.PlaceOrder(ctx, domain.OrderRequest{
			CustomerID:    7,
			CustomerEmail: "customer@example.com",
			Items:         []domain.LineItem{{ProductID: 1, Quantity: 2}},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.OrderID != nil {
			t.Fatal("expected no order when the only reservation failed")
		}
		if len(result.FailedItems) != 1 || result.FailedItems[0].Reason != "Product not found" {
			t.Fatalf("expected catch-all rejection, got %+v", result.FailedItems)
		}
	})

	t.Run("concurrent fan-out yields exactly one outcome per item", func(t *testing.T) {
		const n = 40

		products := make(map[int64]domain.Product, n)
		items := make([]domain.LineItem, 0, n)
		for i := int64(1); i <= n; i++ {
			// odd ids have plenty of stock, even ids none
			quantity := 0
			if i%2 == 1 {
				quantity = 100
			}
			products[i] = domain.Product{ID: i, Name: fmt.Sprintf("product-%d", i), Quantity: quantity}
			items = append(items, domain.LineItem{ProductID: i, Quantity: 1})
		}

		gw := &fakeGateway{products: products, fetchDelay: 2 * time.Millisecond}
		store := newFakeStore()
		placer := NewPlacer(gw, store, testLogger())

		result, err := placer.PlaceOrder(ctx, domain.OrderRequest{
			CustomerID:    7,
			CustomerEmail: "customer@example.com",
			Items:         items,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		total := len(result.SuccessfulItems) + len(result.FailedItems)
		if total != n {
			t.Fatalf("expected %d outcomes, got %d", n, total)
		}

		seen := make(map[int64]int, n)
		for _, item := range result.SuccessfulItems {
			seen[item.ProductID]++
		}
		for _, item := range result.FailedItems {
			seen[item.ProductID]++
		}
		for id, count := range seen {
			if count != 1 {
				t.Fatalf("product %d has %d outcomes", id, count)
			}
		}
		if len(result.SuccessfulItems) != n/2 {
			t.Fatalf("expected %d reserved items, got %d", n/2, len(result.SuccessfulItems))
		}
	})

	t.Run("placing the same request twice creates two orders", func(t *testing.T) {
		gw := &fakeGateway{products: map[int64]domain.Product{
			1: {ID: 1, Name: "Laptop", Quantity: 10},
		}}
		store := newFakeStore()
		placer := NewPlacer(gw, store, testLogger())

		req := domain.OrderRequest{
			CustomerID:    7,
			CustomerEmail: "customer@example.com",
			Items:         []domain.LineItem{{ProductID: 1, Quantity: 3}},
		}

		first, err := placer.PlaceOrder(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := placer.PlaceOrder(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// no deduplication key: double submission means double stock reduction
		if *first.OrderID == *second.OrderID {
			t.Fatal("expected two distinct orders")
		}
		if len(store.orders) != 2 {
			t.Fatalf("expected 2 persisted orders, got %d", len(store.orders))
		}
		if gw.products[1].Quantity != 4 {
			t.Fatalf("expected stock reduced twice to 4, got %d", gw.products[1].Quantity)
		}
	})

	t.Run("create order failure is fatal", func(t *testing.T) {
		gw := &fakeGateway{products: map[int64]domain.Product{
			1: {ID: 1, Name: "Laptop", Quantity: 10},
		}}
		store := newFakeStore()
		store.createErr = errors.New("connection refused")
		placer := NewPlacer(gw, store, testLogger())

		_, err := placer.PlaceOrder(ctx, domain.OrderRequest{
			CustomerID:    7,
			CustomerEmail: "customer@example.com",
			Items:         []domain.LineItem{{ProductID: 1, Quantity: 1}},
		})
		if err == nil {
			t.Fatal("expected error from failed order creation")
		}
		// stock stays reduced remotely: the workflow has no compensation
		if gw.products[1].Quantity != 9 {
			t.Fatalf("expected stock to stay reduced at 9, got %d", gw.products[1].Quantity)
		}
	})

	t.Run("add items failure is fatal", func(t *testing.T) {
		gw := &fakeGateway{products: map[int64]domain.Product{
			1: {ID: 1, Name: "Laptop", Quantity: 10},
		}}
		store := newFakeStore()
		store.addItemsErr = errors.New("connection refused")
		placer := NewPlacer(gw, store, testLogger())

		_, err := placer.PlaceOrder(ctx, domain.OrderRequest{
			CustomerID:    7,
			CustomerEmail: "customer@example.com",
			Items:         []domain.LineItem{{ProductID: 1, Quantity: 1}},
		})
		if err == nil {
			t.Fatal("expected error from failed item insertion")
		}
		if len(store.orders) != 1 {
			t.Fatalf("expected the itemless order row to remain, got %d", len(store.orders))
		}
	})
}

func TestAssembleResult(t *testing.T) {
	req := domain.OrderRequest{CustomerID: 3, CustomerEmail: "a@b.c"}

	t.Run("without order echoes request and empties lists", func(t *testing.T) {
		result := assembleResult(req, nil, nil, nil)

		if result.OrderID != nil {
			t.Fatal("expected nil order id")
		}
		if result.CustomerID != 3 || result.CustomerEmail != "a@b.c" {
			t.Fatalf("unexpected customer echo: %+v", result)
		}
		if result.SuccessfulItems == nil || result.FailedItems == nil {
			t.Fatal("expected empty, non-nil item lists")
		}
	})

	t.Run("with order carries the persisted identity", func(t *testing.T) {
		order := &domain.Order{ID: 42, CustomerID: 3, CustomerEmail: "a@b.c"}
		reserved := []domain.OrderedItem{{ProductID: 1, ProductName: "Laptop", Quantity: 2}}
		failed := []domain.FailedItem{{ProductID: 2, Reason: "Product not found"}}

		result := assembleResult(req, order, reserved, failed)

		if result.OrderID == nil || *result.OrderID != 42 {
			t.Fatalf("expected order id 42, got %v", result.OrderID)
		}
		if len(result.SuccessfulItems) != 1 || len(result.FailedItems) != 1 {
			t.Fatalf("unexpected item lists: %+v", result)
		}
	})
}
