package orders

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ashendre1/order-saga/internal/domain"
)

type stubPlacer struct {
	result *domain.OrderResult
	err    error
	called bool
}

func (s *stubPlacer) PlaceOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderResult, error) {
	s.called = true
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func TestHandler_HandlePlace(t *testing.T) {
	t.Run("returns the placement result", func(t *testing.T) {
		orderID := int64(42)
		placer := &stubPlacer{result: &domain.OrderResult{
			OrderID:       &orderID,
			CustomerID:    1,
			CustomerEmail: "customer@example.com",
			SuccessfulItems: []domain.OrderedItem{
				{ProductID: 1, ProductName: "Laptop", Quantity: 2},
			},
			FailedItems: []domain.FailedItem{},
		}}
		handler := NewHandler(placer, nil, nil, testLogger())

		body := `{"customerId":1,"customerEmail":"customer@example.com","items":[{"productId":1,"quantity":2}]}`
		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.HandlePlace(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var decoded map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&decoded); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if decoded["orderId"] != float64(42) {
			t.Fatalf("expected orderId 42, got %v", decoded["orderId"])
		}
		if decoded["customerEmail"] != "customer@example.com" {
			t.Fatalf("unexpected customerEmail: %v", decoded["customerEmail"])
		}
	})

	t.Run("omits orderId when nothing was reserved", func(t *testing.T) {
		placer := &stubPlacer{result: &domain.OrderResult{
			CustomerID:      1,
			CustomerEmail:   "customer@example.com",
			SuccessfulItems: []domain.OrderedItem{},
			FailedItems: []domain.FailedItem{
				{ProductID: 1, Reason: "Product not found"},
			},
		}}
		handler := NewHandler(placer, nil, nil, testLogger())

		body := `{"customerId":1,"customerEmail":"customer@example.com","items":[{"productId":1,"quantity":2}]}`
		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.HandlePlace(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		if strings.Contains(rec.Body.String(), "orderId") {
			t.Fatalf("expected orderId to be omitted: %s", rec.Body.String())
		}
	})

	t.Run("rejects invalid requests before orchestration", func(t *testing.T) {
		cases := []struct {
			name string
			body string
		}{
			{"malformed json", `{`},
			{"missing customer", `{"customerEmail":"a@b.c","items":[{"productId":1,"quantity":1}]}`},
			{"invalid email", `{"customerId":1,"customerEmail":"nope","items":[{"productId":1,"quantity":1}]}`},
			{"no items", `{"customerId":1,"customerEmail":"a@b.c","items":[]}`},
			{"zero quantity", `{"customerId":1,"customerEmail":"a@b.c","items":[{"productId":1,"quantity":0}]}`},
			{"missing product id", `{"customerId":1,"customerEmail":"a@b.c","items":[{"quantity":1}]}`},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				placer := &stubPlacer{}
				handler := NewHandler(placer, nil, nil, testLogger())

				req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(tc.body))
				rec := httptest.NewRecorder()

				handler.HandlePlace(rec, req)

				if rec.Code != http.StatusBadRequest {
					t.Fatalf("expected status 400, got %d", rec.Code)
				}
				if placer.called {
					t.Fatal("expected the placer not to run")
				}
			})
		}
	})

	t.Run("maps placement failure to 500", func(t *testing.T) {
		placer := &stubPlacer{err: errors.New("create order: connection refused")}
		handler := NewHandler(placer, nil, nil, testLogger())

		body := `{"customerId":1,"customerEmail":"customer@example.com","items":[{"productId":1,"quantity":2}]}`
		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.HandlePlace(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected status 500, got %d", rec.Code)
		}
	})
}
