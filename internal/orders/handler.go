package orders

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ashendre1/order-saga/internal/domain"
	"github.com/ashendre1/order-saga/internal/messaging"
)

// OrderPlacer runs the placement workflow for one validated request.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderResult, error)
}

type Handler struct {
	placer   OrderPlacer
	repo     *OrderRepository
	producer *messaging.Producer
	logger   *slog.Logger
}

// NewHandler wires the HTTP boundary. producer may be nil; event
// publishing is skipped in that case.
func NewHandler(placer OrderPlacer, repo *OrderRepository, producer *messaging.Producer, logger *slog.Logger) *Handler {
	return &Handler{
		placer:   placer,
		repo:     repo,
		producer: producer,
		logger:   logger,
	}
}

func (h *Handler) HandlePlace(w http.ResponseWriter, r *http.Request) {
	var req domain.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if msg, ok := validateOrderRequest(req); !ok {
		h.writeError(w, http.StatusBadRequest, msg)
		return
	}

	result, err := h.placer.PlaceOrder(r.Context(), req)
	if err != nil {
		h.logger.Error("failed to place order", "error", err, "customer_id", req.CustomerID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if h.producer != nil && result.OrderID != nil {
		event := domain.OrderPlacedEvent{
			EventID:       uuid.New().String(),
			OrderID:       *result.OrderID,
			CustomerID:    result.CustomerID,
			CustomerEmail: result.CustomerEmail,
			Items:         result.SuccessfulItems,
			Timestamp:     time.Now().UTC(),
		}
		key := strconv.FormatInt(event.OrderID, 10)
		if err := h.producer.Publish(r.Context(), key, event); err != nil {
			h.logger.Error("failed to publish order placed event", "error", err, "order_id", event.OrderID)
		}
	}

	h.writeJSON(w, http.StatusOK, result)
}

type orderWithItems struct {
	domain.Order
	Items []domain.OrderItem `json:"items"`
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "order_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	items, err := h.repo.ItemsByOrderID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order items", "error", err, "order_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, orderWithItems{Order: *order, Items: items})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	orders, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list orders", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}

	itemsByOrder, err := h.repo.ItemsByOrderIDs(r.Context(), ids)
	if err != nil {
		h.logger.Error("failed to load order items", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	out := make([]orderWithItems, 0, len(orders))
	for _, o := range orders {
		items := itemsByOrder[o.ID]
		if items == nil {
			items = []domain.OrderItem{}
		}
		out = append(out, orderWithItems{Order: o, Items: items})
	}

	h.logger.Info("orders listed", "count", len(out))
	h.writeJSON(w, http.StatusOK, out)
}

func validateOrderRequest(req domain.OrderRequest) (string, bool) {
	if req.CustomerID <= 0 {
		return "customerId is required", false
	}
	if !strings.Contains(req.CustomerEmail, "@") {
		return "a valid customerEmail is required", false
	}
	if len(req.Items) == 0 {
		return "order must contain at least one item", false
	}
	for _, item := range req.Items {
		if item.ProductID <= 0 {
			return "every item needs a productId", false
		}
		if item.Quantity < 1 {
			return "every item quantity must be at least 1", false
		}
	}
	return "", true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
