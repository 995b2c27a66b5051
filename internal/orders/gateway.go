package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ashendre1/order-saga/internal/domain"
)

var (
	// ErrProductNotFound reports that the catalog has no product with the
	// requested id.
	ErrProductNotFound = errors.New("product not found")

	// ErrReservationRejected reports that the catalog refused to reduce
	// stock. The catalog is the sole authority on that decision; the client
	// performs no stock arithmetic of its own.
	ErrReservationRejected = errors.New("stock reservation rejected")
)

// StockGateway is the placement workflow's view of the remote catalog
// service.
type StockGateway interface {
	FetchProduct(ctx context.Context, productID int64) (*domain.Product, error)
	CheckAvailability(ctx context.Context, productID int64, quantity int) (bool, error)
	ReduceStock(ctx context.Context, productID int64, quantity int) (*domain.Product, error)
}

// CatalogClient implements StockGateway over the catalog service's HTTP
// API. It never retries; retry policy, if any, belongs to the transport.
type CatalogClient struct {
	baseURL string
	client  *http.Client
}

func NewCatalogClient(baseURL string, client *http.Client) *CatalogClient {
	return &CatalogClient{
		baseURL: baseURL,
		client:  client,
	}
}

func (c *CatalogClient) FetchProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	endpoint := fmt.Sprintf("%s/products/%d", c.baseURL, productID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create fetch product request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch product %d: %w", productID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrProductNotFound
	default:
		return nil, fmt.Errorf("catalog service returned status %d for product %d", resp.StatusCode, productID)
	}

	var product domain.Product
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return nil, fmt.Errorf("decode product %d: %w", productID, err)
	}

	return &product, nil
}

func (c *CatalogClient) CheckAvailability(ctx context.Context, productID int64, quantity int) (bool, error) {
	endpoint := fmt.Sprintf("%s/products/%d/availability?%s", c.baseURL, productID, quantityQuery(quantity))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("create availability request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("check availability for product %d: %w", productID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return false, ErrProductNotFound
	default:
		return false, fmt.Errorf("catalog service returned status %d for product %d", resp.StatusCode, productID)
	}

	var body struct {
		Available bool `json:"available"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decode availability for product %d: %w", productID, err)
	}

	return body.Available, nil
}

func (c *CatalogClient) ReduceStock(ctx context.Context, productID int64, quantity int) (*domain.Product, error) {
	endpoint := fmt.Sprintf("%s/products/%d/reduce-stock?%s", c.baseURL, productID, quantityQuery(quantity))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create reduce stock request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reduce stock for product %d: %w", productID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrProductNotFound
	case http.StatusConflict:
		return nil, ErrReservationRejected
	default:
		return nil, fmt.Errorf("catalog service returned status %d for product %d", resp.StatusCode, productID)
	}

	var product domain.Product
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return nil, fmt.Errorf("decode reduced product %d: %w", productID, err)
	}

	return &product, nil
}

func quantityQuery(quantity int) string {
	params := url.Values{}
	params.Set("quantity", strconv.Itoa(quantity))
	return params.Encode()
}
