package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pagecraft/action-service/models"
)

// OrderClient communicates with the order service via HTTP
type OrderClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewOrderClient creates a new OrderClient
func NewOrderClient(baseURL string) *OrderClient {
	return &OrderClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// orderEnvelope is the {data, error} answer shape of the order service.
// A non-empty error signals failure; data is not otherwise consumed.
type orderEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// CreatePendingOrder registers a guest order ahead of payment. The caller
// supplies the order id, so resubmitting the same request is safe.
func (c *OrderClient) CreatePendingOrder(ctx context.Context, order *models.OrderRequest) error {
	body, err := json.Marshal(order)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/orders/pending", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("order service request failed: %w", err)
	}
	defer resp.Body.Close()

	var envelope orderEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("order service returned unreadable response: %w", err)
	}
	if envelope.Error != "" {
		return fmt.Errorf("create pending order failed: %s", envelope.Error)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("order service returned %d", resp.StatusCode)
	}
	return nil
}

// CancelPendingOrder compensates a pending order whose payment session could
// not be opened, so no orphaned order survives a half-finished checkout.
func (c *OrderClient) CancelPendingOrder(ctx context.Context, orderID string) error {
	url := fmt.Sprintf("%s/orders/pending/%s", c.baseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("order service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("cancel pending order %s failed: status %d", orderID, resp.StatusCode)
	}
	return nil
}
