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

// PaymentClient communicates with the payment service via HTTP
type PaymentClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewPaymentClient creates a new PaymentClient
func NewPaymentClient(baseURL string) *PaymentClient {
	return &PaymentClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type paymentSessionEnvelope struct {
	Data struct {
		PayURL string `json:"payUrl"`
	} `json:"data"`
	Error string `json:"error"`
}

// CreateSession opens a payment session for a pending order and returns the
// gateway URL the buyer must be redirected to. An answer without a payUrl is
// treated the same as an explicit error.
func (c *PaymentClient) CreateSession(ctx context.Context, session *models.PaymentSessionRequest) (string, error) {
	body, err := json.Marshal(session)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/sessions", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("payment service request failed: %w", err)
	}
	defer resp.Body.Close()

	var envelope paymentSessionEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", fmt.Errorf("payment service returned unreadable response: %w", err)
	}
	if envelope.Error != "" {
		return "", fmt.Errorf("create payment session failed: %s", envelope.Error)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("payment service returned %d", resp.StatusCode)
	}
	if envelope.Data.PayURL == "" {
		return "", fmt.Errorf("payment session for order %s has no payUrl", session.OrderID)
	}
	return envelope.Data.PayURL, nil
}
