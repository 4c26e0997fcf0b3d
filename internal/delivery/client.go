// Package delivery предоставляет клиент для внешней системы отслеживания доставки.
package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Статусы доставки, возвращаемые внешней системой.
const (
	StatusRegistered = "REGISTERED"
	StatusInTransit  = "IN_TRANSIT"
	StatusDelivered  = "DELIVERED"
)

// Client инкапсулирует HTTP-взаимодействие с системой отслеживания доставки.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// DeliveryStatus описывает ответ системы доставки по одному заказу.
type DeliveryStatus struct {
	Order  string `json:"order"`
	Status string `json:"status"`
}

// NewClient создаёт HTTP-клиент для обращения к системе доставки по указанному адресу.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// GetDeliveryStatus запрашивает статус доставки для указанного номера заказа.
func (c *Client) GetDeliveryStatus(ctx context.Context, orderID string) (*DeliveryStatus, int, time.Duration, error) {
	if c == nil || c.baseURL == "" {
		return nil, 0, 0, fmt.Errorf("delivery client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	url := fmt.Sprintf("%s/api/deliveries/%s", base, orderID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := time.Duration(0)
		if v := resp.Header.Get("Retry-After"); v != "" {
			if seconds, parseErr := strconv.Atoi(v); parseErr == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return nil, resp.StatusCode, retryAfter, nil
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil, resp.StatusCode, 0, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, 0, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result DeliveryStatus
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, resp.StatusCode, 0, fmt.Errorf("decode response: %w", err)
	}

	return &result, resp.StatusCode, 0, nil
}
