package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// PromotionClient tells the promotion service that a promo code was spent on
// a committed order.
type PromotionClient interface {
	RedeemCode(ctx context.Context, code, orderNumber string, orderTotal float64) error
}

// LoyaltyClient reports completed pickups so points can be awarded.
type LoyaltyClient interface {
	RecordPickup(ctx context.Context, userID, orderNumber string, orderTotal float64) error
}

// HTTPPromotionClient calls the promotion service over HTTP.
type HTTPPromotionClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPPromotionClient(baseURL string) *HTTPPromotionClient {
	return &HTTPPromotionClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *HTTPPromotionClient) RedeemCode(ctx context.Context, code, orderNumber string, orderTotal float64) error {
	payload := map[string]interface{}{
		"code":         code,
		"order_number": orderNumber,
		"order_total":  orderTotal,
	}
	return postJSON(ctx, c.client, c.baseURL+"/coupons/redeem", payload)
}

// HTTPLoyaltyClient calls the loyalty service over HTTP.
type HTTPLoyaltyClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPLoyaltyClient(baseURL string) *HTTPLoyaltyClient {
	return &HTTPLoyaltyClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *HTTPLoyaltyClient) RecordPickup(ctx context.Context, userID, orderNumber string, orderTotal float64) error {
	payload := map[string]interface{}{
		"user_id":      userID,
		"order_number": orderNumber,
		"order_total":  orderTotal,
	}
	return postJSON(ctx, c.client, c.baseURL+"/loyalty/visits", payload)
}

func postJSON(ctx context.Context, client *http.Client, url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned %d", url, resp.StatusCode)
	}
	return nil
}
