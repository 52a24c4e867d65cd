// Package gateway implements the HTTP client for the remote payment
// provider's checkout-preference and payment APIs.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/teloven/marketplace/order-engine/internal/metrics"
	"github.com/teloven/marketplace/order-engine/internal/models"
)

type Client struct {
	BaseURL     string
	AccessToken string
	SuccessURL  string
	FailureURL  string
	HTTP        *http.Client
}

func NewClient(baseURL, accessToken, successURL, failureURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:     baseURL,
		AccessToken: accessToken,
		SuccessURL:  successURL,
		FailureURL:  failureURL,
		HTTP:        &http.Client{Timeout: timeout},
	}
}

type preferenceItem struct {
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type preferenceReq struct {
	Items             []preferenceItem  `json:"items"`
	ExternalReference string            `json:"external_reference"`
	BackURLs          map[string]string `json:"back_urls"`
	AutoReturn        string            `json:"auto_return"`
}

type preferenceResp struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

// CreateSession opens a checkout session for the given total. The order id
// travels as external_reference and comes back on payment resolution.
func (c *Client) CreateSession(ctx context.Context, amount int64, currency, externalReference string) (*models.CheckoutSession, error) {
	start := time.Now()
	defer func() {
		metrics.GatewayRequestDuration.WithLabelValues("create_session").Observe(time.Since(start).Seconds())
	}()

	body, err := json.Marshal(preferenceReq{
		Items: []preferenceItem{{
			Title:     "order " + externalReference,
			Quantity:  1,
			UnitPrice: float64(amount) / 100,
		}},
		ExternalReference: externalReference,
		BackURLs: map[string]string{
			"success": c.SuccessURL,
			"failure": c.FailureURL,
		},
		AutoReturn: "approved",
	})
	if err != nil {
		return nil, &models.GatewayError{Op: "create_session", Err: err}
	}

	var out preferenceResp
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", body, &out); err != nil {
		return nil, &models.GatewayError{Op: "create_session", Err: err}
	}
	if out.ID == "" {
		return nil, &models.GatewayError{Op: "create_session", Err: fmt.Errorf("empty preference id")}
	}
	return &models.CheckoutSession{SessionID: out.ID, RedirectURL: out.InitPoint}, nil
}

type paymentResp struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	ExternalReference string      `json:"external_reference"`
	TransactionAmount float64     `json:"transaction_amount"`
	CurrencyID        string      `json:"currency_id"`
}

// ResolvePayment asks the provider directly for the authoritative state of a
// payment id taken from a webhook body.
func (c *Client) ResolvePayment(ctx context.Context, paymentID string) (*models.PaymentInfo, error) {
	start := time.Now()
	defer func() {
		metrics.GatewayRequestDuration.WithLabelValues("resolve_payment").Observe(time.Since(start).Seconds())
	}()

	var out paymentResp
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+paymentID, nil, &out); err != nil {
		return nil, &models.GatewayError{Op: "resolve_payment", Err: err}
	}
	return &models.PaymentInfo{
		Status:            out.Status,
		ExternalReference: out.ExternalReference,
		Amount:            int64(out.TransactionAmount*100 + 0.5),
		Currency:          out.CurrencyID,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
