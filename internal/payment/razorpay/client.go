// Package razorpay implements the payment gateway client against the
// Razorpay orders REST API.
package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/knitkart/orderflow/internal/config"
	"github.com/knitkart/orderflow/internal/payment/domain"
	"go.uber.org/zap"
)

type Client struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client
	log        *zap.Logger
}

func New(cfg config.GatewayConfig, log *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		keyID:      cfg.KeyID,
		keySecret:  cfg.KeySecret,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        log.Named("payment.razorpay"),
	}
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type createOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Error    *struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateIntent opens a provisional order with the gateway. Amounts are
// in the currency's minor units.
func (c *Client) CreateIntent(ctx context.Context, amountMinor int64, currency, receipt string) (domain.Intent, error) {
	payload, err := json.Marshal(createOrderRequest{
		Amount:   amountMinor,
		Currency: currency,
		Receipt:  receipt,
	})
	if err != nil {
		return domain.Intent{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(payload))
	if err != nil {
		return domain.Intent{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Intent{}, fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.Intent{}, fmt.Errorf("%w: read response: %v", domain.ErrGateway, err)
	}

	var parsed createOrderResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return domain.Intent{}, fmt.Errorf("%w: decode response: %v", domain.ErrGateway, err)
	}

	if resp.StatusCode != http.StatusOK || parsed.ID == "" {
		detail := "unexpected response"
		if parsed.Error != nil {
			detail = parsed.Error.Description
		}
		c.log.Warn("gateway order creation failed",
			zap.Int("status", resp.StatusCode),
			zap.String("detail", detail),
		)
		return domain.Intent{}, fmt.Errorf("%w: %s", domain.ErrGateway, detail)
	}

	return domain.Intent{
		GatewayOrderID: parsed.ID,
		AmountMinor:    parsed.Amount,
		Currency:       parsed.Currency,
	}, nil
}
