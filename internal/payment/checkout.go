// AngelaMos | 2026
// checkout.go

package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/carterperez-dev/printshop/internal/config"
	"github.com/carterperez-dev/printshop/internal/core"
)

// ProviderError carries a non-2xx reply from the checkout provider so the
// handler can relay it unchanged.
type ProviderError struct {
	StatusCode int
	Body       []byte
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("checkout provider returned %d", e.StatusCode)
}

// CheckoutClient talks to the Mercado Pago preferences API.
type CheckoutClient struct {
	baseURL     string
	accessToken string
	currency    string
	backURLs    backURLs
	httpClient  *http.Client
}

type backURLs struct {
	Success string `json:"success,omitempty"`
	Failure string `json:"failure,omitempty"`
	Pending string `json:"pending,omitempty"`
}

type preferenceItem struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

type preferenceBody struct {
	Items             []preferenceItem `json:"items"`
	BackURLs          backURLs         `json:"back_urls"`
	BinaryMode        bool             `json:"binary_mode"`
	ExternalReference string           `json:"external_reference,omitempty"`
}

type preferenceReply struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

func NewCheckoutClient(cfg config.PaymentConfig) *CheckoutClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CheckoutClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		accessToken: cfg.AccessToken,
		currency:    cfg.Currency,
		backURLs: backURLs{
			Success: cfg.SuccessURL,
			Failure: cfg.FailureURL,
			Pending: cfg.PendingURL,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *CheckoutClient) CreatePreference(
	ctx context.Context,
	orderID string,
	items []CartItem,
) (*PreferenceResponse, error) {
	body := preferenceBody{
		Items:             make([]preferenceItem, 0, len(items)),
		BackURLs:          c.backURLs,
		BinaryMode:        true,
		ExternalReference: orderID,
	}
	for _, it := range items {
		body.Items = append(body.Items, preferenceItem{
			Title:      it.Title,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice.Round(2).InexactFloat64(),
			CurrencyID: c.currency,
		})
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("encode preference: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/checkout/preferences", &buf)
	if err != nil {
		return nil, fmt.Errorf("build preference request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create preference: %v: %w", err, core.ErrUpstream)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read preference reply: %v: %w", err, core.ErrUpstream)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Body: raw}
	}

	var reply preferenceReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("decode preference reply: %v: %w", err, core.ErrUpstream)
	}
	if reply.ID == "" {
		return nil, fmt.Errorf("preference reply has no id: %w", core.ErrUpstream)
	}

	return &PreferenceResponse{PreferenceID: reply.ID, InitPoint: reply.InitPoint}, nil
}
