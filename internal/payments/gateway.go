package payments

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tomerlevy/claimdesk/pkg/logging"
)

var gatewayTracer = otel.Tracer("claimdesk.internal.payments.gateway")

// GatewayClient creates checkout processes against the external payment
// provider. The provider answers with either an embeddable auth code for the
// in-page wallet or a redirect URL as fallback.
type GatewayClient struct {
	baseURL    string
	apiKey     string
	successURL string
	cancelURL  string
	httpClient *http.Client
	logger     *logging.Logger
}

// CheckoutParams describes one checkout creation.
type CheckoutParams struct {
	SessionID     uuid.UUID
	Amount        int
	Description   string
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
}

// CheckoutResult is the provider's answer to a checkout creation.
type CheckoutResult struct {
	AuthCode     string `json:"authCode,omitempty"`
	PaymentURL   string `json:"paymentUrl,omitempty"`
	ProcessID    string `json:"processId,omitempty"`
	ProcessToken string `json:"processToken,omitempty"`
}

// NewGatewayClient creates a payment gateway client.
func NewGatewayClient(baseURL, apiKey, successURL, cancelURL string, logger *logging.Logger) *GatewayClient {
	if logger == nil {
		logger = logging.Default()
	}
	return &GatewayClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		successURL: successURL,
		cancelURL:  cancelURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// WithHTTPClient overrides the HTTP client (tests).
func (g *GatewayClient) WithHTTPClient(client *http.Client) *GatewayClient {
	if client != nil {
		g.httpClient = client
	}
	return g
}

// CreateCheckout opens a payment process for the given amount. The
// idempotency key is derived from the session and amount, so a retried
// creation for the same unpaid session reuses the provider-side process.
func (g *GatewayClient) CreateCheckout(ctx context.Context, params CheckoutParams) (*CheckoutResult, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("payments: no gateway credentials configured")
	}

	ctx, span := gatewayTracer.Start(ctx, "gateway.create_checkout")
	defer span.End()
	span.SetAttributes(
		attribute.String("claimdesk.session_id", params.SessionID.String()),
		attribute.Int("claimdesk.amount", params.Amount),
	)

	body := map[string]any{
		"idempotency_key": checkoutIdempotencyKey(params.SessionID, params.Amount),
		"amount":          params.Amount,
		"currency":        "ILS",
		"description":     params.Description,
		"customer": map[string]string{
			"name":  params.CustomerName,
			"phone": params.CustomerPhone,
			"email": params.CustomerEmail,
		},
		"success_url": g.successURL,
		"cancel_url":  g.cancelURL,
		"metadata": map[string]string{
			"session_id": params.SessionID.String(),
		},
	}

	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("payments: gateway payload: %w", err)
	}

	apiURL := g.baseURL + "/api/v1/checkout"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("payments: gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payments: gateway http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("payments: gateway status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Success      bool   `json:"success"`
		AuthCode     string `json:"authCode"`
		PaymentURL   string `json:"paymentUrl"`
		ProcessID    string `json:"processId"`
		ProcessToken string `json:"processToken"`
		Error        string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("payments: gateway decode: %w", err)
	}
	if !parsed.Success {
		return nil, fmt.Errorf("payments: gateway rejected checkout: %s", parsed.Error)
	}
	if parsed.AuthCode == "" && parsed.PaymentURL == "" {
		return nil, fmt.Errorf("payments: gateway response carries neither auth code nor redirect url")
	}

	return &CheckoutResult{
		AuthCode:     parsed.AuthCode,
		PaymentURL:   parsed.PaymentURL,
		ProcessID:    parsed.ProcessID,
		ProcessToken: parsed.ProcessToken,
	}, nil
}

func checkoutIdempotencyKey(sessionID uuid.UUID, amount int) string {
	input := fmt.Sprintf("%s:%d", sessionID, amount)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}
