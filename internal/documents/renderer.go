package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tomerlevy/claimdesk/internal/session"
	"github.com/tomerlevy/claimdesk/pkg/logging"
)

// Attachment is a supporting file referenced by a render request.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"`
}

// RenderRequest is what the external rendering service receives.
type RenderRequest struct {
	ServiceType session.ServiceType `json:"serviceType"`
	Payload     json.RawMessage     `json:"payload"`
	Signature   string              `json:"signature,omitempty"`
	Attachments []Attachment        `json:"attachments,omitempty"`
}

// RenderedDocument is a streamed binary from the rendering service. The
// caller owns Body and must close it.
type RenderedDocument struct {
	ContentType string
	Body        io.ReadCloser
}

// RendererClient talks to the external HTML-to-PDF rendering service.
type RendererClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewRendererClient creates a renderer client.
func NewRendererClient(baseURL, apiKey string, logger *logging.Logger) *RendererClient {
	if logger == nil {
		logger = logging.Default()
	}
	return &RendererClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}
}

// WithHTTPClient overrides the HTTP client (tests).
func (c *RendererClient) WithHTTPClient(client *http.Client) *RendererClient {
	if client != nil {
		c.httpClient = client
	}
	return c
}

// Render requests a rendered binary. Upstream failures are retryable; there
// is no partial result to reconcile.
func (c *RendererClient) Render(ctx context.Context, req RenderRequest) (*RenderedDocument, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("documents: renderer payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/render", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("documents: renderer request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("documents: renderer http: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("documents: renderer status %d: %s", resp.StatusCode, string(raw))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}
	return &RenderedDocument{ContentType: contentType, Body: resp.Body}, nil
}
