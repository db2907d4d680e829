package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/harrypeter07/billsync/pkg/errors"
)

const (
	renderPath           = "/render/invoice"
	defaultTimeout       = 30 * time.Second
	errorBodyReadLimit   = 1024
	maxDocumentSizeBytes = 32 << 20
	pdfContentType       = "application/pdf"
)

var errBaseURLRequired = errors.New("render base url is required")

// InvoiceDocument is the structured payload handed to the renderer.
type InvoiceDocument struct {
	InvoiceNumber string          `json:"invoice_number"`
	InvoiceDate   time.Time       `json:"invoice_date"`
	StoreName     string          `json:"store_name"`
	StoreGSTIN    string          `json:"store_gstin,omitempty"`
	CustomerName  string          `json:"customer_name,omitempty"`
	CustomerGSTIN string          `json:"customer_gstin,omitempty"`
	IsGSTInvoice  bool            `json:"is_gst_invoice"`
	Lines         []DocumentLine  `json:"lines"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	CGST          decimal.Decimal `json:"cgst"`
	SGST          decimal.Decimal `json:"sgst"`
	IGST          decimal.Decimal `json:"igst"`
	Total         decimal.Decimal `json:"total"`
}

// DocumentLine is a rendered invoice row.
type DocumentLine struct {
	Description string          `json:"description"`
	HSNCode     string          `json:"hsn_code,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	GSTRate     decimal.Decimal `json:"gst_rate"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// Renderer produces a binary PDF for an invoice. Callers own any retries.
type Renderer interface {
	RenderInvoice(ctx context.Context, doc InvoiceDocument) ([]byte, error)
}

// Client calls an external document-rendering service over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the renderer client for the given base URL.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// RenderInvoice posts the document and returns the PDF bytes.
func (c *Client) RenderInvoice(ctx context.Context, doc InvoiceDocument) ([]byte, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encoding invoice document")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+renderPath, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building render request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", pdfContentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling renderer")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("renderer returned %d", resp.StatusCode)).
			WithDetails(string(snippet))
	}

	pdf, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSizeBytes))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading rendered document")
	}
	if len(pdf) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "renderer returned empty document")
	}
	return pdf, nil
}
