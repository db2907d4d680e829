package storage

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

	pkgerrors "github.com/harrypeter07/billsync/pkg/errors"
)

const (
	defaultTimeout     = 30 * time.Second
	errorBodyReadLimit = 1024
)

var errUploadURLRequired = errors.New("storage upload url is required")

// UploadInput carries the binary payload and identifying metadata.
type UploadInput struct {
	Name        string
	ContentType string
	Data        []byte
}

// Uploader stores a binary payload and returns a publicly resolvable URL.
type Uploader interface {
	Upload(ctx context.Context, input UploadInput) (string, error)
}

// Client talks to the file-storage upload endpoint over HTTP.
type Client struct {
	httpClient *http.Client
	uploadURL  string
	apiKey     string
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

// NewClient builds the storage client for the given upload endpoint.
func NewClient(uploadURL, apiKey string, timeout time.Duration, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(uploadURL)
	if trimmed == "" {
		return nil, errUploadURLRequired
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &Client{
		uploadURL:  trimmed,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Upload posts the payload and returns the public URL from the response.
func (c *Client) Upload(ctx context.Context, input UploadInput) (string, error) {
	if len(input.Data) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "upload payload is empty")
	}
	if strings.TrimSpace(input.Name) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "upload name is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, bytes.NewReader(input.Data))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building upload request")
	}
	contentType := input.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-File-Name", input.Name)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling storage endpoint")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return "", pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("storage endpoint returned %d", resp.StatusCode)).
			WithDetails(string(snippet))
	}

	var payload struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding storage response")
	}
	if payload.URL == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "storage response missing url")
	}
	return payload.URL, nil
}
