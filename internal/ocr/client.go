// Package ocr talks to the external text-recognition service and turns the
// recognised text into ledger rows. Every failure here is reported as
// model.ErrExternalService.
package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"itemledger/internal/config"
	"itemledger/internal/model"
)

type recognizeRequest struct {
	Base64  string            `json:"base64"`
	Options map[string]string `json:"options"`
}

type recognizeResponse struct {
	Data *string `json:"data"`
}

// Client posts images to the OCR endpoint.
type Client struct {
	url  string
	http *http.Client
}

// NewClient builds a client for cfg. Timeouts below config.MinOCRTimeout are
// raised to it.
func NewClient(cfg config.OCRConfig) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.URL)
	if endpoint == "" {
		return nil, errors.New("ocr url is empty")
	}
	timeout := cfg.Timeout
	if timeout < config.MinOCRTimeout {
		timeout = config.MinOCRTimeout
	}
	return &Client{
		url:  endpoint,
		http: &http.Client{Timeout: timeout},
	}, nil
}

// Recognize sends one PNG image and returns the recognised text.
func (c *Client) Recognize(ctx context.Context, png []byte) (string, error) {
	if len(png) == 0 {
		return "", fmt.Errorf("%w: empty image", model.ErrExternalService)
	}

	body, err := json.Marshal(recognizeRequest{
		Base64:  base64.StdEncoding.EncodeToString(png),
		Options: map[string]string{"data.format": "text"},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrExternalService, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrExternalService, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: ocr request failed after %s: %v", model.ErrExternalService, time.Since(start).Round(time.Millisecond), err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: ocr api error %d: %s", model.ErrExternalService, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed recognizeResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: malformed ocr response: %v", model.ErrExternalService, err)
	}
	if parsed.Data == nil {
		return "", fmt.Errorf("%w: ocr response has no data", model.ErrExternalService)
	}
	return *parsed.Data, nil
}
