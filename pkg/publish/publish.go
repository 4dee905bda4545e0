// Package publish delivers digest text to its audience.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
)

// ErrPostFailed wraps every delivery failure.
var ErrPostFailed = errors.New("publish: post failed")

// Poster publishes one message.
type Poster interface {
	Post(ctx context.Context, text string) error
}

// Writer prints messages to an io.Writer, one message per block.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewWriter returns a Writer over out.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Post implements Poster.
func (w *Writer) Post(_ context.Context, text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := fmt.Fprintf(w.out, "%s\n\n", text); err != nil {
		return fmt.Errorf("%w: %v", ErrPostFailed, err)
	}
	return nil
}

const defaultWebhookTimeout = 10 * time.Second

// Webhook posts {"text": ...} as JSON to a URL.
type Webhook struct {
	url        string
	token      string
	httpClient *http.Client
}

// WebhookOption configures a Webhook.
type WebhookOption func(*Webhook)

// WithToken sends an Authorization bearer header.
func WithToken(token string) WebhookOption {
	return func(w *Webhook) { w.token = strings.TrimSpace(token) }
}

// WithHTTPClient injects a custom http.Client.
func WithHTTPClient(hc *http.Client) WebhookOption {
	return func(w *Webhook) {
		if hc != nil {
			w.httpClient = hc
		}
	}
}

// WithTimeout bounds each POST.
func WithTimeout(d time.Duration) WebhookOption {
	return func(w *Webhook) {
		if d > 0 {
			w.httpClient = &http.Client{Timeout: d, Transport: w.httpClient.Transport}
		}
	}
}

// NewWebhook constructs a webhook poster for url.
func NewWebhook(url string, opts ...WebhookOption) *Webhook {
	w := &Webhook{url: url, httpClient: &http.Client{Timeout: defaultWebhookTimeout}}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

type webhookPayload struct {
	Text string `json:"text"`
}

// Post implements Poster. Any non-2xx response is a failure.
func (w *Webhook) Post(ctx context.Context, text string) error {
	body, err := json.Marshal(webhookPayload{Text: text})
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrPostFailed, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrPostFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPostFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("%w: status %d: %s", ErrPostFailed, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	logx.WithContext(ctx).Infof("publish: webhook accepted %d bytes status=%d", len(text), resp.StatusCode)
	return nil
}
