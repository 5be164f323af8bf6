// Package whatsapp is the HTTP client for the external messaging provider.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/betoarts/masszap/pkg/models"
)

const defaultTimeout = 30 * time.Second

// maxErrorBodyBytes bounds how much of a provider error response is kept
// in the persisted error message.
const maxErrorBodyBytes = 512

// Client sends text and media messages through a provider instance. Any
// non-2xx response or transport error is reported as an error; the engine's
// retry envelope decides what happens next.
type Client struct {
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

type textPayload struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

type mediaPayload struct {
	Number    string `json:"number"`
	MediaURL  string `json:"media_url"`
	MediaType string `json:"media_type"`
	Caption   string `json:"caption,omitempty"`
}

// SendText delivers a plain text message to a phone number.
func (c *Client) SendText(ctx context.Context, instance *models.Instance, phone, text string) error {
	payload := textPayload{Number: phone, Text: text}

	return c.post(ctx, instance, "/message/text", payload)
}

// SendMedia delivers a media message (image, video, audio or document,
// inferred from the URL) with an optional caption.
func (c *Client) SendMedia(ctx context.Context, instance *models.Instance, phone, mediaURL, caption string) error {
	payload := mediaPayload{
		Number:    phone,
		MediaURL:  mediaURL,
		MediaType: MediaTypeFromURL(mediaURL),
		Caption:   caption,
	}

	return c.post(ctx, instance, "/message/media", payload)
}

func (c *Client) post(ctx context.Context, instance *models.Instance, endpoint string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal provider payload: %w", err)
	}

	url := strings.TrimSuffix(instance.APIURL, "/") + endpoint + "/" + instance.InstanceKey

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create provider request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", instance.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("provider request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

		return fmt.Errorf("provider returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	return nil
}

// MediaTypeFromURL infers the provider media type from the URL's file
// extension, defaulting to document.
func MediaTypeFromURL(mediaURL string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(strings.SplitN(mediaURL, "?", 2)[0]), "."))

	switch ext {
	case "jpg", "jpeg", "png", "gif", "webp":
		return "image"
	case "mp4", "mov", "avi", "mkv":
		return "video"
	case "mp3", "ogg", "wav", "m4a", "opus":
		return "audio"
	default:
		return "document"
	}
}
