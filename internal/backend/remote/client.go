// Package remote computes face embeddings on an external HTTP embedding server.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/kozaktomas/facerec/internal/embedding"
)

const (
	defaultTimeout = 30 * time.Second
	chipEndpoint   = "/embed/chip"
	healthEndpoint = "/health"
)

// Client computes embeddings of aligned face chips using the embedding server.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

// Load creates a client and checks that the server answers its health endpoint.
func Load(baseURL string) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("embedding server URL is empty")
	}
	c := NewClient(baseURL)
	if err := c.Ping(context.Background()); err != nil {
		return nil, err
	}
	return c, nil
}

// embeddingResponse represents the response from the embedding server
type embeddingResponse struct {
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	Model     string    `json:"model"`
}

// Ping checks the server health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthEndpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("embedding server unreachable: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("embedding server health check returned status %d", resp.StatusCode)
	}
	return nil
}

// Embed posts every chip to the server, one request per chip.
func (c *Client) Embed(chips []image.Image) ([]embedding.Embedding, error) {
	return c.EmbedContext(context.Background(), chips)
}

// EmbedContext is Embed with a caller supplied context.
func (c *Client) EmbedContext(ctx context.Context, chips []image.Image) ([]embedding.Embedding, error) {
	out := make([]embedding.Embedding, 0, len(chips))
	for _, chip := range chips {
		var buf bytes.Buffer
		if err := png.Encode(&buf, chip); err != nil {
			return nil, fmt.Errorf("failed to encode chip: %w", err)
		}

		body, err := c.postMultipartImage(ctx, chipEndpoint, buf.Bytes())
		if err != nil {
			return nil, err
		}

		var embResp embeddingResponse
		if err := json.Unmarshal(body, &embResp); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		if len(embResp.Embedding) == 0 {
			return nil, errors.New("empty embedding returned")
		}

		e, err := embedding.FromSlice(embResp.Embedding)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// postMultipartImage posts a PNG as the "file" field of a multipart form.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="chip.png"`)
	h.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}
