// Package verifier submits new posts to the content verification webhook and
// applies its verdicts in the background.
package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/anonto42/nearby/backend/internal/models"
)

// Submission is a post handed to the verifier.
type Submission struct {
	PostID   string
	Title    string
	Caption  string
	Filename string
	Image    []byte
}

// Client talks to the content verification webhook.
type Client struct {
	url  string
	http *http.Client
}

func NewClient(url string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{url: url, http: httpClient}
}

// Enabled reports whether a webhook URL is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.url != ""
}

// Verify posts the image, title and caption as a multipart form and decodes
// the verdict.
func (c *Client) Verify(ctx context.Context, sub Submission) (*models.VerificationResult, error) {
	body, contentType, err := encodeSubmission(sub)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verification request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("verification webhook returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var result models.VerificationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode verification result: %w", err)
	}
	result.PostID = sub.PostID
	return &result, nil
}

func encodeSubmission(sub Submission) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("title", sub.Title); err != nil {
		return nil, "", err
	}
	if err := writer.WriteField("caption", sub.Caption); err != nil {
		return nil, "", err
	}
	if len(sub.Image) > 0 {
		filename := sub.Filename
		if filename == "" {
			filename = "image.jpg"
		}
		part, err := writer.CreateFormFile("image", filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(sub.Image); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &body, writer.FormDataContentType(), nil
}
