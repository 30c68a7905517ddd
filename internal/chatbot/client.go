// Package chatbot asks the location-aware assistant questions on behalf of
// signed-in users.
package chatbot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/anonto42/nearby/backend/internal/models"
)

// Request is the body of POST /chatbot.
type Request struct {
	Question string  `json:"question" validate:"required,min=1,max=1000"`
	Lat      float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng      float64 `json:"lng" validate:"gte=-180,lte=180"`
}

// Response is the assistant's answer as the upstream reports it.
type Response struct {
	Question         string  `json:"question"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	Response         string  `json:"response"`
	Status           string  `json:"status"`
	UserID           string  `json:"user_id"`
	ConversationTurn int     `json:"conversation_turn"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// Ask sends the question with the caller's coordinates. userID keys the
// upstream conversation history.
func (c *Client) Ask(ctx context.Context, userID string, req Request) (*Response, error) {
	if c == nil || c.baseURL == "" {
		return nil, models.NewUpstreamError("Chatbot is not configured", nil)
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, models.NewUpstreamError("Chatbot is not configured", err)
	}
	q := u.Query()
	q.Set("question", req.Question)
	q.Set("lat", strconv.FormatFloat(req.Lat, 'f', -1, 64))
	q.Set("long", strconv.FormatFloat(req.Lng, 'f', -1, 64))
	if userID != "" {
		q.Set("user_id", userID)
	}
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, models.NewUpstreamError("Chatbot is unavailable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, models.NewUpstreamError("Chatbot request failed",
			fmt.Errorf("status %d: %s", resp.StatusCode, snippet))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, models.NewUpstreamError("Chatbot returned an invalid response", err)
	}
	return &out, nil
}
