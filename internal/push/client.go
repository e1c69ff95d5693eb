package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	DefaultEndpoint = "https://fcm.googleapis.com"
	maxErrorBody    = 512
)

// Message is one notification to one device.
type Message struct {
	Token   string
	OrderID string
	Status  string
	Title   string
	Body    string
}

// Sender delivers a single message. Satisfied by *Client and NopSender.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// Client posts messages to the FCM HTTP v1 send endpoint.
type Client struct {
	endpoint   string
	projectID  string
	tokens     oauth2.TokenSource
	httpClient *http.Client
}

// NewClient creates a Client. tokens should cache; a bare service-account
// source would mint a new access token for every message.
func NewClient(endpoint, projectID string, tokens oauth2.TokenSource, httpClient *http.Client) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		projectID:  projectID,
		tokens:     tokens,
		httpClient: httpClient,
	}
}

type sendRequest struct {
	Message sendMessage `json:"message"`
}

type sendMessage struct {
	Token string            `json:"token"`
	Data  map[string]string `json:"data"`
}

func (c *Client) Send(ctx context.Context, m Message) error {
	if m.Token == "" {
		return fmt.Errorf("order %s: no device token", m.OrderID)
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("get access token: %w", err)
	}

	body, err := json.Marshal(sendRequest{Message: sendMessage{
		Token: m.Token,
		Data: map[string]string{
			"orderID": m.OrderID,
			"status":  m.Status,
			"body":    m.Body,
			"title":   "Order " + m.Title,
		},
	}})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	url := fmt.Sprintf("%s/v1/projects/%s/messages:send", c.endpoint, c.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	tok.SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("fcm returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}
