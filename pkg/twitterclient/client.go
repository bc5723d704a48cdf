/**
 * @description
 * This package provides a client for posting reply tweets through the
 * Twitter v2 API. It encapsulates authenticated request construction and
 * response parsing; the pipeline only sees "send this text in reply to
 * that tweet".
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package twitterclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a client for the Twitter v2 API.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
}

// NewClient creates a new Twitter API client.
func NewClient(baseURL, bearerToken string) *Client {
	return &Client{
		BaseURL:     baseURL,
		BearerToken: bearerToken,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type createTweetRequest struct {
	Text  string `json:"text"`
	Reply struct {
		InReplyToTweetID string `json:"in_reply_to_tweet_id"`
	} `json:"reply"`
}

type createTweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// SendReply posts a reply tweet and returns the created tweet id.
func (c *Client) SendReply(ctx context.Context, inReplyToTweetID, text string) (string, error) {
	var payload createTweetRequest
	payload.Text = text
	payload.Reply.InReplyToTweetID = inReplyToTweetID

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/2/tweets", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send reply request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("twitter api returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var created createTweetResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("failed to decode create tweet response: %w", err)
	}
	if created.Data.ID == "" {
		return "", fmt.Errorf("twitter api returned no tweet id")
	}

	return created.Data.ID, nil
}
