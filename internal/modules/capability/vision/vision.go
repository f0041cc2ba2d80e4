// Package vision wraps the visual-description capability.
//
// The adapter speaks the OpenAI-compatible chat-completions protocol with
// image_url content parts, and degrades to an empty description on any
// failure. An empty description means "no visual signal", never an error.
package vision

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

	"github.com/contextlens/core/internal/models"
	"go.uber.org/zap"
)

const (
	defaultModel      = "gpt-4o-mini"
	requestTimeout    = 25 * time.Second
	maxDescriptionLen = 1200
	maxImagesPerCall  = 3
)

const describePrompt = "Describe what this image shows, factually and briefly. " +
	"Note any text overlays, charts, or signs of editing. " +
	"The image was attached to this post: %q"

// Config selects the vision provider.
type Config struct {
	Endpoint string
	APIKey   string
	Model    string
}

// Client calls the visual-description model.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a vision client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
	}
}

// Describe returns a free-text description of the media attached to a post,
// or "" when there is nothing to describe or the provider fails.
func (c *Client) Describe(ctx context.Context, media models.MediaDescriptors, textContext string) string {
	if !media.Present() {
		return ""
	}
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		c.logger.Debug("vision adapter disabled, no api key")
		return ""
	}

	urls := imageURLs(media)
	if len(urls) == 0 {
		return ""
	}

	desc, err := c.describe(ctx, urls, textContext)
	if err != nil {
		c.logger.Warn("visual description failed", zap.Error(err))
		return ""
	}
	return truncateRunes(desc, maxDescriptionLen)
}

func imageURLs(media models.MediaDescriptors) []string {
	urls := make([]string, 0, maxImagesPerCall)
	if media.ThumbnailURL != "" {
		urls = append(urls, media.ThumbnailURL)
	}
	for _, u := range media.ImageURLs {
		if len(urls) >= maxImagesPerCall {
			break
		}
		if u == "" || u == media.ThumbnailURL {
			continue
		}
		urls = append(urls, u)
	}
	return urls
}

func (c *Client) describe(ctx context.Context, urls []string, textContext string) (string, error) {
	content := make([]map[string]interface{}, 0, len(urls)+1)
	content = append(content, map[string]interface{}{
		"type": "text",
		"text": fmt.Sprintf(describePrompt, truncateRunes(textContext, 500)),
	})
	for _, u := range urls {
		content = append(content, map[string]interface{}{
			"type":      "image_url",
			"image_url": map[string]string{"url": u},
		})
	}

	body, _ := json.Marshal(map[string]interface{}{
		"model": c.cfg.Model,
		"messages": []map[string]interface{}{
			{"role": "user", "content": content},
		},
		"max_tokens": 400,
	})

	endpoint := strings.TrimRight(c.cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = "https://api.openai.com"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.cfg.APIKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("vision provider status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", err
	}
	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		return "", errors.New("empty response from vision model")
	}
	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

func truncateRunes(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}
