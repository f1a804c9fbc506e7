// Package suggest implements the app server's concrete suggestor port
// against an Ollama-compatible chat-completions endpoint, grounded on the
// original app server's clients/ollama.rs (5s timeout, OLLAMA_URL default
// localhost:11434, single-shot system-prompted completion).
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sindrigils/chatroom/internal/appserver/types"
)

const systemPrompt = "You are a helpful assistant completing a chat message the user is currently typing. " +
	"Reply with only the completion text, no preamble."

// Client calls an Ollama-compatible /v1/chat/completions endpoint.
type Client struct {
	baseURL string
	http    *http.Client
	model   string
}

// New builds a Client targeting baseURL (e.g. http://localhost:11434).
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
		model:   "qwen2:1.5b",
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Suggest asks the completion service for a short continuation of currentInput.
func (c *Client) Suggest(ctx context.Context, currentInput string) (string, error) {
	reqBody := completionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: currentInput},
		},
		MaxTokens:   15,
		Temperature: 0.5,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("suggestion service returned status %d", resp.StatusCode)
	}

	var decoded completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("suggestion service returned no choices")
	}

	text := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("suggestion service returned an empty completion")
	}
	return text, nil
}

var _ types.Suggestor = (*Client)(nil)
