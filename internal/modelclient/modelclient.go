// Package modelclient talks to the text and vision completion endpoints
// used by the analytical agents. It models the LLM as a fallible operation:
// every call returns either a Success(text) or a Failure(reason), and the
// caller decides its own fallback — nothing here panics or retries forever.
package modelclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Result is the outcome of one completion call.
type Result struct {
	Text string
	Err  error
}

// Success reports whether the call produced usable text.
func (r Result) Success() bool { return r.Err == nil }

func ok(text string) Result   { return Result{Text: text} }
func fail(err error) Result   { return Result{Err: err} }

// Client is a thin HTTP wrapper around a text + vision completion service
// (raw net/http, no SDK dependency).
type Client struct {
	endpoint         string
	apiKey           string
	apiVersion       string
	textDeployment   string
	visionDeployment string
	httpClient       *http.Client
}

// New creates a Client. endpoint is the base URL of the completion service;
// apiKey is appended as a query parameter. Either deployment may be "" to
// fall back to the default gemini-1.5-flash model.
func New(endpoint, apiKey, visionDeployment string) *Client {
	return NewWithDeployments(endpoint, apiKey, "", visionDeployment)
}

// NewWithDeployments is New plus an explicit text-completion deployment.
func NewWithDeployments(endpoint, apiKey, textDeployment, visionDeployment string) *Client {
	return &Client{
		endpoint:         endpoint,
		apiKey:           apiKey,
		textDeployment:   textDeployment,
		visionDeployment: visionDeployment,
		httpClient:       &http.Client{Timeout: 60 * time.Second},
	}
}

// WithAPIVersion sets the api-version query parameter appended to every
// request. Returns the same Client for chaining at construction time.
func (c *Client) WithAPIVersion(v string) *Client {
	c.apiVersion = v
	return c
}

// CompleteText sends a list of chat-style messages and returns the model's
// reply. responseFormatJSON requests a strict JSON object when the
// underlying service supports it.
func (c *Client) CompleteText(ctx context.Context, messages []Message, temperature float64, maxTokens int, responseFormatJSON bool) Result {
	if c.endpoint == "" || c.apiKey == "" {
		return fail(fmt.Errorf("model client not configured"))
	}

	parts := make([]map[string]interface{}, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, map[string]interface{}{"text": m.Role + ": " + m.Content})
	}

	body := map[string]interface{}{
		"contents": []map[string]interface{}{{"parts": parts}},
		"generationConfig": map[string]interface{}{
			"temperature":     temperature,
			"maxOutputTokens": maxTokens,
		},
	}
	if responseFormatJSON {
		body["generationConfig"].(map[string]interface{})["response_mime_type"] = "application/json"
	}

	model := c.textDeployment
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return c.post(ctx, fmt.Sprintf("models/%s:generateContent", model), body)
}

// CompleteVision sends a prompt plus a base64-encoded raster to the vision
// model and returns its text reply.
func (c *Client) CompleteVision(ctx context.Context, prompt string, imageData []byte, mimeType string, temperature float64, maxTokens int) Result {
	if c.endpoint == "" || c.apiKey == "" {
		return fail(fmt.Errorf("model client not configured"))
	}
	encoded := base64.StdEncoding.EncodeToString(imageData)

	body := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{"text": prompt},
					{"inline_data": map[string]string{"mime_type": mimeType, "data": encoded}},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature":     temperature,
			"maxOutputTokens": maxTokens,
		},
	}

	model := c.visionDeployment
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return c.post(ctx, fmt.Sprintf("models/%s:generateContent", model), body)
}

// Message is one chat turn in a CompleteText call.
type Message struct {
	Role    string
	Content string
}

func (c *Client) post(ctx context.Context, path string, body map[string]interface{}) Result {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fail(fmt.Errorf("marshal request: %w", err))
	}

	url := fmt.Sprintf("%s/%s?key=%s", c.endpoint, path, c.apiKey)
	if c.apiVersion != "" {
		url += "&api-version=" + c.apiVersion
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return fail(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(fmt.Errorf("model request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fail(fmt.Errorf("model service returned HTTP %d: %s", resp.StatusCode, string(respBody)))
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fail(fmt.Errorf("decode model response: %w", err))
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return fail(fmt.Errorf("empty model response"))
	}
	return ok(parsed.Candidates[0].Content.Parts[0].Text)
}
