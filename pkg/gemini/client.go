// Package gemini asks Google's Gemini models which IANA timezone a free-text place refers to.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/codeGROOVE-dev/timenow/pkg/tzconvert"
	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash-lite"

// ErrLowConfidence is returned when the model is not confident about its answer.
var ErrLowConfidence = errors.New("gemini answer has low confidence")

// Response represents the Gemini API response structure.
type Response struct {
	Timezone   string `json:"timezone"`
	Location   string `json:"location"`
	Confidence string `json:"confidence"` // "high", "medium", or "low"
	Reasoning  string `json:"reasoning"`
}

// Client represents a Gemini API client.
type Client struct {
	gen        generator
	cache      CacheInterface
	logger     Logger
	apiKey     string
	model      string
	gcpProject string
	attempts   uint
	mu         sync.Mutex
}

// NewClient creates a new Gemini API client. Without an API key the client uses Vertex AI
// with Application Default Credentials. cache may be nil.
func NewClient(apiKey, model, gcpProject string, cache CacheInterface, logger Logger) *Client {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		apiKey:     apiKey,
		model:      strings.TrimPrefix(model, "models/"),
		gcpProject: gcpProject,
		cache:      cache,
		logger:     logger,
		attempts:   3,
	}
}

// Suggest returns the IANA timezone Gemini associates with query. Fixed offsets such as
// "UTC+8" are mapped to their Etc/ identifiers.
func (c *Client) Suggest(ctx context.Context, query string) (string, error) {
	resp, err := c.Ask(ctx, query)
	if err != nil {
		return "", err
	}
	if resp.Confidence == "low" {
		return "", fmt.Errorf("%w: %q -> %q", ErrLowConfidence, query, resp.Timezone)
	}

	tz := resp.Timezone
	if hours, ok := tzconvert.ParseTimezoneOffset(tz); ok {
		tz = tzconvert.EtcZone(hours)
	}
	if tz == "" {
		return "", fmt.Errorf("gemini returned no timezone for %q", query)
	}
	c.logger.Debug("gemini suggestion", "query", query, "timezone", tz, "location", resp.Location, "confidence", resp.Confidence)
	return tz, nil
}

// Ask sends the timezone prompt for query and returns the parsed answer.
func (c *Client) Ask(ctx context.Context, query string) (*Response, error) {
	prompt := Prompt(query)
	key := fmt.Sprintf("genai:%s:%s", c.model, prompt)

	if cached := c.checkCache(key); cached != nil {
		return cached, nil
	}

	gen, err := c.models(ctx)
	if err != nil {
		return nil, err
	}

	text, err := c.generate(ctx, gen, prompt)
	if err != nil {
		return nil, err
	}

	resp, err := parseResponse(text)
	if err != nil {
		c.logger.Warn("failed to parse Gemini response", "error", err, "response_text", text)
		return nil, err
	}

	if c.cache != nil {
		if data, err := json.Marshal(resp); err == nil {
			c.cache.Set(key, data)
		}
	}
	return resp, nil
}

func (c *Client) checkCache(key string) *Response {
	if c.cache == nil {
		return nil
	}
	data, found := c.cache.Get(key)
	if !found {
		return nil
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil || resp.Timezone == "" {
		c.logger.Debug("ignoring unusable cached Gemini response", "error", err)
		return nil
	}
	c.logger.Debug("Gemini cache hit", "timezone", resp.Timezone)
	return &resp
}

// models returns the model service, creating the genai client on first use.
func (c *Client) models(ctx context.Context) (generator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != nil {
		return c.gen, nil
	}

	var config *genai.ClientConfig
	if c.apiKey != "" {
		config = &genai.ClientConfig{
			Backend: genai.BackendGeminiAPI,
			APIKey:  c.apiKey,
		}
		c.logger.Debug("using Gemini API with API key")
	} else {
		project := c.projectID()
		if project == "" {
			return nil, errors.New("gemini needs an API key or a GCP project")
		}
		config = &genai.ClientConfig{
			Backend:  genai.BackendVertexAI,
			Project:  project,
			Location: "us-central1",
		}
		c.logger.Debug("using Vertex AI with Application Default Credentials", "project", project)
	}

	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	c.gen = client.Models
	return c.gen, nil
}

func (c *Client) projectID() string {
	if c.gcpProject != "" {
		return c.gcpProject
	}
	if projectID := os.Getenv("GCP_PROJECT"); projectID != "" {
		return projectID
	}
	return os.Getenv("GOOGLE_CLOUD_PROJECT")
}

func (c *Client) generate(ctx context.Context, gen generator, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}
	temperature := float32(0.1)
	config := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		MaxOutputTokens:  512,
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(),
	}

	var resp *genai.GenerateContentResponse
	err := retry.Do(
		func() error {
			var genErr error
			resp, genErr = gen.GenerateContent(ctx, c.model, contents, config)
			if genErr == nil {
				return nil
			}
			if !isTransientError(genErr) {
				return retry.Unrecoverable(genErr)
			}
			return genErr
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(100*time.Millisecond),
		retry.MaxDelay(2*time.Second),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("retrying Gemini API call", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("empty response from Gemini API")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return "", errors.New("no content in Gemini response")
	}
	for _, part := range candidate.Content.Parts {
		if part != nil && part.Text != "" {
			return part.Text, nil
		}
	}
	return "", errors.New("no text in Gemini response")
}

func responseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"timezone": {
				Type:        genai.TypeString,
				Description: "IANA timezone identifier the text refers to (e.g., 'America/New_York'), or an offset like 'UTC+8'",
			},
			"location": {
				Type:        genai.TypeString,
				Description: "The place the text was understood as (e.g., 'New York, United States')",
			},
			"confidence": {
				Type:        genai.TypeString,
				Enum:        []string{"high", "medium", "low"},
				Description: "Confidence that the timezone is what the user meant",
			},
			"reasoning": {
				Type:        genai.TypeString,
				Description: "One sentence explaining the choice",
			},
		},
		PropertyOrdering: []string{"timezone", "location", "confidence", "reasoning"},
		Required:         []string{"timezone", "confidence"},
	}
}

// isTransientError determines if an error should trigger a retry.
func isTransientError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	errStr := strings.ToLower(err.Error())
	for _, indicator := range []string{
		"rate limit", "quota", "timeout", "deadline", "unavailable",
		"internal server error", "502", "503", "504",
	} {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}

func parseResponse(text string) (*Response, error) {
	var resp Response
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		jsonText, extractErr := extractJSON(text)
		if extractErr != nil {
			return nil, fmt.Errorf("failed to parse Gemini JSON response: %w", err)
		}
		if err := json.Unmarshal([]byte(jsonText), &resp); err != nil {
			return nil, fmt.Errorf("failed to parse Gemini JSON response: %w", err)
		}
	}
	cleanResponse(&resp)
	return &resp, nil
}

// extractJSON extracts JSON content from a response that may contain explanatory text.
func extractJSON(text string) (string, error) {
	if isValidJSON(text) {
		return text, nil
	}

	// Fenced blocks, with or without a language tag.
	for _, fence := range []string{"```json", "```"} {
		if start := strings.Index(text, fence); start != -1 {
			start += len(fence)
			if end := strings.Index(text[start:], "```"); end != -1 {
				jsonText := strings.TrimSpace(text[start : start+end])
				if isValidJSON(jsonText) {
					return jsonText, nil
				}
			}
		}
	}

	if start := strings.Index(text, "{"); start != -1 {
		if end := strings.LastIndex(text, "}"); end > start {
			jsonText := strings.TrimSpace(text[start : end+1])
			if isValidJSON(jsonText) {
				return jsonText, nil
			}
		}
	}

	return "", errors.New("no valid JSON found in response")
}

func isValidJSON(s string) bool {
	var js map[string]any
	return json.Unmarshal([]byte(s), &js) == nil
}

// cleanResponse removes newlines and surrounding space from response fields.
func cleanResponse(resp *Response) {
	clean := func(s string) string {
		return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	}
	resp.Timezone = clean(resp.Timezone)
	resp.Location = clean(resp.Location)
	resp.Reasoning = clean(resp.Reasoning)
	resp.Confidence = strings.ToLower(clean(resp.Confidence))
}
