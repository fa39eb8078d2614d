package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"claimlens/internal/config"
	"claimlens/internal/extract"
	"claimlens/internal/port"
)

const (
	apiURL = "https://api.openai.com/v1/chat/completions"

	systemPrompt = "You extract structured insurance claim and medical bill fields."
)

func init() {
	extract.RegisterProvider("openai", func(cfg *config.ExtractorConfig, pcfg *config.ExtractorProviderConfig) (port.FieldExtractor, error) {
		return New(cfg, pcfg), nil
	})
}

// Extractor implements port.FieldExtractor using the OpenAI Chat
// Completions API.
type Extractor struct {
	apiKey    string
	model     string
	endpoint  string
	textLimit int
	client    *http.Client
}

// New creates an OpenAI-backed field extractor from provider config.
func New(cfg *config.ExtractorConfig, pcfg *config.ExtractorProviderConfig) *Extractor {
	return newExtractor(cfg, pcfg, apiURL)
}

// NewWithEndpoint creates an extractor pointing at a custom API endpoint (for testing).
func NewWithEndpoint(cfg *config.ExtractorConfig, pcfg *config.ExtractorProviderConfig, endpoint string) *Extractor {
	return newExtractor(cfg, pcfg, endpoint)
}

func newExtractor(cfg *config.ExtractorConfig, pcfg *config.ExtractorProviderConfig, endpoint string) *Extractor {
	model := pcfg.DefaultModel
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := time.Duration(pcfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	textLimit := cfg.ContextCharLimit
	if textLimit <= 0 {
		textLimit = 12000
	}
	return &Extractor{
		apiKey:    pcfg.APIKey,
		model:     model,
		endpoint:  endpoint,
		textLimit: textLimit,
		client:    &http.Client{Timeout: timeout},
	}
}

func (e *Extractor) Extract(ctx context.Context, input port.ExtractInput) (*port.ExtractOutput, error) {
	prompt := extract.BuildExtractionPrompt(input.Schema)
	text := input.FullText
	if len(text) > e.textLimit {
		text = text[:e.textLimit]
	}

	reqBody := map[string]interface{}{
		"model":                 e.model,
		"temperature":           0,
		"max_completion_tokens": 16384,
		"messages": []map[string]interface{}{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt + "\n\nOCR TEXT:\n" + text},
		},
		"response_format": map[string]interface{}{
			"type": "json_object",
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling openai API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("openai API error (status %d): %s", resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, extract.RateLimited("openai", baseErr, resp.Header)
		}
		return nil, baseErr
	}

	return e.parseResponse(respBody, input)
}

// apiResponse models the OpenAI Chat Completions API response.
type apiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func (e *Extractor) parseResponse(body []byte, input port.ExtractInput) (*port.ExtractOutput, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from API: no choices")
	}

	if resp.Choices[0].FinishReason == "length" {
		return nil, fmt.Errorf("output truncated (finish_reason: length): response exceeded output token limit")
	}

	out, err := extract.DecodeModelReply(input.Schema, resp.Choices[0].Message.Content, input.Pages)
	if err != nil {
		return nil, err
	}
	out.ModelUsed = e.model
	return out, nil
}
