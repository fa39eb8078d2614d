package gemini

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

const apiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

func init() {
	extract.RegisterProvider("gemini", func(cfg *config.ExtractorConfig, pcfg *config.ExtractorProviderConfig) (port.FieldExtractor, error) {
		return New(cfg, pcfg), nil
	})
}

// Extractor implements port.FieldExtractor using Google's Gemini API.
type Extractor struct {
	apiKey    string
	model     string
	endpoint  string
	textLimit int
	client    *http.Client
}

// New creates a Gemini-backed field extractor from provider config.
func New(cfg *config.ExtractorConfig, pcfg *config.ExtractorProviderConfig) *Extractor {
	return newExtractor(cfg, pcfg, "")
}

// NewWithEndpoint creates an extractor pointing at a custom API endpoint (for testing).
func NewWithEndpoint(cfg *config.ExtractorConfig, pcfg *config.ExtractorProviderConfig, endpoint string) *Extractor {
	return newExtractor(cfg, pcfg, endpoint)
}

func newExtractor(cfg *config.ExtractorConfig, pcfg *config.ExtractorProviderConfig, endpoint string) *Extractor {
	model := pcfg.DefaultModel
	if model == "" {
		model = "gemini-2.0-flash"
	}
	timeout := time.Duration(pcfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	textLimit := cfg.ContextCharLimit
	if textLimit <= 0 {
		textLimit = 12000
	}
	if endpoint == "" {
		endpoint = fmt.Sprintf("%s/%s:generateContent", apiBaseURL, model)
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
		"contents": []map[string]interface{}{
			{
				"role": "user",
				"parts": []map[string]interface{}{
					{"text": prompt + "\n\nOCR TEXT:\n" + text},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"responseMimeType": "application/json",
			"maxOutputTokens":  16384,
			"temperature":      0,
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
	req.Header.Set("x-goog-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling gemini API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("gemini API error (status %d): %s", resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, extract.RateLimited("gemini", baseErr, resp.Header)
		}
		return nil, baseErr
	}

	return e.parseResponse(respBody, input)
}

// apiResponse models the Gemini generateContent response.
type apiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

func (e *Extractor) parseResponse(body []byte, input port.ExtractInput) (*port.ExtractOutput, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from API: no candidates")
	}
	if resp.Candidates[0].FinishReason == "MAX_TOKENS" {
		return nil, fmt.Errorf("output truncated (finishReason: MAX_TOKENS): response exceeded output token limit")
	}
	if len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from API: no parts")
	}

	out, err := extract.DecodeModelReply(input.Schema, resp.Candidates[0].Content.Parts[0].Text, input.Pages)
	if err != nil {
		return nil, err
	}
	out.ModelUsed = e.model
	return out, nil
}
