package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimlens/internal/config"
	"claimlens/internal/domain"
	"claimlens/internal/extract"
	gemini "claimlens/internal/extract/gemini"
	"claimlens/internal/port"
	"claimlens/internal/schema"
)

func newTestExtractor(serverURL string) *gemini.Extractor {
	cfg := &config.ExtractorConfig{}
	pcfg := &config.ExtractorProviderConfig{
		Provider:     "gemini",
		APIKey:       "test-google-key",
		DefaultModel: "gemini-2.0-flash",
		TimeoutSecs:  30,
	}
	return gemini.NewWithEndpoint(cfg, pcfg, serverURL)
}

func extractInput(t *testing.T, text string) port.ExtractInput {
	t.Helper()
	sch, err := schema.NewRegistry(schema.Config{}).SchemaFor(domain.DocTypeInsuranceClaim)
	require.NoError(t, err)
	return port.ExtractInput{Schema: sch, FullText: text}
}

func successResponse(text string) map[string]interface{} {
	return map[string]interface{}{
		"candidates": []map[string]interface{}{
			{
				"content": map[string]interface{}{
					"parts": []map[string]interface{}{{"text": text}},
				},
				"finishReason": "STOP",
			},
		},
	}
}

func TestGeminiExtractor_Success(t *testing.T) {
	replyJSON := `{"fields":{"claim_number":{"value":"CLM-77","confidence":0.88,"quote":"Claim Number: CLM-77"}},"line_items":[]}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-google-key", r.Header.Get("x-goog-api-key"))

		var reqBody map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))

		gen := reqBody["generationConfig"].(map[string]interface{})
		assert.Equal(t, "application/json", gen["responseMimeType"])

		contents := reqBody["contents"].([]interface{})
		require.Len(t, contents, 1)
		parts := contents[0].(map[string]interface{})["parts"].([]interface{})
		require.Len(t, parts, 1)
		text := parts[0].(map[string]interface{})["text"].(string)
		assert.Contains(t, text, "claim_number")
		assert.Contains(t, text, "OCR TEXT:")

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(successResponse(replyJSON))
	}))
	defer server.Close()

	e := newTestExtractor(server.URL)
	out, err := e.Extract(context.Background(), extractInput(t, "Claim Number: CLM-77"))

	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash", out.ModelUsed)

	var claim *domain.FieldCandidate
	for i := range out.Fields {
		if out.Fields[i].Name == "claim_number" {
			claim = &out.Fields[i]
		}
	}
	require.NotNil(t, claim)
	require.NotNil(t, claim.Value)
	assert.Equal(t, "CLM-77", *claim.Value)
	assert.Equal(t, domain.MethodModel, claim.Method)
}

func TestGeminiExtractor_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "20")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer server.Close()

	e := newTestExtractor(server.URL)
	_, err := e.Extract(context.Background(), extractInput(t, "text"))

	require.Error(t, err)
	var rl *extract.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, "gemini", rl.Provider)
}

func TestGeminiExtractor_TruncatedOutput(t *testing.T) {
	resp := successResponse(`{"fields":`)
	resp["candidates"].([]map[string]interface{})[0]["finishReason"] = "MAX_TOKENS"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	e := newTestExtractor(server.URL)
	_, err := e.Extract(context.Background(), extractInput(t, "text"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_TOKENS")
}

func TestGeminiExtractor_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"candidates": []interface{}{}})
	}))
	defer server.Close()

	e := newTestExtractor(server.URL)
	_, err := e.Extract(context.Background(), extractInput(t, "text"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candidates")
}
