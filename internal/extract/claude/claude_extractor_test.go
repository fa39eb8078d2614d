package claude_test

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
	claude "claimlens/internal/extract/claude"
	"claimlens/internal/port"
	"claimlens/internal/schema"
)

func newTestExtractor(serverURL string) *claude.Extractor {
	cfg := &config.ExtractorConfig{}
	pcfg := &config.ExtractorProviderConfig{
		Provider:     "claude",
		APIKey:       "test-anthropic-key",
		DefaultModel: "claude-sonnet-4-20250514",
		TimeoutSecs:  30,
	}
	return claude.NewWithEndpoint(cfg, pcfg, serverURL)
}

func extractInput(t *testing.T, text string) port.ExtractInput {
	t.Helper()
	sch, err := schema.NewRegistry(schema.Config{}).SchemaFor(domain.DocTypeMedicalBill)
	require.NoError(t, err)
	return port.ExtractInput{Schema: sch, FullText: text}
}

func successResponse(text string) map[string]interface{} {
	return map[string]interface{}{
		"content": []map[string]interface{}{
			{"type": "text", "text": text},
		},
		"stop_reason": "end_turn",
	}
}

func TestClaudeExtractor_Success(t *testing.T) {
	replyJSON := `{"fields":{"invoice_number":{"value":"INV-205","confidence":0.9,"quote":"Invoice #: INV-205"}},"line_items":[]}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-anthropic-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var reqBody map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, "claude-sonnet-4-20250514", reqBody["model"])
		assert.NotEmpty(t, reqBody["system"])

		messages := reqBody["messages"].([]interface{})
		require.Len(t, messages, 1)
		user := messages[0].(map[string]interface{})
		assert.Equal(t, "user", user["role"])
		assert.Contains(t, user["content"].(string), "invoice_number")

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(successResponse(replyJSON))
	}))
	defer server.Close()

	e := newTestExtractor(server.URL)
	out, err := e.Extract(context.Background(), extractInput(t, "Invoice #: INV-205"))

	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-20250514", out.ModelUsed)

	var invoice *domain.FieldCandidate
	for i := range out.Fields {
		if out.Fields[i].Name == "invoice_number" {
			invoice = &out.Fields[i]
		}
	}
	require.NotNil(t, invoice)
	require.NotNil(t, invoice.Value)
	assert.Equal(t, "INV-205", *invoice.Value)
}

func TestClaudeExtractor_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "45")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error"}}`))
	}))
	defer server.Close()

	e := newTestExtractor(server.URL)
	_, err := e.Extract(context.Background(), extractInput(t, "text"))

	require.Error(t, err)
	var rl *extract.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, "claude", rl.Provider)
}

func TestClaudeExtractor_TruncatedOutput(t *testing.T) {
	resp := successResponse(`{"fields":`)
	resp["stop_reason"] = "max_tokens"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	e := newTestExtractor(server.URL)
	_, err := e.Extract(context.Background(), extractInput(t, "text"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "stop_reason: max_tokens")
}
