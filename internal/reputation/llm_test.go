package reputation_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/serroba/qr-safe/internal/reputation"
	"github.com/serroba/qr-safe/internal/trust"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Content string `json:"content"`
	} `json:"messages"`
}

// fakeOpenAI answers chat completions with a fixed reply per model.
func fakeOpenAI(t *testing.T, replies map[string]string, status int) (*httptest.Server, *[]chatRequest) {
	t.Helper()

	var (
		mu       sync.Mutex
		requests []chatRequest
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		mu.Lock()
		requests = append(requests, req)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")

		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"upstream failure","type":"server_error"}}`))

			return
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": replies[req.Model]},
			}},
		})
	}))
	t.Cleanup(srv.Close)

	return srv, &requests
}

func newAnalyst(srv *httptest.Server) *reputation.LLMAnalyst {
	return reputation.NewLLMAnalyst(reputation.LLMConfig{
		APIKey:        "test-key",
		BaseURL:       srv.URL + "/v1",
		SearchModel:   "search-model",
		AnalysisModel: "analysis-model",
	}, zap.NewNop())
}

func TestLLMAnalyst_Check(t *testing.T) {
	srv, requests := fakeOpenAI(t, map[string]string{
		"search-model":   "Multiple reports link this domain to credential phishing.",
		"analysis-model": "SAFETY: dangerous\nREASON: The domain is reported for phishing.",
	}, http.StatusOK)

	signal, err := newAnalyst(srv).Check(context.Background(), "https://update-bank.info/login")

	require.NoError(t, err)
	assert.Equal(t, trust.SafetyUnsafe, signal.Safety)
	assert.Equal(t, reputation.SourceWebSearch, signal.Source)
	assert.Equal(t, "The domain is reported for phishing.", signal.Details)
	assert.Equal(t, "Multiple reports link this domain to credential phishing.", signal.RawResults)

	require.Len(t, *requests, 2)
	assert.Equal(t, "search-model", (*requests)[0].Model)
	assert.Contains(t, (*requests)[0].Messages[0].Content, `"https://update-bank.info/login"`)
	assert.Equal(t, "analysis-model", (*requests)[1].Model)
	assert.True(t, strings.Contains((*requests)[1].Messages[0].Content, "credential phishing"),
		"analysis prompt carries the search results")
}

func TestLLMAnalyst_CheckUpstreamError(t *testing.T) {
	srv, _ := fakeOpenAI(t, nil, http.StatusInternalServerError)

	_, err := newAnalyst(srv).Check(context.Background(), "https://example.com")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "web search")
}

func TestParseAnalysis(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantSafety trust.Safety
		wantReason string
	}{
		{"safe", "SAFETY: safe\nREASON: Well known encyclopedia.", trust.SafetySafe, "Well known encyclopedia."},
		{"dangerous", "SAFETY: Dangerous\nREASON: Malware host.", trust.SafetyUnsafe, "Malware host."},
		{"suspicious", "SAFETY: suspicious\nREASON: Newly registered.", trust.SafetyUnknown, "Newly registered."},
		{"case insensitive keys", "safety: SAFE\nreason: ok", trust.SafetySafe, "ok"},
		{"unparseable", "I cannot tell.", trust.SafetyUnknown, "Unable to determine a clear reason."},
		{"empty reason", "SAFETY: safe\nREASON:", trust.SafetySafe, "Unable to determine a clear reason."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			safety, reason := reputation.ParseAnalysis(tt.text)

			assert.Equal(t, tt.wantSafety, safety)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}
