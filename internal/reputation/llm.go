// Package reputation provides web reputation collaborators for the trust
// verifier: an LLM web search analyst, DNS blocklists, WHOIS domain age, a
// composite combining them and a Redis cache.
package reputation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/serroba/qr-safe/internal/trust"
	"go.uber.org/zap"
)

// SourceWebSearch labels signals produced by LLMAnalyst.
const SourceWebSearch = "Web Search Analysis"

// Default models.
const (
	DefaultSearchModel   = "gpt-4o-search-preview"
	DefaultAnalysisModel = "gpt-4o-mini"
)

const noReason = "Unable to determine a clear reason."

var (
	safetyPattern = regexp.MustCompile(`(?i)SAFETY:\s*(safe|suspicious|dangerous)`)
	reasonPattern = regexp.MustCompile(`(?i)REASON:\s*(.*)`)

	errEmptyCompletion = errors.New("empty completion")
)

// LLMConfig configures LLMAnalyst. Empty models use the defaults.
type LLMConfig struct {
	APIKey        string
	BaseURL       string
	SearchModel   string
	AnalysisModel string
	HTTPClient    *http.Client
}

// LLMAnalyst asks a search-enabled model what the web says about a URL, then
// asks a second model to classify that text.
type LLMAnalyst struct {
	client        *openai.Client
	searchModel   string
	analysisModel string
	logger        *zap.Logger
}

// NewLLMAnalyst creates an analyst.
func NewLLMAnalyst(cfg LLMConfig, logger *zap.Logger) *LLMAnalyst {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	if cfg.HTTPClient != nil {
		config.HTTPClient = cfg.HTTPClient
	}

	a := &LLMAnalyst{
		client:        openai.NewClientWithConfig(config),
		searchModel:   cfg.SearchModel,
		analysisModel: cfg.AnalysisModel,
		logger:        logger,
	}

	if a.searchModel == "" {
		a.searchModel = DefaultSearchModel
	}

	if a.analysisModel == "" {
		a.analysisModel = DefaultAnalysisModel
	}

	return a
}

func (a *LLMAnalyst) Check(ctx context.Context, key trust.NormalizedURL) (trust.ReputationSignal, error) {
	search, err := a.complete(ctx, a.searchModel, searchPrompt(key))
	if err != nil {
		return trust.ReputationSignal{}, fmt.Errorf("web search: %w", err)
	}

	a.logger.Debug("web search results",
		zap.String("normalizedUrl", key.String()),
		zap.Int("length", len(search)),
	)

	analysis, err := a.complete(ctx, a.analysisModel, analysisPrompt(key, search))
	if err != nil {
		return trust.ReputationSignal{}, fmt.Errorf("analysis: %w", err)
	}

	safety, reason := ParseAnalysis(analysis)

	return trust.ReputationSignal{
		Safety:     safety,
		Source:     SourceWebSearch,
		Details:    reason,
		RawResults: search,
	}, nil
}

func (a *LLMAnalyst) complete(ctx context.Context, model, prompt string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errEmptyCompletion
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func searchPrompt(key trust.NormalizedURL) string {
	return fmt.Sprintf(`Is %q a legitimate website or is it associated with scams, `+
		`phishing, or malware? Provide any relevant security concerns.`, key)
}

func analysisPrompt(key trust.NormalizedURL, search string) string {
	return fmt.Sprintf(`Based on the following information about %s, determine if the website is safe, suspicious, or dangerous.

Web search information:
%s

Respond in this exact format:
SAFETY: [safe/suspicious/dangerous]
REASON: [one clear sentence explaining your assessment]`, key, search)
}

// ParseAnalysis reads the SAFETY and REASON lines of an analysis answer.
// "safe" maps to SafetySafe, "dangerous" to SafetyUnsafe, anything else to
// SafetyUnknown.
func ParseAnalysis(text string) (trust.Safety, string) {
	safety := trust.SafetyUnknown

	if m := safetyPattern.FindStringSubmatch(text); m != nil {
		switch strings.ToLower(m[1]) {
		case "safe":
			safety = trust.SafetySafe
		case "dangerous":
			safety = trust.SafetyUnsafe
		}
	}

	reason := noReason
	if m := reasonPattern.FindStringSubmatch(text); m != nil {
		if r := strings.TrimSpace(m[1]); r != "" {
			reason = r
		}
	}

	return safety, reason
}

var _ trust.ReputationChecker = (*LLMAnalyst)(nil)
