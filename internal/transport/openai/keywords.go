package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/slotdex/internal/domain"
)

// DefaultModel is used when the config leaves the model empty.
const DefaultModel = "gpt-4o-mini"

// Config holds the keyword extraction provider settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// KeywordExtractor turns a spoken or typed request into search tokens through an
// OpenAI-compatible chat completion API.
type KeywordExtractor struct {
	client *openai.Client
	model  string
	now    func() time.Time
	logger *zap.Logger
}

// NewKeywordExtractor creates the extractor.
func NewKeywordExtractor(cfg *Config) *KeywordExtractor {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KeywordExtractor{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		now:    time.Now,
		logger: logger,
	}
}

// WithClock overrides the time injected into the prompt.
func (k *KeywordExtractor) WithClock(now func() time.Time) *KeywordExtractor {
	k.now = now
	return k
}

const systemPrompt = `입력 문장의 중요 단어를 JSON 문자열 배열로만 출력하세요.
현재 시간은 [%s] 입니다.
명확한 시간이나 날짜가 아닌 불특정 시간이나 날짜 전체가 포함되는 검색이 필요할 경우 현재 시간을 참고해서 변환하세요.
(만료 시간이라면 해당 시간이나 날짜보다 이전이어야 하고, 티켓이나 콘서트처럼 시작 시간이 있는 경우는 해당 날짜나 시간보다 이후여야 합니다.)
(따라서 불특정 검색의 경우 날짜나 시간보다 이전이어야 하면 "이전", 이후여야 하면 "이후"를 리스트 맨 처음에 넣고, 바로 다음에 "YYYY-MM-DD" 또는 "YYYY-MM-DD HH:MM:SS" 형식의 기준 시각을 넣으세요.)
그 이후의 키워드는 날짜와 시간을 포함해 최대 3개까지만 작성하세요.

input: 부산으로 가는 티켓 찾아줘.
output: ["부산", "티켓"]

input: 15일에 뉴욕으로 가는 비행기 티켓 찾아줘
output: ["15일", "뉴욕", "티켓"]

input: 다음 주에 만료되는 쿠폰 찾아줘. (현재 시간 2025-02-06 14:00:00)
output: ["이전", "2025-02-13", "쿠폰"]

input: 다음 주 오후 6시 이후 강남에서 약속 찾아줘. (현재 시간 2025-02-06 14:00:00)
output: ["이후", "2025-02-13 18:00:00", "강남", "약속"]`

var _ domain.KeywordProvider = (*KeywordExtractor)(nil)

// Keywords asks the model for the search keywords of phrase.
func (k *KeywordExtractor) Keywords(ctx context.Context, phrase string) (domain.KeywordResult, error) {
	req := openai.ChatCompletionRequest{
		Model: k.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(systemPrompt, k.now().Format("2006-01-02 15:04:05"))},
			{Role: openai.ChatMessageRoleUser, Content: phrase},
		},
		Temperature: 0,
	}

	start := time.Now()
	resp, err := k.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return domain.KeywordResult{}, parseAPIError(err)
	}
	if len(resp.Choices) == 0 {
		return domain.KeywordResult{}, fmt.Errorf("empty completion response: %w", domain.ErrKeywordExtraction)
	}

	tokens, err := parseTokens(resp.Choices[0].Message.Content)
	if err != nil {
		return domain.KeywordResult{}, err
	}
	k.logger.Debug("Keywords extracted",
		zap.Strings("tokens", tokens),
		zap.Duration("duration", time.Since(start)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)
	return domain.KeywordResult{
		Tokens:       tokens,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// parseTokens reads a JSON string array, tolerating surrounding prose or code fences.
func parseTokens(content string) ([]string, error) {
	open := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if open < 0 || end <= open {
		return nil, fmt.Errorf("no keyword list in response: %w", domain.ErrKeywordExtraction)
	}
	var raw []string
	if err := json.Unmarshal([]byte(content[open:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("decode keyword list: %w: %w", domain.ErrKeywordExtraction, err)
	}
	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		if t = strings.TrimSpace(t); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (k *KeywordExtractor) HealthCheck(ctx context.Context) error {
	if _, err := k.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
func parseAPIError(err error) error {
	wrap := domain.ErrKeywordExtraction

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("completion API error %d: %s: %w", reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("completion API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("completion request failed: %w", wrap)
}
