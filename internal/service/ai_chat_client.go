package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/zolffix/internal/logger"
	"github.com/zolffix/internal/model"
)

// ErrQuoteAPIKeyMissing 在未配置语录接口密钥时返回
var ErrQuoteAPIKeyMissing = errors.New("quote api key missing")

// QuoteAuthor 是生成语录的署名
const QuoteAuthor = "Zolffix AI"

// QuoteSource 生成某个分类下的语录
type QuoteSource interface {
	RequestQuotes(ctx context.Context, category string, count int) ([]model.Quote, error)
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponseFormat struct {
	Type string `json:"type"`
}

type chatCompletionRequest struct {
	Model          string              `json:"model"`
	Messages       []chatMessage       `json:"messages"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	Temperature    float64             `json:"temperature,omitempty"`
	ResponseFormat *chatResponseFormat `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type generatedQuotes struct {
	Quotes []struct {
		Text          string   `json:"text"`
		Author        string   `json:"author"`
		ImageKeywords []string `json:"imageKeywords"`
	} `json:"quotes"`
}

// RetryPolicy 描述限流时的指数退避
type RetryPolicy struct {
	BaseDelay  time.Duration
	Factor     float64
	MaxRetries int
}

// DefaultRetryPolicy 500ms 起步，每次翻倍，最多重试 3 次
var DefaultRetryPolicy = RetryPolicy{BaseDelay: 500 * time.Millisecond, Factor: 2, MaxRetries: 3}

// Delay 返回第 attempt 次重试（从 0 开始）前的等待时间
func (p RetryPolicy) Delay(attempt int) time.Duration {
	delay := float64(p.BaseDelay)
	for range attempt {
		delay *= p.Factor
	}
	return time.Duration(delay)
}

// rateLimitError 标记可重试的限流响应
type rateLimitError struct {
	message string
}

func (e *rateLimitError) Error() string {
	return "quote api rate limited: " + e.message
}

// IsRateLimited 报告 err 是否由限流导致
func IsRateLimited(err error) bool {
	var rl *rateLimitError
	return errors.As(err, &rl)
}

// AIQuoteSource 通过 OpenAI 兼容的 chat completions 接口生成语录
type AIQuoteSource struct {
	http    httpDoer
	apiKey  string
	baseURL string
	model   string
	retry   RetryPolicy
	sleep   func(ctx context.Context, d time.Duration) error
	seq     atomic.Uint64
}

func NewAIQuoteSource(apiKey, baseURL, model string) *AIQuoteSource {
	s := &AIQuoteSource{
		http:    &http.Client{Timeout: 60 * time.Second},
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: "https://api.openai.com/v1",
		model:   "gpt-4o-mini",
		retry:   DefaultRetryPolicy,
		sleep:   sleepContext,
	}
	s.SetBaseURL(baseURL)
	if model = strings.TrimSpace(model); model != "" {
		s.model = model
	}
	return s
}

func (s *AIQuoteSource) SetHTTPClient(client httpDoer) {
	if client == nil {
		s.http = &http.Client{Timeout: 60 * time.Second}
		return
	}
	s.http = client
}

func (s *AIQuoteSource) SetBaseURL(base string) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base != "" {
		s.baseURL = base
	}
}

func (s *AIQuoteSource) SetRetryPolicy(policy RetryPolicy) {
	s.retry = policy
}

// RequestQuotes 请求 count 条语录，只有限流错误会按退避策略重试
func (s *AIQuoteSource) RequestQuotes(ctx context.Context, category string, count int) ([]model.Quote, error) {
	if s.apiKey == "" {
		return nil, ErrQuoteAPIKeyMissing
	}
	if count <= 0 {
		count = 1
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		quotes, err := s.requestOnce(ctx, category, count)
		if err == nil {
			return quotes, nil
		}
		lastErr = err

		if !IsRateLimited(err) || attempt >= s.retry.MaxRetries {
			break
		}

		delay := s.retry.Delay(attempt)
		logger.Warn("quote api rate limited, retrying", "attempt", attempt+1, "delay", delay)
		if err := s.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (s *AIQuoteSource) requestOnce(ctx context.Context, category string, count int) ([]model.Quote, error) {
	prompt := buildQuotePrompt(category, count)
	payload := chatCompletionRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You write short original quotes and reply with JSON only."},
			{Role: "user", Content: prompt},
		},
		Temperature:    0.9,
		ResponseFormat: &chatResponseFormat{Type: "json_object"},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode quote request: %w", err)
	}

	endpoint := s.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create quote request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "zolffix/1.0")

	logAIExchange("quotes", "request", prompt)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call quote api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read quote response: %w", err)
	}

	var completion chatCompletionResponse
	_ = json.Unmarshal(respBody, &completion)

	if resp.StatusCode >= http.StatusBadRequest {
		errMsg := strings.TrimSpace(completion.Error.Message)
		if errMsg == "" {
			errMsg = strings.TrimSpace(string(respBody))
		}
		if errMsg == "" {
			errMsg = resp.Status
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, &rateLimitError{message: errMsg}
		}
		return nil, fmt.Errorf("quote api returned %d: %s", resp.StatusCode, errMsg)
	}

	if len(completion.Choices) == 0 {
		return nil, errors.New("quote api returned no choices")
	}

	content := completion.Choices[0].Message.Content
	logAIExchange("quotes", "response", content)
	return s.parseQuotes(content, category)
}

func (s *AIQuoteSource) parseQuotes(content, category string) ([]model.Quote, error) {
	var generated generatedQuotes
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &generated); err != nil {
		return nil, fmt.Errorf("decode generated quotes: %w", err)
	}

	quotes := make([]model.Quote, 0, len(generated.Quotes))
	for _, item := range generated.Quotes {
		text := strings.TrimSpace(item.Text)
		if text == "" || len(item.ImageKeywords) == 0 {
			continue
		}
		author := strings.TrimSpace(item.Author)
		if author == "" {
			author = QuoteAuthor
		}
		n := s.seq.Add(1)
		quotes = append(quotes, model.Quote{
			ID:       fmt.Sprintf("ai-%d-%d", time.Now().UnixNano(), n),
			Text:     text,
			Author:   author,
			Category: category,
			ImageURL: QuoteImageURL(item.ImageKeywords, n),
		})
	}

	if len(quotes) == 0 {
		return nil, errors.New("quote api returned no usable quotes")
	}
	return quotes, nil
}

func buildQuotePrompt(category string, count int) string {
	return fmt.Sprintf(`Generate %d original, deeply thoughtful, one-sentence motivational quotes about "%s" in a poetic and non-cliche tone. The author should be "%s". For each quote also provide 3-5 specific, descriptive keywords for a cinematic, dark-themed background image that captures the quote's essence. Respond with a JSON object {"quotes": [{"text": string, "author": string, "imageKeywords": [string]}]}.`,
		count, category, QuoteAuthor)
}

// QuoteImageURL 拼接背景图地址，sig 让同一组关键词得到不同图片
func QuoteImageURL(keywords []string, sig uint64) string {
	parts := make([]string, 0, len(keywords)+3)
	for _, keyword := range keywords {
		if keyword = strings.TrimSpace(keyword); keyword != "" {
			parts = append(parts, keyword)
		}
	}
	parts = append(parts, "dark", "cinematic", "abstract")
	return fmt.Sprintf("https://source.unsplash.com/1080x1080/?%s&sig=%d", url.QueryEscape(strings.Join(parts, ",")), sig)
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if newline := strings.IndexByte(trimmed, '\n'); newline >= 0 {
		trimmed = trimmed[newline+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(trimmed), "```"))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
