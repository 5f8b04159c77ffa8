package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aiverso/aiverso-backend/internal/logger"
	"github.com/aiverso/aiverso-backend/internal/repos"
	"github.com/aiverso/aiverso-backend/internal/types"
)

// ErrAllProvidersFailed is returned when every provider in the fallback
// chain has been attempted without success.
var ErrAllProvidersFailed = errors.New("all llm providers failed")

// LLMResult carries the raw model text and the token usage the API
// reported, zero when the provider omits usage.
type LLMResult struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// LLMProvider is one text-generation backend (an OpenAI-compatible API).
type LLMProvider interface {
	Name() string
	Model() string
	// GenerateJSON asks for a JSON object and returns the raw model text
	// plus token usage.
	GenerateJSON(ctx context.Context, system, user string) (*LLMResult, error)
	// GenerateImage returns a hosted image URL for the prompt.
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// TextGenerator runs an ordered provider chain: attempt, on failure try
// next, on exhaustion return a typed error. Each attempt is sequential.
type TextGenerator interface {
	GenerateJSON(ctx context.Context, userID *uuid.UUID, purpose, system, user string) (string, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

type openAICompatProvider struct {
	log        *logger.Logger
	name       string
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	maxRetries int
}

// ProviderConfig configures one OpenAI-compatible provider.
type ProviderConfig struct {
	Name       string
	BaseURL    string
	APIKey     string
	Model      string
	TimeoutSec int
	MaxRetries int
}

func NewOpenAICompatProvider(log *logger.Logger, cfg ProviderConfig) (LLMProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("provider %s: missing api key", cfg.Name)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.TimeoutSec <= 0 {
		cfg.TimeoutSec = 45
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &openAICompatProvider{
		log:        log.With("service", "LLMProvider", "provider", cfg.Name),
		name:       cfg.Name,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
		maxRetries: cfg.MaxRetries,
	}, nil
}

func (p *openAICompatProvider) Name() string  { return p.name }
func (p *openAICompatProvider) Model() string { return p.model }

type llmHTTPError struct {
	StatusCode int
	Body       string
}

func (e *llmHTTPError) Error() string {
	return fmt.Sprintf("llm http %d: %s", e.StatusCode, e.Body)
}

func isRetryableHTTP(code int) bool {
	if code == 408 || code == 429 {
		return true
	}
	return code >= 500 && code <= 599
}

func isRetryableErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var httpErr *llmHTTPError
	if errors.As(err, &httpErr) {
		return isRetryableHTTP(httpErr.StatusCode)
	}
	return false
}

func jitterSleep(base time.Duration) time.Duration {
	// +/- 20%
	if base <= 0 {
		return 0
	}
	delta := base.Seconds() * 0.2
	low := base.Seconds() - delta
	high := base.Seconds() + delta
	if low < 0 {
		low = 0
	}
	v := low + rand.Float64()*(high-low)
	return time.Duration(v * float64(time.Second))
}

func (p *openAICompatProvider) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &llmHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (p *openAICompatProvider) do(ctx context.Context, method, path string, body any, out any) error {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := p.doOnce(ctx, method, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("llm decode error: %w; raw=%s", uErr, string(raw))
			}
			return nil
		}

		if !isRetryableErr(err) {
			return err
		}
		if attempt == p.maxRetries {
			return err
		}

		sleepFor := backoff
		if resp != nil {
			ra := strings.TrimSpace(resp.Header.Get("Retry-After"))
			if ra != "" {
				if secs, parseErr := strconv.Atoi(ra); parseErr == nil && secs > 0 {
					sleepFor = time.Duration(secs) * time.Second
				}
			}
		}
		if sleepFor > 10*time.Second {
			sleepFor = 10 * time.Second
		}
		sleepFor = jitterSleep(sleepFor)

		p.log.Warn("LLM request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", p.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}
	return fmt.Errorf("unreachable retry loop")
}

type chatCompletionRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format,omitempty"`
	Temperature float64 `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (p *openAICompatProvider) GenerateJSON(ctx context.Context, system, user string) (*LLMResult, error) {
	req := chatCompletionRequest{
		Model: p.model,
		Messages: []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		}{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: &struct {
			Type string `json:"type"`
		}{Type: "json_object"},
		Temperature: 0.2,
	}

	var resp chatCompletionResponse
	if err := p.do(ctx, "POST", "/v1/chat/completions", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}
	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return nil, fmt.Errorf("model refused: %s", choice.Message.Refusal)
	}
	if choice.Message.Content == "" {
		return nil, fmt.Errorf("empty completion content")
	}
	return &LLMResult{
		Text:         choice.Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

type imageGenerationRequest struct {
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type imageGenerationResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

func (p *openAICompatProvider) GenerateImage(ctx context.Context, prompt string) (string, error) {
	req := imageGenerationRequest{
		Prompt: prompt,
		N:      1,
		Size:   "1024x1024",
	}
	var resp imageGenerationResponse
	if err := p.do(ctx, "POST", "/v1/images/generations", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", fmt.Errorf("no image url in response")
	}
	return resp.Data[0].URL, nil
}

type fallbackGenerator struct {
	log       *logger.Logger
	providers []LLMProvider
	callLog   repos.AICallLogRepo
}

func NewFallbackGenerator(log *logger.Logger, providers []LLMProvider, callLog repos.AICallLogRepo) (TextGenerator, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("at least one llm provider required")
	}
	return &fallbackGenerator{
		log:       log.With("service", "TextGenerator"),
		providers: providers,
		callLog:   callLog,
	}, nil
}

func (g *fallbackGenerator) GenerateJSON(ctx context.Context, userID *uuid.UUID, purpose, system, user string) (string, error) {
	var lastErr error
	for _, provider := range g.providers {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		start := time.Now()
		res, err := provider.GenerateJSON(ctx, system, user)
		g.record(ctx, userID, provider, purpose, start, res, err)
		if err == nil {
			return res.Text, nil
		}
		lastErr = err
		g.log.Warn("LLM provider failed, trying next",
			"provider", provider.Name(),
			"purpose", purpose,
			"error", err,
		)
	}
	return "", fmt.Errorf("%w: %v", ErrAllProvidersFailed, lastErr)
}

func (g *fallbackGenerator) GenerateImage(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for _, provider := range g.providers {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		url, err := provider.GenerateImage(ctx, prompt)
		if err == nil {
			return url, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("%w: %v", ErrAllProvidersFailed, lastErr)
}

func (g *fallbackGenerator) record(ctx context.Context, userID *uuid.UUID, provider LLMProvider, purpose string, start time.Time, res *LLMResult, callErr error) {
	if g.callLog == nil {
		return
	}
	entry := &types.AICallLog{
		ID:        uuid.New(),
		UserID:    userID,
		Provider:  provider.Name(),
		Model:     provider.Model(),
		Purpose:   purpose,
		LatencyMS: int(time.Since(start).Milliseconds()),
	}
	if res != nil {
		entry.InputTokens = res.InputTokens
		entry.OutputTokens = res.OutputTokens
	}
	if callErr != nil {
		entry.Error = callErr.Error()
	}
	if _, err := g.callLog.Create(ctx, nil, []*types.AICallLog{entry}); err != nil {
		g.log.Warn("AI call log write failed", "error", err)
	}
}
