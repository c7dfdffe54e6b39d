package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/ratelimit"
	"sentiment-trader/internal/trace"
	"sentiment-trader/internal/types"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-3.5-turbo"

	pathChatCompletions = "/chat/completions"
	// A label is at most two tokens.
	maxTokens = 2
)

var systemPrompt = fmt.Sprintf(
	"You are a contextual sentiment indicator that replies:\n"+
		"- only one word ('%s', '%s', or '%s')\n"+
		"- without punctuation\n"+
		"- in lowercases",
	types.Bullish, types.Bearish, types.Unknown,
)

type Params struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	// Limiter throttles completions. Nil means unthrottled.
	Limiter *ratelimit.Limiter
}

// Scorer asks a chat completion model for a one-word sentiment label.
type Scorer struct {
	p    Params
	http *resty.Client
}

var _ interfaces.SentimentScorer = (*Scorer)(nil)

// NewScorer builds a scorer. An empty APIKey falls back to OPENAI_API_KEY.
func NewScorer(p Params) (*Scorer, error) {
	if p.APIKey == "" {
		p.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if p.APIKey == "" {
		return nil, errors.New("OPENAI_API_KEY missing")
	}
	if p.Model == "" {
		p.Model = DefaultModel
	}
	if p.BaseURL == "" {
		p.BaseURL = DefaultBaseURL
	}
	if p.Timeout <= 0 {
		p.Timeout = 30 * time.Second
	}

	http := resty.New().
		SetBaseURL(strings.TrimRight(p.BaseURL, "/")).
		SetTimeout(p.Timeout).
		SetAuthToken(p.APIKey).
		SetHeader("Content-Type", "application/json")

	return &Scorer{p: p, http: http}, nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	N           int       `json:"n"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Score waits for the rate limiter, then requests a label for headline.
// The answer is returned normalised but not validated.
func (s *Scorer) Score(ctx context.Context, headline, asset string) (types.Sentiment, error) {
	if s.p.Limiter != nil {
		if err := s.p.Limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	ctx, span := trace.StartSpan(ctx, "openai-api-call")
	defer span.End()

	body := completionRequest{
		Model: s.p.Model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf(`For this "%s", generate sentiment about "%s"`, headline, asset)},
		},
		Temperature: 0,
		MaxTokens:   maxTokens,
		N:           1,
	}

	var out completionResponse
	apiErr := &errorResponse{}
	resp, err := s.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(apiErr).
		Post(pathChatCompletions)
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	if resp.IsError() {
		if apiErr.Error.Message != "" {
			return "", fmt.Errorf("openai http %d: %s", resp.StatusCode(), apiErr.Error.Message)
		}
		return "", fmt.Errorf("openai http %d", resp.StatusCode())
	}
	if len(out.Choices) == 0 {
		return "", errors.New("openai: no choices")
	}

	raw := out.Choices[0].Message.Content
	logger.Debug(ctx, "OpenAI response", "content", raw)
	return Normalize(raw), nil
}

// Normalize drops periods and lower-cases the model answer.
func Normalize(answer string) types.Sentiment {
	answer = strings.ReplaceAll(answer, ".", "")
	return types.Sentiment(strings.ToLower(strings.TrimSpace(answer)))
}
