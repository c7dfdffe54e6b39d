package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiment-trader/internal/ratelimit"
	"sentiment-trader/internal/types"
)

func completionServer(t *testing.T, answer string, got *completionRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if got != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": answer}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestScoreSendsPromptAndNormalises(t *testing.T) {
	var req completionRequest
	srv := completionServer(t, "Bullish.", &req)

	s, err := NewScorer(Params{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	got, err := s.Score(context.Background(), "ETF approved", "BTC")
	require.NoError(t, err)
	assert.Equal(t, types.Bullish, got)

	assert.Equal(t, DefaultModel, req.Model)
	assert.Equal(t, 2, req.MaxTokens)
	assert.Equal(t, 1, req.N)
	assert.Zero(t, req.Temperature)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "'bullish', 'bearish', or 'unknown'")
	assert.Equal(t, `For this "ETF approved", generate sentiment about "BTC"`, req.Messages[1].Content)
}

func TestScoreKeepsUnexpectedAnswer(t *testing.T) {
	srv := completionServer(t, "Neutral", nil)
	s, err := NewScorer(Params{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	got, err := s.Score(context.Background(), "h", "BTC")
	require.NoError(t, err)
	assert.Equal(t, types.Sentiment("neutral"), got)
	assert.False(t, got.Valid())
}

func TestScoreAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests"}}`))
	}))
	defer srv.Close()

	s, err := NewScorer(Params{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = s.Score(context.Background(), "h", "BTC")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "Rate limit reached")
}

func TestScoreNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	s, err := NewScorer(Params{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = s.Score(context.Background(), "h", "BTC")
	assert.ErrorContains(t, err, "no choices")
}

func TestScoreRateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"bearish"}}]}`))
	}))
	defer srv.Close()

	s, err := NewScorer(Params{APIKey: "test-key", BaseURL: srv.URL, Limiter: ratelimit.New(1, time.Hour)})
	require.NoError(t, err)

	_, err = s.Score(context.Background(), "h", "BTC")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = s.Score(ctx, "h", "BTC")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.EqualValues(t, 1, calls.Load())
}

func TestNewScorerNeedsKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewScorer(Params{})
	assert.Error(t, err)

	t.Setenv("OPENAI_API_KEY", "from-env")
	s, err := NewScorer(Params{})
	require.NoError(t, err)
	assert.Equal(t, "from-env", s.p.APIKey)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, types.Bearish, Normalize("Bearish."))
	assert.Equal(t, types.Unknown, Normalize(" UNKNOWN\n"))
}
