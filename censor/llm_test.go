package censor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"censor-lab/domain"
	"censor-lab/errors"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func completionBody(content string) string {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	})
	return string(body)
}

func newLLM(t *testing.T, baseURL string, retries uint64) *LLMProvider {
	t.Helper()
	return NewLLMProvider(LLMConfig{
		BaseURL: baseURL,
		APIKey:  "test-key",
		Model:   "test-model",
		Timeout: 5 * time.Second,
	}, RetryPolicy{MaxRetries: retries, Backoff: time.Millisecond},
		logs.GetLoggerFromLevel(slog.LevelDebug))
}

func TestLLMProvider_RepairsSloppyModelOutput(t *testing.T) {
	req := require.New(t)

	// Unquoted keys, single quotes and a trailing comma: typical model drift.
	sloppy := "{category: 'spam', confidence: 0.85, reason: 'unsolicited ads',}"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal("/chat/completions", r.URL.Path)
		req.Equal("Bearer test-key", r.Header.Get("Authorization"))
		fmt.Fprint(w, completionBody(sloppy))
	}))
	defer server.Close()

	verdict := newLLM(t, server.URL, 0).Classify(context.Background(), domain.ContentItem{
		Kind: domain.KindText, Payload: "buy now!!!",
	})

	req.NoError(verdict.Err)
	req.True(verdict.Matched)
	req.Equal(domain.CategorySpam, verdict.Category)
	req.InDelta(0.85, verdict.Confidence, 1e-9)
	req.Equal(sloppy, verdict.Raw)
}

func TestLLMProvider_NoneMeansUnmatched(t *testing.T) {
	req := require.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, completionBody(`{"category":"none","confidence":0,"reason":"harmless"}`))
	}))
	defer server.Close()

	verdict := newLLM(t, server.URL, 0).Classify(context.Background(), domain.ContentItem{
		Kind: domain.KindText, Payload: "good morning",
	})

	req.NoError(verdict.Err)
	req.False(verdict.Matched)
	req.Equal(domain.CategoryNone, verdict.Category)
}

func TestLLMProvider_NonConformingOutputIsProtocolError(t *testing.T) {
	req := require.New(t)

	tests := []struct {
		name    string
		content string
	}{
		{name: "Unknown category", content: `{"category":"violence","confidence":0.9}`},
		{name: "Confidence out of range", content: `{"category":"spam","confidence":7}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, completionBody(tt.content))
			}))
			defer server.Close()

			verdict := newLLM(t, server.URL, 0).Classify(context.Background(), domain.ContentItem{
				Kind: domain.KindText, Payload: "text",
			})

			req.True(verdict.Failed())
			req.False(verdict.Matched)
			pe, ok := errors.AsProviderError(verdict.Err)
			req.True(ok)
			req.Equal(errors.FailureProtocol, pe.Kind)
		})
	}
}

func TestLLMProvider_RetriesServerErrors(t *testing.T) {
	req := require.New(t)

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	verdict := newLLM(t, server.URL, 2).Classify(context.Background(), domain.ContentItem{
		Kind: domain.KindText, Payload: "text",
	})

	req.True(verdict.Failed())
	req.Equal(int32(3), hits.Load())
	pe, ok := errors.AsProviderError(verdict.Err)
	req.True(ok)
	req.Equal(errors.FailureTransport, pe.Kind)
}

func TestLLMProvider_NeverRetriesAuthFailures(t *testing.T) {
	req := require.New(t)

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	verdict := newLLM(t, server.URL, 5).Classify(context.Background(), domain.ContentItem{
		Kind: domain.KindText, Payload: "text",
	})

	req.True(verdict.Failed())
	req.Equal(int32(1), hits.Load())
	pe, ok := errors.AsProviderError(verdict.Err)
	req.True(ok)
	req.Equal(errors.FailureAuth, pe.Kind)
}

func TestLLMProvider_ImagePayloadBecomesContentParts(t *testing.T) {
	req := require.New(t)

	var captured struct {
		Messages []struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		} `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.NoError(json.NewDecoder(r.Body).Decode(&captured))
		fmt.Fprint(w, completionBody(`{"category":"none","confidence":0}`))
	}))
	defer server.Close()

	newLLM(t, server.URL, 0).Classify(context.Background(), domain.ContentItem{
		Kind: domain.KindImageURL, Payload: "https://img.example/1.png",
	})

	req.Len(captured.Messages, 2)
	var parts []struct {
		Type     string `json:"type"`
		ImageURL struct {
			URL string `json:"url"`
		} `json:"image_url"`
	}
	req.NoError(json.Unmarshal(captured.Messages[1].Content, &parts))
	req.Len(parts, 1)
	req.Equal("image_url", parts[0].Type)
	req.Equal("https://img.example/1.png", parts[0].ImageURL.URL)
}
