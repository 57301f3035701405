package censor

import (
	"censor-lab/domain"
	"censor-lab/errors"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/kaptinlin/jsonrepair"
)

// LLMConfig points to any OpenAI-compatible chat completions endpoint.
type LLMConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

const llmSystemPrompt = `You are a content moderation classifier.
Classify the submitted content into exactly one category among:
porn, politics, abuse, spam, other, none.
Answer with a single JSON object and nothing else:
{"category": "<category>", "confidence": <0.0-1.0>, "reason": "<short reason>"}
Use "none" with confidence 0 when the content violates no policy.`

type llmChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type llmClassification struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// LLMProvider classifies text and images by instructing a model to emit a
// structured verdict. Models drift from the requested format, so the answer
// goes through jsonrepair before decoding; output that still does not
// conform is a protocol error, never a silent pass.
type LLMProvider struct {
	cfg    LLMConfig
	client *http.Client
	policy RetryPolicy
	log    *slog.Logger
}

func NewLLMProvider(cfg LLMConfig, policy RetryPolicy, log *slog.Logger) *LLMProvider {
	return &LLMProvider{cfg: cfg, client: newHTTPClient(cfg.Timeout), policy: policy, log: log}
}

func (p *LLMProvider) Name() string { return "llm" }

func (p *LLMProvider) Capabilities() []domain.ContentKind {
	return []domain.ContentKind{domain.KindText, domain.KindImageURL, domain.KindImageBase64}
}

func (p *LLMProvider) Classify(ctx context.Context, item domain.ContentItem) domain.ProviderVerdict {
	payload := map[string]any{
		"model": p.cfg.Model,
		"messages": []map[string]any{
			{"role": "system", "content": llmSystemPrompt},
			{"role": "user", "content": userContent(item)},
		},
		"temperature": 0,
	}
	headers := map[string]string{"Authorization": "Bearer " + p.cfg.APIKey}

	var raw []byte
	err := p.policy.do(ctx, func(ctx context.Context) error {
		var callErr error
		raw, callErr = postJSON(ctx, p.client, p.Name(), p.cfg.BaseURL+"/chat/completions", headers, payload)
		return callErr
	})
	if err != nil {
		return failedVerdict(p.Name(), err)
	}

	var res llmChatResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return failedVerdict(p.Name(), errors.NewProviderError(p.Name(), errors.FailureProtocol, err))
	}
	if len(res.Choices) == 0 {
		return failedVerdict(p.Name(), errors.NewProviderError(p.Name(), errors.FailureProtocol,
			fmt.Errorf("empty choices in completion")))
	}

	answer := res.Choices[0].Message.Content
	repaired, err := jsonrepair.JSONRepair(answer)
	if err != nil {
		return failedVerdict(p.Name(), errors.NewProviderError(p.Name(), errors.FailureProtocol,
			fmt.Errorf("unrepairable model output: %w", err)))
	}

	var classification llmClassification
	if err := json.Unmarshal([]byte(repaired), &classification); err != nil {
		return failedVerdict(p.Name(), errors.NewProviderError(p.Name(), errors.FailureProtocol, err))
	}

	category := domain.Category(classification.Category)
	if !domain.ValidCategory(category) || classification.Confidence < 0 || classification.Confidence > 1 {
		return failedVerdict(p.Name(), errors.NewProviderError(p.Name(), errors.FailureProtocol,
			fmt.Errorf("non-conforming classification %q (confidence %v)",
				classification.Category, classification.Confidence)))
	}

	p.log.Debug("Model classification",
		"category", category,
		"confidence", classification.Confidence,
		"reason", classification.Reason)
	return domain.ProviderVerdict{
		Provider:   p.Name(),
		Matched:    category != domain.CategoryNone,
		Category:   category,
		Confidence: classification.Confidence,
		Raw:        answer,
	}
}

// userContent builds the user message; images ride as content parts the way
// vision-capable chat APIs expect them.
func userContent(item domain.ContentItem) any {
	switch item.Kind {
	case domain.KindImageURL:
		return []map[string]any{
			{"type": "image_url", "image_url": map[string]string{"url": item.Payload}},
		}
	case domain.KindImageBase64:
		return []map[string]any{
			{"type": "image_url", "image_url": map[string]string{
				"url": "data:image/png;base64," + item.Payload,
			}},
		}
	default:
		return item.Payload
	}
}
