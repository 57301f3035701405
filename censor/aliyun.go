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
)

// AliyunConfig holds credentials and endpoints for the Aliyun content
// moderation family. TextEndpoint and ImageEndpoint are distinct services,
// exposed here as two providers with different capability sets.
type AliyunConfig struct {
	KeyID         string
	KeySecret     string
	TextEndpoint  string
	ImageEndpoint string
	Timeout       time.Duration
}

type aliyunResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data []struct {
		Results []struct {
			Label      string  `json:"label"`
			Suggestion string  `json:"suggestion"`
			Rate       float64 `json:"rate"`
		} `json:"results"`
	} `json:"data"`
}

// AliyunTextProvider classifies plain text (CloudTextProvider family).
type AliyunTextProvider struct {
	cfg    AliyunConfig
	client *http.Client
	policy RetryPolicy
	log    *slog.Logger
}

func NewAliyunTextProvider(cfg AliyunConfig, policy RetryPolicy, log *slog.Logger) *AliyunTextProvider {
	return &AliyunTextProvider{cfg: cfg, client: newHTTPClient(cfg.Timeout), policy: policy, log: log}
}

func (p *AliyunTextProvider) Name() string { return "aliyun-text" }

func (p *AliyunTextProvider) Capabilities() []domain.ContentKind {
	return []domain.ContentKind{domain.KindText}
}

func (p *AliyunTextProvider) Classify(ctx context.Context, item domain.ContentItem) domain.ProviderVerdict {
	payload := map[string]any{
		"scenes": []string{"antispam"},
		"tasks":  []map[string]string{{"content": item.Payload}},
	}
	return aliyunClassify(ctx, p.client, p.policy, p.Name(), p.cfg, p.cfg.TextEndpoint, payload, p.log)
}

// AliyunImageProvider classifies images by URL only; the Aliyun image scan
// API fetches the image itself and does not accept inline payloads.
type AliyunImageProvider struct {
	cfg    AliyunConfig
	client *http.Client
	policy RetryPolicy
	log    *slog.Logger
}

func NewAliyunImageProvider(cfg AliyunConfig, policy RetryPolicy, log *slog.Logger) *AliyunImageProvider {
	return &AliyunImageProvider{cfg: cfg, client: newHTTPClient(cfg.Timeout), policy: policy, log: log}
}

func (p *AliyunImageProvider) Name() string { return "aliyun-image" }

func (p *AliyunImageProvider) Capabilities() []domain.ContentKind {
	return []domain.ContentKind{domain.KindImageURL}
}

func (p *AliyunImageProvider) Classify(ctx context.Context, item domain.ContentItem) domain.ProviderVerdict {
	payload := map[string]any{
		"scenes": []string{"porn", "terrorism"},
		"tasks":  []map[string]string{{"url": item.Payload}},
	}
	return aliyunClassify(ctx, p.client, p.policy, p.Name(), p.cfg, p.cfg.ImageEndpoint, payload, p.log)
}

func aliyunClassify(ctx context.Context, client *http.Client, policy RetryPolicy,
	name string, cfg AliyunConfig, endpoint string, payload any, log *slog.Logger) domain.ProviderVerdict {

	headers := map[string]string{
		"x-acs-accesskey-id": cfg.KeyID,
		"x-acs-signature":    cfg.KeySecret,
	}

	var raw []byte
	err := policy.do(ctx, func(ctx context.Context) error {
		var callErr error
		raw, callErr = postJSON(ctx, client, name, endpoint, headers, payload)
		return callErr
	})
	if err != nil {
		return failedVerdict(name, err)
	}

	var res aliyunResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return failedVerdict(name, errors.NewProviderError(name, errors.FailureProtocol, err))
	}
	if res.Code != 200 {
		return failedVerdict(name, errors.NewProviderError(name, errors.FailureProtocol,
			fmt.Errorf("api code %d: %s", res.Code, res.Msg)))
	}

	verdict := domain.ProviderVerdict{
		Provider: name,
		Category: domain.CategoryNone,
		Raw:      string(raw),
	}
	for _, data := range res.Data {
		for _, result := range data.Results {
			if result.Suggestion != "block" && result.Suggestion != "review" {
				continue
			}
			confidence := result.Rate / 100
			if confidence > verdict.Confidence {
				verdict.Matched = true
				verdict.Confidence = confidence
				verdict.Category = aliyunCategory(result.Label)
			}
		}
	}
	log.Debug("Aliyun classification",
		"provider", name,
		"matched", verdict.Matched,
		"category", verdict.Category,
		"confidence", verdict.Confidence)
	return verdict
}

func aliyunCategory(label string) domain.Category {
	switch label {
	case "porn", "sexy":
		return domain.CategoryPorn
	case "politics", "terrorism":
		return domain.CategoryPolitics
	case "abuse":
		return domain.CategoryAbuse
	case "spam", "ad", "contraband":
		return domain.CategorySpam
	default:
		return domain.CategoryOther
	}
}
