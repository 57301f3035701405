package censor

import (
	"censor-lab/domain"
	"censor-lab/errors"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// TencentConfig holds credentials for the Tencent image moderation service.
type TencentConfig struct {
	SecretID  string
	SecretKey string
	Endpoint  string
	Timeout   time.Duration
}

type tencentResponse struct {
	Response struct {
		Suggestion string  `json:"Suggestion"`
		Label      string  `json:"Label"`
		Score      float64 `json:"Score"`
		Error      *struct {
			Code    string `json:"Code"`
			Message string `json:"Message"`
		} `json:"Error"`
	} `json:"Response"`
}

// TencentImageProvider accepts both image URLs and inline base64 payloads,
// unlike the Aliyun image family which is URL-only.
type TencentImageProvider struct {
	cfg    TencentConfig
	client *http.Client
	policy RetryPolicy
	log    *slog.Logger
}

func NewTencentImageProvider(cfg TencentConfig, policy RetryPolicy, log *slog.Logger) *TencentImageProvider {
	return &TencentImageProvider{cfg: cfg, client: newHTTPClient(cfg.Timeout), policy: policy, log: log}
}

func (p *TencentImageProvider) Name() string { return "tencent-image" }

func (p *TencentImageProvider) Capabilities() []domain.ContentKind {
	return []domain.ContentKind{domain.KindImageURL, domain.KindImageBase64}
}

func (p *TencentImageProvider) Classify(ctx context.Context, item domain.ContentItem) domain.ProviderVerdict {
	payload := map[string]any{}
	switch item.Kind {
	case domain.KindImageURL:
		payload["FileUrl"] = item.Payload
	case domain.KindImageBase64:
		payload["FileContent"] = item.Payload
	}

	headers := map[string]string{
		"X-TC-Action":  "ImageModeration",
		"X-TC-Version": "2020-12-29",
		"X-TC-Secret":  p.cfg.SecretID + ":" + p.cfg.SecretKey,
	}

	var raw []byte
	err := p.policy.do(ctx, func(ctx context.Context) error {
		var callErr error
		raw, callErr = postJSON(ctx, p.client, p.Name(), p.cfg.Endpoint, headers, payload)
		return callErr
	})
	if err != nil {
		return failedVerdict(p.Name(), err)
	}

	var res tencentResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return failedVerdict(p.Name(), errors.NewProviderError(p.Name(), errors.FailureProtocol, err))
	}
	if res.Response.Error != nil {
		kind := errors.FailureProtocol
		if strings.HasPrefix(res.Response.Error.Code, "AuthFailure") {
			kind = errors.FailureAuth
		}
		return failedVerdict(p.Name(), errors.NewProviderError(p.Name(), kind,
			&tencentAPIError{code: res.Response.Error.Code, message: res.Response.Error.Message}))
	}

	verdict := domain.ProviderVerdict{
		Provider: p.Name(),
		Category: domain.CategoryNone,
		Raw:      string(raw),
	}
	if res.Response.Suggestion == "Block" || res.Response.Suggestion == "Review" {
		verdict.Matched = true
		verdict.Confidence = res.Response.Score / 100
		verdict.Category = tencentCategory(res.Response.Label)
	}
	p.log.Debug("Tencent classification",
		"suggestion", res.Response.Suggestion,
		"label", res.Response.Label,
		"confidence", verdict.Confidence)
	return verdict
}

type tencentAPIError struct {
	code    string
	message string
}

func (e *tencentAPIError) Error() string {
	return "tencent api error " + e.code + ": " + e.message
}

func tencentCategory(label string) domain.Category {
	switch label {
	case "Porn", "Sexy":
		return domain.CategoryPorn
	case "Polity", "Illegal":
		return domain.CategoryPolitics
	case "Abuse":
		return domain.CategoryAbuse
	case "Ad", "Spam":
		return domain.CategorySpam
	default:
		return domain.CategoryOther
	}
}
