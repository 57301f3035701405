package internal

import (
	"bufio"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type Config struct {
	LogLevel        string        `env:"LOG_LEVEL,required=true"`
	BadgerFilepath  string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath   string        `env:"BLUGE_FILEPATH,required=true"`
	RulesFilepath   string        `env:"RULES_FILEPATH"`
	RulesStrict     bool          `env:"RULES_STRICT,default=false"`
	CaseSensitive   bool          `env:"CASE_SENSITIVE_MATCHING,default=false"`
	EnableBlacklist bool          `env:"ENABLE_BLACKLIST,default=true"`
	BufferSize      int           `env:"BUFFER_SIZE,required=true" validate:"gt=0"`
	NumberOfWorkers int           `env:"NUMBER_OF_WORKERS,required=true" validate:"gt=0"`
	AuditPageSize   int           `env:"AUDIT_PAGE_SIZE,default=50" validate:"gt=0"`
	SinkTimeout     time.Duration `env:"SINK_TIMEOUT,required=true"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,required=true"`
	MetricInterval  time.Duration `env:"METRIC_INTERVAL,required=true"`

	// Moderation knobs.
	EvaluationTimeout     time.Duration `env:"EVALUATION_TIMEOUT,required=true"`
	WordSyncInterval      time.Duration `env:"WORD_SYNC_INTERVAL,default=30s"`
	ShortCircuitThreshold float64       `env:"SHORT_CIRCUIT_THRESHOLD,default=2" validate:"gt=0"`
	ProviderRetries       uint64        `env:"PROVIDER_RETRIES,default=2"`
	ProviderRetryBackoff  time.Duration `env:"PROVIDER_RETRY_BACKOFF,default=200ms"`
	ProviderTimeout       time.Duration `env:"PROVIDER_TIMEOUT,default=10s"`
	PolicyTable           string        `env:"POLICY_TABLE,required=true"`
	MuteDuration          time.Duration `env:"MUTE_DURATION,default=10m"`

	// Providers, in aggregation order. Comma-separated subset of:
	// aliyun-text, aliyun-image, tencent-image, llm.
	Providers string `env:"PROVIDERS"`

	AliyunKeyID         string `env:"ALIYUN_KEY_ID"`
	AliyunKeySecret     string `env:"ALIYUN_KEY_SECRET"`
	AliyunTextEndpoint  string `env:"ALIYUN_TEXT_ENDPOINT"`
	AliyunImageEndpoint string `env:"ALIYUN_IMAGE_ENDPOINT"`

	TencentSecretID  string `env:"TENCENT_SECRET_ID"`
	TencentSecretKey string `env:"TENCENT_SECRET_KEY"`
	TencentEndpoint  string `env:"TENCENT_ENDPOINT"`

	LLMBaseURL string `env:"LLM_BASE_URL"`
	LLMAPIKey  string `env:"LLM_API_KEY"`
	LLMModel   string `env:"LLM_MODEL"`
}

func (c Config) Validate() error {
	return validate.Struct(c)
}

// ProviderNames returns the configured provider order.
func (c Config) ProviderNames() []string {
	var names []string
	for _, name := range strings.Split(c.Providers, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// LoadRuleStrings reads one rule expression per line; blank lines and '#'
// comments are skipped.
func LoadRuleStrings(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}
