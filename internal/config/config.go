package config

import (
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"sevaflow/internal/catalog"
	"sevaflow/internal/domain"

	"gopkg.in/yaml.v3"
)

const defaultExternalHTTPTimeout = 90 * time.Second
const defaultExternalHTTPTimeoutSeconds = int(defaultExternalHTTPTimeout / time.Second)

const (
	defaultClassifierTimeoutSeconds = 30
	defaultFallbackConfidence       = 0.5
	defaultOllamaURL                = "http://localhost:11434"
	defaultOllamaModel              = "qwen2.5:7b-instruct"
	defaultOpenAIBaseURL            = "https://api.openai.com/v1"
	defaultOpenAIModel              = "gpt-4o-mini"
	defaultAnthropicModel           = "claude-sonnet-4-5-20250929"
)

var knownBackends = map[string]bool{
	"ollama":    true,
	"openai":    true,
	"anthropic": true,
}

type Config struct {
	SlackBotToken   string   `yaml:"slack_bot_token"`
	SlackAppToken   string   `yaml:"slack_app_token"`
	ManagerSlackIDs []string `yaml:"manager_slack_ids"`

	// ClassifierBackends is tried in order; "none" disables model classification.
	ClassifierBackends       []string `yaml:"classifier_backends"`
	ClassifierTimeoutSeconds int      `yaml:"classifier_timeout_seconds"`
	FallbackConfidence       float64  `yaml:"fallback_confidence"`

	OllamaURL       string `yaml:"ollama_url"`
	OllamaModel     string `yaml:"ollama_model"`
	OpenAIBaseURL   string `yaml:"openai_base_url"`
	OpenAIModel     string `yaml:"openai_model"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	AnthropicModel  string `yaml:"anthropic_model"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`

	Departments       []catalog.Department     `yaml:"departments"`
	DefaultDepartment string                   `yaml:"default_department"`
	UrgencyKeywords   *catalog.UrgencyKeywords `yaml:"urgency_keywords"`
	IssueLabels       []catalog.IssueLabel     `yaml:"issue_labels"`

	DBPath                     string `yaml:"db_path"`
	ExternalHTTPTimeoutSeconds int    `yaml:"external_http_timeout_seconds"`
	EscalationSchedule         string `yaml:"escalation_schedule"`
	MetricsAddr                string `yaml:"metrics_addr"`
	Timezone                   string `yaml:"timezone"`

	Location *time.Location   `yaml:"-"` // computed from Timezone, not from YAML
	Catalog  *catalog.Catalog `yaml:"-"` // validated from the department fields
}

func LoadConfig() Config {
	// NaN marks fallback_confidence as unset so an explicit 0 is kept.
	cfg := Config{FallbackConfidence: math.NaN()}

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackAppToken, "SLACK_APP_TOKEN")
	envOverrideList(&cfg.ManagerSlackIDs, "MANAGER_SLACK_IDS")
	envOverrideList(&cfg.ClassifierBackends, "CLASSIFIER_BACKENDS")
	envOverrideInt(&cfg.ClassifierTimeoutSeconds, "CLASSIFIER_TIMEOUT_SECONDS")
	envOverrideFloat(&cfg.FallbackConfidence, "FALLBACK_CONFIDENCE")
	envOverride(&cfg.OllamaURL, "OLLAMA_BASE_URL")
	envOverride(&cfg.OllamaModel, "OLLAMA_MODEL")
	envOverride(&cfg.OpenAIBaseURL, "OPENAI_BASE_URL")
	envOverride(&cfg.OpenAIModel, "OPENAI_MODEL")
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverride(&cfg.AnthropicModel, "ANTHROPIC_MODEL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.DefaultDepartment, "DEFAULT_DEPARTMENT")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS")
	envOverrideAllowEmpty(&cfg.EscalationSchedule, "ESCALATION_SCHEDULE")
	envOverrideAllowEmpty(&cfg.MetricsAddr, "METRICS_ADDR")
	envOverride(&cfg.Timezone, "TIMEZONE")

	if cfg.ClassifierBackends == nil {
		cfg.ClassifierBackends = []string{"ollama"}
	}
	if cfg.ClassifierTimeoutSeconds == 0 {
		cfg.ClassifierTimeoutSeconds = defaultClassifierTimeoutSeconds
	}
	if math.IsNaN(cfg.FallbackConfidence) {
		cfg.FallbackConfidence = defaultFallbackConfidence
	}
	if cfg.OllamaURL == "" {
		cfg.OllamaURL = defaultOllamaURL
	}
	if cfg.OllamaModel == "" {
		cfg.OllamaModel = defaultOllamaModel
	}
	if cfg.OpenAIBaseURL == "" {
		cfg.OpenAIBaseURL = defaultOpenAIBaseURL
	}
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = defaultOpenAIModel
	}
	if cfg.AnthropicModel == "" {
		cfg.AnthropicModel = defaultAnthropicModel
	}
	if len(cfg.Departments) == 0 {
		cfg.Departments = catalog.DefaultDepartments()
		if cfg.DefaultDepartment == "" {
			cfg.DefaultDepartment = catalog.DefaultUnitName
		}
	}
	if cfg.UrgencyKeywords == nil {
		defaults := catalog.DefaultUrgencyKeywords()
		cfg.UrgencyKeywords = &defaults
	}
	if cfg.IssueLabels == nil {
		cfg.IssueLabels = catalog.DefaultIssueLabels()
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./sevaflow.db"
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = defaultExternalHTTPTimeoutSeconds
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}

	backends, err := normalizeBackends(cfg.ClassifierBackends)
	if err != nil {
		log.Fatalf("invalid classifier_backends: %v", err)
	}
	cfg.ClassifierBackends = backends
	for _, name := range cfg.ClassifierBackends {
		switch name {
		case "anthropic":
			if cfg.AnthropicAPIKey == "" {
				log.Fatalf("anthropic_api_key is required when classifier_backends includes anthropic")
			}
		case "openai":
			if cfg.OpenAIAPIKey == "" && cfg.OpenAIBaseURL == defaultOpenAIBaseURL {
				log.Fatalf("openai_api_key is required when classifier_backends includes openai with the default base URL")
			}
		}
	}

	cat, err := catalog.New(cfg.Departments, cfg.DefaultDepartment, *cfg.UrgencyKeywords, cfg.IssueLabels)
	if err != nil {
		log.Fatalf("invalid department configuration: %v", err)
	}
	cfg.Catalog = cat

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Fatalf("invalid timezone '%s': %v", cfg.Timezone, err)
		}
		cfg.Location = loc
	}

	if cfg.ClassifierTimeoutSeconds < 1 {
		log.Fatalf("invalid classifier_timeout_seconds '%d': must be >= 1", cfg.ClassifierTimeoutSeconds)
	}
	if err := validateFallbackConfidence(cfg.FallbackConfidence); err != nil {
		log.Fatalf("invalid fallback_confidence: %v", err)
	}
	if cfg.ExternalHTTPTimeoutSeconds < 5 {
		log.Fatalf("invalid external_http_timeout_seconds '%d': must be >= 5", cfg.ExternalHTTPTimeoutSeconds)
	}

	return cfg
}

// validateFallbackConfidence keeps rule-based results ranked below any
// model-backed result that omits its own confidence.
func validateFallbackConfidence(v float64) error {
	if v < 0 || v >= domain.DefaultModelConfidence {
		return fmt.Errorf("%v must be at least 0 and below %v", v, domain.DefaultModelConfidence)
	}
	return nil
}

// ClassifierTimeout bounds a single backend call.
func (c Config) ClassifierTimeout() time.Duration {
	return time.Duration(c.ClassifierTimeoutSeconds) * time.Second
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.SlackAppToken != ""
}

func (c Config) IsManagerID(userID string) bool {
	for _, id := range c.ManagerSlackIDs {
		if strings.TrimSpace(id) == userID {
			return true
		}
	}
	return false
}

func normalizeBackends(names []string) ([]string, error) {
	out := []string{}
	seen := make(map[string]bool)
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" || name == "none" {
			continue
		}
		if !knownBackends[name] {
			return nil, fmt.Errorf("unknown backend %q (want ollama, openai or anthropic)", raw)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out, nil
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideAllowEmpty(field *string, envKey string) {
	if val, ok := os.LookupEnv(envKey); ok {
		*field = val
	}
}

func envOverrideList(field *[]string, envKey string) {
	val := os.Getenv(envKey)
	if val == "" {
		return
	}
	*field = []string{}
	for _, item := range strings.Split(val, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			*field = append(*field, item)
		}
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideFloat(field *float64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
