package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Telegram struct {
	TelegramAPIToken string        `env:"TELEGRAM_APITOKEN,required"`
	UpdateTimeout    int           `yaml:"update_timeout" env:"TELEGRAM_UPDATE_TIMEOUT" env-default:"60"`
	FileFetchTimeout time.Duration `yaml:"file_fetch_timeout" env:"TELEGRAM_FILE_FETCH_TIMEOUT" env-default:"30s"`
}

type OpenAI struct {
	OpenAIAPIKey       string        `env:"OPENAI_API_KEY,required"`
	Model              string        `yaml:"model" env:"OPENAI_MODEL" env-default:"gpt-4o-mini"`
	TranscriptionModel string        `yaml:"transcription_model" env:"OPENAI_TRANSCRIPTION_MODEL" env-default:"whisper-1"`
	OpenAIBaseURL      string        `yaml:"base_url" env:"OPENAI_BASE_URL"`
	ModelTemperature   float32       `yaml:"model_temperature" env:"OPENAI_MODEL_TEMPERATURE" env-default:"0.7"`
	RequestTimeout     time.Duration `yaml:"request_timeout" env:"OPENAI_REQUEST_TIMEOUT" env-default:"60s"`
	MaxPromptTokens    int           `yaml:"max_prompt_tokens" env:"OPENAI_MAX_PROMPT_TOKENS" env-default:"3500"`
}

// Storage selects the user record backend: "memory", "redis" or "postgres".
type Storage struct {
	Kind            string `yaml:"kind" env:"STORAGE_KIND" env-default:"memory"`
	RedisEndpoint   string `yaml:"redis_endpoint" env:"REDIS_ENDPOINT"`
	PostgresConnURL string `yaml:"postgres_conn_url" env:"POSTGRES_CONN_URL"`
}

type Quota struct {
	DailyFreeLimit int `yaml:"daily_free_limit" env:"DAILY_FREE_LIMIT" env-default:"5"`
}

// Premium configures the paid tier. PaymentURL is an opaque external link;
// leaving it empty disables the purchase button.
type Premium struct {
	PaymentURL        string        `yaml:"payment_url" env:"PREMIUM_PAYMENT_URL"`
	PriceLabel        string        `yaml:"price_label" env:"PREMIUM_PRICE_LABEL" env-default:"199 RUB"`
	DurationDays      int           `yaml:"duration_days" env:"PREMIUM_DURATION_DAYS" env-default:"30"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval" env:"PREMIUM_RECONCILE_INTERVAL" env-default:"12h"`
}

// Metrics configures the prometheus listener; empty address disables it.
type Metrics struct {
	Address string `yaml:"address" env:"METRICS_ADDRESS"`
}

type Config struct {
	Telegram Telegram `yaml:"telegram"`
	OpenAI   OpenAI   `yaml:"openai"`
	Storage  Storage  `yaml:"storage"`
	Quota    Quota    `yaml:"quota"`
	Premium  Premium  `yaml:"premium"`
	Metrics  Metrics  `yaml:"metrics"`
}

func LoadConfig(cfgPath string) (*Config, error) {
	var cfg Config
	if cfgPath != "" {
		if err := cleanenv.ReadConfig(cfgPath, &cfg); err != nil {
			return nil, err
		}
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
