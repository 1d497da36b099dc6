package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string   `yaml:"environment" default:"dev" validate:"required"`
	Assets      []string `yaml:"assets" validate:"min=1,dive,required"`

	Log struct {
		Level      string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format     string `yaml:"format" default:"console" validate:"oneof=json console"`
		Output     string `yaml:"output" default:"stdout"`
		MaxSizeMB  int    `yaml:"max_size_mb" default:"50"`
		MaxBackups int    `yaml:"max_backups" default:"5"`
		MaxAgeDays int    `yaml:"max_age_days" default:"14"`
	} `yaml:"log"`

	Server struct {
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"180s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		FeedInterval    time.Duration `yaml:"feed_interval" default:"5s"`
		AnalyzeRPS      float64       `yaml:"analyze_rps" default:"0.05"`
		AnalyzeBurst    int           `yaml:"analyze_burst" default:"2"`
		CORSOrigins     []string      `yaml:"cors_origins"`
	} `yaml:"server"`

	Collector struct {
		InfoURL        string        `yaml:"info_url" default:"https://api.hyperliquid.xyz/info" validate:"url"`
		PollInterval   time.Duration `yaml:"poll_interval" default:"60s"`
		RequestTimeout time.Duration `yaml:"request_timeout" default:"15s"`
		RateLimitRPS   float64       `yaml:"rate_limit_rps" default:"8"`
		RateLimitBurst int           `yaml:"rate_limit_burst" default:"4"`
		BookSigFigs    int           `yaml:"book_sig_figs" default:"5"`
		Lookback       struct {
			Bars15m int `yaml:"bars_15m" default:"20"`
			Bars1h  int `yaml:"bars_1h" default:"24"`
			Bars4h  int `yaml:"bars_4h" default:"30"`
			Bars1d  int `yaml:"bars_1d" default:"7"`
		} `yaml:"lookback"`
	} `yaml:"collector"`

	Features struct {
		ATRPeriod      int     `yaml:"atr_period" default:"14" validate:"gte=1"`
		IntradayWindow int     `yaml:"intraday_window" default:"20" validate:"gte=1"`
		SnapshotWindow int     `yaml:"snapshot_window" default:"60" validate:"gte=1"`
		LargeMovePct   float64 `yaml:"large_move_pct" default:"1.0" validate:"gt=0"`
	} `yaml:"features"`

	Risk struct {
		EquityUSD          float64 `yaml:"equity_usd" default:"10000" validate:"gt=0"`
		MaxRiskPerTradePct float64 `yaml:"max_risk_per_trade_pct" default:"1.0" validate:"gt=0,lte=100"`
		MaxTotalRiskPct    float64 `yaml:"max_total_risk_pct" default:"2.0" validate:"gt=0,lte=100"`
		MinLeverage        int     `yaml:"min_leverage" default:"1" validate:"gte=1"`
		MaxLeverage        int     `yaml:"max_leverage" default:"6" validate:"gte=1"`
		MarginBudgetPct    float64 `yaml:"margin_budget_pct" default:"50" validate:"gt=0,lte=100"`
		MinRewardRisk      float64 `yaml:"min_reward_risk" default:"1.5" validate:"gte=0"`
	} `yaml:"risk"`

	LLM struct {
		Provider     string        `yaml:"provider" default:"openai" validate:"oneof=openai anthropic"`
		Model        string        `yaml:"model" default:"gpt-4o-mini" validate:"required"`
		Temperature  float64       `yaml:"temperature" default:"0.1" validate:"gte=0,lte=2"`
		MaxTokens    int           `yaml:"max_tokens" default:"4000" validate:"gte=1"`
		Timeout      time.Duration `yaml:"timeout" default:"120s"`
		OpenAIKey    string        `yaml:"openai_api_key"`
		OpenAIURL    string        `yaml:"openai_url" default:"https://api.openai.com/v1/chat/completions"`
		AnthropicKey string        `yaml:"anthropic_api_key"`
		AnthropicURL string        `yaml:"anthropic_url" default:"https://api.anthropic.com/v1/messages"`
		Breaker      struct {
			MaxFailures uint32        `yaml:"max_failures" default:"3"`
			OpenTimeout time.Duration `yaml:"open_timeout" default:"60s"`
		} `yaml:"breaker"`
	} `yaml:"llm"`

	Analysis struct {
		Cooldown      time.Duration `yaml:"cooldown" default:"30m"`
		MaxSignals    int           `yaml:"max_signals" default:"30"`
		LockTTL       time.Duration `yaml:"lock_ttl" default:"5m"`
		StateCacheTTL time.Duration `yaml:"state_cache_ttl" default:"60s"`
		ResizeOnScale bool          `yaml:"resize_on_total_scale"`
	} `yaml:"analysis"`

	Storage struct {
		SnapshotDB  string `yaml:"snapshot_db" default:"data/snapshots.db"`
		SignalLog   string `yaml:"signal_log" default:"logs/signals.jsonl"`
		AnalysisLog string `yaml:"analysis_log" default:"logs/llm_outputs.jsonl"`
	} `yaml:"storage"`

	Cache struct {
		Backend string `yaml:"backend" default:"memory" validate:"oneof=memory redis"`
		Redis   struct {
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"perpdesk"`
		} `yaml:"redis"`
		MemoryMaxSize int `yaml:"memory_max_size" default:"1000"`
	} `yaml:"cache"`

	Kafka struct {
		Enabled       bool     `yaml:"enabled"`
		Brokers       []string `yaml:"brokers"`
		SignalTopic   string   `yaml:"signal_topic" default:"perpdesk.signals"`
		AnalysisTopic string   `yaml:"analysis_topic" default:"perpdesk.analyses"`
		RequiredAcks  int      `yaml:"required_acks" default:"-1"`
		Compression   string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		Producer      struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"200ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`

	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"perpdesk"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
		MaxOpenConns     int           `yaml:"max_open_conns" default:"4" validate:"gte=1"`
		MaxIdleConns     int           `yaml:"max_idle_conns" default:"2" validate:"gte=0"`
	} `yaml:"clickhouse"`
}

var validate = validator.New()

// Default returns a configuration populated only from struct defaults.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	c.Assets = []string{"BTC", "ETH"}
	c.Server.CORSOrigins = []string{"http://localhost:3000"}
	return &c
}

// Load reads and parses a YAML configuration file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	c := Default()

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("ASSETS"); v != "" {
		c.Assets = splitList(v, true)
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.LLM.OpenAIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.LLM.AnthropicKey = v
	}
	if v := os.Getenv("HL_INFO_URL"); v != "" {
		c.Collector.InfoURL = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.Storage.SnapshotDB = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v, false)
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v, false)
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Cache.Backend = "redis"
		c.Cache.Redis.Host = host
		if ok {
			p, err := strconv.Atoi(port)
			if err != nil {
				return fmt.Errorf("env REDIS_ADDR: %w", err)
			}
			c.Cache.Redis.Port = p
		}
	}

	floats := map[string]*float64{
		"ACCOUNT_EQUITY":         &c.Risk.EquityUSD,
		"MAX_RISK_PER_TRADE_PCT": &c.Risk.MaxRiskPerTradePct,
		"MAX_TOTAL_RISK_PCT":     &c.Risk.MaxTotalRiskPct,
		"LLM_TEMPERATURE":        &c.LLM.Temperature,
	}
	for key, dst := range floats {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("env %s: %w", key, err)
			}
			*dst = f
		}
	}

	ints := map[string]*int{
		"MIN_LEVERAGE":   &c.Risk.MinLeverage,
		"MAX_LEVERAGE":   &c.Risk.MaxLeverage,
		"LLM_MAX_TOKENS": &c.LLM.MaxTokens,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("env %s: %w", key, err)
			}
			*dst = n
		}
	}

	if v := os.Getenv("POLL_INTERVAL_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("env POLL_INTERVAL_SECONDS: %w", err)
		}
		c.Collector.PollInterval = time.Duration(n) * time.Second
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}
	if c.Risk.MinLeverage > c.Risk.MaxLeverage {
		return fmt.Errorf("risk.min_leverage (%d) exceeds risk.max_leverage (%d)", c.Risk.MinLeverage, c.Risk.MaxLeverage)
	}
	if c.Risk.MaxRiskPerTradePct > c.Risk.MaxTotalRiskPct {
		return fmt.Errorf("risk.max_risk_per_trade_pct (%.2f) exceeds risk.max_total_risk_pct (%.2f)", c.Risk.MaxRiskPerTradePct, c.Risk.MaxTotalRiskPct)
	}
	if c.Collector.PollInterval < time.Second {
		return fmt.Errorf("collector.poll_interval must be at least 1s, got %s", c.Collector.PollInterval)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}

// LLMAPIKey returns the key for the configured provider.
func (c *Config) LLMAPIKey() string {
	if c.LLM.Provider == "anthropic" {
		return c.LLM.AnthropicKey
	}
	return c.LLM.OpenAIKey
}

func splitList(v string, upper bool) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if upper {
			p = strings.ToUpper(p)
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
