package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log       Logger         `mapstructure:"logger"`
	DB        Database       `mapstructure:"database"`
	API       API            `mapstructure:"api"`
	Cache     Cache          `mapstructure:"cache"`
	Redis     Redis          `mapstructure:"redis"`
	Signal    Signal         `mapstructure:"signal"`
	Alert     Alert          `mapstructure:"alert"`
	PriceFeed ExternalAPI    `mapstructure:"price_feed"`
	Candles   Candles        `mapstructure:"candles"`
	Sentiment ExternalAPI    `mapstructure:"sentiment"`
	OnChain   OnChain        `mapstructure:"onchain"`
	Scheduler Scheduler      `mapstructure:"scheduler"`
	Telegram  TelegramConfig `mapstructure:"telegram"`
	NATS      NATS           `mapstructure:"nats"`
	Kafka     Kafka          `mapstructure:"kafka"`
}

type Logger struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type Database struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	TimeZone        string        `mapstructure:"time_zone"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SlowThreshold   time.Duration `mapstructure:"slow_threshold"`
	LogLevel        string        `mapstructure:"log_level"`
}

// DSN is the key/value connection string used by the gorm driver.
func (d Database) DSN() string {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		d.Host, d.User, d.Password, d.DBName, d.Port, d.SSLMode)
	if d.TimeZone != "" {
		dsn += " TimeZone=" + d.TimeZone
	}
	return dsn
}

// URL is the postgres:// form golang-migrate expects.
func (d Database) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.DBName,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}

type API struct {
	Port               int           `mapstructure:"port"`
	RateLimitPerSecond float64       `mapstructure:"rate_limit_per_second"`
	RateLimitBurst     int           `mapstructure:"rate_limit_burst"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
}

type Cache struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

type Redis struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// Asset maps a price-feed id to the exchange symbol used for candles.
type Asset struct {
	ID     string `mapstructure:"id"`
	Symbol string `mapstructure:"symbol"`
	Pair   string `mapstructure:"pair"`
}

type Signal struct {
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
	ComputeTimeout   time.Duration `mapstructure:"compute_timeout"`
	MaxConcurrency   int           `mapstructure:"max_concurrency"`
	DefaultTimeframe string        `mapstructure:"default_timeframe"`
	Timeframes       []string      `mapstructure:"timeframes"`
	CandleLimit      int           `mapstructure:"candle_limit"`
	Assets           []Asset       `mapstructure:"assets"`
}

type Alert struct {
	Currency       string        `mapstructure:"currency"`
	SystemOwner    string        `mapstructure:"system_owner"`
	TopAssets      []string      `mapstructure:"top_assets"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	StoreDriver    string        `mapstructure:"store_driver"`
	RetentionDays  int           `mapstructure:"retention_days"`
	FeedTimeout    time.Duration `mapstructure:"feed_timeout"`
	NotifyTimeout  time.Duration `mapstructure:"notify_timeout"`
}

type ExternalAPI struct {
	BaseURL             string        `mapstructure:"base_url"`
	APIKey              string        `mapstructure:"api_key"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	MaxRetryElapsed     time.Duration `mapstructure:"max_retry_elapsed"`
	CacheDuration       time.Duration `mapstructure:"cache_duration"`
}

type Candles struct {
	Binance   ExternalAPI `mapstructure:"binance"`
	CoinGecko ExternalAPI `mapstructure:"coingecko"`
}

type OnChain struct {
	ExternalAPI     `mapstructure:",squash"`
	SupportedAssets []string `mapstructure:"supported_assets"`
}

type Scheduler struct {
	Enabled        bool        `mapstructure:"enabled"`
	MaxConcurrency int         `mapstructure:"max_concurrency"`
	Jobs           []JobConfig `mapstructure:"jobs"`
}

type JobConfig struct {
	Name    string                 `mapstructure:"name"`
	Type    string                 `mapstructure:"type"`
	Spec    string                 `mapstructure:"spec"`
	Timeout time.Duration          `mapstructure:"timeout"`
	Payload map[string]interface{} `mapstructure:"payload"`
}

type TelegramConfig struct {
	Enabled                   bool             `mapstructure:"enabled"`
	BotToken                  string           `mapstructure:"bot_token"`
	ChatID                    int64            `mapstructure:"chat_id"`
	OwnerChats                map[string]int64 `mapstructure:"owner_chats"`
	TimeoutDuration           time.Duration    `mapstructure:"timeout_duration"`
	MaxGlobalRequestPerSecond int              `mapstructure:"max_global_request_per_second"`
}

type NATS struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type Kafka struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "signal_alert")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.log_level", "Warn")
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.slow_threshold", 200*time.Millisecond)

	v.SetDefault("api.port", 8080)
	v.SetDefault("api.rate_limit_per_second", 10)
	v.SetDefault("api.rate_limit_burst", 30)
	v.SetDefault("api.request_timeout", 30*time.Second)

	v.SetDefault("cache.default_expiration", 5*time.Minute)
	v.SetDefault("cache.cleanup_interval", 10*time.Minute)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.prefix", "signal")

	v.SetDefault("signal.cache_ttl", 5*time.Minute)
	v.SetDefault("signal.compute_timeout", 20*time.Second)
	v.SetDefault("signal.max_concurrency", 8)
	v.SetDefault("signal.default_timeframe", "1d")
	v.SetDefault("signal.timeframes", []string{"1h", "4h", "1d"})
	v.SetDefault("signal.candle_limit", 100)

	v.SetDefault("alert.currency", "eur")
	v.SetDefault("alert.system_owner", "system")
	v.SetDefault("alert.top_assets", []string{"bitcoin", "ethereum", "cardano", "solana", "polkadot"})
	v.SetDefault("alert.max_concurrency", 4)
	v.SetDefault("alert.store_driver", "postgres")
	v.SetDefault("alert.retention_days", 30)
	v.SetDefault("alert.feed_timeout", 10*time.Second)
	v.SetDefault("alert.notify_timeout", 10*time.Second)

	v.SetDefault("price_feed.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("price_feed.timeout", 10*time.Second)
	v.SetDefault("price_feed.max_request_per_minute", 30)
	v.SetDefault("price_feed.max_retry_elapsed", 15*time.Second)

	v.SetDefault("candles.binance.base_url", "https://api.binance.com")
	v.SetDefault("candles.binance.timeout", 10*time.Second)
	v.SetDefault("candles.binance.max_request_per_minute", 600)
	v.SetDefault("candles.binance.max_retry_elapsed", 10*time.Second)
	v.SetDefault("candles.coingecko.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("candles.coingecko.timeout", 10*time.Second)
	v.SetDefault("candles.coingecko.max_request_per_minute", 30)
	v.SetDefault("candles.coingecko.max_retry_elapsed", 10*time.Second)

	v.SetDefault("sentiment.base_url", "http://localhost:8081/api")
	v.SetDefault("sentiment.timeout", 5*time.Second)
	v.SetDefault("sentiment.max_request_per_minute", 60)
	v.SetDefault("sentiment.max_retry_elapsed", 5*time.Second)
	v.SetDefault("sentiment.cache_duration", 30*time.Minute)

	v.SetDefault("onchain.base_url", "http://localhost:8081/api")
	v.SetDefault("onchain.timeout", 5*time.Second)
	v.SetDefault("onchain.max_request_per_minute", 30)
	v.SetDefault("onchain.max_retry_elapsed", 5*time.Second)
	v.SetDefault("onchain.cache_duration", time.Hour)
	v.SetDefault("onchain.supported_assets", []string{"bitcoin", "ethereum"})

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.max_concurrency", 2)
	v.SetDefault("scheduler.jobs", []map[string]interface{}{
		{"name": "check-alerts", "type": "alert_trigger_check", "spec": "@every 1m", "timeout": "50s"},
		{"name": "smart-alerts", "type": "smart_alert_generator", "spec": "0 */4 * * *", "timeout": "2m"},
		{"name": "alert-clean-up", "type": "alert_clean_up", "spec": "30 3 * * *", "timeout": "1m"},
	})

	v.SetDefault("telegram.timeout_duration", 10*time.Second)
	v.SetDefault("telegram.max_global_request_per_second", 30)

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subject", "alerts.triggered")

	v.SetDefault("kafka.topic", "alerts.triggered")
	v.SetDefault("kafka.write_timeout", 10*time.Second)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigName("config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AddConfigPath(".")
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file loaded:", err)
	}

	v := newViper()
	if err := v.ReadInConfig(); err != nil {
		fmt.Println("No config file loaded:", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// AssetByID resolves an asset id against the configured registry. Unknown ids
// fall back to the id itself as symbol and <SYMBOL>USDT as trading pair.
func (s Signal) AssetByID(id string) Asset {
	for _, a := range s.Assets {
		if strings.EqualFold(a.ID, id) {
			return a
		}
	}
	symbol := strings.ToUpper(id)
	return Asset{ID: id, Symbol: symbol, Pair: symbol + "USDT"}
}
