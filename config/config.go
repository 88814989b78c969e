package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Payment      PaymentConfig      `mapstructure:"payment"`
	Telegram     TelegramConfig     `mapstructure:"telegram"`
	Expiry       ExpiryConfig       `mapstructure:"expiry"`
	Cron         CronConfig         `mapstructure:"cron"`
	Alert        AlertConfig        `mapstructure:"alert"`
	Notification NotificationConfig `mapstructure:"notification"`
	CORS         CORSConfig         `mapstructure:"cors"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // mysql, postgres, sqlite
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	SSLMode      string `mapstructure:"ssl_mode"`
	Path         string `mapstructure:"path"` // sqlite 文件路径
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type PaymentConfig struct {
	Provider         string `mapstructure:"provider"` // razorpay, stripe
	KeyID            string `mapstructure:"key_id"`
	KeySecret        string `mapstructure:"key_secret"`
	StripeSecretKey  string `mapstructure:"stripe_secret_key"`
	StripePublicKey  string `mapstructure:"stripe_public_key"`
	BaseURL          string `mapstructure:"base_url"` // 仅 Stripe 使用，指向自定义后端
	Currency         string `mapstructure:"currency"`
	MinorUnitFactor  int64  `mapstructure:"minor_unit_factor"` // 1 单位对应的最小货币单位数量，INR 为 100
	TimeoutSeconds   int    `mapstructure:"timeout_seconds"`
	AllowedDurations []int  `mapstructure:"allowed_durations"`
}

type TelegramConfig struct {
	BotToken          string `mapstructure:"bot_token"`
	APIBaseURL        string `mapstructure:"api_base_url"`
	TimeoutSeconds    int    `mapstructure:"timeout_seconds"`
	RetryMaxElapsedMs int    `mapstructure:"retry_max_elapsed_ms"`
}

type ExpiryConfig struct {
	IntervalMinutes int  `mapstructure:"interval_minutes"`
	LockTTLSeconds  int  `mapstructure:"lock_ttl_seconds"`
	UseLock         bool `mapstructure:"use_lock"`
	RunOnStart      bool `mapstructure:"run_on_start"`
	Enabled         bool `mapstructure:"enabled"`
}

type CronConfig struct {
	Secret string `mapstructure:"secret"`
}

type AlertConfig struct {
	DedupWindowMinutes int    `mapstructure:"dedup_window_minutes"`
	RealtimeChannel    string `mapstructure:"realtime_channel"`
	WSWriteTimeoutSec  int    `mapstructure:"ws_write_timeout_seconds"`
}

type NotificationConfig struct {
	Mode      string `mapstructure:"mode"` // direct, queue
	QueueName string `mapstructure:"queue_name"`
	Workers   int    `mapstructure:"workers"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

func Load(configPath string) (*Config, error) {
	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	setDefaults(v)

	// 环境变量覆盖
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// CRON_SECRET 沿用部署平台的约定变量名
	if cfg.Cron.Secret == "" {
		cfg.Cron.Secret = os.Getenv("CRON_SECRET")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("payment.provider", "razorpay")
	v.SetDefault("payment.currency", "INR")
	v.SetDefault("payment.minor_unit_factor", 100)
	v.SetDefault("payment.timeout_seconds", 10)
	v.SetDefault("payment.allowed_durations", []int{30, 90, 180, 365})
	v.SetDefault("telegram.api_base_url", "https://api.telegram.org")
	v.SetDefault("telegram.timeout_seconds", 5)
	v.SetDefault("telegram.retry_max_elapsed_ms", 3000)
	v.SetDefault("expiry.enabled", true)
	v.SetDefault("expiry.interval_minutes", 60)
	v.SetDefault("expiry.lock_ttl_seconds", 300)
	v.SetDefault("alert.dedup_window_minutes", 10)
	v.SetDefault("alert.realtime_channel", "trade_alerts")
	v.SetDefault("alert.ws_write_timeout_seconds", 10)
	v.SetDefault("notification.mode", "direct")
	v.SetDefault("notification.queue_name", "notification_jobs")
	v.SetDefault("notification.workers", 2)
	v.SetDefault("metrics.path", "/metrics")
}

// Timeout 支付网关调用超时，未配置时为 10 秒
func (c *PaymentConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Timeout Telegram 单次调用超时，未配置时为 5 秒
func (c *TelegramConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DedupWindow 相同内容提醒的去重窗口
func (c *AlertConfig) DedupWindow() time.Duration {
	if c.DedupWindowMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.DedupWindowMinutes) * time.Minute
}

// Factor 最小货币单位换算系数，未配置时按 100 处理
func (c *PaymentConfig) Factor() int64 {
	if c.MinorUnitFactor <= 0 {
		return 100
	}
	return c.MinorUnitFactor
}

// DurationAllowed 检查时长是否在允许的集合中
func (c *PaymentConfig) DurationAllowed(days int) bool {
	allowed := c.AllowedDurations
	if len(allowed) == 0 {
		allowed = []int{30, 90, 180, 365}
	}
	for _, d := range allowed {
		if d == days {
			return true
		}
	}
	return false
}
