package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "BLOBSWEEP"

type Config struct {
	Storage       StorageConfig        `mapstructure:"storage"`
	Retention     RetentionConfig      `mapstructure:"retention"`
	Server        ServerConfig         `mapstructure:"server"`
	Schedule      ScheduleConfig       `mapstructure:"schedule"`
	Redis         RedisConfig          `mapstructure:"redis"`
	Notifications []NotificationConfig `mapstructure:"notifications"`
	Log           LogConfig            `mapstructure:"log"`
}

type StorageConfig struct {
	Type     string      `mapstructure:"type"`
	PageSize int         `mapstructure:"page_size"`
	S3       S3Config    `mapstructure:"s3"`
	Local    LocalConfig `mapstructure:"local"`
}

type S3Config struct {
	Bucket       string `mapstructure:"bucket"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
	UseSSL       bool   `mapstructure:"use_ssl"`
}

type LocalConfig struct {
	Path string `mapstructure:"path"`
}

type RetentionConfig struct {
	DeleteConcurrency int     `mapstructure:"delete_concurrency"`
	DeletesPerSecond  float64 `mapstructure:"deletes_per_second"`
	// MaxAgeDays overrides the built-in thresholds, keyed by category name.
	MaxAgeDays map[string]int `mapstructure:"max_age_days"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	Mode         string        `mapstructure:"mode"`
	CronSecret   string        `mapstructure:"cron_secret"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type ScheduleConfig struct {
	Cron       string        `mapstructure:"cron"`
	DryRun     bool          `mapstructure:"dry_run"`
	RunTimeout time.Duration `mapstructure:"run_timeout"`
}

type RedisConfig struct {
	URL       string        `mapstructure:"url"`
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	History   int           `mapstructure:"history"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// Enabled reports whether a report sink was configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Addr != ""
}

type NotificationConfig struct {
	Type   string              `mapstructure:"type"`
	On     []string            `mapstructure:"on"`
	Config NotificationDetails `mapstructure:"config"`
}

type NotificationDetails struct {
	SMTPHost string            `mapstructure:"smtp_host"`
	SMTPPort int               `mapstructure:"smtp_port"`
	From     string            `mapstructure:"from"`
	To       string            `mapstructure:"to"`
	Username string            `mapstructure:"username"`
	Password string            `mapstructure:"password"`
	URL      string            `mapstructure:"url"`
	Headers  map[string]string `mapstructure:"headers"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.type", "s3")
	v.SetDefault("storage.page_size", 1000)
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key", "")
	v.SetDefault("storage.s3.secret_key", "")
	v.SetDefault("storage.s3.use_path_style", false)
	v.SetDefault("storage.s3.use_ssl", true)
	v.SetDefault("storage.local.path", "")

	v.SetDefault("retention.delete_concurrency", 8)
	v.SetDefault("retention.deletes_per_second", 0)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.cron_secret", "")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "5m")

	v.SetDefault("schedule.cron", "0 3 * * *")
	v.SetDefault("schedule.dry_run", false)
	v.SetDefault("schedule.run_timeout", "10m")

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "blobsweep")
	v.SetDefault("redis.history", 30)
	v.SetDefault("redis.ttl", "720h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// LoadConfig reads the optional config file at path, then applies .env and
// BLOBSWEEP_* environment overrides on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// CRON_SECRET is the name the scheduler platform injects.
	if err := v.BindEnv("server.cron_secret", EnvPrefix+"_SERVER_CRON_SECRET", "CRON_SECRET"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ModifyConfig(&cfg)

	return &cfg, nil
}

// ModifyConfig expands ${VAR} references in fields that usually carry secrets.
func ModifyConfig(cfg *Config) {
	st := &cfg.Storage
	st.Type = strings.ToLower(strings.TrimSpace(os.ExpandEnv(st.Type)))
	st.S3.Bucket = os.ExpandEnv(st.S3.Bucket)
	st.S3.Region = os.ExpandEnv(st.S3.Region)
	st.S3.Endpoint = os.ExpandEnv(st.S3.Endpoint)
	st.S3.AccessKey = os.ExpandEnv(st.S3.AccessKey)
	st.S3.SecretKey = os.ExpandEnv(st.S3.SecretKey)
	st.Local.Path = os.ExpandEnv(st.Local.Path)

	cfg.Server.CronSecret = os.ExpandEnv(cfg.Server.CronSecret)

	cfg.Redis.URL = os.ExpandEnv(cfg.Redis.URL)
	cfg.Redis.Addr = os.ExpandEnv(cfg.Redis.Addr)
	cfg.Redis.Password = os.ExpandEnv(cfg.Redis.Password)

	for i := range cfg.Notifications {
		nt := &cfg.Notifications[i]
		nt.Type = os.ExpandEnv(nt.Type)
		for j := range nt.On {
			nt.On[j] = os.ExpandEnv(nt.On[j])
		}
		nt.Config.SMTPHost = os.ExpandEnv(nt.Config.SMTPHost)
		nt.Config.From = os.ExpandEnv(nt.Config.From)
		nt.Config.To = os.ExpandEnv(nt.Config.To)
		nt.Config.Username = os.ExpandEnv(nt.Config.Username)
		nt.Config.Password = os.ExpandEnv(nt.Config.Password)
		nt.Config.URL = os.ExpandEnv(nt.Config.URL)
		for k, v := range nt.Config.Headers {
			nt.Config.Headers[k] = os.ExpandEnv(v)
		}
	}
}
