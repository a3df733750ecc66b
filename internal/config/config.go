package config

import (
	"os"
	"strconv"
	"time"
)

// Config electrohub-protection（HTTP API）配置
type Config struct {
	HTTP struct {
		Addr string
	}
	DBEnabled bool
	Database  DatabaseConfig
	Redis     struct {
		Addr     string
		Password string
		DB       int
	}
	Log struct {
		Level  string
		Format string
	}
	Assist AssistConfig
	Cache  struct {
		TTL time.Duration // 检查/曲线响应缓存时长
	}
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return "host=" + c.Host +
		" port=" + strconv.Itoa(c.Port) +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Database +
		" sslmode=" + c.SSLMode
}

// AssistConfig AI 辅助填充服务配置（可选的外部协作方）
type AssistConfig struct {
	Enabled bool
	BaseURL string // AI 服务地址
	Timeout time.Duration
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8086")

	// Default to true for local dev: if DB is unavailable, the service falls back to
	// in-memory repositories so the dashboard pages still respond.
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "electrohub")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	// AI 辅助填充（默认关闭；核心计算不依赖该服务）
	cfg.Assist.Enabled = getEnv("ASSIST_ENABLED", "false") == "true"
	cfg.Assist.BaseURL = getEnv("ASSIST_BASE_URL", "http://localhost:8089")
	cfg.Assist.Timeout = time.Duration(parseInt(getEnv("ASSIST_TIMEOUT_S", "15"), 15)) * time.Second

	cfg.Cache.TTL = time.Duration(parseInt(getEnv("CACHE_TTL_S", "600"), 600)) * time.Second

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
