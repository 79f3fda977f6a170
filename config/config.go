package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Optimizer OptimizerConfig `mapstructure:"optimizer"`
	Grid      GridConfig      `mapstructure:"grid"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Planner   PlannerConfig   `mapstructure:"planner"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port      int        `mapstructure:"port"`
	BodyLimit int64      `mapstructure:"body_limit"` // 字节
	CORS      CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 分钟
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 分钟
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// OptimizerConfig 远程排课优化服务配置
type OptimizerConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	SubmitRateLimit  int           `mapstructure:"submit_rate_limit"`
	SubmitRateWindow time.Duration `mapstructure:"submit_rate_window"`
	StatusCacheTTL   time.Duration `mapstructure:"status_cache_ttl"`
}

// GridConfig 课表网格配置
type GridConfig struct {
	StartHour  int `mapstructure:"start_hour"`
	EndHour    int `mapstructure:"end_hour"`
	HourHeight int `mapstructure:"hour_height"` // 每小时像素
}

// CatalogConfig 课程目录配置
type CatalogConfig struct {
	Path       string `mapstructure:"path"`        // 启动时导入的 CSV/XLSX 文件
	AutoImport bool   `mapstructure:"auto_import"` // 数据库为空时才导入
}

// PlannerConfig 选课配置
type PlannerConfig struct {
	DefaultTargetCredits float64 `mapstructure:"default_target_credits"`
	SemesterStart        string  `mapstructure:"semester_start"` // YYYY-MM-DD，ICS 导出锚点
	ToggleRetries        int     `mapstructure:"toggle_retries"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.body_limit", 10<<20)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:3000"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "lecture_planner")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Seoul")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("optimizer.base_url", "http://localhost:8001/api")
	v.SetDefault("optimizer.poll_interval", "1s")
	v.SetDefault("optimizer.request_timeout", "15s")
	v.SetDefault("optimizer.submit_rate_limit", 5)
	v.SetDefault("optimizer.submit_rate_window", "1m")
	v.SetDefault("optimizer.status_cache_ttl", "24h")

	v.SetDefault("grid.start_hour", 8)
	v.SetDefault("grid.end_hour", 20)
	v.SetDefault("grid.hour_height", 60)

	v.SetDefault("catalog.path", "")
	v.SetDefault("catalog.auto_import", true)

	v.SetDefault("planner.default_target_credits", 18)
	v.SetDefault("planner.semester_start", "2025-03-03")
	v.SetDefault("planner.toggle_retries", 3)

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("PLANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Grid.StartHour < 0 || c.Grid.EndHour > 24 || c.Grid.StartHour >= c.Grid.EndHour {
		return fmt.Errorf("配置校验失败: grid.start_hour 必须小于 grid.end_hour 且位于 0-24 之间")
	}
	if c.Grid.HourHeight <= 0 {
		return fmt.Errorf("配置校验失败: grid.hour_height 必须为正数")
	}
	if strings.TrimSpace(c.Optimizer.BaseURL) == "" {
		return fmt.Errorf("配置校验失败: optimizer.base_url 不能为空")
	}
	if c.Optimizer.PollInterval <= 0 {
		return fmt.Errorf("配置校验失败: optimizer.poll_interval 必须为正数")
	}
	if c.Planner.DefaultTargetCredits <= 0 {
		return fmt.Errorf("配置校验失败: planner.default_target_credits 必须为正数")
	}
	if _, err := time.Parse("2006-01-02", c.Planner.SemesterStart); err != nil {
		return fmt.Errorf("配置校验失败: planner.semester_start 格式应为 YYYY-MM-DD: %w", err)
	}
	return nil
}
