package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	MQ        MQConfig        `mapstructure:"mq"`
	Log       LogConfig       `mapstructure:"log"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	BaseURL         string        `mapstructure:"base_url"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig    `mapstructure:"cors"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	RateLimit       RateLimit     `mapstructure:"rate_limit"`
}

// RateLimit 排班生成接口限流（每个调用者在窗口内的最大请求数）
type RateLimit struct {
	Generate int           `mapstructure:"generate"`
	Window   time.Duration `mapstructure:"window"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig 数据库配置
// Driver 为 postgres（默认）或 sqlite；sqlite 仅用于本地开发与测试
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	SQLitePath      string `mapstructure:"sqlite_path"`
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// IsSQLite 是否使用 SQLite 驱动
func (c *DatabaseConfig) IsSQLite() bool {
	return strings.EqualFold(c.Driver, "sqlite")
}

// RedisConfig Redis 缓存配置；Addr 为空时不启用
type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	ScheduleTTL time.Duration `mapstructure:"schedule_ttl"`
}

// MQConfig RabbitMQ 配置；URL 为空时不发布事件
type MQConfig struct {
	URL   string `mapstructure:"url"`
	Queue string `mapstructure:"queue"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SchedulerConfig 排班引擎配置
type SchedulerConfig struct {
	// AllowQuotaOverflow 无可用人选时是否允许超出周配额（默认关闭）
	AllowQuotaOverflow bool `mapstructure:"allow_quota_overflow"`
	// ShiftSlots 班次默认配置，数据库无班次时使用（CLI / 首次部署）
	ShiftSlots []ShiftSlotConfig `mapstructure:"shift_slots"`
	// GenerateTimeout 单次排班（含持久化）的超时时间
	GenerateTimeout time.Duration `mapstructure:"generate_timeout"`
	// Timezone 店铺所在时区，班次起止时间按此解释（日历导出）
	Timezone string `mapstructure:"timezone"`
}

// Location 解析店铺时区；Validate 已保证可解析
func (c *SchedulerConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ShiftSlotConfig 单个班次配置
type ShiftSlotConfig struct {
	Name      string `mapstructure:"name"`
	StartTime string `mapstructure:"start_time"`
	EndTime   string `mapstructure:"end_time"`
}

// DefaultShiftSlots 店铺默认三班：早班 / 中班 / 晚班
func DefaultShiftSlots() []ShiftSlotConfig {
	return []ShiftSlotConfig{
		{Name: "morning", StartTime: "09:00", EndTime: "16:30"},
		{Name: "middle", StartTime: "13:00", EndTime: "20:30"},
		{Name: "late", StartTime: "15:00", EndTime: "22:30"},
	}
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > .env > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.rate_limit.generate", 5)
	v.SetDefault("server.rate_limit.window", "1m")

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "kgag_scheduler")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.sqlite_path", "kgag_scheduler.db")
	v.SetDefault("db.auto_migrate", true)
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)  // 60分钟
	v.SetDefault("db.conn_max_idle_time", 30) // 30分钟

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.schedule_ttl", "24h")

	v.SetDefault("mq.url", "")
	v.SetDefault("mq.queue", "schedule_events")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("scheduler.allow_quota_overflow", false)
	v.SetDefault("scheduler.generate_timeout", "30s")
	v.SetDefault("scheduler.timezone", "UTC")

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
	v.SetEnvPrefix("KGAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if len(cfg.Scheduler.ShiftSlots) == 0 {
		cfg.Scheduler.ShiftSlots = DefaultShiftSlots()
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
	switch strings.ToLower(c.Database.Driver) {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("配置校验失败: db.driver 仅支持 postgres / sqlite，当前为 %q", c.Database.Driver)
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("配置校验失败: scheduler.timezone %q 无效", c.Scheduler.Timezone)
	}
	seen := make(map[string]bool, len(c.Scheduler.ShiftSlots))
	for i, s := range c.Scheduler.ShiftSlots {
		if s.Name == "" {
			return fmt.Errorf("配置校验失败: scheduler.shift_slots[%d].name 不能为空", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("配置校验失败: 班次名称 %q 重复", s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}
