package config

import (
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix 环境变量前缀，例如 NETMODIFIER_LOG_LEVEL
const EnvPrefix = "NETMODIFIER"

// Config 配置文件结构体
type Config struct {
	Version string        `yaml:"version" mapstructure:"version"`
	Sqlite  SqliteConfig  `yaml:"sqlite" mapstructure:"sqlite"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Browser BrowserConfig `yaml:"browser" mapstructure:"browser"`
	Regex   RegexConfig   `yaml:"regex" mapstructure:"regex"`
	Compat  CompatConfig  `yaml:"compat" mapstructure:"compat"`
	Audit   AuditConfig   `yaml:"audit" mapstructure:"audit"`
}

// SqliteConfig 规则存储数据库
type SqliteConfig struct {
	Db     string `yaml:"db" mapstructure:"db"`
	Prefix string `yaml:"prefix" mapstructure:"prefix"`
}

// LogConfig 日志
type LogConfig struct {
	Level  string   `yaml:"level" mapstructure:"level"`
	Writer []string `yaml:"writer" mapstructure:"writer"`
	File   string   `yaml:"file" mapstructure:"file"`
}

// ServerConfig 设置面板 HTTP 接口
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// BrowserConfig 浏览器连接
type BrowserConfig struct {
	DevToolsURL string `yaml:"devtools-url" mapstructure:"devtools-url"`
	// PollIntervalMS 刷新页面目标列表的周期
	PollIntervalMS int `yaml:"poll-interval-ms" mapstructure:"poll-interval-ms"`
}

// RegexConfig 正则执行参数
type RegexConfig struct {
	CacheSize      int `yaml:"cache-size" mapstructure:"cache-size"`
	MatchTimeoutMS int `yaml:"match-timeout-ms" mapstructure:"match-timeout-ms"`
}

// AuditConfig 导航记录
type AuditConfig struct {
	Enabled  bool `yaml:"enabled" mapstructure:"enabled"`
	Capacity int  `yaml:"capacity" mapstructure:"capacity"`
}

// CompatConfig 兼容开关，默认保持原有行为，开启后走修正后的逻辑
type CompatConfig struct {
	// SkipDisabled 编译和导航拦截时跳过 disable 的规则
	SkipDisabled bool `yaml:"skip-disabled" mapstructure:"skip-disabled"`
	// FilterFromVariant 修改类规则的 urlFilter 条件取自 urlFilter 字段
	FilterFromVariant bool `yaml:"filter-from-variant" mapstructure:"filter-from-variant"`
	// SubstituteNavigatedURL 占位符替换以实际导航 URL 为匹配对象
	SubstituteNavigatedURL bool `yaml:"substitute-navigated-url" mapstructure:"substitute-navigated-url"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Version: "1.0.0",
		Sqlite: SqliteConfig{
			Db:     "data.db",
			Prefix: "netmodifier_",
		},
		Log: LogConfig{
			Level: "info",
			// file需要在console之前，保证文件日志不受控制台输出影响
			Writer: []string{"file", "console"},
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:7789",
		},
		Browser: BrowserConfig{
			DevToolsURL:    "",
			PollIntervalMS: 2000,
		},
		Regex: RegexConfig{
			CacheSize:      256,
			MatchTimeoutMS: 200,
		},
		Audit: AuditConfig{
			Enabled:  true,
			Capacity: 100,
		},
	}
}

// SetDefaults 把默认配置写入 viper，作为文件与环境变量之下的兜底
func SetDefaults(v *viper.Viper) {
	d := NewConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault("sqlite.db", d.Sqlite.Db)
	v.SetDefault("sqlite.prefix", d.Sqlite.Prefix)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.writer", d.Log.Writer)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("browser.devtools-url", d.Browser.DevToolsURL)
	v.SetDefault("browser.poll-interval-ms", d.Browser.PollIntervalMS)
	v.SetDefault("regex.cache-size", d.Regex.CacheSize)
	v.SetDefault("regex.match-timeout-ms", d.Regex.MatchTimeoutMS)
	v.SetDefault("audit.enabled", d.Audit.Enabled)
	v.SetDefault("audit.capacity", d.Audit.Capacity)
	v.SetDefault("compat.skip-disabled", false)
	v.SetDefault("compat.filter-from-variant", false)
	v.SetDefault("compat.substitute-navigated-url", false)
}

// Load 读取配置文件（可为空）与环境变量
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := NewConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// YAML 以配置文件格式输出
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
