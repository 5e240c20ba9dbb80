package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用程序配置结构体
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Upload  UploadConfig  `mapstructure:"upload"`
	Ingest  IngestConfig  `mapstructure:"ingest"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host            string        `mapstructure:"host"`             // 服务器主机
	Port            int           `mapstructure:"port"`             // 服务器端口
	Mode            string        `mapstructure:"mode"`             // 运行模式 (debug/release)
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`     // 读取超时
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`    // 写入超时
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"` // 优雅关闭超时
}

// StorageConfig 临时存储配置
type StorageConfig struct {
	Path string `mapstructure:"path"` // 临时目录，上传文件和页面文件都在这里
}

// UploadConfig 上传限制
type UploadConfig struct {
	MaxSizeMB int64 `mapstructure:"max_size_mb"` // 单个文件最大大小(MB)
	MemoryMB  int64 `mapstructure:"memory_mb"`   // multipart解析时使用的内存上限(MB)
}

// IngestConfig 处理流水线配置
type IngestConfig struct {
	PagePrefix string `mapstructure:"page_prefix"` // 页面文件名前缀
	PagePolicy string `mapstructure:"page_policy"` // 失败时页面处理策略：leave 或 rollback
}

// CacheConfig 阶段记录存储配置
type CacheConfig struct {
	Type     string `mapstructure:"type"`     // 类型：memory 或 redis
	Address  string `mapstructure:"address"`  // Redis地址
	Password string `mapstructure:"password"` // Redis密码
	DB       int    `mapstructure:"db"`       // Redis数据库
	TTL      int    `mapstructure:"ttl"`      // 记录保留时间（秒）
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`        // 日志级别
	File       string `mapstructure:"file"`         // 日志文件，为空时只输出到标准输出
	MaxSizeMB  int    `mapstructure:"max_size_mb"`  // 单个日志文件大小(MB)
	MaxBackups int    `mapstructure:"max_backups"`  // 保留的旧日志文件数
	MaxAgeDays int    `mapstructure:"max_age_days"` // 旧日志保留天数
	Compress   bool   `mapstructure:"compress"`     // 是否压缩旧日志
}

// Load 从文件和环境变量加载配置
// 配置文件不存在时使用默认值，并写出一份默认配置
func Load(configPath string) (*Config, error) {
	var config Config

	// 设置默认配置路径
	if configPath == "" {
		configPath = "config.yaml"
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		log.Printf("Warning: Config file not found at %s, using defaults", configPath)
		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err == nil {
			if err := v.WriteConfigAs(configPath); err != nil {
				log.Printf("Warning: Could not write default config to %s: %v", configPath, err)
			}
		}
	} else {
		log.Printf("Using config file: %s", v.ConfigFileUsed())
	}

	// 支持环境变量覆盖，例如 SERVER_PORT、CACHE_TYPE
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	processEnvironmentVariables(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Default 返回默认配置
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	// 默认值都是合法的，不会解析失败
	_ = v.Unmarshal(&config)
	return &config
}

// Validate 检查配置取值
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Storage.Path == "" {
		return errors.New("storage path must not be empty")
	}
	if c.Upload.MaxSizeMB <= 0 {
		return fmt.Errorf("invalid upload max size: %d", c.Upload.MaxSizeMB)
	}
	switch c.Ingest.PagePolicy {
	case "leave", "rollback":
	default:
		return fmt.Errorf("invalid page policy: %q (expected leave or rollback)", c.Ingest.PagePolicy)
	}
	switch c.Cache.Type {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid cache type: %q", c.Cache.Type)
	}
	return nil
}

// processEnvironmentVariables 展开 ${VAR} 形式的配置值
func processEnvironmentVariables(cfg *Config) {
	cfg.Cache.Password = expandEnv(cfg.Cache.Password)
	cfg.Cache.Address = expandEnv(cfg.Cache.Address)
	cfg.Storage.Path = expandEnv(cfg.Storage.Path)
}

func expandEnv(value string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		if envVal := os.Getenv(value[2 : len(value)-1]); envVal != "" {
			return envVal
		}
	}
	return value
}

// setDefaults 设置配置的默认值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "60s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// 存储默认配置
	v.SetDefault("storage.path", "./uploads")

	// 上传限制
	v.SetDefault("upload.max_size_mb", 32)
	v.SetDefault("upload.memory_mb", 8)

	// 流水线默认配置
	v.SetDefault("ingest.page_prefix", "page")
	v.SetDefault("ingest.page_policy", "leave")

	// 阶段记录默认配置
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.address", "localhost:6379")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", 3600) // 1小时

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", true)
}
