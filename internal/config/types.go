package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if seconds, err := time.ParseDuration(raw); err == nil {
		*d = Duration(seconds)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// XORKey 是单字节混淆密钥，配置中可写作 73 或 "0x49"。
type XORKey byte

// Byte 返回密钥原始字节。
func (k XORKey) Byte() byte {
	return byte(k)
}

// GlobalConfig 描述进程级运行参数：监听端口、日志、本地缓存根目录与 Mod 配置。
type GlobalConfig struct {
	ListenPort     int    `mapstructure:"ListenPort"`
	LogLevel       string `mapstructure:"LogLevel"`
	LogFilePath    string `mapstructure:"LogFilePath"`
	LogMaxSize     int    `mapstructure:"LogMaxSize"`
	LogMaxBackups  int    `mapstructure:"LogMaxBackups"`
	LogCompress    bool   `mapstructure:"LogCompress"`
	StoragePath    string `mapstructure:"StoragePath"`
	ModsConfigPath string `mapstructure:"ModsConfigPath"`
}

// RemoteConfig 决定如何访问官方资源服务器，以及哪些资源需要 XOR 处理。
type RemoteConfig struct {
	Domain            string   `mapstructure:"Domain"`
	UserAgent         string   `mapstructure:"UserAgent"`
	Timeout           Duration `mapstructure:"Timeout"`
	ObfuscationKey    XORKey   `mapstructure:"ObfuscationKey"`
	ObfuscationMarker string   `mapstructure:"ObfuscationMarker"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global GlobalConfig `mapstructure:",squash"`
	Remote RemoteConfig `mapstructure:"Remote"`
}

// RemoteHost 返回去掉协议后的上游主机名，仅用于日志字段。
func (r RemoteConfig) RemoteHost() string {
	host := strings.TrimPrefix(strings.TrimPrefix(r.Domain, "https://"), "http://")
	if idx := strings.Index(host, "/"); idx >= 0 {
		host = host[:idx]
	}
	return host
}
