package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	defaultListenPort        = 8887
	defaultStoragePath       = "./static"
	defaultModsConfigPath    = "./mod.json"
	defaultRemoteDomain      = "https://majsoul.union-game.com/"
	defaultUserAgent         = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/66.0.3359.181 Safari/537.36"
	defaultObfuscationKey    = 73
	defaultObfuscationMarker = "extendRes"
)

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var cfg Config
	hooks := mapstructure.ComposeDecodeHookFunc(durationDecodeHook(), xorKeyDecodeHook())
	if err := v.Unmarshal(&cfg, viper.DecodeHook(hooks)); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)
	applyRemoteDefaults(&cfg.Remote)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absStorage, err := filepath.Abs(cfg.Global.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("无法解析缓存目录: %w", err)
	}
	cfg.Global.StoragePath = absStorage

	// Mod 配置路径按配置文件所在目录解析，便于把 config.toml 与 mod.json 放在一起。
	if !filepath.IsAbs(cfg.Global.ModsConfigPath) {
		cfg.Global.ModsConfigPath = filepath.Join(filepath.Dir(path), cfg.Global.ModsConfigPath)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", defaultListenPort)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("StoragePath", defaultStoragePath)
	v.SetDefault("ModsConfigPath", defaultModsConfigPath)
	v.SetDefault("Remote.Domain", defaultRemoteDomain)
	v.SetDefault("Remote.UserAgent", defaultUserAgent)
	v.SetDefault("Remote.Timeout", "30s")
	v.SetDefault("Remote.ObfuscationKey", defaultObfuscationKey)
	v.SetDefault("Remote.ObfuscationMarker", defaultObfuscationMarker)
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.ListenPort == 0 {
		g.ListenPort = defaultListenPort
	}
	if strings.TrimSpace(g.LogLevel) == "" {
		g.LogLevel = "info"
	}
	if strings.TrimSpace(g.ModsConfigPath) == "" {
		g.ModsConfigPath = defaultModsConfigPath
	}
}

func applyRemoteDefaults(r *RemoteConfig) {
	r.Domain = strings.TrimSpace(r.Domain)
	if r.UserAgent == "" {
		r.UserAgent = defaultUserAgent
	}
	if r.Timeout.DurationValue() == 0 {
		r.Timeout = Duration(30 * time.Second)
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}

// xorKeyDecodeHook 允许 ObfuscationKey 写成整数或 "0x49" 形式，超出单字节范围直接报错。
func xorKeyDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(XORKey(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		var value int64
		switch v := data.(type) {
		case string:
			parsed, err := parseInt(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("无法解析 ObfuscationKey: %s", v)
			}
			value = parsed
		case int:
			value = int64(v)
		case int64:
			value = v
		case float64:
			if v != float64(int64(v)) {
				return nil, fmt.Errorf("ObfuscationKey 必须为整数: %v", v)
			}
			value = int64(v)
		case XORKey:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 ObfuscationKey 类型: %T", v)
		}

		if value < 0 || value > 0xff {
			return nil, newFieldError("Remote.ObfuscationKey", "必须在 0-255")
		}
		return XORKey(value), nil
	}
}
