package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var supportedLogLevels = map[string]struct{}{
	"trace": {},
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
	"fatal": {},
	"panic": {},
}

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if g.StoragePath == "" {
		return newFieldError("Global.StoragePath", "不能为空")
	}
	if _, ok := supportedLogLevels[strings.ToLower(strings.TrimSpace(g.LogLevel))]; !ok {
		return newFieldError("Global.LogLevel", "仅支持 trace|debug|info|warn|error|fatal|panic")
	}
	if g.LogMaxSize < 0 {
		return newFieldError("Global.LogMaxSize", "不能为负数")
	}
	if g.LogMaxBackups < 0 {
		return newFieldError("Global.LogMaxBackups", "不能为负数")
	}

	r := c.Remote
	if err := validateRemoteDomain(r.Domain); err != nil {
		return fmt.Errorf("Remote.Domain: %w", err)
	}
	if strings.TrimSpace(r.UserAgent) == "" {
		return newFieldError("Remote.UserAgent", "不能为空")
	}
	if r.Timeout.DurationValue() <= 0 {
		return newFieldError("Remote.Timeout", "必须大于 0")
	}
	if strings.ContainsAny(r.ObfuscationMarker, "?\\") {
		return newFieldError("Remote.ObfuscationMarker", "不允许包含 ? 或 \\")
	}

	return nil
}

func validateRemoteDomain(raw string) error {
	if raw == "" {
		return errors.New("缺少上游地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https，上游: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("上游缺少 Host: %s", raw)
	}
	if parsed.RawQuery != "" || parsed.Fragment != "" {
		return fmt.Errorf("上游不应包含查询串或锚点: %s", raw)
	}
	return nil
}
