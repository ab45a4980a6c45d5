package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RequestFields 提供资源路径/命中来源/混淆标记字段，供资源解析日志复用。
func RequestFields(path, source string, encrypt, pathLike bool) logrus.Fields {
	return logrus.Fields{
		"path":      path,
		"source":    source,
		"encrypt":   encrypt,
		"path_like": pathLike,
		"cache_hit": source != "remote" && source != "error",
	}
}
