// Package mods 加载并持有已安装 Mod 的有序列表。列表顺序即覆盖优先级：
// 越靠前的 Mod 越先被尝试。注册表加载后不可变，重新加载需显式调用。
package mods

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

const defaultSubDir = "files"

// ReplaceRule 描述一条路径重写规则：From 为正则表达式，To 为替换模板。
type ReplaceRule struct {
	From string `json:"from"`
	To   string `json:"to"`

	pattern *regexp.Regexp
}

// ModDescriptor 对应 Mod 配置文件中的一项。
type ModDescriptor struct {
	Name     string        `json:"name,omitempty"`
	Dir      string        `json:"dir,omitempty"`
	FilesDir string        `json:"filesDir"`
	Replace  []ReplaceRule `json:"replace,omitempty"`
}

// Root 返回 Mod 资源根目录：FilesDir/Dir，未设置 Dir 时使用 files 子目录。
func (m ModDescriptor) Root() string {
	sub := strings.TrimSpace(m.Dir)
	if sub == "" {
		sub = defaultSubDir
	}
	return filepath.Join(m.FilesDir, sub)
}

// DisplayName 返回用于日志的名称，未命名时退回 FilesDir。
func (m ModDescriptor) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return filepath.Base(m.FilesDir)
}

// Matches 判断规则是否匹配 url。未编译（非法正则）的规则永不匹配。
func (r ReplaceRule) Matches(url string) bool {
	return r.pattern != nil && r.pattern.MatchString(url)
}

// Rewrite 仅替换第一个匹配项。To 使用 String.prototype.replace 的模板语法：
// $1..$99 为分组，$& 为整个匹配，$` / $' 为匹配前后的部分，$<name> 为命名分组，
// $$ 为字面量 $；无法识别的 $ 序列原样保留。
func (r ReplaceRule) Rewrite(url string) (string, bool) {
	if r.pattern == nil {
		return url, false
	}
	loc := r.pattern.FindStringSubmatchIndex(url)
	if loc == nil {
		return url, false
	}
	expanded := expandTemplate(r.To, url, loc, r.pattern.SubexpNames())
	return url[:loc[0]] + expanded + url[loc[1]:], true
}

func expandTemplate(template, src string, loc []int, names []string) string {
	groups := len(loc)/2 - 1
	group := func(i int) string {
		if loc[2*i] < 0 {
			return ""
		}
		return src[loc[2*i]:loc[2*i+1]]
	}

	var b strings.Builder
	for i := 0; i < len(template); i++ {
		c := template[i]
		if c != '$' || i+1 >= len(template) {
			b.WriteByte(c)
			continue
		}
		next := template[i+1]
		switch {
		case next == '$':
			b.WriteByte('$')
			i++
		case next == '&':
			b.WriteString(group(0))
			i++
		case next == '`':
			b.WriteString(src[:loc[0]])
			i++
		case next == '\'':
			b.WriteString(src[loc[1]:])
			i++
		case isDigit(next):
			// 优先两位分组号，不存在时退回一位，仍不存在则按字面量输出。
			if i+2 < len(template) && isDigit(template[i+2]) {
				if n := int(next-'0')*10 + int(template[i+2]-'0'); n >= 1 && n <= groups {
					b.WriteString(group(n))
					i += 2
					continue
				}
			}
			if n := int(next - '0'); n >= 1 && n <= groups {
				b.WriteString(group(n))
				i++
				continue
			}
			b.WriteByte(c)
		case next == '<' && hasNamedGroup(names):
			end := strings.IndexByte(template[i+2:], '>')
			if end < 0 {
				b.WriteByte(c)
				continue
			}
			name := template[i+2 : i+2+end]
			for idx, n := range names {
				if idx > 0 && n == name {
					b.WriteString(group(idx))
					break
				}
			}
			i += end + 2
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func hasNamedGroup(names []string) bool {
	for _, n := range names {
		if n != "" {
			return true
		}
	}
	return false
}

func (r *ReplaceRule) compile() error {
	pattern, err := regexp.Compile(r.From)
	if err != nil {
		return err
	}
	r.pattern = pattern
	return nil
}

// Registry 是加载完成后的只读 Mod 列表。
type Registry struct {
	source string
	mods   []ModDescriptor
}

// Mods 返回按优先级排列的 Mod 副本。
func (r *Registry) Mods() []ModDescriptor {
	if r == nil || len(r.mods) == 0 {
		return nil
	}
	out := make([]ModDescriptor, len(r.mods))
	copy(out, r.mods)
	return out
}

// Len 返回已加载的 Mod 数量。
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.mods)
}

// Source 返回加载来源的配置文件路径。
func (r *Registry) Source() string {
	if r == nil {
		return ""
	}
	return r.source
}

// Load 读取 path 指向的 JSON 列表。读取或解析失败时记录错误并返回空注册表，
// 不会中断调用方。
func Load(path string, logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	registry, err := parse(path, logger)
	if err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"action": "mods_load",
			"path":   path,
		}).Error("mods_load_failed")
		return &Registry{source: path}
	}

	logger.WithFields(logrus.Fields{
		"action": "mods_load",
		"path":   path,
		"mods":   registry.Len(),
	}).Info("mods_loaded")
	return registry
}

func parse(path string, logger *logrus.Logger) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取 Mod 配置失败: %w", err)
	}

	var descriptors []ModDescriptor
	if err := json.Unmarshal(data, &descriptors); err != nil {
		return nil, fmt.Errorf("解析 Mod 配置失败: %w", err)
	}

	valid := descriptors[:0]
	for i := range descriptors {
		mod := descriptors[i]
		if strings.TrimSpace(mod.FilesDir) == "" {
			logger.WithFields(logrus.Fields{
				"action": "mods_load",
				"index":  i,
				"mod":    mod.Name,
			}).Warn("mods_files_dir_missing")
			continue
		}
		rules := make([]ReplaceRule, 0, len(mod.Replace))
		for _, rule := range mod.Replace {
			if err := rule.compile(); err != nil {
				logger.WithError(err).WithFields(logrus.Fields{
					"action": "mods_load",
					"mod":    mod.DisplayName(),
					"from":   rule.From,
				}).Warn("mods_rule_invalid")
				continue
			}
			rules = append(rules, rule)
		}
		mod.Replace = rules
		valid = append(valid, mod)
	}

	return &Registry{source: path, mods: valid}, nil
}

// Loader 持有 Mod 配置路径，首次访问时加载一次；并发调用安全。
type Loader struct {
	path   string
	logger *logrus.Logger

	once    sync.Once
	mu      sync.RWMutex
	current *Registry
}

// NewLoader 构造惰性加载器，不会立即读取文件。
func NewLoader(path string, logger *logrus.Logger) *Loader {
	return &Loader{path: path, logger: logger}
}

// Registry 返回当前注册表，首次调用时加载。
func (l *Loader) Registry() *Registry {
	l.once.Do(func() {
		loaded := Load(l.path, l.logger)
		l.mu.Lock()
		if l.current == nil {
			l.current = loaded
		}
		l.mu.Unlock()
	})
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// Reload 显式重新读取配置文件并替换注册表，正在进行的请求继续使用旧注册表。
func (l *Loader) Reload() *Registry {
	loaded := Load(l.path, l.logger)
	l.once.Do(func() {})
	l.mu.Lock()
	l.current = loaded
	l.mu.Unlock()
	return loaded
}
