package main

import (
	"strings"
	"testing"
)

func TestParseCLIFlagsPriority(t *testing.T) {
	t.Setenv("MAJSOUL_PLUS_CONFIG", "/tmp/env.toml")

	opts, err := parseCLIFlags([]string{})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/env.toml" {
		t.Fatalf("应优先使用环境变量，得到 %s", opts.configPath)
	}

	opts, err = parseCLIFlags([]string{"--config", "/tmp/flag.toml"})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/flag.toml" {
		t.Fatalf("flag 应高于环境变量，得到 %s", opts.configPath)
	}
}

func TestParseCLIFlagsDefaultsAndUnknown(t *testing.T) {
	t.Setenv("MAJSOUL_PLUS_CONFIG", "")

	opts, err := parseCLIFlags([]string{"--compare", " v1.2.0,v1.1.0 "})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "config.toml" {
		t.Fatalf("默认配置路径应为 config.toml，得到 %s", opts.configPath)
	}
	if opts.compare != "v1.2.0,v1.1.0" {
		t.Fatalf("compare 参数应去除首尾空白，得到 %q", opts.compare)
	}

	if _, err := parseCLIFlags([]string{"--unknown"}); err == nil {
		t.Fatalf("未知参数应返回错误")
	}
}

func TestRunCheckConfigSuccess(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{configPath: configFixture(t, "valid.toml"), checkOnly: true})
	if code != 0 {
		t.Fatalf("期望退出码 0，得到 %d (stderr=%s)", code, stdErrBuffer().String())
	}
}

func TestRunCheckConfigFailure(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{configPath: configFixture(t, "missing.toml"), checkOnly: true})
	if code == 0 {
		t.Fatalf("无效配置应返回非零退出码")
	}
	if !strings.Contains(stdErrBuffer().String(), "Remote.Domain") {
		t.Fatalf("错误信息应指出字段，得到 %s", stdErrBuffer().String())
	}
}

func TestRunVersionOutput(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{showVersion: true})
	if code != 0 {
		t.Fatalf("version 模式应成功退出，得到 %d", code)
	}
	if !strings.Contains(stdOutBuffer().String(), "majsoul-plus") {
		t.Fatalf("version 输出应包含 majsoul-plus 标识")
	}
}

func TestRunCompare(t *testing.T) {
	testCases := []struct {
		input string
		code  int
		out   string
	}{
		{"v2.0.0,v1.9.9", 0, "1 major"},
		{"v1.2.3-beta.2,v1.2.3-beta.1", 0, "4 dev"},
		{"v1.2.3,v1.2.3", 0, "0 none"},
		{"v1.2.3", 2, ""},
		{"v1.2.3,", 2, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			useBufferWriters(t)
			code := run(cliOptions{compare: tc.input})
			if code != tc.code {
				t.Fatalf("期望退出码 %d，得到 %d", tc.code, code)
			}
			if got := strings.TrimSpace(stdOutBuffer().String()); got != tc.out {
				t.Fatalf("期望输出 %q，得到 %q", tc.out, got)
			}
		})
	}
}
