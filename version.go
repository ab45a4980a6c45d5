package main

import (
	"fmt"
	"strings"

	"github.com/JehanneDarc/majsoul-plus-client/internal/version"
)

// printVersion 输出注入的版本 + 提交信息。
func printVersion() {
	fmt.Fprintln(stdOut, version.Full())
}

// runCompare 解析 "vA,vB" 并输出 A 相对 B 的更新幅度（数值 + 名称）。
func runCompare(raw string) int {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		fmt.Fprintf(stdErr, "--compare 需要 vA,vB 形式，得到 %q\n", raw)
		return 2
	}
	a, b := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if a == "" || b == "" {
		fmt.Fprintf(stdErr, "--compare 需要两个非空版本标签，得到 %q\n", raw)
		return 2
	}
	rank := version.Compare(a, b)
	fmt.Fprintf(stdOut, "%d %s\n", int(rank), rank)
	return 0
}
