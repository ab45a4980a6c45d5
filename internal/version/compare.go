package version

import (
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// Rank 描述 a 相对 b 的更新幅度。
type Rank int

const (
	RankNone  Rank = 0
	RankMajor Rank = 1
	RankMinor Rank = 2
	RankPatch Rank = 3
	RankDev   Rank = 4
	// RankRelease 表示数字部分相同，a 为正式版而 b 为预发布版。
	// 它只表达“更新”，不对应任何版本段。
	RankRelease Rank = 5
)

var rankNames = map[Rank]string{
	RankNone:    "none",
	RankMajor:   "major",
	RankMinor:   "minor",
	RankPatch:   "patch",
	RankDev:     "dev",
	RankRelease: "release",
}

func (r Rank) String() string {
	if name, ok := rankNames[r]; ok {
		return name
	}
	return "rank(" + strconv.Itoa(int(r)) + ")"
}

// IsUpdate 报告 a 是否比 b 新。
func (r Rank) IsUpdate() bool {
	return r != RankNone
}

var prereleasePriority = map[string]int{
	"alpha": 1,
	"beta":  2,
	"rc":    3,
}

// Compare 比较两个形如 vMAJOR.MINOR.PATCH[-PRE[.N]] 的标签。
// 逐段比较数字部分，第一处 a 更大时返回对应段（1/2/3），更小时返回 RankNone；
// 数字部分相同且都带预发布后缀时，依次比较标签优先级（alpha<beta<rc，未知为 0）与序号，
// a 更大返回 RankDev。无法解析的段既不算大也不算小，直接跳过。
func Compare(a, b string) Rank {
	aCore, aPre, aDev := splitTag(a)
	bCore, bPre, bDev := splitTag(b)

	if rank, decided := compareFields(aCore, bCore, 3, func(i int) Rank { return Rank(i + 1) }); decided {
		return rank
	}

	switch {
	case bDev && !aDev:
		return RankRelease
	case aDev && !bDev:
		return RankNone
	case aDev && bDev:
		aFields := prereleaseFields(aPre)
		bFields := prereleaseFields(bPre)
		rank, _ := compareFields(aFields, bFields, 2, func(int) Rank { return RankDev })
		return rank
	default:
		return RankNone
	}
}

// Valid 报告 tag 是否为合法的语义化版本（需要 v 前缀）。
func Valid(tag string) bool {
	return semver.IsValid(tag)
}

func splitTag(tag string) (core []string, pre string, dev bool) {
	if len(tag) > 0 {
		tag = tag[1:]
	}
	parts := strings.Split(tag, "-")
	if len(parts) > 1 {
		pre, dev = parts[1], true
	}
	return strings.Split(parts[0], "."), pre, dev
}

func prereleaseFields(pre string) []string {
	fields := strings.Split(pre, ".")
	fields[0] = strconv.Itoa(prereleasePriority[fields[0]])
	return fields
}

// compareFields 逐段比较前 n 段，返回首个分出大小的段对应结果。
func compareFields(a, b []string, n int, greater func(int) Rank) (Rank, bool) {
	for i := 0; i < n; i++ {
		av, aok := leadingInt(field(a, i))
		bv, bok := leadingInt(field(b, i))
		if !aok || !bok {
			continue
		}
		if av > bv {
			return greater(i), true
		}
		if av < bv {
			return RankNone, true
		}
	}
	return RankNone, false
}

func field(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return ""
}

// leadingInt 解析字符串开头的十进制整数（允许前导空白与符号），例如 "3rc" 得到 3。
func leadingInt(s string) (int64, bool) {
	s = strings.TrimLeft(s, " \t\n\r")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	v, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
