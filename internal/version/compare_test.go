package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {
	testCases := []struct {
		a, b string
		want Rank
	}{
		{"v2.0.0", "v1.9.9", RankMajor},
		{"v1.3.0", "v1.2.9", RankMinor},
		{"v1.2.4", "v1.2.3", RankPatch},
		{"v1.2.3-beta.2", "v1.2.3-beta.1", RankDev},
		{"v1.2.3-rc.1", "v1.2.3-beta.9", RankDev},
		{"v1.2.3-beta.1", "v1.2.3-rc.1", RankNone},
		{"v1.2.3-custom.5", "v1.2.3-alpha.1", RankNone},
		{"v1.2.3", "v1.2.3", RankNone},
		{"v1.2.3-beta.1", "v1.2.3-beta.1", RankNone},
		{"v1.2.3-alpha.1", "v1.3.0", RankNone},
		{"v1.9.9", "v2.0.0", RankNone},
		{"v10.0.0", "v9.0.0", RankMajor},
		{"v1.2.3", "v1.2.3-rc.1", RankRelease},
		{"v1.2.3-rc.1", "v1.2.3", RankNone},
	}

	for _, tc := range testCases {
		t.Run(tc.a+"_vs_"+tc.b, func(t *testing.T) {
			assert.Equal(t, tc.want, Compare(tc.a, tc.b))
		})
	}
}

func TestCompareSkipsUnparsableComponents(t *testing.T) {
	assert.Equal(t, RankPatch, Compare("v1.x.4", "v1.2.3"))
	assert.Equal(t, RankNone, Compare("v1.2", "v1.2.3"))
	assert.Equal(t, RankMinor, Compare("v1.3rc.0", "v1.2.0"))
}

func TestRankIsUpdate(t *testing.T) {
	assert.False(t, RankNone.IsUpdate())
	for _, r := range []Rank{RankMajor, RankMinor, RankPatch, RankDev, RankRelease} {
		assert.True(t, r.IsUpdate(), r.String())
	}
	assert.Equal(t, "release", RankRelease.String())
	assert.Equal(t, "rank(9)", Rank(9).String())
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("v1.2.3"))
	assert.True(t, Valid("v1.2.3-beta.1"))
	assert.False(t, Valid("1.2.3"))
	assert.False(t, Valid("v1.2.3.4"))
	assert.True(t, Valid(Version))
}

func TestFull(t *testing.T) {
	assert.Contains(t, Full(), "majsoul-plus")
	assert.Contains(t, Full(), Version)
}
