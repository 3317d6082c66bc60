package loadorder_test

import (
	"strings"
	"testing"

	"github.com/modcollect/modcollect/pkg/loadorder"
	"github.com/modcollect/modcollect/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderLoadOrder(t *testing.T) {
	m := manifest(nil, map[int64]int{1: 0, 2: 0, 3: 1})
	r := loadorder.NewResolver(m, mods(named(1, "Alpha"), named(2, "Beta"), named(3, "Gamma")), nil)

	listing := r.RenderLoadOrder([]int64{1, 2, 3}, "starfield")

	lines := strings.Split(strings.TrimRight(listing, "\n"), "\n")
	assert.Contains(t, lines, "# Game: starfield")
	assert.Contains(t, lines, "# Total mods: 3")
	assert.Contains(t, lines, "# --- Phase 0 ---")
	assert.Contains(t, lines, "# --- Phase 1 ---")
	assert.Contains(t, lines, "   1. [1] Alpha")
	assert.Contains(t, lines, "   2. [2] Beta")
	assert.Contains(t, lines, "   3. [3] Gamma")

	// Phase 1 header appears after all phase 0 entries.
	idxPhase1 := indexOf(lines, "# --- Phase 1 ---")
	idxBeta := indexOf(lines, "   2. [2] Beta")
	require.Greater(t, idxPhase1, idxBeta)
}

func TestRenderLoadOrderRepeatsPhaseHeaders(t *testing.T) {
	// Traversal order can revisit an earlier phase (cycle fallback);
	// the header is re-emitted each time the phase changes.
	m := manifest(nil, map[int64]int{1: 0, 2: 1, 3: 0})
	r := loadorder.NewResolver(m, mods(named(1, "A"), named(2, "B"), named(3, "C")), nil)

	listing := r.RenderLoadOrder([]int64{1, 2, 3}, "starfield")

	assert.Equal(t, 2, strings.Count(listing, "# --- Phase 0 ---"))
	assert.Equal(t, 1, strings.Count(listing, "# --- Phase 1 ---"))
}

func TestRenderLoadOrderUnknownMod(t *testing.T) {
	m := manifest(nil, nil)
	r := loadorder.NewResolver(m, nil, nil)

	listing := r.RenderLoadOrder([]int64{77}, "starfield")

	assert.Contains(t, listing, "[77] Unknown (ID: 77)")
}

func TestRenderPlugins(t *testing.T) {
	plugins := []types.PluginEntry{
		{Filename: "alpha.esm", Enabled: true},
		{Filename: "beta.esp", Enabled: false},
		{Filename: "", Enabled: true},
		{Filename: "gamma.esp", Enabled: true},
	}

	out := loadorder.RenderPlugins(plugins, "starfield", false)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Contains(t, lines, "*alpha.esm")
	assert.Contains(t, lines, "beta.esp")
	assert.Contains(t, lines, "*gamma.esp")
	assert.Contains(t, out, "(collection metadata)")

	sorted := loadorder.RenderPlugins(plugins, "starfield", true)
	assert.Contains(t, sorted, "(externally sorted)")
}

func indexOf(lines []string, want string) int {
	for i, line := range lines {
		if line == want {
			return i
		}
	}
	return -1
}
