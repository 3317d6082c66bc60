package loadorder

import (
	"fmt"
	"strings"

	"github.com/modcollect/modcollect/pkg/types"
)

// RenderLoadOrder formats the resolved mod order as a line-oriented listing.
// A `# --- Phase N ---` header is emitted whenever the phase of the current
// entry differs from the previous entry's phase; because the listing follows
// traversal order, a phase group can repeat when the cycle fallback
// reintroduces an earlier phase.
func (r *Resolver) RenderLoadOrder(order []int64, gameDomain string) string {
	var b strings.Builder

	b.WriteString("# Mod Load Order\n")
	b.WriteString("# Generated by modcollect\n")
	fmt.Fprintf(&b, "# Game: %s\n", gameDomain)
	fmt.Fprintf(&b, "# Total mods: %d\n", len(order))
	b.WriteString("#\n")
	b.WriteString("# Mods are listed in load order (first = loaded first).\n")
	b.WriteString("# Phase groups are separated by blank lines.\n")
	b.WriteString("\n")

	havePhase := false
	currentPhase := 0
	for i, modID := range order {
		phase := r.manifest.Phase(modID)
		name := r.mods[modID].Name
		if name == "" {
			name = fmt.Sprintf("Unknown (ID: %d)", modID)
		}

		if !havePhase || phase != currentPhase {
			if havePhase {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "# --- Phase %d ---\n", phase)
			currentPhase = phase
			havePhase = true
		}

		fmt.Fprintf(&b, "%4d. [%d] %s\n", i+1, modID, name)
	}

	return b.String()
}

// RenderPlugins formats a plugin listing: one line per plugin, a `*` prefix
// when enabled, no prefix when disabled. The source comment records whether
// an external sorter produced the ordering.
func RenderPlugins(plugins []types.PluginEntry, gameDomain string, sorted bool) string {
	source := "collection metadata"
	if sorted {
		source = "externally sorted"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Plugin Load Order (%s)\n", source)
	b.WriteString("# Generated by modcollect\n")
	fmt.Fprintf(&b, "# Game: %s\n", gameDomain)
	b.WriteString("#\n")
	b.WriteString("# Plugins prefixed with * are enabled.\n")
	b.WriteString("\n")

	for _, p := range plugins {
		if p.Filename == "" {
			continue
		}
		if p.Enabled {
			b.WriteString("*")
		}
		b.WriteString(p.Filename)
		b.WriteString("\n")
	}

	return b.String()
}
