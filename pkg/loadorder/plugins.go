package loadorder

import (
	"strings"

	"github.com/modcollect/modcollect/pkg/errors"
	"github.com/modcollect/modcollect/pkg/logging"
	"github.com/modcollect/modcollect/pkg/types"
)

// pluginGames are the game domains whose content loading is plugin-file
// based, and which therefore get a plugin listing alongside the mod order.
var pluginGames = map[string]bool{
	"starfield":             true,
	"skyrimspecialedition":  true,
	"skyrim":                true,
	"skyrimvr":              true,
	"fallout4":              true,
	"fallout4vr":            true,
	"fallout76":             true,
	"falloutnv":             true,
	"fallout3":              true,
	"oblivion":              true,
	"morrowind":             true,
	"enderal":               true,
	"enderalspecialedition": true,
}

// IsPluginGame reports whether a game domain uses plugin-file load order.
func IsPluginGame(gameDomain string) bool {
	return pluginGames[strings.ToLower(gameDomain)]
}

// ErrSorterUnavailable signals that the external plugin sorter could not
// produce a reordering; callers fall back to the declared order.
var ErrSorterUnavailable = errors.New(errors.ErrSorterUnavailable, "plugin sorter unavailable")

// MergePluginOrder combines the collection-declared plugin list with the
// output of an optional external sorter. Enabled flags always come from
// the declared list. Ordering comes from the sorter when it succeeded and
// returned a permutation of exactly the same set; otherwise the declared
// order is used unchanged. A plugin is never dropped by the merge. The
// second return value reports whether the sorter's order was used.
func MergePluginOrder(declared []types.PluginEntry, sorter types.PluginSorter) ([]types.PluginEntry, bool) {
	logger := logging.GetLogger("loadorder.plugins")

	names := make([]string, 0, len(declared))
	enabled := make(map[string]bool, len(declared))
	byName := make(map[string]types.PluginEntry, len(declared))
	for _, p := range declared {
		if p.Filename == "" {
			continue
		}
		key := strings.ToLower(p.Filename)
		if _, seen := byName[key]; !seen {
			names = append(names, p.Filename)
		}
		byName[key] = p
		enabled[key] = p.Enabled
	}

	if sorter == nil {
		return declaredOrder(names, byName), false
	}

	sorted, err := sorter.Sort(names)
	if err != nil {
		logger.Info().Err(err).Msg("Plugin sorter failed, using declared order")
		return declaredOrder(names, byName), false
	}
	if !samePluginSet(names, sorted) {
		logger.Warn().
			Int("declared", len(names)).
			Int("sorted", len(sorted)).
			Msg("Plugin sorter did not return the same plugin set, using declared order")
		return declaredOrder(names, byName), false
	}

	merged := make([]types.PluginEntry, 0, len(sorted))
	for _, name := range sorted {
		merged = append(merged, types.PluginEntry{
			Filename: name,
			Enabled:  enabled[strings.ToLower(name)],
		})
	}
	return merged, true
}

func declaredOrder(names []string, byName map[string]types.PluginEntry) []types.PluginEntry {
	out := make([]types.PluginEntry, 0, len(names))
	for _, name := range names {
		out = append(out, byName[strings.ToLower(name)])
	}
	return out
}

// samePluginSet compares two plugin name lists as case-folded sets.
func samePluginSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, name := range a {
		seen[strings.ToLower(name)]++
	}
	for _, name := range b {
		key := strings.ToLower(name)
		seen[key]--
		if seen[key] < 0 {
			return false
		}
	}
	return true
}
