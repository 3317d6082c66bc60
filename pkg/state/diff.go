package state

import (
	"slices"

	"github.com/modcollect/modcollect/pkg/types"
)

// Diff classifies every mod as install, update, up-to-date, or remove when
// reconciling the installed record against the authoritative mod list.
// The four buckets are pairwise disjoint and cover exactly the mod ids
// present in either input.
type Diff struct {
	ToInstall []types.ModRecord
	ToUpdate  []types.ModRecord
	UpToDate  []types.ModRecord
	ToRemove  []int64
}

// Compare reconciles the installed mod set against the latest collection
// mod list. A latest mod with no installed counterpart is an install; a
// differing FileID is an update (version strings are never compared, they
// are not guaranteed orderable); otherwise it is up to date. Installed mods
// absent from latest are removals, except manual mods, which have no
// upstream counterpart. Purely functional: neither input is mutated.
func (st *State) Compare(latest []types.ModRecord) Diff {
	var diff Diff

	inLatest := make(map[int64]bool, len(latest))
	for _, mod := range latest {
		inLatest[mod.ModID] = true

		installed := st.Mods[mod.ModID]
		switch {
		case installed == nil:
			diff.ToInstall = append(diff.ToInstall, mod)
		case installed.FileID != mod.FileID:
			diff.ToUpdate = append(diff.ToUpdate, mod)
		default:
			diff.UpToDate = append(diff.UpToDate, mod)
		}
	}

	for modID, rec := range st.Mods {
		if !inLatest[modID] && !rec.Manual {
			diff.ToRemove = append(diff.ToRemove, modID)
		}
	}
	slices.Sort(diff.ToRemove)

	return diff
}

// Apply mutates the state to match a computed diff: install and update
// records are written back, removals are dropped. Manual mods survive
// untouched by construction (Compare never emits them in ToRemove).
func (st *State) Apply(diff Diff) {
	for _, mod := range diff.ToInstall {
		st.AddMod(mod)
	}
	for _, mod := range diff.ToUpdate {
		prev := st.Mods[mod.ModID]
		if prev != nil && mod.InstalledAt == "" {
			mod.InstalledAt = prev.InstalledAt
		}
		st.AddMod(mod)
	}
	for _, modID := range diff.ToRemove {
		st.RemoveMod(modID)
	}
}
