// Package collection parses collection bundle metadata and collection
// URLs into the typed forms the rest of the codebase consumes.
package collection

import (
	"encoding/json"

	"github.com/modcollect/modcollect/pkg/errors"
	"github.com/modcollect/modcollect/pkg/logging"
	"github.com/modcollect/modcollect/pkg/types"
)

// rawManifest mirrors the collection.json wire shape.
type rawManifest struct {
	ModRules  []rawRule  `json:"modRules"`
	Mods      []rawMod   `json:"mods"`
	LoadOrder []rawEntry `json:"loadOrder"`
	Plugins   []rawEntry `json:"plugins"`
}

type rawRule struct {
	Type   string `json:"type"`
	Source rawRef `json:"source"`
	Target rawRef `json:"target"`
}

// rawRef references a mod either by id or by logical filename.
type rawRef struct {
	ModID           *int64 `json:"modId"`
	LogicalFilename string `json:"logicalFilename"`
}

type rawMod struct {
	Source rawRef `json:"source"`
	Phase  int    `json:"phase"`
}

type rawEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Filename string `json:"filename"`
	Enabled  *bool  `json:"enabled"`
}

// ParseManifest parses collection.json bundle data into a
// CollectionManifest. Malformed payloads fail with MANIFEST_INVALID before
// any state is touched. Rules referencing mods that cannot be resolved by
// id or logical filename are dropped.
func ParseManifest(data []byte) (*types.CollectionManifest, error) {
	logger := logging.GetLogger("collection.manifest")

	var raw rawManifest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrManifestInvalid, "cannot parse collection manifest")
	}

	manifest := &types.CollectionManifest{
		PhaseMap:     make(map[int64]int),
		LogicalNames: make(map[string]int64),
	}

	for _, mod := range raw.Mods {
		if mod.Source.ModID == nil {
			continue
		}
		id := *mod.Source.ModID
		manifest.PhaseMap[id] = mod.Phase
		if mod.Source.LogicalFilename != "" {
			manifest.LogicalNames[mod.Source.LogicalFilename] = id
		}
	}

	dropped := 0
	for _, rule := range raw.ModRules {
		source, okSource := resolveRef(rule.Source, manifest.LogicalNames)
		target, okTarget := resolveRef(rule.Target, manifest.LogicalNames)
		ruleType := types.RuleType(rule.Type)
		if !okSource || !okTarget ||
			(ruleType != types.RuleBefore && ruleType != types.RuleAfter && ruleType != types.RuleRequires) {
			dropped++
			continue
		}
		manifest.Rules = append(manifest.Rules, types.Rule{
			Type:   ruleType,
			Source: source,
			Target: target,
		})
	}
	if dropped > 0 {
		logger.Debug().Int("dropped", dropped).Msg("Dropped unresolvable or unsupported mod rules")
	}

	// loadOrder carries the authored plugin entries with enabled state;
	// the plugins array is a sparse legacy fallback.
	entries := raw.LoadOrder
	if len(entries) == 0 {
		entries = raw.Plugins
	}
	for _, entry := range entries {
		filename := entry.Name
		if filename == "" {
			filename = entry.ID
		}
		if filename == "" {
			filename = entry.Filename
		}
		if filename == "" {
			continue
		}
		enabled := true
		if entry.Enabled != nil {
			enabled = *entry.Enabled
		}
		manifest.Plugins = append(manifest.Plugins, types.PluginEntry{
			Filename: filename,
			Enabled:  enabled,
		})
	}

	logger.Debug().
		Int("rules", len(manifest.Rules)).
		Int("plugins", len(manifest.Plugins)).
		Int("phases", len(manifest.PhaseMap)).
		Msg("Parsed collection manifest")

	return manifest, nil
}

func resolveRef(ref rawRef, logicalNames map[string]int64) (int64, bool) {
	if ref.ModID != nil {
		return *ref.ModID, true
	}
	if ref.LogicalFilename != "" {
		id, ok := logicalNames[ref.LogicalFilename]
		return id, ok
	}
	return 0, false
}
