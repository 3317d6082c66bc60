package types

// ModRecord is one trackable unit of content in a collection. ModID is the
// stable identity; FileID identifies which build of the mod is installed.
// Locally registered mods carry a synthetic negative ModID and Manual=true.
type ModRecord struct {
	ModID        int64   `json:"mod_id"`
	Name         string  `json:"name"`
	FileID       int64   `json:"file_id"`
	Version      string  `json:"version"`
	Filename     string  `json:"filename"`
	InstalledAt  string  `json:"installed_at,omitempty"`
	Optional     bool    `json:"optional"`
	Manual       bool    `json:"manual"`
	Position     int     `json:"position"`
	Phase        int     `json:"phase"`
	Requirements []int64 `json:"requirements,omitempty"`
}

// RuleType is the kind of an authored ordering rule.
type RuleType string

const (
	RuleBefore   RuleType = "before"
	RuleAfter    RuleType = "after"
	RuleRequires RuleType = "requires"
)

// Rule is an authored ordering constraint between two mods.
type Rule struct {
	Type   RuleType `json:"type"`
	Source int64    `json:"source"`
	Target int64    `json:"target"`
}

// PluginEntry is one plugin file declared by the collection, with its
// author-intended enabled state.
type PluginEntry struct {
	Filename string `json:"filename"`
	Enabled  bool   `json:"enabled"`
}

// CollectionManifest is the parsed collection bundle metadata the resolver
// consumes: ordering rules, the declared plugin list, and per-mod phases.
type CollectionManifest struct {
	Rules   []Rule        `json:"rules"`
	Plugins []PluginEntry `json:"plugins"`

	// PhaseMap maps mod id to its phase tier. Mods absent from the map
	// are phase 0.
	PhaseMap map[int64]int `json:"phase_map"`

	// LogicalNames maps a logical filename to its mod id, used to resolve
	// rules that reference mods by name rather than id.
	LogicalNames map[string]int64 `json:"logical_names,omitempty"`
}

// Phase returns the phase tier for a mod id, defaulting to 0.
func (m *CollectionManifest) Phase(modID int64) int {
	if m == nil || m.PhaseMap == nil {
		return 0
	}
	return m.PhaseMap[modID]
}

// DeployMethod selects how a file is materialized at its destination.
type DeployMethod string

const (
	MethodSymlink DeployMethod = "symlink"
	MethodCopy    DeployMethod = "copy"
)

// DeployedFile records a single materialized destination so it can be
// exactly reversed later.
type DeployedFile struct {
	Source string       `json:"src"`
	Dest   string       `json:"dest"`
	Method DeployMethod `json:"method"`
}

// PlanEntry pairs a staged source file with its destination-relative path.
type PlanEntry struct {
	Source string
	Dest   string
}

// SkippedFile is a staged file excluded from deployment, with the reason.
type SkippedFile struct {
	Path   string
	Reason string
}

// DeploymentPlan partitions staged files into game-root entries, data-tree
// entries, and skipped files.
type DeploymentPlan struct {
	GameRoot []PlanEntry
	Data     []PlanEntry
	Skipped  []SkippedFile
}

// TotalFiles returns the number of files the plan will deploy.
func (p *DeploymentPlan) TotalFiles() int {
	return len(p.GameRoot) + len(p.Data)
}

// DeployResult is the outcome of executing a deployment plan. Conflicts and
// Errors are non-fatal accumulations; a partially failed run still reports
// every file that was created.
type DeployResult struct {
	Deployed  []DeployedFile
	Conflicts []string
	Errors    []string
}
