package service

import (
	"github.com/modcollect/modcollect/pkg/state"
)

// ModStatus classifies one mod for status display.
type ModStatus struct {
	ModID   int64
	Name    string
	Version string
	FileID  int64
	Phase   int
	Opt     bool
	Manual  bool
	Status  string // up_to_date, update_available, not_installed, removed, installed
}

// StatusResult summarizes the persisted state against an optional latest
// mod list.
type StatusResult struct {
	CollectionName    string
	CollectionURL     string
	GameDomain        string
	InstalledRevision int64
	Mods              []ModStatus
	DeployedAt        string
	DeployedFileCount int
	GameDir           string
}

// ReconcileResult reports what a reconcile run decided and wrote.
type ReconcileResult struct {
	Diff         state.Diff
	ListingFiles []string
}

// DeploySummary reports a deployment run.
type DeploySummary struct {
	DeployedCount int
	SkippedCount  int
	Conflicts     []string
	Errors        []string
	GameDir       string
	DryRun        bool
}
