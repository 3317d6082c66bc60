// Package service wires the state store, diff engine, load order resolver,
// and deployment pipeline into the operations the CLI exposes. All
// collaborators run to completion before the next step proceeds; there is
// no concurrency within one operation, and the embedding application must
// not run two operations against the same staging directory at once.
package service

import (
	"path/filepath"
	"sort"
	"time"

	"github.com/modcollect/modcollect/pkg/config"
	"github.com/modcollect/modcollect/pkg/deploy"
	"github.com/modcollect/modcollect/pkg/errors"
	"github.com/modcollect/modcollect/pkg/loadorder"
	"github.com/modcollect/modcollect/pkg/logging"
	"github.com/modcollect/modcollect/pkg/paths"
	"github.com/modcollect/modcollect/pkg/proton"
	"github.com/modcollect/modcollect/pkg/state"
	"github.com/modcollect/modcollect/pkg/types"
	"github.com/rs/zerolog"
)

// manualPhase is the phase tier injected for manually registered mods so
// they sort after every collection-declared phase.
const manualPhase = 999

// Service exposes the mod lifecycle operations over one filesystem.
type Service struct {
	fs     types.FS
	cfg    *config.Config
	sorter types.PluginSorter
	logger zerolog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithSorter attaches the optional external plugin sorter.
func WithSorter(sorter types.PluginSorter) Option {
	return func(s *Service) { s.sorter = sorter }
}

// New creates a Service.
func New(fsys types.FS, cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		fs:     fsys,
		cfg:    cfg,
		logger: logging.GetLogger("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CollectionMeta identifies the collection a staging directory tracks.
type CollectionMeta struct {
	URL        string
	Name       string
	Revision   int64
	GameDomain string
}

// Status loads the persisted state and, when a latest mod list is given,
// classifies every mod against it.
func (s *Service) Status(stagingDir string, latest []types.ModRecord) (*StatusResult, error) {
	st, _, err := s.loadState(stagingDir)
	if err != nil {
		return nil, err
	}

	result := &StatusResult{
		CollectionName:    st.CollectionName,
		CollectionURL:     st.CollectionURL,
		GameDomain:        st.GameDomain,
		InstalledRevision: st.CollectionRevision,
		DeployedAt:        st.DeployedAt,
		DeployedFileCount: len(st.DeployedFiles),
		GameDir:           st.GameDir,
	}

	if latest == nil {
		for _, rec := range st.Mods {
			result.Mods = append(result.Mods, modStatus(*rec, "installed"))
		}
		sort.Slice(result.Mods, func(i, j int) bool {
			return result.Mods[i].ModID < result.Mods[j].ModID
		})
		return result, nil
	}

	diff := st.Compare(latest)
	for _, mod := range diff.UpToDate {
		result.Mods = append(result.Mods, modStatus(mod, "up_to_date"))
	}
	for _, mod := range diff.ToUpdate {
		result.Mods = append(result.Mods, modStatus(mod, "update_available"))
	}
	for _, mod := range diff.ToInstall {
		result.Mods = append(result.Mods, modStatus(mod, "not_installed"))
	}
	for _, modID := range diff.ToRemove {
		if rec := st.GetMod(modID); rec != nil {
			result.Mods = append(result.Mods, modStatus(*rec, "removed"))
		}
	}

	return result, nil
}

// Reconcile compares the persisted record against the authoritative mod
// list, applies the resulting diff, caches the manifest, regenerates the
// load order listings, and saves. The state file is created when absent,
// so this is also the initial sync path.
func (s *Service) Reconcile(stagingDir string, meta CollectionMeta, latest []types.ModRecord, manifest *types.CollectionManifest) (*ReconcileResult, error) {
	defer logging.LogOperationStart(s.logger, "reconcile")()

	p, err := paths.New(stagingDir)
	if err != nil {
		return nil, err
	}
	if manifest == nil {
		return nil, errors.New(errors.ErrManifestInvalid, "reconcile requires a collection manifest")
	}

	store := state.NewStore(s.fs, p)
	st, err := store.Load()
	if errors.IsErrorCode(err, errors.ErrStateNotFound) {
		st = state.NewState()
	} else if err != nil {
		return nil, err
	}

	st.SetCollection(meta.URL, meta.Name, meta.Revision, meta.GameDomain)
	st.Manifest = manifest

	diff := st.Compare(latest)
	for i := range diff.ToInstall {
		diff.ToInstall[i].Phase = manifest.Phase(diff.ToInstall[i].ModID)
	}
	for i := range diff.ToUpdate {
		diff.ToUpdate[i].Phase = manifest.Phase(diff.ToUpdate[i].ModID)
	}
	st.Apply(diff)

	written, err := s.writeListings(st, p)
	if err != nil {
		return nil, err
	}

	if err := store.Save(st); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int("install", len(diff.ToInstall)).
		Int("update", len(diff.ToUpdate)).
		Int("remove", len(diff.ToRemove)).
		Msg("Reconciled collection state")

	return &ReconcileResult{Diff: diff, ListingFiles: written}, nil
}

// RegenerateLoadOrder rebuilds the listings from the cached manifest and
// current mod records. Never having synced a manifest is fatal for this
// operation and leaves no partial effect.
func (s *Service) RegenerateLoadOrder(stagingDir string) ([]string, error) {
	st, p, err := s.loadState(stagingDir)
	if err != nil {
		return nil, err
	}
	if st.Manifest == nil {
		return nil, errors.New(errors.ErrNoManifest,
			"no cached manifest found, reconcile the collection first")
	}
	return s.writeListings(st, p)
}

// AddLocal registers a manually managed mod and regenerates the listings
// when a manifest is available.
func (s *Service) AddLocal(stagingDir, name string) (int64, error) {
	st, p, err := s.loadState(stagingDir)
	if err != nil {
		return 0, err
	}

	id := st.AddLocal(name)

	if st.Manifest != nil {
		if _, err := s.writeListings(st, p); err != nil {
			return 0, err
		}
	}

	store := state.NewStore(s.fs, p)
	if err := store.Save(st); err != nil {
		return 0, err
	}
	return id, nil
}

// DeployOptions control one deployment run. Zero values fall back to the
// persisted state and then the configuration.
type DeployOptions struct {
	GameDir      string
	ProtonPrefix string
	Method       types.DeployMethod
	DryRun       bool
}

// Deploy removes the previous deployment generation, classifies the
// staging tree, and materializes the plan into the game directory. The
// deployed-file records are persisted immediately after the run completes
// so a later undeploy only ever targets files that were actually created.
func (s *Service) Deploy(stagingDir string, opts DeployOptions) (*DeploySummary, error) {
	defer logging.LogOperationStart(s.logger, "deploy")()

	st, p, err := s.loadState(stagingDir)
	if err != nil {
		return nil, err
	}

	gameDir := firstNonEmpty(opts.GameDir, st.GameDir, s.cfg.Deploy.GameDir)
	if gameDir == "" {
		return nil, errors.New(errors.ErrGameDirMissing,
			"no game directory known, pass one explicitly or set deploy.game_dir")
	}
	if _, err := s.fs.Stat(gameDir); err != nil {
		return nil, errors.Newf(errors.ErrGameDirMissing,
			"game directory does not exist: %s", gameDir)
	}

	prefix := firstNonEmpty(opts.ProtonPrefix, st.ProtonPrefix, s.cfg.Deploy.ProtonPrefix)

	method := opts.Method
	if method == "" {
		method = types.DeployMethod(s.cfg.Deploy.Method)
	}

	executor := deploy.NewExecutor(s.fs)

	// A new generation wholly invalidates the previous one.
	if len(st.DeployedFiles) > 0 && !opts.DryRun {
		s.logger.Debug().Int("files", len(st.DeployedFiles)).Msg("Removing previous deployment")
		executor.Undeploy(st.DeployedFiles, gameDir)
		st.DeployedFiles = nil
		st.DeployedAt = ""
	}

	classifier := deploy.NewClassifier(st.GameDomain,
		deploy.WithSkipNames(s.cfg.Classify.Skip),
		deploy.WithAssetDirs(s.cfg.Classify.AssetDirs))
	plan, err := classifier.ClassifyTree(s.fs, p.StagingDir())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrFileAccess, "cannot scan staging directory")
	}

	summary := &DeploySummary{
		GameDir:      gameDir,
		SkippedCount: len(plan.Skipped),
		DryRun:       opts.DryRun,
	}
	if plan.TotalFiles() == 0 {
		return summary, nil
	}

	result := executor.Deploy(plan, gameDir, method, opts.DryRun)
	summary.DeployedCount = len(result.Deployed)
	summary.Conflicts = result.Conflicts
	summary.Errors = result.Errors

	if opts.DryRun {
		return summary, nil
	}

	if prefix != "" {
		s.writePrefixFiles(st.GameDomain, prefix, p)
	}

	st.GameDir = gameDir
	if prefix != "" {
		st.ProtonPrefix = prefix
	}
	st.DeployedFiles = result.Deployed
	st.DeployedAt = time.Now().UTC().Format(time.RFC3339)

	store := state.NewStore(s.fs, p)
	if err := store.Save(st); err != nil {
		return nil, err
	}

	return summary, nil
}

// Undeploy reverses the recorded deployment and clears the records.
func (s *Service) Undeploy(stagingDir string) (int, error) {
	st, p, err := s.loadState(stagingDir)
	if err != nil {
		return 0, err
	}
	if len(st.DeployedFiles) == 0 {
		return 0, nil
	}

	executor := deploy.NewExecutor(s.fs)
	removed := executor.Undeploy(st.DeployedFiles, st.GameDir)

	st.DeployedFiles = nil
	st.DeployedAt = ""
	st.GameDir = ""

	store := state.NewStore(s.fs, p)
	if err := store.Save(st); err != nil {
		return removed, err
	}
	return removed, nil
}

// writeListings renders load-order.txt and, for plugin-file games,
// plugins.txt from the cached manifest and current mod records.
func (s *Service) writeListings(st *state.State, p *paths.Paths) ([]string, error) {
	// Manual mods get their phase injected into a copy of the manifest so
	// the cached manifest persisted in state stays exactly as synced.
	manifest := *st.Manifest
	manifest.PhaseMap = make(map[int64]int, len(st.Manifest.PhaseMap))
	for id, phase := range st.Manifest.PhaseMap {
		manifest.PhaseMap[id] = phase
	}

	mods := make([]types.ModRecord, 0, len(st.Mods))
	requirements := make(map[int64][]int64)
	for id, rec := range st.Mods {
		mods = append(mods, *rec)
		if len(rec.Requirements) > 0 {
			requirements[id] = rec.Requirements
		}
		if rec.Manual {
			manifest.PhaseMap[id] = manualPhase
		}
	}

	resolver := loadorder.NewResolver(&manifest, mods, requirements)
	result := resolver.Resolve()
	if result.Cyclic {
		s.logger.Warn().
			Ints64("mods", result.CycleMembers).
			Msg("Collection rules contain an ordering cycle")
	}

	listing := resolver.RenderLoadOrder(result.Order, st.GameDomain)
	if err := s.fs.WriteFile(p.LoadOrderFile(), []byte(listing), 0644); err != nil {
		return nil, errors.Wrap(err, errors.ErrFileWrite, "cannot write load order listing")
	}
	written := []string{paths.LoadOrderFileName}

	if loadorder.IsPluginGame(st.GameDomain) && len(manifest.Plugins) > 0 {
		merged, sorted := loadorder.MergePluginOrder(manifest.Plugins, s.sorter)
		content := loadorder.RenderPlugins(merged, st.GameDomain, sorted)
		if err := s.fs.WriteFile(p.PluginsFile(), []byte(content), 0644); err != nil {
			return nil, errors.Wrap(err, errors.ErrFileWrite, "cannot write plugin listing")
		}
		written = append(written, paths.PluginsFileName)
	}

	return written, nil
}

// writePrefixFiles copies the plugin listing into the Proton prefix and
// maintains the game's custom INI. Failures here are logged, not fatal:
// the deployment itself already succeeded.
func (s *Service) writePrefixFiles(gameDomain, prefix string, p *paths.Paths) {
	if dest := proton.PluginsDest(prefix, gameDomain); dest != "" {
		data, err := s.fs.ReadFile(p.PluginsFile())
		if err == nil {
			if err := s.fs.MkdirAll(filepath.Dir(dest), 0755); err == nil {
				if err := s.fs.WriteFile(dest, data, 0644); err != nil {
					s.logger.Warn().Err(err).Str("dest", dest).Msg("Failed to write plugin listing to prefix")
				}
			}
		}
	}

	if iniPath := proton.GameINIPath(prefix, gameDomain); iniPath != "" {
		if _, err := proton.WriteGameINI(s.fs, iniPath, gameDomain); err != nil {
			s.logger.Warn().Err(err).Str("path", iniPath).Msg("Failed to update game INI")
		}
	}
}

func (s *Service) loadState(stagingDir string) (*state.State, *paths.Paths, error) {
	p, err := paths.New(stagingDir)
	if err != nil {
		return nil, nil, err
	}
	st, err := state.NewStore(s.fs, p).Load()
	if err != nil {
		return nil, nil, err
	}
	return st, p, nil
}

func modStatus(rec types.ModRecord, status string) ModStatus {
	return ModStatus{
		ModID:   rec.ModID,
		Name:    rec.Name,
		Version: rec.Version,
		FileID:  rec.FileID,
		Phase:   rec.Phase,
		Opt:     rec.Optional,
		Manual:  rec.Manual,
		Status:  status,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
