package deploy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/modcollect/modcollect/pkg/logging"
	"github.com/modcollect/modcollect/pkg/paths"
	"github.com/modcollect/modcollect/pkg/types"
	"github.com/rs/zerolog"
)

// Executor materializes and removes deployment plan entries. Operations are
// idempotent per entry: re-running the same plan replaces what an earlier
// run created. Per-file failures never abort the run; they accumulate in
// the result so partial completion is a valid, recorded state.
type Executor struct {
	fs     types.FS
	logger zerolog.Logger
}

// NewExecutor creates an executor over the given filesystem.
func NewExecutor(fsys types.FS) *Executor {
	return &Executor{
		fs:     fsys,
		logger: logging.GetLogger("deploy.executor"),
	}
}

// Deploy executes a plan against the game directory. Game-root entries land
// relative to gameDir, data entries relative to gameDir/Data. When two
// sources map to the same destination a conflict is recorded and the later
// entry wins. With dryRun the same records and conflicts are produced but
// the filesystem is never touched.
func (e *Executor) Deploy(plan *types.DeploymentPlan, gameDir string, method types.DeployMethod, dryRun bool) types.DeployResult {
	var result types.DeployResult
	dataDir := filepath.Join(gameDir, paths.DataDirName)

	seenDests := make(map[string]string)

	run := func(entries []types.PlanEntry, baseDir string) {
		for _, entry := range entries {
			dest := filepath.Join(baseDir, filepath.FromSlash(entry.Dest))

			if prev, ok := seenDests[dest]; ok {
				result.Conflicts = append(result.Conflicts, fmt.Sprintf(
					"%s: overwritten by %s (was %s)",
					entry.Dest, filepath.Base(entry.Source), filepath.Base(prev)))
			}
			seenDests[dest] = entry.Source

			if dryRun {
				result.Deployed = append(result.Deployed, types.DeployedFile{
					Source: entry.Source, Dest: dest, Method: method,
				})
				continue
			}

			if err := e.deployFile(entry.Source, dest, method); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", entry.Dest, err))
				continue
			}
			result.Deployed = append(result.Deployed, types.DeployedFile{
				Source: entry.Source, Dest: dest, Method: method,
			})
		}
	}

	run(plan.GameRoot, gameDir)
	run(plan.Data, dataDir)

	e.logger.Info().
		Int("deployed", len(result.Deployed)).
		Int("conflicts", len(result.Conflicts)).
		Int("errors", len(result.Errors)).
		Bool("dryRun", dryRun).
		Msg("Deployment finished")

	return result
}

// deployFile creates one destination entry, replacing any pre-existing
// file or symlink at that path.
func (e *Executor) deployFile(source, dest string, method types.DeployMethod) error {
	if err := e.fs.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	if _, err := e.fs.Lstat(dest); err == nil {
		if err := e.fs.Remove(dest); err != nil {
			return fmt.Errorf("failed to remove existing destination: %w", err)
		}
	}

	if method == types.MethodCopy {
		data, err := e.fs.ReadFile(source)
		if err != nil {
			return fmt.Errorf("failed to read source: %w", err)
		}
		if err := e.fs.WriteFile(dest, data, 0644); err != nil {
			return fmt.Errorf("failed to write destination: %w", err)
		}
		return nil
	}

	absSource, err := filepath.Abs(source)
	if err != nil {
		return fmt.Errorf("failed to resolve source: %w", err)
	}
	if err := e.fs.Symlink(absSource, dest); err != nil {
		return fmt.Errorf("failed to create symlink: %w", err)
	}
	return nil
}

// Undeploy removes exactly the recorded destinations and returns the count
// of entries actually removed. After each removal, now-empty parent
// directories are pruned upward, stopping at the data tree root or the
// game root so unrelated directories are untouched.
func (e *Executor) Undeploy(records []types.DeployedFile, gameDir string) int {
	removed := 0
	for _, record := range records {
		if _, err := e.fs.Lstat(record.Dest); err != nil {
			continue
		}
		if err := e.fs.Remove(record.Dest); err != nil {
			e.logger.Warn().Err(err).Str("dest", record.Dest).Msg("Failed to remove deployed file")
			continue
		}
		removed++
		e.pruneEmptyParents(filepath.Dir(record.Dest), gameDir)
	}

	e.logger.Info().Int("removed", removed).Msg("Undeploy finished")
	return removed
}

// pruneEmptyParents removes empty directories walking upward from dir. It
// never removes the data tree root, the game root, or anything above them.
func (e *Executor) pruneEmptyParents(dir, gameDir string) {
	for {
		base := filepath.Base(dir)
		if base == "" || base == string(os.PathSeparator) || base == "." {
			return
		}
		if strings.EqualFold(base, paths.DataDirName) {
			return
		}
		if gameDir != "" && filepath.Clean(dir) == filepath.Clean(gameDir) {
			return
		}

		entries, err := e.fs.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := e.fs.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
