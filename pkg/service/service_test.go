package service_test

import (
	"encoding/json"
	"testing"

	"github.com/modcollect/modcollect/pkg/config"
	"github.com/modcollect/modcollect/pkg/errors"
	"github.com/modcollect/modcollect/pkg/filesystem"
	"github.com/modcollect/modcollect/pkg/service"
	"github.com/modcollect/modcollect/pkg/types"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stagingDir = "/home/user/collection"

func testConfig() *config.Config {
	return &config.Config{
		Deploy: config.DeployConfig{Method: "copy"},
	}
}

func newTestService(t *testing.T) (*service.Service, afero.Fs) {
	t.Helper()
	mem := afero.NewMemMapFs()
	require.NoError(t, mem.MkdirAll(stagingDir, 0755))
	return service.New(filesystem.NewAferoFS(mem), testConfig()), mem
}

func meta() service.CollectionMeta {
	return service.CollectionMeta{
		URL:        "https://next.nexusmods.com/starfield/collections/abc123",
		Name:       "Test Collection",
		Revision:   3,
		GameDomain: "starfield",
	}
}

func manifest() *types.CollectionManifest {
	return &types.CollectionManifest{
		PhaseMap: map[int64]int{10: 0, 11: 1},
		Plugins: []types.PluginEntry{
			{Filename: "base.esm", Enabled: true},
		},
	}
}

func latestMods() []types.ModRecord {
	return []types.ModRecord{
		{ModID: 10, Name: "Base Pack", FileID: 100, Version: "1.0"},
		{ModID: 11, Name: "Patch", FileID: 200, Version: "2.1"},
	}
}

func TestReconcileInitialSync(t *testing.T) {
	svc, mem := newTestService(t)

	result, err := svc.Reconcile(stagingDir, meta(), latestMods(), manifest())
	require.NoError(t, err)

	assert.Len(t, result.Diff.ToInstall, 2)
	assert.Empty(t, result.Diff.ToUpdate)
	assert.Empty(t, result.Diff.ToRemove)
	assert.Contains(t, result.ListingFiles, "load-order.txt")
	assert.Contains(t, result.ListingFiles, "plugins.txt")

	// Phases come from the manifest.
	installed := map[int64]int{}
	for _, mod := range result.Diff.ToInstall {
		installed[mod.ModID] = mod.Phase
	}
	assert.Equal(t, map[int64]int{10: 0, 11: 1}, installed)

	exists, err := afero.Exists(mem, stagingDir+"/.modcollect-state.json")
	require.NoError(t, err)
	assert.True(t, exists)

	listing, err := afero.ReadFile(mem, stagingDir+"/load-order.txt")
	require.NoError(t, err)
	assert.Contains(t, string(listing), "[10] Base Pack")
	assert.Contains(t, string(listing), "[11] Patch")
}

func TestReconcileRequiresManifest(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Reconcile(stagingDir, meta(), latestMods(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrManifestInvalid))
}

func TestReconcileDetectsUpdatesAndRemovals(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Reconcile(stagingDir, meta(), latestMods(), manifest())
	require.NoError(t, err)

	// Mod 10 has a new file, mod 11 is gone, mod 12 appears.
	next := []types.ModRecord{
		{ModID: 10, Name: "Base Pack", FileID: 150, Version: "1.1"},
		{ModID: 12, Name: "Addon", FileID: 300, Version: "0.9"},
	}
	m := manifest()
	m.PhaseMap[12] = 1

	result, err := svc.Reconcile(stagingDir, meta(), next, m)
	require.NoError(t, err)

	require.Len(t, result.Diff.ToUpdate, 1)
	assert.Equal(t, int64(10), result.Diff.ToUpdate[0].ModID)
	require.Len(t, result.Diff.ToInstall, 1)
	assert.Equal(t, int64(12), result.Diff.ToInstall[0].ModID)
	assert.Equal(t, []int64{11}, result.Diff.ToRemove)
}

func TestStatusInstalledOnly(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Reconcile(stagingDir, meta(), latestMods(), manifest())
	require.NoError(t, err)

	result, err := svc.Status(stagingDir, nil)
	require.NoError(t, err)

	assert.Equal(t, "Test Collection", result.CollectionName)
	assert.Equal(t, int64(3), result.InstalledRevision)
	require.Len(t, result.Mods, 2)
	// Sorted by mod id, all reported as installed.
	assert.Equal(t, int64(10), result.Mods[0].ModID)
	assert.Equal(t, int64(11), result.Mods[1].ModID)
	for _, mod := range result.Mods {
		assert.Equal(t, "installed", mod.Status)
	}
}

func TestStatusAgainstLatest(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Reconcile(stagingDir, meta(), latestMods(), manifest())
	require.NoError(t, err)

	next := []types.ModRecord{
		{ModID: 10, Name: "Base Pack", FileID: 150},
		{ModID: 12, Name: "Addon", FileID: 300},
	}

	result, err := svc.Status(stagingDir, next)
	require.NoError(t, err)

	byID := map[int64]string{}
	for _, mod := range result.Mods {
		byID[mod.ModID] = mod.Status
	}
	assert.Equal(t, "update_available", byID[10])
	assert.Equal(t, "removed", byID[11])
	assert.Equal(t, "not_installed", byID[12])
}

func TestStatusNoState(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Status(stagingDir, nil)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrStateNotFound))
}

func TestRegenerateLoadOrderRequiresManifest(t *testing.T) {
	svc, mem := newTestService(t)

	// A state file without a cached manifest (never reconciled).
	require.NoError(t, afero.WriteFile(mem, stagingDir+"/.modcollect-state.json",
		[]byte(`{"mods": {}}`), 0644))

	_, err := svc.RegenerateLoadOrder(stagingDir)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrNoManifest))
}

func TestRegenerateLoadOrder(t *testing.T) {
	svc, mem := newTestService(t)

	_, err := svc.Reconcile(stagingDir, meta(), latestMods(), manifest())
	require.NoError(t, err)
	require.NoError(t, mem.Remove(stagingDir+"/load-order.txt"))

	written, err := svc.RegenerateLoadOrder(stagingDir)
	require.NoError(t, err)
	assert.Contains(t, written, "load-order.txt")

	exists, err := afero.Exists(mem, stagingDir+"/load-order.txt")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestAddLocal(t *testing.T) {
	svc, mem := newTestService(t)

	_, err := svc.Reconcile(stagingDir, meta(), latestMods(), manifest())
	require.NoError(t, err)

	id, err := svc.AddLocal(stagingDir, "My Handmade Patch")
	require.NoError(t, err)
	assert.Equal(t, int64(-1), id)

	second, err := svc.AddLocal(stagingDir, "Another One")
	require.NoError(t, err)
	assert.Equal(t, int64(-2), second)

	// Manual mods regenerate the listing and land in the last phase group.
	listing, err := afero.ReadFile(mem, stagingDir+"/load-order.txt")
	require.NoError(t, err)
	assert.Contains(t, string(listing), "# --- Phase 999 ---")
	assert.Contains(t, string(listing), "My Handmade Patch")

	// They survive a reconcile against a list that does not mention them.
	result, err := svc.Reconcile(stagingDir, meta(), latestMods(), manifest())
	require.NoError(t, err)
	assert.Empty(t, result.Diff.ToRemove)

	status, err := svc.Status(stagingDir, nil)
	require.NoError(t, err)
	assert.Len(t, status.Mods, 4)
}

func TestAddLocalKeepsCachedManifestAsSynced(t *testing.T) {
	svc, mem := newTestService(t)

	_, err := svc.Reconcile(stagingDir, meta(), latestMods(), manifest())
	require.NoError(t, err)

	id, err := svc.AddLocal(stagingDir, "Local Tweaks")
	require.NoError(t, err)

	// The manual phase only exists in the rendered listing; the manifest
	// persisted in state carries exactly the synced phase map.
	listing, err := afero.ReadFile(mem, stagingDir+"/load-order.txt")
	require.NoError(t, err)
	assert.Contains(t, string(listing), "# --- Phase 999 ---")

	raw, err := afero.ReadFile(mem, stagingDir+"/.modcollect-state.json")
	require.NoError(t, err)
	var persisted struct {
		Manifest struct {
			PhaseMap map[int64]int `json:"phase_map"`
		} `json:"manifest"`
	}
	require.NoError(t, json.Unmarshal(raw, &persisted))
	assert.Equal(t, map[int64]int{10: 0, 11: 1}, persisted.Manifest.PhaseMap)
	assert.NotContains(t, persisted.Manifest.PhaseMap, id)
}

func TestDeployAndUndeploy(t *testing.T) {
	svc, mem := newTestService(t)
	gameDir := "/games/starfield"
	require.NoError(t, mem.MkdirAll(gameDir, 0755))

	_, err := svc.Reconcile(stagingDir, meta(), latestMods(), manifest())
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(mem, stagingDir+"/quest.esp", []byte("plugin"), 0644))
	require.NoError(t, afero.WriteFile(mem, stagingDir+"/Meshes/foo.nif", []byte("mesh"), 0644))
	require.NoError(t, afero.WriteFile(mem, stagingDir+"/README.md", []byte("docs"), 0644))

	summary, err := svc.Deploy(stagingDir, service.DeployOptions{GameDir: gameDir})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.DeployedCount)
	assert.Empty(t, summary.Errors)
	assert.False(t, summary.DryRun)
	// The listing files and the README are skipped, not deployed.
	assert.GreaterOrEqual(t, summary.SkippedCount, 1)

	content, err := afero.ReadFile(mem, gameDir+"/Data/quest.esp")
	require.NoError(t, err)
	assert.Equal(t, "plugin", string(content))

	// The records round-trip through state so undeploy can reverse them.
	removed, err := svc.Undeploy(stagingDir)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	exists, err := afero.Exists(mem, gameDir+"/Data/quest.esp")
	require.NoError(t, err)
	assert.False(t, exists)

	// A second undeploy is a no-op.
	removed, err = svc.Undeploy(stagingDir)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestDeployDryRunLeavesGameDirUntouched(t *testing.T) {
	svc, mem := newTestService(t)
	gameDir := "/games/starfield"
	require.NoError(t, mem.MkdirAll(gameDir, 0755))

	_, err := svc.Reconcile(stagingDir, meta(), latestMods(), manifest())
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(mem, stagingDir+"/quest.esp", []byte("plugin"), 0644))

	summary, err := svc.Deploy(stagingDir, service.DeployOptions{GameDir: gameDir, DryRun: true})
	require.NoError(t, err)

	assert.True(t, summary.DryRun)
	assert.Equal(t, 1, summary.DeployedCount)

	exists, err := afero.Exists(mem, gameDir+"/Data/quest.esp")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDeployNoGameDir(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Reconcile(stagingDir, meta(), latestMods(), manifest())
	require.NoError(t, err)

	_, err = svc.Deploy(stagingDir, service.DeployOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrGameDirMissing))
}

func TestDeployMissingGameDir(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Reconcile(stagingDir, meta(), latestMods(), manifest())
	require.NoError(t, err)

	_, err = svc.Deploy(stagingDir, service.DeployOptions{GameDir: "/games/nope"})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrGameDirMissing))
}

func TestDeployReplacesPreviousGeneration(t *testing.T) {
	svc, mem := newTestService(t)
	gameDir := "/games/starfield"
	require.NoError(t, mem.MkdirAll(gameDir, 0755))

	_, err := svc.Reconcile(stagingDir, meta(), latestMods(), manifest())
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(mem, stagingDir+"/old.esp", []byte("old"), 0644))
	_, err = svc.Deploy(stagingDir, service.DeployOptions{GameDir: gameDir})
	require.NoError(t, err)

	// The staged file is replaced between deployments.
	require.NoError(t, mem.Remove(stagingDir+"/old.esp"))
	require.NoError(t, afero.WriteFile(mem, stagingDir+"/new.esp", []byte("new"), 0644))

	_, err = svc.Deploy(stagingDir, service.DeployOptions{GameDir: gameDir})
	require.NoError(t, err)

	exists, err := afero.Exists(mem, gameDir+"/Data/old.esp")
	require.NoError(t, err)
	assert.False(t, exists, "previous generation must be removed")

	content, err := afero.ReadFile(mem, gameDir+"/Data/new.esp")
	require.NoError(t, err)
	assert.Equal(t, "new", string(content))
}

func TestDeployWritesProtonPrefixFiles(t *testing.T) {
	svc, mem := newTestService(t)
	gameDir := "/games/starfield"
	prefix := "/steam/compatdata/1716740/pfx"
	require.NoError(t, mem.MkdirAll(gameDir, 0755))

	_, err := svc.Reconcile(stagingDir, meta(), latestMods(), manifest())
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(mem, stagingDir+"/quest.esp", []byte("plugin"), 0644))

	_, err = svc.Deploy(stagingDir, service.DeployOptions{GameDir: gameDir, ProtonPrefix: prefix})
	require.NoError(t, err)

	pluginsCopy := prefix + "/drive_c/users/steamuser/AppData/Local/Starfield/plugins.txt"
	exists, err := afero.Exists(mem, pluginsCopy)
	require.NoError(t, err)
	assert.True(t, exists)

	ini, err := afero.ReadFile(mem,
		prefix+"/drive_c/users/steamuser/Documents/My Games/Starfield/StarfieldCustom.ini")
	require.NoError(t, err)
	assert.Contains(t, string(ini), "bInvalidateOlderFiles=1")
}
