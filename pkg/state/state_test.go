package state_test

import (
	"path/filepath"
	"testing"

	"github.com/modcollect/modcollect/pkg/errors"
	"github.com/modcollect/modcollect/pkg/filesystem"
	"github.com/modcollect/modcollect/pkg/paths"
	"github.com/modcollect/modcollect/pkg/state"
	"github.com/modcollect/modcollect/pkg/types"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*state.Store, types.FS, *paths.Paths) {
	t.Helper()

	fs := filesystem.NewAferoFS(afero.NewMemMapFs())
	p, err := paths.New(filepath.Join(t.TempDir(), "staging"))
	require.NoError(t, err)

	return state.NewStore(fs, p), fs, p
}

func TestStoreLoadMissing(t *testing.T) {
	store, _, _ := newTestStore(t)

	_, err := store.Load()
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrStateNotFound))
	assert.False(t, store.Exists())
}

func TestStoreLoadInvalid(t *testing.T) {
	store, fs, p := newTestStore(t)

	require.NoError(t, fs.MkdirAll(p.StagingDir(), 0755))
	require.NoError(t, fs.WriteFile(p.StateFile(), []byte("{not json"), 0644))

	_, err := store.Load()
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrStateParse))
}

func TestStoreSaveLoadRoundtrip(t *testing.T) {
	store, _, _ := newTestStore(t)

	st := state.NewState()
	st.SetCollection("https://next.nexusmods.com/starfield/collections/abc", "Test Pack", 3, "starfield")
	st.AddMod(types.ModRecord{
		ModID:        10,
		Name:         "Alpha",
		FileID:       100,
		Version:      "1.2.0",
		Filename:     "alpha.7z",
		Phase:        1,
		Requirements: []int64{11},
	})
	st.Manifest = &types.CollectionManifest{
		PhaseMap: map[int64]int{10: 1},
		Plugins:  []types.PluginEntry{{Filename: "alpha.esm", Enabled: true}},
	}
	st.DeployedFiles = []types.DeployedFile{
		{Source: "/staging/a.esp", Dest: "/game/Data/a.esp", Method: types.MethodSymlink},
	}

	require.NoError(t, store.Save(st))
	assert.True(t, store.Exists())

	loaded, err := store.Load()
	require.NoError(t, err)

	assert.Equal(t, "Test Pack", loaded.CollectionName)
	assert.Equal(t, int64(3), loaded.CollectionRevision)
	assert.Equal(t, "starfield", loaded.GameDomain)
	require.NotNil(t, loaded.GetMod(10))
	assert.Equal(t, int64(100), loaded.GetMod(10).FileID)
	assert.NotEmpty(t, loaded.GetMod(10).InstalledAt)
	require.NotNil(t, loaded.Manifest)
	assert.Equal(t, 1, loaded.Manifest.Phase(10))
	require.Len(t, loaded.DeployedFiles, 1)
	assert.Equal(t, types.MethodSymlink, loaded.DeployedFiles[0].Method)
}

func TestAddLocalAllocatesNegativeIDs(t *testing.T) {
	st := state.NewState()
	st.AddMod(types.ModRecord{ModID: 42, Name: "remote"})

	first := st.AddLocal("first")
	second := st.AddLocal("second")

	assert.Equal(t, int64(-1), first)
	assert.Equal(t, int64(-2), second)
	assert.True(t, st.GetMod(first).Manual)
	assert.True(t, st.GetMod(second).Manual)
}
