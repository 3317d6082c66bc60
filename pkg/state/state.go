// Package state persists the installation record for one staging directory:
// collection identity, per-mod records, the cached manifest, and the files
// created by the most recent deployment. It is the durable contract that
// status displays and re-deployment read back.
//
// The embedding application must ensure only one state mutation is in
// flight per staging directory; this package performs no locking.
package state

import (
	"encoding/json"
	"io/fs"
	"os"
	"time"

	"github.com/modcollect/modcollect/pkg/errors"
	"github.com/modcollect/modcollect/pkg/logging"
	"github.com/modcollect/modcollect/pkg/paths"
	"github.com/modcollect/modcollect/pkg/types"
)

// State is the persisted installation record for a staging directory.
type State struct {
	CollectionURL      string                     `json:"collection_url"`
	CollectionName     string                     `json:"collection_name"`
	CollectionRevision int64                      `json:"collection_revision"`
	GameDomain         string                     `json:"game_domain"`
	Manifest           *types.CollectionManifest  `json:"manifest,omitempty"`
	Mods               map[int64]*types.ModRecord `json:"mods"`
	GameDir            string                     `json:"game_dir,omitempty"`
	ProtonPrefix       string                     `json:"proton_prefix,omitempty"`
	DeployedFiles      []types.DeployedFile       `json:"deployed_files,omitempty"`
	DeployedAt         string                     `json:"deployed_at,omitempty"`
	TrackSyncEnabled   bool                       `json:"track_sync_enabled,omitempty"`
}

// Store loads and saves State for one staging directory.
type Store struct {
	fs    types.FS
	paths *paths.Paths
}

// New creates a state store for the given staging directory.
func NewStore(fsys types.FS, p *paths.Paths) *Store {
	return &Store{fs: fsys, paths: p}
}

// Exists reports whether a state file is present.
func (s *Store) Exists() bool {
	_, err := s.fs.Stat(s.paths.StateFile())
	return err == nil
}

// Load reads and parses the state file. A missing file is a
// STATE_NOT_FOUND error; unparseable content is STATE_PARSE.
func (s *Store) Load() (*State, error) {
	logger := logging.GetLogger("state")

	data, err := s.fs.ReadFile(s.paths.StateFile())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrStateNotFound,
				"no state file found at %s", s.paths.StateFile())
		}
		return nil, errors.Wrapf(err, errors.ErrFileAccess,
			"cannot read state file %s", s.paths.StateFile())
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, errors.Wrap(err, errors.ErrStateParse, "invalid state file")
	}
	if st.Mods == nil {
		st.Mods = make(map[int64]*types.ModRecord)
	}

	logger.Debug().
		Str("collection", st.CollectionName).
		Int("mods", len(st.Mods)).
		Msg("State loaded")

	return &st, nil
}

// Save writes the state file atomically (temp file + rename) so an
// interrupted run never leaves a truncated record behind.
func (s *Store) Save(st *State) error {
	logger := logging.GetLogger("state")

	if err := s.fs.MkdirAll(s.paths.StagingDir(), 0755); err != nil {
		return errors.Wrap(err, errors.ErrDirCreate, "cannot create staging directory")
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrStateWrite, "cannot encode state")
	}

	target := s.paths.StateFile()
	tmp := target + ".tmp"
	if err := s.fs.WriteFile(tmp, data, fs.FileMode(0644)); err != nil {
		return errors.Wrapf(err, errors.ErrStateWrite, "cannot write %s", tmp)
	}
	if err := s.fs.Rename(tmp, target); err != nil {
		return errors.Wrapf(err, errors.ErrStateWrite, "cannot replace %s", target)
	}

	logger.Debug().
		Str("path", target).
		Int("mods", len(st.Mods)).
		Msg("State saved")

	return nil
}

// NewState returns an empty state record.
func NewState() *State {
	return &State{Mods: make(map[int64]*types.ModRecord)}
}

// SetCollection records collection identity metadata.
func (st *State) SetCollection(url, name string, revision int64, gameDomain string) {
	st.CollectionURL = url
	st.CollectionName = name
	st.CollectionRevision = revision
	st.GameDomain = gameDomain
}

// AddMod adds or replaces a mod record, stamping the install time when the
// record does not carry one.
func (st *State) AddMod(rec types.ModRecord) {
	if rec.InstalledAt == "" {
		rec.InstalledAt = time.Now().UTC().Format(time.RFC3339)
	}
	st.Mods[rec.ModID] = &rec
}

// RemoveMod deletes a mod record if present.
func (st *State) RemoveMod(modID int64) {
	delete(st.Mods, modID)
}

// GetMod returns the record for a mod id, or nil.
func (st *State) GetMod(modID int64) *types.ModRecord {
	return st.Mods[modID]
}

// AddLocal registers a manually managed mod under a fresh synthetic
// negative id and returns that id. Manual mods have no upstream
// counterpart and are exempt from removal in diffs.
func (st *State) AddLocal(name string) int64 {
	id := int64(-1)
	for existing := range st.Mods {
		if existing <= id {
			id = existing - 1
		}
	}
	st.AddMod(types.ModRecord{
		ModID:  id,
		Name:   name,
		Manual: true,
	})
	return id
}
