package update

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/samsaffron/streammd/internal/config"
)

const stateFileName = "update-state.json"

// State is the persisted record of update checks, stored next to the
// config file.
type State struct {
	LastChecked     time.Time `json:"last_checked"`
	LatestVersion   string    `json:"latest_version,omitempty"`
	LastError       string    `json:"last_error,omitempty"`
	NotifiedVersion string    `json:"notified_version,omitempty"`
	LastNotified    time.Time `json:"last_notified,omitzero"`
}

// LoadState reads the persisted check state. A missing file is an empty
// state, not an error.
func LoadState() (*State, error) {
	dir, err := config.GetConfigDir()
	if err != nil {
		return nil, err
	}
	return loadStateFromDir(dir)
}

func loadStateFromDir(dir string) (*State, error) {
	data, err := os.ReadFile(filepath.Join(dir, stateFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return &State{}, nil
	}
	if err != nil {
		return nil, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		// A corrupt state file starts the schedule over.
		return &State{}, nil
	}
	return &state, nil
}

// SaveState persists the check state.
func SaveState(state *State) error {
	dir, err := config.GetConfigDir()
	if err != nil {
		return err
	}
	return saveStateToDir(dir, state)
}

func saveStateToDir(dir string, state *State) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, stateFileName), data, 0o600)
}
