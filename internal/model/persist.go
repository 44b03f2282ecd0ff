package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"github.com/kailas-cloud/slotdex/internal/domain"
)

const formatVersion = 1

// checkpoint is the on-disk parameter blob.
type checkpoint struct {
	Version int                  `json:"version"`
	Params  map[string][]float64 `json:"params"`
}

// LoadReport lists which parameters a load restored.
type LoadReport struct {
	Loaded  []string
	Skipped []string
}

// Complete reports whether every model parameter was restored.
func (r LoadReport) Complete() bool { return len(r.Skipped) == 0 }

// StateDict returns a copy of every parameter keyed by name.
func (m *Model) StateDict() map[string][]float64 {
	out := make(map[string][]float64)
	for _, p := range m.Params() {
		out[p.Name] = append([]float64(nil), p.Data...)
	}
	return out
}

// LoadStateDict copies matching entries into the model. A parameter is restored only when
// the name exists and the length matches; everything else keeps its current value.
func (m *Model) LoadStateDict(state map[string][]float64) LoadReport {
	var r LoadReport
	for _, p := range m.Params() {
		src, ok := state[p.Name]
		if !ok || len(src) != len(p.Data) {
			r.Skipped = append(r.Skipped, p.Name)
			continue
		}
		copy(p.Data, src)
		r.Loaded = append(r.Loaded, p.Name)
	}
	return r
}

// Save writes the parameters to path, replacing any existing file atomically.
func (m *Model) Save(path string) error {
	data, err := json.Marshal(checkpoint{Version: formatVersion, Params: m.StateDict()})
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create model dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}

// Load reads parameters from path non-strictly (see LoadStateDict).
func (m *Model) Load(path string) (LoadReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return LoadReport{}, fmt.Errorf("%w: %s not found", domain.ErrModelLoad, path)
		}
		return LoadReport{}, fmt.Errorf("%w: read: %w", domain.ErrModelLoad, err)
	}
	var cp checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return LoadReport{}, fmt.Errorf("%w: decode: %w", domain.ErrModelLoad, err)
	}
	return m.LoadStateDict(cp.Params), nil
}
