package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/matzehuels/sealevel/pkg/buildinfo"
	apperr "github.com/matzehuels/sealevel/pkg/errors"
)

// Manifest is the JSON summary written next to the animations.
type Manifest struct {
	CreatedAt time.Time         `json:"created_at"`
	Build     map[string]string `json:"build"`
	Config    Config            `json:"config"`
	Result    *Result           `json:"result"`
}

// WriteManifest writes the run summary to path as indented JSON.
func WriteManifest(path string, cfg Config, res *Result) error {
	m := Manifest{
		CreatedAt: time.Now().UTC(),
		Build:     buildinfo.Info(),
		Config:    cfg,
		Result:    res,
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.ErrCodeInternal, err, "encode manifest")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return apperr.Wrap(apperr.ErrCodeInvalidPath, err, "create %s", dir)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return apperr.Wrap(apperr.ErrCodeInvalidPath, err, "write manifest %s", path)
	}
	return nil
}

// ReadManifest decodes a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.Wrap(apperr.ErrCodeFileNotFound, err, "manifest %s", path)
		}
		return nil, apperr.Wrap(apperr.ErrCodeInvalidPath, err, "read manifest %s", path)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInvalidInput, err, "decode manifest %s", path)
	}
	return &m, nil
}
