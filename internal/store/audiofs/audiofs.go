// Package audiofs stores raw voice recording audio on the local filesystem,
// one file per voice recording id.
package audiofs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"ai-clinical-scribe-service/internal/errs"
)

// Store reads and writes audio blobs under a base directory.
type Store struct {
	dir string
}

// New creates the base directory if needed and returns a store over it.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errs.Validationf("audio directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the audio bytes for a voice recording, replacing any previous
// content.
func (s *Store) Save(_ context.Context, voiceRecordingID string, audio []byte) error {
	path, err := s.path(voiceRecordingID)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return fmt.Errorf("write audio %s: %w", voiceRecordingID, err)
	}
	return nil
}

// Retrieve returns the audio bytes for a voice recording.
func (s *Store) Retrieve(_ context.Context, voiceRecordingID string) ([]byte, error) {
	path, err := s.path(voiceRecordingID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errs.NotFoundf("audio for voice recording %s not found", voiceRecordingID)
	}
	if err != nil {
		return nil, fmt.Errorf("read audio %s: %w", voiceRecordingID, err)
	}
	return data, nil
}

// path validates the id so a crafted recording id cannot escape the base
// directory.
func (s *Store) path(voiceRecordingID string) (string, error) {
	if voiceRecordingID == "" {
		return "", errs.Validationf("voice recording id is required")
	}
	if strings.ContainsAny(voiceRecordingID, "/\\") || strings.Contains(voiceRecordingID, "..") {
		return "", errs.Validationf("invalid voice recording id %q", voiceRecordingID)
	}
	return filepath.Join(s.dir, voiceRecordingID+".audio"), nil
}
