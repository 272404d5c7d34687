package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zhouzirui/z-interview/backend/internal/storage"
)

var artifactFilenames = map[string]string{
	storage.KindSession:       "session.json",
	storage.KindInterviewPrep: "interview_prep.json",
	storage.KindPipelineTrace: "pipeline_trace.json",
	storage.KindAudio:         "audio.ogg",
	storage.KindEnhanced:      "enhanced_resume.json",
}

// Store persists one directory per session under a base directory.
type Store struct {
	base string
}

// NewStore creates the base directory if needed.
func NewStore(base string) (*Store, error) {
	if strings.TrimSpace(base) == "" {
		return nil, fmt.Errorf("storage base directory is required")
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Store{base: base}, nil
}

func (s *Store) path(sessionID, kind, ext string) (string, error) {
	if sessionID == "" || strings.ContainsAny(sessionID, `/\`) || sessionID == "." || sessionID == ".." {
		return "", fmt.Errorf("invalid session id %q", sessionID)
	}
	name, ok := artifactFilenames[kind]
	if !ok {
		name = kind + "." + ext
	}
	return filepath.Join(s.base, sessionID, name), nil
}

func (s *Store) write(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp, path)
}

func (s *Store) read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	return data, err
}

// SaveJSON writes payload as indented JSON.
func (s *Store) SaveJSON(_ context.Context, sessionID, kind string, payload any) error {
	path, err := s.path(sessionID, kind, "json")
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	return s.write(path, data)
}

// LoadJSON decodes a stored JSON document.
func (s *Store) LoadJSON(_ context.Context, sessionID, kind string, out any) error {
	path, err := s.path(sessionID, kind, "json")
	if err != nil {
		return err
	}
	data, err := s.read(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", kind, err)
	}
	return nil
}

// SaveArtifact writes a binary artifact.
func (s *Store) SaveArtifact(_ context.Context, sessionID, kind string, data []byte) error {
	path, err := s.path(sessionID, kind, "bin")
	if err != nil {
		return err
	}
	return s.write(path, data)
}

// LoadArtifact reads a binary artifact.
func (s *Store) LoadArtifact(_ context.Context, sessionID, kind string) ([]byte, error) {
	path, err := s.path(sessionID, kind, "bin")
	if err != nil {
		return nil, err
	}
	return s.read(path)
}

// ListSessions returns session directories, most recently modified first.
func (s *Store) ListSessions(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.base)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	type dirInfo struct {
		name    string
		modTime int64
	}
	dirs := make([]dirInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		dirs = append(dirs, dirInfo{name: entry.Name(), modTime: info.ModTime().UnixNano()})
	}
	sort.Slice(dirs, func(i, j int) bool {
		if dirs[i].modTime == dirs[j].modTime {
			return dirs[i].name > dirs[j].name
		}
		return dirs[i].modTime > dirs[j].modTime
	})

	ids := make([]string, len(dirs))
	for i, d := range dirs {
		ids[i] = d.name
	}
	return ids, nil
}
