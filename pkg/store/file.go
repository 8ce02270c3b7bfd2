package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/stitchkit/stitch.go/internal/codec"
	"github.com/stitchkit/stitch.go/pkg/constants"
)

const fileVersion = "1"

// File keeps auth info for every app in one JSON file readable only by its
// owner.
type File struct {
	path  string
	codec codec.Codec
	mu    sync.Mutex
}

var _ Store = (*File)(nil)

type fileContents struct {
	Version string               `json:"version"`
	Apps    map[string]*AuthInfo `json:"apps"`
}

func NewFile(path string) *File {
	return &File{path: path, codec: codec.JSON{}}
}

// DefaultPath is ~/.stitch/auth.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".stitch", "auth.json"), nil
}

func (f *File) Load(_ context.Context, appID string) (*AuthInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	contents, err := f.read()
	if err != nil {
		return nil, err
	}
	info, ok := contents.Apps[appID]
	if !ok || info == nil {
		return nil, constants.ErrAuthInfoNotFound
	}
	return info, nil
}

func (f *File) Save(_ context.Context, appID string, info *AuthInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	contents, err := f.read()
	if err != nil {
		return err
	}
	saved := *info
	contents.Apps[appID] = &saved
	return f.write(contents)
}

func (f *File) Clear(_ context.Context, appID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	contents, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := contents.Apps[appID]; !ok {
		return nil
	}
	delete(contents.Apps, appID)
	return f.write(contents)
}

func (f *File) read() (*fileContents, error) {
	contents := &fileContents{Version: fileVersion, Apps: make(map[string]*AuthInfo)}

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return contents, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read auth file: %w", err)
	}

	if err := f.codec.Unmarshal(data, contents); err != nil {
		return nil, fmt.Errorf("failed to parse auth file: %w", err)
	}
	if contents.Apps == nil {
		contents.Apps = make(map[string]*AuthInfo)
	}
	return contents, nil
}

func (f *File) write(contents *fileContents) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("failed to create auth directory: %w", err)
	}

	data, err := f.codec.Marshal(contents)
	if err != nil {
		return fmt.Errorf("failed to marshal auth file: %w", err)
	}

	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write auth file: %w", err)
	}
	return nil
}
