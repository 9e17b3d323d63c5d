// Package finder locates the generated translation-definitions file inside
// a workspace.
package finder

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// DefaultSearchPattern matches the generated definitions file anywhere in
// the workspace when no explicit path is configured.
const DefaultSearchPattern = "**/translations.{ts,js}"

// DefinitionsFinder resolves the absolute path of the
// translation-definitions file for a workspace.
type DefinitionsFinder interface {
	FindDefinitionsFile(ctx context.Context) (string, error)
}

// DefaultFinder is the default implementation of DefinitionsFinder. It
// prefers the user-configured relative path and falls back to a filename
// search over the workspace.
type DefaultFinder struct {
	fs        afero.Fs
	workspace string

	mu      sync.RWMutex
	relPath string
}

// NewDefaultFinder creates a DefaultFinder rooted at workspace. relPath
// may be empty, in which case the filename search is used.
func NewDefaultFinder(fsys afero.Fs, workspace, relPath string) *DefaultFinder {
	return &DefaultFinder{fs: fsys, workspace: workspace, relPath: relPath}
}

// SetRelativePath updates the configured relative path. An empty value
// restores the filename search.
func (f *DefaultFinder) SetRelativePath(relPath string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.relPath = relPath
}

func (f *DefaultFinder) relativePath() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.relPath
}

// FindDefinitionsFile implements DefinitionsFinder.
func (f *DefaultFinder) FindDefinitionsFile(ctx context.Context) (string, error) {
	if f.workspace == "" {
		return "", errors.New("no workspace open")
	}

	if rel := f.relativePath(); rel != "" {
		path := filepath.Join(f.workspace, filepath.FromSlash(rel))
		ok, err := afero.Exists(f.fs, path)
		if err != nil {
			return "", errors.Errorf("checking configured definitions file %s: %w", path, err)
		}
		if !ok {
			return "", errors.Errorf("configured definitions file %s does not exist", path)
		}
		return path, nil
	}

	matches, err := doublestar.Glob(afero.NewIOFS(afero.NewBasePathFs(f.fs, f.workspace)), DefaultSearchPattern)
	if err != nil {
		return "", errors.Errorf("searching workspace for definitions file: %w", err)
	}
	if len(matches) == 0 {
		return "", errors.New("no translation definitions file found in workspace")
	}

	// Deterministic pick when the workspace holds more than one candidate.
	sort.Strings(matches)
	path := filepath.Join(f.workspace, filepath.FromSlash(matches[0]))

	zerolog.Ctx(ctx).Debug().Str("path", path).Int("candidates", len(matches)).Msg("located definitions file by search")

	return path, nil
}
