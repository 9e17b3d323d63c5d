package tokens

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/tokenlens/tokenlens/pkg/finder"
	"gitlab.com/tozd/go/errors"
)

// Store owns the process-wide token table. Hover lookups read whatever
// table the last successful load produced; every load replaces the table
// wholesale, so a reader never observes a half-built map.
type Store struct {
	fs     afero.Fs
	finder finder.DefinitionsFinder

	mu     sync.RWMutex
	tokens TokenMap
	path   string

	watcher   *fsnotify.Watcher
	closeOnce sync.Once
}

// NewStore creates an empty store. The table stays empty until the first
// successful Load.
func NewStore(fsys afero.Fs, f finder.DefinitionsFinder) *Store {
	return &Store{fs: fsys, finder: f, tokens: make(TokenMap)}
}

// Load resolves the definitions file, reads and parses it, and swaps in
// the fresh table. Every failure is absorbed here: resolution and read
// errors are logged and the previous table stays in place.
func (s *Store) Load(ctx context.Context) {
	logger := zerolog.Ctx(ctx)

	path, err := s.finder.FindDefinitionsFile(ctx)
	if err != nil {
		logger.Debug().Err(err).Msg("no translation definitions file resolved")
		return
	}

	content, err := afero.ReadFile(s.fs, path)
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("reading translation definitions file")
		return
	}

	table := Parse(string(content))

	s.mu.Lock()
	s.tokens = table
	s.path = path
	s.mu.Unlock()

	logger.Info().Str("path", path).Int("tokens", len(table)).Msg("token table loaded")
}

// Lookup returns the value for name from the current table.
func (s *Store) Lookup(name string) (TokenValue, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.tokens[name]
	return v, ok
}

// Len reports the number of tokens in the current table.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}

// Path returns the definitions file path of the last successful load.
func (s *Store) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// Watch reloads the table on every create or write notification for the
// resolved definitions file. The parent directory is watched rather than
// the file itself: editors that save via rename would otherwise drop the
// watch on the old inode. Requires a prior successful Load.
func (s *Store) Watch(ctx context.Context) error {
	path := s.Path()
	if path == "" {
		return errors.New("no definitions file resolved, nothing to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Errorf("creating file watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return errors.Errorf("watching %s: %w", dir, err)
	}
	s.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != path || !event.Op.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				zerolog.Ctx(ctx).Debug().Str("event", event.String()).Msg("definitions file changed")
				s.Load(ctx)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				zerolog.Ctx(ctx).Error().Err(err).Msg("file watcher error")
			}
		}
	}()

	return nil
}

// Close releases the watcher. Safe to call more than once.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.watcher != nil {
			err = s.watcher.Close()
		}
	})
	return err
}
