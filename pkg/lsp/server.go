// Package lsp wires the token table, locator, and hover rendering into a
// language server.
package lsp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/creachadair/jrpc2"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/tokenlens/tokenlens/pkg/finder"
	"github.com/tokenlens/tokenlens/pkg/hover"
	"github.com/tokenlens/tokenlens/pkg/locator"
	"github.com/tokenlens/tokenlens/pkg/lsp/protocol"
	"github.com/tokenlens/tokenlens/pkg/position"
	"github.com/tokenlens/tokenlens/pkg/tokens"
	"gitlab.com/tozd/go/errors"
)

// Options configures a Server.
type Options struct {
	// Workspace is the workspace root path. When empty it is taken from
	// the initialize request.
	Workspace string
	// DefinitionsPath is the configured path of the definitions file,
	// relative to the workspace. Empty means filename search.
	DefinitionsPath string
	// FS is the filesystem documents and definitions are read from.
	// Defaults to the OS filesystem.
	FS afero.Fs
}

// Server represents an LSP server instance
type Server struct {
	id        string
	documents *DocumentManager
	finder    *finder.DefaultFinder
	store     *tokens.Store

	workspace   string
	definitions string
	fs          afero.Fs

	initialized bool
	shutdown    bool

	callbackClient protocol.Client
}

var _ protocol.Server = (*Server)(nil)

func NewServer(ctx context.Context, opts Options) *Server {
	fsys := opts.FS
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	s := &Server{
		id:          xid.New().String(),
		documents:   NewDocumentManager(fsys),
		workspace:   opts.Workspace,
		definitions: opts.DefinitionsPath,
		fs:          fsys,
	}
	s.rebuildResolution()
	return s
}

// rebuildResolution recreates the finder and store for the current
// workspace and configured path. Called when either changes.
func (s *Server) rebuildResolution() {
	s.finder = finder.NewDefaultFinder(s.fs, s.workspace, s.definitions)
	s.store = tokens.NewStore(s.fs, s.finder)
}

func (s *Server) SetCallbackClient(client protocol.Client) {
	s.callbackClient = client
}

// Store exposes the token store, mainly to the CLI and tests.
func (s *Server) Store() *tokens.Store {
	return s.store
}

// BuildServerInstance wires this server into a jrpc2 instance serving
// LSP-framed JSON-RPC.
func (s *Server) BuildServerInstance(ctx context.Context, opts *jrpc2.ServerOptions) *protocol.ServerInstance {
	instance := protocol.NewServerInstance(ctx, s, opts)
	s.SetCallbackClient(instance.Callback())
	return instance
}

func (s *Server) Initialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("server_id", s.id).Msg("initializing server")

	if s.workspace == "" {
		if len(params.WorkspaceFolders) > 0 {
			s.workspace = params.WorkspaceFolders[0].URI.Path()
		} else if params.RootURI != "" {
			s.workspace = params.RootURI.Path()
		}
		s.rebuildResolution()
	}

	if len(params.InitializationOptions) > 0 {
		if path, ok := definitionsPathFromSettings(params.InitializationOptions); ok {
			s.definitions = path
			s.finder.SetRelativePath(path)
		}
	}

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.SyncIncremental,
				Save:      true,
			},
			HoverProvider: true,
		},
		ServerInfo: &protocol.ServerInfo{Name: "tokenlens"},
	}, nil
}

func (s *Server) Initialized(ctx context.Context, params *protocol.InitializedParams) error {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Msg("server initialized")
	s.initialized = true

	s.store.Load(ctx)

	if err := s.store.Watch(ctx); err != nil {
		// the client's didChangeWatchedFiles notifications still reach us
		logger.Warn().Err(err).Msg("file watcher unavailable")
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	zerolog.Ctx(ctx).Debug().Msg("server shutting down")
	s.shutdown = true
	return nil
}

func (s *Server) Exit(ctx context.Context) error {
	return s.store.Close()
}

func (s *Server) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	zerolog.Ctx(ctx).Debug().Str("uri", string(params.TextDocument.URI)).Msg("document opened")

	s.documents.Store(params.TextDocument.URI, &Document{
		URI:        string(params.TextDocument.URI),
		LanguageID: params.TextDocument.LanguageID,
		Version:    params.TextDocument.Version,
		Content:    params.TextDocument.Text,
	})
	return nil
}

func (s *Server) DidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error {
	zerolog.Ctx(ctx).Debug().Str("uri", string(params.TextDocument.URI)).Msg("document changed")

	if len(params.ContentChanges) == 0 {
		return nil
	}

	doc, ok := s.documents.Get(params.TextDocument.URI)
	if !ok {
		return errors.Errorf("document not found: %s", params.TextDocument.URI)
	}

	doc.Version = params.TextDocument.Version
	for _, change := range params.ContentChanges {
		if change.Range == nil {
			doc.Content = change.Text
		} else {
			doc.Content = spliceContent(doc.Content, change.Range, change.Text)
		}
	}
	s.documents.Store(params.TextDocument.URI, doc)

	return nil
}

func spliceContent(content string, rng *protocol.Range, text string) string {
	start := position.OffsetOf(content, position.Place{Line: int(rng.Start.Line), Character: int(rng.Start.Character)})
	end := position.OffsetOf(content, position.Place{Line: int(rng.End.Line), Character: int(rng.End.Character)})
	return content[:start] + text + content[end:]
}

func (s *Server) DidSave(ctx context.Context, params *protocol.DidSaveTextDocumentParams) error {
	if params.Text == nil {
		return nil
	}

	doc, ok := s.documents.Get(params.TextDocument.URI)
	if !ok {
		return errors.Errorf("document not found: %s", params.TextDocument.URI)
	}
	doc.Content = *params.Text
	s.documents.Store(params.TextDocument.URI, doc)
	return nil
}

func (s *Server) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	zerolog.Ctx(ctx).Debug().Str("uri", string(params.TextDocument.URI)).Msg("document closed")
	s.documents.Delete(params.TextDocument.URI)
	return nil
}

// tokenlensSettings is the configuration payload shape sent by the editor.
type tokenlensSettings struct {
	Tokenlens struct {
		DefinitionsFile string `json:"definitionsFile"`
	} `json:"tokenlens"`
}

func definitionsPathFromSettings(raw json.RawMessage) (string, bool) {
	var settings tokenlensSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return "", false
	}
	return settings.Tokenlens.DefinitionsFile, true
}

func (s *Server) DidChangeConfiguration(ctx context.Context, params *protocol.DidChangeConfigurationParams) error {
	logger := zerolog.Ctx(ctx)

	path, ok := definitionsPathFromSettings(params.Settings)
	if !ok {
		logger.Warn().Msg("unrecognized configuration payload")
		return nil
	}
	if path == s.definitions {
		return nil
	}

	logger.Info().Str("definitions_file", path).Msg("configuration changed, reloading token table")
	s.definitions = path
	s.finder.SetRelativePath(path)
	s.store.Load(ctx)
	return nil
}

func (s *Server) DidChangeWatchedFiles(ctx context.Context, params *protocol.DidChangeWatchedFilesParams) error {
	for _, change := range params.Changes {
		if change.Type == protocol.FileDeleted {
			continue
		}
		// An empty store path means resolution failed earlier; a created
		// file may be the one we were missing.
		if p := s.store.Path(); p != "" && change.URI.Path() != p {
			continue
		}
		zerolog.Ctx(ctx).Debug().Str("uri", string(change.URI)).Msg("watched file changed, reloading token table")
		s.store.Load(ctx)
	}
	return nil
}

func (s *Server) Hover(ctx context.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	logger := zerolog.Ctx(ctx)
	logger.Trace().Msgf("hover request received: %+v", params)

	doc, ok := s.documents.Get(params.TextDocument.URI)
	if !ok {
		return nil, errors.Errorf("document not found: %s", params.TextDocument.URI)
	}

	line, ok := position.LineAt(doc.Content, int(params.Position.Line))
	if !ok {
		return nil, nil
	}

	// Wire positions count UTF-16 code units; the locator works in bytes.
	column := position.ByteColumn(line, int(params.Position.Character))
	for _, rng := range locator.FindTokensInLine(line) {
		if column < rng.QuoteStart || rng.QuoteEnd < column {
			continue
		}

		value, found := s.store.Lookup(rng.Name)
		info := hover.BuildHoverResponse(rng, value, found)

		return &protocol.Hover{
			Contents: protocol.MarkupContent{
				Kind:  "markdown",
				Value: strings.Join(info.Content, "\n"),
			},
			Range: &protocol.Range{
				Start: protocol.Position{Line: params.Position.Line, Character: uint32(position.UTF16Column(line, rng.QuoteStart))},
				End:   protocol.Position{Line: params.Position.Line, Character: uint32(position.UTF16Column(line, rng.QuoteEnd+1))},
			},
		}, nil
	}

	return nil, nil
}
