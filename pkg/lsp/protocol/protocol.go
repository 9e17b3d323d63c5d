// Package protocol implements the slice of the Language Server Protocol
// needed to serve localization token hovers over JSON-RPC.
package protocol

import (
	"context"
	"io"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/creachadair/jrpc2/handler"
)

// RequestCancelledError is returned for requests cancelled by the client.
var RequestCancelledError = &jrpc2.Error{Code: -32800, Message: "JSON RPC cancelled"}

// Server is the subset of LSP server methods this language server
// implements. Everything else is rejected at the dispatch layer.
type Server interface {
	Initialize(ctx context.Context, params *InitializeParams) (*InitializeResult, error)
	Initialized(ctx context.Context, params *InitializedParams) error
	Shutdown(ctx context.Context) error
	Exit(ctx context.Context) error
	DidOpen(ctx context.Context, params *DidOpenTextDocumentParams) error
	DidChange(ctx context.Context, params *DidChangeTextDocumentParams) error
	DidSave(ctx context.Context, params *DidSaveTextDocumentParams) error
	DidClose(ctx context.Context, params *DidCloseTextDocumentParams) error
	DidChangeConfiguration(ctx context.Context, params *DidChangeConfigurationParams) error
	DidChangeWatchedFiles(ctx context.Context, params *DidChangeWatchedFilesParams) error
	Hover(ctx context.Context, params *HoverParams) (*Hover, error)
}

// Client is the surface of the editor client the server talks back to.
type Client interface {
	LogMessage(ctx context.Context, params *LogMessageParams) error
}

// CallbackClient sends server-initiated messages over an established
// jrpc2 server connection.
type CallbackClient struct {
	server *jrpc2.Server
}

func NewCallbackClient(server *jrpc2.Server) *CallbackClient {
	return &CallbackClient{server: server}
}

func (c *CallbackClient) Notify(ctx context.Context, method string, params any) error {
	return c.server.Notify(ctx, method, params)
}

// LogMessage implements Client.
func (c *CallbackClient) LogMessage(ctx context.Context, params *LogMessageParams) error {
	return c.Notify(ctx, "window/logMessage", params)
}

func buildServerDispatchMap(server Server) handler.Map {
	return handler.Map{
		"initialize":                       createHandler(server.Initialize),
		"initialized":                      createEmptyResultHandler(server.Initialized),
		"shutdown":                         createEmptyHandler(server.Shutdown),
		"exit":                             createEmptyHandler(server.Exit),
		"textDocument/didOpen":             createEmptyResultHandler(server.DidOpen),
		"textDocument/didChange":           createEmptyResultHandler(server.DidChange),
		"textDocument/didSave":             createEmptyResultHandler(server.DidSave),
		"textDocument/didClose":            createEmptyResultHandler(server.DidClose),
		"textDocument/hover":               createHandler(server.Hover),
		"workspace/didChangeConfiguration": createEmptyResultHandler(server.DidChangeConfiguration),
		"workspace/didChangeWatchedFiles":  createEmptyResultHandler(server.DidChangeWatchedFiles),
		"$/cancelRequest": handler.New(func(ctx context.Context, req *jrpc2.Request) (interface{}, error) {
			var params CancelParams
			if err := req.UnmarshalParams(&params); err != nil {
				return nil, newParseError(err)
			}
			return nil, nil
		}),
	}
}

// NewServerServer builds the jrpc2 server for an LSP Server together with
// the callback client used for server-initiated notifications. The
// request context carries a zerolog logger that forwards to the client's
// log channel.
func NewServerServer(ctx context.Context, server Server, opts *jrpc2.ServerOptions) (*jrpc2.Server, *CallbackClient) {
	methods := buildServerDispatchMap(server)
	if opts == nil {
		opts = &jrpc2.ServerOptions{}
	}
	opts.AllowPush = true

	var callback *CallbackClient

	opts.NewContext = func() context.Context {
		if callback == nil {
			return ctx
		}
		return ApplyServerInstanceToZerolog(ctx, callback)
	}

	result := jrpc2.NewServer(methods, opts)
	callback = NewCallbackClient(result)

	return result, callback
}

// ServerInstance couples a jrpc2 server with its callback client.
type ServerInstance struct {
	server   *jrpc2.Server
	callback *CallbackClient
}

func NewServerInstance(ctx context.Context, server Server, opts *jrpc2.ServerOptions) *ServerInstance {
	srv, callback := NewServerServer(ctx, server, opts)
	return &ServerInstance{server: srv, callback: callback}
}

func (me *ServerInstance) Callback() *CallbackClient {
	return me.callback
}

// StartAndWait serves LSP-framed JSON-RPC on the given streams until the
// connection closes.
func (me *ServerInstance) StartAndWait(in io.Reader, out io.WriteCloser) error {
	me.server.Start(channel.LSP(in, out))
	return me.server.Wait()
}

// NewHoverParams builds hover params for a document position.
func NewHoverParams(uri string, position Position) *HoverParams {
	return &HoverParams{
		TextDocumentPositionParams: TextDocumentPositionParams{
			TextDocument: TextDocumentIdentifier{URI: DocumentURI(uri)},
			Position:     position,
		},
	}
}
