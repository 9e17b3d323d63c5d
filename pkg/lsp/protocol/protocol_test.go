package protocol_test

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/tokenlens/tokenlens/pkg/lsp/protocol"
)

// fakeServer records which methods the dispatch layer invoked.
type fakeServer struct {
	initialized chan struct{}
	opened      chan string
	hoverResult *protocol.Hover
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		initialized: make(chan struct{}),
		opened:      make(chan string, 1),
	}
}

func (f *fakeServer) Initialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{HoverProvider: true},
		ServerInfo:   &protocol.ServerInfo{Name: "fake"},
	}, nil
}

func (f *fakeServer) Initialized(ctx context.Context, params *protocol.InitializedParams) error {
	close(f.initialized)
	return nil
}

func (f *fakeServer) Shutdown(ctx context.Context) error { return nil }
func (f *fakeServer) Exit(ctx context.Context) error     { return nil }

func (f *fakeServer) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	f.opened <- string(params.TextDocument.URI)
	return nil
}

func (f *fakeServer) DidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error {
	return nil
}

func (f *fakeServer) DidSave(ctx context.Context, params *protocol.DidSaveTextDocumentParams) error {
	return nil
}

func (f *fakeServer) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	return nil
}

func (f *fakeServer) DidChangeConfiguration(ctx context.Context, params *protocol.DidChangeConfigurationParams) error {
	return nil
}

func (f *fakeServer) DidChangeWatchedFiles(ctx context.Context, params *protocol.DidChangeWatchedFilesParams) error {
	return nil
}

func (f *fakeServer) Hover(ctx context.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	return f.hoverResult, nil
}

var _ protocol.Server = (*fakeServer)(nil)

// startInstance serves the fake over LSP-framed pipes and returns a
// connected client.
func startInstance(t *testing.T, ctx context.Context, server protocol.Server) (*jrpc2.Client, chan error, func()) {
	t.Helper()

	serverReader, clientWriter := io.Pipe()
	clientReader, serverWriter := io.Pipe()

	instance := protocol.NewServerInstance(ctx, server, &jrpc2.ServerOptions{
		RPCLog: &protocol.RPCLogger{},
	})

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- instance.StartAndWait(serverReader, serverWriter)
	}()

	client := jrpc2.NewClient(channel.LSP(clientReader, clientWriter), &jrpc2.ClientOptions{
		OnNotify: func(req *jrpc2.Request) {
			t.Logf("client notification: %s", req.Method())
		},
	})

	cleanup := func() {
		_ = client.Close()
		clientWriter.Close()
		serverWriter.Close()
	}
	return client, serverDone, cleanup
}

func TestInitializationHandshake(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ctx = zerolog.Nop().WithContext(ctx)

	server := newFakeServer()
	client, serverDone, cleanup := startInstance(t, ctx, server)
	defer cleanup()

	var initResult protocol.InitializeResult
	err := client.CallResult(ctx, "initialize", &protocol.InitializeParams{
		ProcessID: 1,
		RootURI:   protocol.DocumentURI("file:///workspace"),
	}, &initResult)
	require.NoError(t, err, "initialize request should succeed")
	require.True(t, initResult.Capabilities.HoverProvider)
	require.Equal(t, "fake", initResult.ServerInfo.Name)

	err = client.Notify(ctx, "initialized", &protocol.InitializedParams{})
	require.NoError(t, err, "initialized notification should succeed")

	select {
	case <-server.initialized:
	case <-time.After(2 * time.Second):
		t.Fatal("server never received initialized notification")
	}

	_, err = client.Call(ctx, "shutdown", nil)
	require.NoError(t, err, "shutdown request should succeed")
	require.NoError(t, client.Notify(ctx, "exit", nil))

	cleanup()
	select {
	case <-serverDone:
	case <-time.After(2 * time.Second):
		t.Fatal("server shutdown timed out")
	}
}

func TestHoverDispatch(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ctx = zerolog.Nop().WithContext(ctx)

	server := newFakeServer()
	server.hoverResult = &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: "markdown", Value: "**`greeting`**"},
		Range: &protocol.Range{
			Start: protocol.Position{Line: 2, Character: 15},
			End:   protocol.Position{Line: 2, Character: 25},
		},
	}

	client, _, cleanup := startInstance(t, ctx, server)
	defer cleanup()

	err := client.Notify(ctx, "textDocument/didOpen", &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: "file:///workspace/app.ts", Text: "tr('greeting')"},
	})
	require.NoError(t, err)

	select {
	case uri := <-server.opened:
		require.Equal(t, "file:///workspace/app.ts", uri)
	case <-time.After(2 * time.Second):
		t.Fatal("server never received didOpen notification")
	}

	var hover protocol.Hover
	err = client.CallResult(ctx, "textDocument/hover",
		protocol.NewHoverParams("file:///workspace/app.ts", protocol.Position{Line: 2, Character: 18}), &hover)
	require.NoError(t, err, "hover request should succeed")
	require.Contains(t, hover.Contents.Value, "greeting")
	require.NotNil(t, hover.Range)
	require.Equal(t, uint32(15), hover.Range.Start.Character)
}

func TestCancelRequestIsAccepted(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ctx = zerolog.Nop().WithContext(ctx)

	client, _, cleanup := startInstance(t, ctx, newFakeServer())
	defer cleanup()

	err := client.Notify(ctx, "$/cancelRequest", &protocol.CancelParams{ID: json.RawMessage("42")})
	require.NoError(t, err, "cancel notification should be accepted")
}
