package serve_lsp

import (
	"context"
	"os"

	"github.com/creachadair/jrpc2"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/tokenlens/tokenlens/pkg/debug"
	"github.com/tokenlens/tokenlens/pkg/lsp"
	"github.com/tokenlens/tokenlens/pkg/lsp/protocol"
	"gitlab.com/tozd/go/errors"
)

type Handler struct {
	debug       bool
	workspace   string
	definitions string
}

func NewServeLSPCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "serve-lsp",
		Short: "start the language server",
	}

	cmd.Flags().BoolVar(&me.debug, "debug", false, "enable debug logging")
	cmd.Flags().StringVar(&me.workspace, "workspace", "", "workspace root (defaults to the client's initialize request)")
	cmd.Flags().StringVar(&me.definitions, "definitions", "", "path of the translation definitions file, relative to the workspace")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context())
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context) error {
	level := zerolog.InfoLevel
	if me.debug {
		level = zerolog.DebugLevel
	}

	// Until the connection is up, log to stderr; stdout belongs to the
	// protocol stream.
	ctx = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		Hook(debug.CustomTimeHook{}).
		Hook(debug.CustomCallerHook{WithColor: true}).
		WithContext(ctx)

	server := lsp.NewServer(ctx, lsp.Options{
		Workspace:       me.workspace,
		DefinitionsPath: me.definitions,
	})

	opts := &jrpc2.ServerOptions{
		RPCLog: &protocol.RPCLogger{},
	}

	instance := server.BuildServerInstance(ctx, opts)

	if err := instance.StartAndWait(os.Stdin, os.Stdout); err != nil {
		return errors.Errorf("error running language server: %w", err)
	}

	return nil
}
