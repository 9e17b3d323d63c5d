package protocol

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/creachadair/jrpc2"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/tokenlens/tokenlens/pkg/debug"
)

var myLoggerId = xid.New().String()

// ApplyServerInstanceToZerolog rewires the context logger so that every
// entry is forwarded to the client as a window/logMessage notification.
// The server must not write to its own console once the connection is up.
func ApplyServerInstanceToZerolog(ctx context.Context, client Client) context.Context {
	writer := &logWriter{client: client, ctx: ctx}

	level := zerolog.Ctx(ctx).GetLevel()

	return zerolog.New(writer).With().
		Str("id", myLoggerId).
		Str("lsp_role", "server").
		Logger().
		Level(level).
		Hook(debug.CustomTimeHook{}).
		Hook(debug.CustomCallerHook{WithColor: false}).
		WithContext(ctx)
}

// ApplyRequestToZerolog tags the context logger with the request method
// and id.
func ApplyRequestToZerolog(ctx context.Context, req *jrpc2.Request) context.Context {
	return zerolog.Ctx(ctx).With().
		Str("rpc_method", req.Method()).
		Str("rpc_id", req.ID()).
		Logger().WithContext(ctx)
}

type logWriter struct {
	client Client
	mu     sync.Mutex
	ctx    context.Context
}

// Write implements io.Writer over structured zerolog output, converting
// each entry into a window/logMessage notification.
func (w *logWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var entry map[string]interface{}
	if err := json.Unmarshal(p, &entry); err != nil {
		// skip malformed entries
		return len(p), nil
	}

	level := MessageLog
	if l, ok := entry["level"].(string); ok {
		level = ParseMessageTypeFromZerolog(l)
		delete(entry, "level")
	}

	params := &LogMessageParams{Type: level}

	if m, ok := entry["message"].(string); ok {
		params.Message = m
		delete(entry, "message")
	}
	if t, ok := entry["time"].(string); ok {
		params.Time = t
		delete(entry, "time")
	}
	if c, ok := entry["caller"].(string); ok {
		params.Source = c
		delete(entry, "caller")
	}
	delete(entry, "id")
	params.Extra = entry

	err = w.client.LogMessage(w.ctx, params)
	return len(p), err
}

// RPCLogger logs every request and response through the context logger.
type RPCLogger struct{}

func (me *RPCLogger) LogRequest(ctx context.Context, req *jrpc2.Request) {
	zerolog.Ctx(ctx).Info().
		Str("rpc_params", req.ParamString()).
		Str("rpc_id", req.ID()).
		Str("rpc_method", req.Method()).
		Msg("client request")
}

func (me *RPCLogger) LogResponse(ctx context.Context, res *jrpc2.Response) {
	zerolog.Ctx(ctx).Info().
		Str("rpc_params", res.ResultString()).
		Str("rpc_id", res.ID()).
		Msg("server response")
}
