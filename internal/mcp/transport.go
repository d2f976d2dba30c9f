package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Transport carries newline-delimited JSON-RPC requests and responses
// between an MCP-speaking agent and the fleet Server that dispatches
// them.
type Transport interface {
	// ReadMessage reads the next fleet tool/resource request.
	ReadMessage() (*Request, error)
	// WriteResponse writes a request's tool/resource result or error.
	WriteResponse(resp *Response) error
	// Close releases the underlying connection.
	Close() error
}

// StdioTransport implements Transport over a pair of byte streams —
// process stdin/stdout for the CLI's stdio-mode MCP server, or a TCP
// connection's read/write halves for Serve's listener mode. Messages
// are newline-delimited JSON, one request or response per line.
type StdioTransport struct {
	reader  *bufio.Reader
	writer  io.Writer
	writeMu sync.Mutex
	closed  bool
}

// NewStdioTransport wraps reader/writer as a line-delimited Transport.
func NewStdioTransport(reader io.Reader, writer io.Writer) *StdioTransport {
	return &StdioTransport{
		reader: bufio.NewReader(reader),
		writer: writer,
	}
}

// ReadMessage reads and decodes the next fleet request line.
func (t *StdioTransport) ReadMessage() (*Request, error) {
	if t.closed {
		return nil, io.EOF
	}

	line, err := t.reader.ReadBytes('\n')
	if err != nil {
		return nil, err
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return nil, fmt.Errorf("mcp: malformed fleet request: %w", err)
	}

	return &req, nil
}

// WriteResponse encodes and writes resp as a single newline-terminated
// JSON line.
func (t *StdioTransport) WriteResponse(resp *Response) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if t.closed {
		return io.ErrClosedPipe
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("mcp: encode tool/resource response: %w", err)
	}

	if _, err := t.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("mcp: write tool/resource response: %w", err)
	}

	return nil
}

// Close marks the transport unusable for further reads or writes. The
// underlying connection itself is closed by the caller that owns it
// (Serve closes the accepted net.Conn once its goroutine returns).
func (t *StdioTransport) Close() error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	t.closed = true
	return nil
}

// MessageLoop reads fleet requests from transport and dispatches each
// to handler until the connection ends or ctx is cancelled.
type MessageLoop struct {
	transport Transport
	handler   MessageHandler
}

// MessageHandler dispatches one decoded fleet request to the tool or
// resource it names. Server implements this.
type MessageHandler interface {
	HandleRequest(ctx context.Context, req *Request) *Response
}

// NewMessageLoop pairs transport with the handler that will service
// every request read from it.
func NewMessageLoop(transport Transport, handler MessageHandler) *MessageLoop {
	return &MessageLoop{
		transport: transport,
		handler:   handler,
	}
}

// Run services requests until ctx is cancelled or the transport reaches
// EOF; a malformed request gets a parse-error response rather than
// ending the connection.
func (l *MessageLoop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		req, err := l.transport.ReadMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			resp := NewErrorResponse(nil, ErrCodeParseError, "parse error", err.Error())
			_ = l.transport.WriteResponse(resp)
			continue
		}

		resp := l.handler.HandleRequest(ctx, req)
		if resp != nil {
			if err := l.transport.WriteResponse(resp); err != nil {
				return fmt.Errorf("mcp: write response for method %q: %w", req.Method, err)
			}
		}
	}
}
