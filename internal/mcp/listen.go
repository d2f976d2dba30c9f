package mcp

import (
	"context"
	"fmt"
	"net"

	"github.com/charmbracelet/log"
)

// Serve accepts TCP connections on host:port and runs one MessageLoop
// per connection against server, using newline-delimited JSON-RPC
// framing. It blocks until ctx is cancelled or the listener fails.
func Serve(ctx context.Context, host string, port int, server *Server, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("mcp: failed to listen on %s: %w", addr, err)
	}

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}

		go func() {
			defer conn.Close()
			transport := NewStdioTransport(conn, conn)
			loop := NewMessageLoop(transport, server)
			if err := loop.Run(ctx); err != nil {
				logger.Warn("mcp connection ended", "err", err)
			}
		}()
	}
}
