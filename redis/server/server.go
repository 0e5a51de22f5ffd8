package server

/*
 * A tcp.Handler implements redis protocol
 */

import (
	"context"
	"errors"
	"io"
	"net"
	"sync/atomic"

	"github.com/hdt3213/minidis/interface/database"
	"github.com/hdt3213/minidis/interface/redis"
	"github.com/hdt3213/minidis/lib/logger"
	"github.com/hdt3213/minidis/redis/connection"
	"github.com/hdt3213/minidis/redis/parser"
	"github.com/hdt3213/minidis/redis/protocol"
	"github.com/hdt3213/minidis/telemetry"
	"github.com/puzpuzpuz/xsync/v3"
)

var (
	unknownErrReplyBytes = []byte("-ERR unknown\r\n")
)

// Handler implements tcp.Handler and serves as a redis server
type Handler struct {
	activeConn *xsync.MapOf[*connection.Connection, struct{}]
	db         database.DB
	notifier   *telemetry.Notifier
	metrics    *telemetry.Registry
	closing    atomic.Bool
}

// MakeHandler creates a Handler instance, notifier and metrics may be nil
func MakeHandler(db database.DB, notifier *telemetry.Notifier, metrics *telemetry.Registry) *Handler {
	return &Handler{
		activeConn: xsync.NewMapOf[*connection.Connection, struct{}](),
		db:         db,
		notifier:   notifier,
		metrics:    metrics,
	}
}

// Closing tells whether Close has been called
func (h *Handler) Closing() bool {
	return h.closing.Load()
}

// Register tracks a client served by an external transport
func (h *Handler) Register(client *connection.Connection) {
	h.activeConn.Store(client, struct{}{})
	if h.metrics != nil {
		h.metrics.ConnectionsActive.Inc()
	}
	logger.Infof("connection accepted: %s session=%s", client.RemoteAddr(), client.ID())
}

// CloseClient closes the client connection and releases its session
func (h *Handler) CloseClient(client *connection.Connection) {
	_ = client.Close()
	if _, loaded := h.activeConn.LoadAndDelete(client); !loaded {
		return
	}
	h.db.AfterClientClose(client)
	if h.metrics != nil {
		h.metrics.ConnectionsActive.Dec()
	}
	logger.Info("connection closed: " + client.RemoteAddr())
}

// Execute resolves one decoded request and runs it, decode failures become error replies
func (h *Handler) Execute(ctx context.Context, client redis.Connection, args [][]byte) redis.Reply {
	req, err := parser.ResolveCommand(args)
	if err != nil {
		logger.Debugf("reject request from %s: %v", client.RemoteAddr(), err)
		if h.metrics != nil {
			h.metrics.CommandErrors.WithLabelValues("request").Inc()
		}
		return protocol.MakeErrReply(err.Error())
	}
	h.notifier.Notify("Executed command: " + req.Command.String())
	return h.db.Exec(ctx, client, req.Command)
}

// Reply writes the result of a request, it reports false when the client is gone
func (h *Handler) Reply(client *connection.Connection, result redis.Reply) bool {
	var bs []byte
	if result != nil {
		bs = result.ToBytes()
	} else {
		bs = unknownErrReplyBytes
	}
	if _, err := client.Write(bs); err != nil {
		logger.Debugf("write to %s failed: %v", client.RemoteAddr(), err)
		return false
	}
	return true
}

// Handle receives and executes redis commands
func (h *Handler) Handle(ctx context.Context, conn net.Conn) {
	if h.closing.Load() {
		// closing handler refuse new connection
		_ = conn.Close()
		return
	}

	client := connection.NewConn(conn)
	h.Register(client)
	// Close may have walked activeConn before the client was registered
	if h.closing.Load() {
		h.CloseClient(client)
		return
	}

	ch := parser.ParseStream(conn)
	for payload := range ch {
		if payload.Err != nil {
			if parser.IsProtocolError(payload.Err) {
				if !h.Reply(client, protocol.MakeErrReply(payload.Err.Error())) {
					break
				}
				continue
			}
			if !errors.Is(payload.Err, io.EOF) && !h.closing.Load() {
				logger.Infof("read from %s failed: %v", client.RemoteAddr(), payload.Err)
			}
			h.CloseClient(client)
			return
		}
		result := h.Execute(ctx, client, payload.Args)
		if !h.Reply(client, result) {
			break
		}
	}
	h.CloseClient(client)
	// the reader stops once the connection is closed
	go func() {
		for range ch {
		}
	}()
}

// Close stops handler
func (h *Handler) Close() error {
	logger.Info("handler shutting down...")
	h.closing.Store(true)
	h.db.Close()
	h.activeConn.Range(func(client *connection.Connection, _ struct{}) bool {
		_ = client.Close()
		return true
	})
	return nil
}
