package database

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/hdt3213/minidis/config"
	"github.com/hdt3213/minidis/interface/redis"
	"github.com/hdt3213/minidis/lib/logger"
	"github.com/hdt3213/minidis/redis/protocol"
	"github.com/hdt3213/minidis/telemetry"
)

// DefaultPollInterval is the period at which blocking pops re-check their keys
const DefaultPollInterval = 100 * time.Millisecond

var dbNotFoundErrReply = protocol.MakeErrReply("Database not found")

// Server is the registry of numbered databases.
// A single mutex guards every database, it is held for one key check or one command at most.
type Server struct {
	mu    sync.Mutex
	dbSet map[int]*DB

	queueScope   string
	pollInterval time.Duration
	metrics      *telemetry.Registry

	// closed by Close, wakes up every blocking pop
	closing   chan struct{}
	closeOnce sync.Once
}

// Option customizes a Server
type Option func(server *Server)

// WithQueueScope chooses where pending commands are queued, see config.QueueScopeSession
func WithQueueScope(scope string) Option {
	return func(server *Server) {
		server.queueScope = scope
	}
}

// WithPollInterval overrides the poll interval of blocking pops
func WithPollInterval(interval time.Duration) Option {
	return func(server *Server) {
		server.pollInterval = interval
	}
}

// WithMetrics records command metrics into r
func WithMetrics(r *telemetry.Registry) Option {
	return func(server *Server) {
		server.metrics = r
	}
}

// NewStandaloneServer creates a registry holding database 0
func NewStandaloneServer(opts ...Option) *Server {
	server := &Server{
		dbSet:        make(map[int]*DB),
		queueScope:   config.QueueScopeSession,
		pollInterval: DefaultPollInterval,
		closing:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(server)
	}
	server.dbSet[0] = makeDB(0)
	return server
}

// Exec executes a command on behalf of the session c, the reply concatenates every command drained from the queue
func (server *Server) Exec(ctx context.Context, c redis.Connection, cmd redis.Command) (result redis.Reply) {
	defer func() {
		if err := recover(); err != nil {
			logger.Warn(fmt.Sprintf("error occurs: %v\n%s", err, string(debug.Stack())))
			result = &protocol.UnknownErrReply{}
		}
	}()
	if server.queueScope == config.QueueScopeDatabase {
		return server.execDatabaseQueue(ctx, c, cmd)
	}
	return server.execSessionQueue(ctx, c, cmd)
}

// AfterClientClose does some clean after client close connection
func (server *Server) AfterClientClose(c redis.Connection) {
	for {
		if _, ok := c.DequeueCmd(); !ok {
			return
		}
	}
}

// Close cancels blocking pops in progress
func (server *Server) Close() {
	server.closeOnce.Do(func() {
		close(server.closing)
	})
}

// withDB runs fn on database dbIndex while holding the registry lock
func (server *Server) withDB(dbIndex int, fn func(db *DB) redis.Reply) redis.Reply {
	server.mu.Lock()
	defer server.mu.Unlock()
	db, ok := server.dbSet[dbIndex]
	if !ok {
		return dbNotFoundErrReply
	}
	return fn(db)
}

// selectDB creates the database if absent
func (server *Server) selectDB(dbIndex int) {
	server.mu.Lock()
	defer server.mu.Unlock()
	if _, ok := server.dbSet[dbIndex]; !ok {
		server.dbSet[dbIndex] = makeDB(dbIndex)
	}
}
