package connection

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/hdt3213/minidis/interface/redis"
	"github.com/oklog/ulid/v2"
)

// Transport is the byte stream under a Connection, net.Conn satisfies it
type Transport interface {
	Write(b []byte) (int, error)
	Close() error
	RemoteAddr() net.Addr
}

// Connection represents a connection with a client together with its session state.
// Session state is only touched by the goroutine serving the connection.
type Connection struct {
	conn Transport
	id   string

	// lock while server sending response
	mu     sync.Mutex
	closed atomic.Bool

	// selected db
	selectedDB int
	// set once any command other than a successful SELECT ran
	executed bool
	// commands waiting for execution, used when the queue is session scoped
	queue []redis.Command
}

// NewConn creates Connection instance
func NewConn(conn Transport) *Connection {
	return &Connection{
		conn: conn,
		id:   ulid.Make().String(),
	}
}

// ID returns the session id
func (c *Connection) ID() string {
	return c.id
}

// RemoteAddr returns the remote network address
func (c *Connection) RemoteAddr() string {
	if c.conn == nil || c.conn.RemoteAddr() == nil {
		return ""
	}
	return c.conn.RemoteAddr().String()
}

// Close disconnect with the client, later calls do nothing
func (c *Connection) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Write sends response to client
func (c *Connection) Write(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Write(b)
}

// GetDBIndex returns selected db
func (c *Connection) GetDBIndex() int {
	return c.selectedDB
}

// SelectDB selects a database
func (c *Connection) SelectDB(dbNum int) {
	c.selectedDB = dbNum
}

// CommandExecuted tells whether a command already ran in this session
func (c *Connection) CommandExecuted() bool {
	return c.executed
}

// MarkCommandExecuted locks out later SELECT commands
func (c *Connection) MarkCommandExecuted() {
	c.executed = true
}

// EnqueueCmd appends a command to the session queue
func (c *Connection) EnqueueCmd(cmd redis.Command) {
	c.queue = append(c.queue, cmd)
}

// DequeueCmd pops the oldest command of the session queue
func (c *Connection) DequeueCmd() (redis.Command, bool) {
	if len(c.queue) == 0 {
		return nil, false
	}
	cmd := c.queue[0]
	c.queue[0] = nil
	c.queue = c.queue[1:]
	if len(c.queue) == 0 {
		c.queue = nil
	}
	return cmd, true
}
