package connection

import (
	"io"
	"sync"

	"github.com/oklog/ulid/v2"
)

// FakeConn implements redis.Connection for test
type FakeConn struct {
	Connection
	buf    []byte
	closed bool
	mu     sync.Mutex
}

func NewFakeConn() *FakeConn {
	c := &FakeConn{}
	c.id = ulid.Make().String()
	return c
}

// Write writes data to buffer
func (c *FakeConn) Write(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, io.EOF
	}
	c.buf = append(c.buf, b...)
	return len(b), nil
}

// Clean resets the buffer
func (c *FakeConn) Clean() {
	c.mu.Lock()
	c.buf = nil
	c.mu.Unlock()
}

// Bytes returns written data
func (c *FakeConn) Bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf
}

func (c *FakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *FakeConn) RemoteAddr() string {
	return ""
}
