package client

import (
	"bufio"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/hdt3213/minidis/interface/redis"
	"github.com/hdt3213/minidis/redis/parser"
	"github.com/hdt3213/minidis/redis/protocol"
)

// ErrClosed is returned by requests sent through a closed client
var ErrClosed = errors.New("client closed")

// Client is a synchronous redis client, requests are sent one at a time
type Client struct {
	mu      sync.Mutex
	conn    net.Conn
	reader  *bufio.Reader
	addr    string
	timeout time.Duration
	closed  bool
}

// Option configures a Client
type Option func(*Client)

// WithTimeout bounds every round trip, 0 waits forever
func WithTimeout(timeout time.Duration) Option {
	return func(client *Client) {
		client.timeout = timeout
	}
}

// MakeClient connects to addr
func MakeClient(addr string, opts ...Option) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	client := &Client{
		addr:   addr,
		conn:   conn,
		reader: bufio.NewReader(conn),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Send sends a request and waits for its reply
func (client *Client) Send(args [][]byte) (redis.Reply, error) {
	replies, err := client.Pipeline(args)
	if err != nil {
		return nil, err
	}
	return replies[0], nil
}

// Pipeline writes every request at once then reads one reply per request
func (client *Client) Pipeline(requests ...[][]byte) ([]redis.Reply, error) {
	client.mu.Lock()
	defer client.mu.Unlock()
	if client.closed {
		return nil, ErrClosed
	}
	if client.timeout > 0 {
		if err := client.conn.SetDeadline(time.Now().Add(client.timeout)); err != nil {
			return nil, err
		}
	}
	var buf []byte
	for _, args := range requests {
		buf = append(buf, protocol.MakeMultiBulkReply(args).ToBytes()...)
	}
	if _, err := client.conn.Write(buf); err != nil {
		return nil, err
	}
	replies := make([]redis.Reply, 0, len(requests))
	for range requests {
		reply, err := parser.ReadReply(client.reader)
		if err != nil {
			return nil, err
		}
		replies = append(replies, reply)
	}
	return replies, nil
}

// Close disconnects from the server
func (client *Client) Close() error {
	client.mu.Lock()
	defer client.mu.Unlock()
	if client.closed {
		return nil
	}
	client.closed = true
	return client.conn.Close()
}
