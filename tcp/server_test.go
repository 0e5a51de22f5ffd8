package tcp

import (
	"bufio"
	"context"
	"io"
	"math/rand"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoHandler writes back every line it receives
type echoHandler struct {
	activeConn sync.Map
	closing    atomic.Bool
	handled    atomic.Int32
}

func (h *echoHandler) Handle(ctx context.Context, conn net.Conn) {
	if h.closing.Load() {
		_ = conn.Close()
		return
	}
	h.handled.Add(1)
	h.activeConn.Store(conn, struct{}{})
	defer h.activeConn.Delete(conn)
	reader := bufio.NewReader(conn)
	for {
		msg, err := reader.ReadString('\n')
		if err != nil {
			_ = conn.Close()
			return
		}
		if _, err := io.WriteString(conn, msg); err != nil {
			return
		}
	}
}

func (h *echoHandler) Close() error {
	h.closing.Store(true)
	h.activeConn.Range(func(key, _ interface{}) bool {
		_ = key.(net.Conn).Close()
		return true
	})
	return nil
}

func TestListenAndServe(t *testing.T) {
	listener, err := Listen(&Config{Address: "127.0.0.1:0"})
	require.NoError(t, err)
	addr := listener.Addr().String()
	closeChan := make(chan struct{})
	handler := &echoHandler{}
	done := make(chan error, 1)
	go func() {
		done <- ListenAndServe(listener, handler, closeChan)
	}()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	bufReader := bufio.NewReader(conn)
	for i := 0; i < 10; i++ {
		val := strconv.Itoa(rand.Int())
		_, err = conn.Write([]byte(val + "\n"))
		require.NoError(t, err)
		line, _, err := bufReader.ReadLine()
		require.NoError(t, err)
		assert.Equal(t, val, string(line))
	}
	_ = conn.Close()
	for i := 0; i < 5; i++ {
		// create idle connection
		idle, err := net.Dial("tcp", addr)
		require.NoError(t, err)
		defer idle.Close()
	}
	close(closeChan)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.True(t, handler.closing.Load())
}

func TestListenAndServeBounded(t *testing.T) {
	listener, err := Listen(&Config{Address: "127.0.0.1:0"})
	require.NoError(t, err)
	addr := listener.Addr().String()
	closeChan := make(chan struct{})
	handler := &echoHandler{}
	done := make(chan error, 1)
	go func() {
		done <- ListenAndServeWithConfig(listener, &Config{MaxConnect: 1}, handler, closeChan)
	}()

	first, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer first.Close()
	_, err = first.Write([]byte("a\n"))
	require.NoError(t, err)
	line, err := bufio.NewReader(first).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "a\n", line)

	// the single worker is busy, a second connection waits for it
	second, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer second.Close()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), handler.handled.Load())

	_ = first.Close()
	_, err = second.Write([]byte("b\n"))
	require.NoError(t, err)
	_ = second.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err = bufio.NewReader(second).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "b\n", line)

	close(closeChan)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
