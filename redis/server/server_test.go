package server

import (
	"bufio"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/hdt3213/minidis/database"
	"github.com/hdt3213/minidis/lib/utils"
	"github.com/hdt3213/minidis/redis/protocol"
	"github.com/hdt3213/minidis/tcp"
	"github.com/hdt3213/minidis/telemetry"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	addr      string
	handler   *Handler
	notifier  *telemetry.Notifier
	metrics   *telemetry.Registry
	closeChan chan struct{}
	done      chan error
}

func startServe(t *testing.T) *testEnv {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	env := &testEnv{
		addr:      listener.Addr().String(),
		metrics:   telemetry.NewRegistry(),
		closeChan: make(chan struct{}),
		done:      make(chan error, 1),
	}
	env.notifier = telemetry.NewNotifier(64, env.metrics)
	db := database.NewStandaloneServer(database.WithPollInterval(10*time.Millisecond), database.WithMetrics(env.metrics))
	env.handler = MakeHandler(db, env.notifier, env.metrics)
	go func() {
		env.done <- tcp.ListenAndServe(listener, env.handler, env.closeChan)
	}()
	t.Cleanup(env.stop)
	return env
}

func (env *testEnv) stop() {
	select {
	case <-env.closeChan:
	default:
		close(env.closeChan)
		<-env.done
	}
}

func dial(t *testing.T, addr string) (net.Conn, *bufio.Reader) {
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
	})
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	return conn, bufio.NewReader(conn)
}

func request(args ...string) []byte {
	return protocol.MakeMultiBulkReply(utils.ToCmdLine(args...)).ToBytes()
}

// readN reads exactly n bytes
func readN(t *testing.T, reader *bufio.Reader, n int) string {
	buf := make([]byte, n)
	_, err := io.ReadFull(reader, buf)
	require.NoError(t, err)
	return string(buf)
}

func roundTrip(t *testing.T, conn net.Conn, reader *bufio.Reader, req []byte, expected string) {
	t.Helper()
	_, err := conn.Write(req)
	require.NoError(t, err)
	assert.Equal(t, expected, readN(t, reader, len(expected)))
}

func TestListenAndServe(t *testing.T) {
	env := startServe(t)
	conn, reader := dial(t, env.addr)

	roundTrip(t, conn, reader, request("PING"), "+PONG\r\n")
	roundTrip(t, conn, reader, request("SET", "k", "v"), "+OK\r\n")
	roundTrip(t, conn, reader, request("GET", "k"), "+v\r\n")
	roundTrip(t, conn, reader, request("GET", "missing"), "$-1\r\n")
	roundTrip(t, conn, reader, request("EXISTS", "k", "missing", "k"), ":2\r\n")
	roundTrip(t, conn, reader, request("RPUSH", "l", "x", "y"), ":2\r\n")
	roundTrip(t, conn, reader, request("BLPOP", "l", "1.0"), "*2\r\n$1\r\nl\r\n$1\r\nx\r\n")
}

func TestRequestErrorsKeepConnection(t *testing.T) {
	env := startServe(t)
	conn, reader := dial(t, env.addr)

	roundTrip(t, conn, reader, []byte("*1\r\n$4\r\nPI\r\n"), "-Invalid request format\r\n")
	roundTrip(t, conn, reader, []byte("*0\r\n"), "-Empty request\r\n")
	roundTrip(t, conn, reader, request("GET"), "-Syntax error. Usage: GET <key>\r\n")
	roundTrip(t, conn, reader, request("FLUSHALL"), "-Unsupported command\r\n")
	roundTrip(t, conn, reader, request("SELECT", "16"), "-Invalid database index\r\n")
	roundTrip(t, conn, reader, request("BLPOP", "a", "b", "c", "d", "e", "f", "1"), "-Exceeded maximum number of keys (5)\r\n")
	roundTrip(t, conn, reader, request("PING"), "+PONG\r\n")
}

func TestPipelinedRequests(t *testing.T) {
	env := startServe(t)
	conn, reader := dial(t, env.addr)

	var buf []byte
	buf = append(buf, request("SELECT", "2")...)
	buf = append(buf, request("LPUSH", "l", "x", "y")...)
	buf = append(buf, request("SELECT", "3")...)
	buf = append(buf, request("BRPOP", "l", "0")...)
	roundTrip(t, conn, reader, buf, "+OK\r\n:2\r\n-SELECT can only be called at the start of the session\r\n*2\r\n$1\r\nl\r\n$1\r\nx\r\n")

	// another session on database 0 does not see the list
	other, otherReader := dial(t, env.addr)
	roundTrip(t, other, otherReader, request("EXISTS", "l"), ":0\r\n")
}

func TestBlockingPopAcrossConnections(t *testing.T) {
	env := startServe(t)
	waiter, waiterReader := dial(t, env.addr)
	pusher, pusherReader := dial(t, env.addr)

	_, err := waiter.Write(request("BLPOP", "queue", "3"))
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	// the waiting connection does not hold back others
	roundTrip(t, pusher, pusherReader, request("RPUSH", "queue", "job"), ":1\r\n")
	expected := "*2\r\n$5\r\nqueue\r\n$3\r\njob\r\n"
	assert.Equal(t, expected, readN(t, waiterReader, len(expected)))
}

func TestNotifications(t *testing.T) {
	env := startServe(t)
	conn, reader := dial(t, env.addr)
	roundTrip(t, conn, reader, request("GET", "k"), "$-1\r\n")
	roundTrip(t, conn, reader, []byte("*1\r\n$4\r\nPI\r\n"), "-Invalid request format\r\n")

	select {
	case msg := <-env.notifier.C():
		assert.Equal(t, "Executed command: Get value for key k", msg)
	case <-time.After(time.Second):
		t.Fatal("no notification")
	}
	select {
	case msg := <-env.notifier.C():
		t.Errorf("unexpected notification %q", msg)
	default:
	}
}

func TestConnectionMetrics(t *testing.T) {
	env := startServe(t)
	conn, reader := dial(t, env.addr)
	roundTrip(t, conn, reader, request("PING"), "+PONG\r\n")
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.ConnectionsActive))
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.CommandsTotal.WithLabelValues("ping")))

	_ = conn.Close()
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(env.metrics.ConnectionsActive) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestCloseCancelsBlockingPop(t *testing.T) {
	env := startServe(t)
	conn, reader := dial(t, env.addr)
	_, err := conn.Write(request("BLPOP", "never", "30"))
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	start := time.Now()
	env.stop()
	// the pop is answered with a timeout unless the connection is closed first
	line, err := reader.ReadString('\n')
	if err == nil {
		assert.Equal(t, "-Timeout\r\n", line)
	}
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, env.handler.Closing())
}

func TestCloseRacingNewConnections(t *testing.T) {
	h := MakeHandler(database.NewStandaloneServer(), nil, nil)
	const n = 64
	done := make(chan struct{}, n)
	peers := make([]net.Conn, 0, n)
	for i := 0; i < n; i++ {
		server, client := net.Pipe()
		peers = append(peers, client)
		go func() {
			h.Handle(context.Background(), server)
			done <- struct{}{}
		}()
		if i == n/2 {
			go func() {
				_ = h.Close()
			}()
		}
	}
	t.Cleanup(func() {
		for _, peer := range peers {
			_ = peer.Close()
		}
	})

	// every connection is released without help from its peer
	timeout := time.After(5 * time.Second)
	for i := 0; i < n; i++ {
		select {
		case <-done:
		case <-timeout:
			t.Fatalf("%d connections still served after close", n-i)
		}
	}
	assert.Equal(t, 0, h.activeConn.Size())
}
