package gnet

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hdt3213/minidis/lib/logger"
	"github.com/hdt3213/minidis/redis/connection"
	"github.com/hdt3213/minidis/redis/parser"
	"github.com/hdt3213/minidis/redis/protocol"
	"github.com/hdt3213/minidis/redis/server"
	"github.com/panjf2000/ants/v2"
	"github.com/panjf2000/gnet/v2"
)

const stopTimeout = 5 * time.Second

// asyncConn lets workers outside the event loop write to and close a gnet.Conn
type asyncConn struct {
	c gnet.Conn
}

func (a *asyncConn) Write(b []byte) (int, error) {
	// the buffer is sent later by the event loop
	buf := make([]byte, len(b))
	copy(buf, b)
	if err := a.c.AsyncWrite(buf, nil); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (a *asyncConn) Close() error {
	return a.c.CloseWithCallback(nil)
}

func (a *asyncConn) RemoteAddr() net.Addr {
	return a.c.RemoteAddr()
}

// session holds requests decoded on the event loop until a worker executes them in order
type session struct {
	client  *connection.Connection
	decoder parser.Decoder
	ctx     context.Context
	cancel  context.CancelFunc

	mu      sync.Mutex
	inbox   []*parser.Payload
	running bool
	closed  bool
}

// GnetServer serves the redis protocol on gnet event loops.
// Commands may block, so they run on a goroutine pool, one worker at a time per connection.
type GnetServer struct {
	gnet.BuiltinEventEngine
	eng       gnet.Engine
	booted    chan struct{}
	multicore bool
	connected atomic.Int32

	handler *server.Handler
	pool    *ants.Pool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewGnetServer creates a server executing requests through handler
func NewGnetServer(handler *server.Handler, multicore bool) (*GnetServer, error) {
	pool, err := ants.NewPool(-1, ants.WithPanicHandler(func(p interface{}) {
		logger.Errorf("gnet worker panic: %v", p)
	}))
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &GnetServer{
		booted:    make(chan struct{}),
		multicore: multicore,
		handler:   handler,
		pool:      pool,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Connected returns the number of open connections
func (s *GnetServer) Connected() int {
	return int(s.connected.Load())
}

// Serve listens on addr and blocks until ctx is done
func (s *GnetServer) Serve(ctx context.Context, addr string) error {
	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-stopped:
			return
		case <-ctx.Done():
		}
		select {
		case <-stopped:
			return
		case <-s.booted:
		}
		logger.Info("shutting down...")
		s.cancel()
		_ = s.handler.Close()
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := s.eng.Stop(stopCtx); err != nil {
			logger.Warnf("stop gnet engine failed: %v", err)
		}
	}()
	defer s.pool.Release()
	return gnet.Run(s, "tcp://"+addr,
		gnet.WithMulticore(s.multicore),
		gnet.WithReadBufferCap(parser.ReadBufferSize),
	)
}

func (s *GnetServer) OnBoot(eng gnet.Engine) (action gnet.Action) {
	s.eng = eng
	close(s.booted)
	logger.Info("gnet engine started")
	return
}

func (s *GnetServer) OnOpen(c gnet.Conn) (out []byte, action gnet.Action) {
	if s.handler.Closing() {
		return nil, gnet.Close
	}
	ctx, cancel := context.WithCancel(s.ctx)
	sess := &session{
		client:  connection.NewConn(&asyncConn{c: c}),
		decoder: parser.Decoder{ReadSize: parser.ReadBufferSize},
		ctx:     ctx,
		cancel:  cancel,
	}
	c.SetContext(sess)
	s.handler.Register(sess.client)
	s.connected.Add(1)
	if s.handler.Closing() {
		return nil, gnet.Close
	}
	return
}

func (s *GnetServer) OnClose(c gnet.Conn, err error) (action gnet.Action) {
	if err != nil {
		logger.Infof("error occurred on connection=%s, %v", c.RemoteAddr(), err)
	}
	sess, ok := c.Context().(*session)
	if !ok {
		return
	}
	s.connected.Add(-1)
	sess.cancel()
	sess.mu.Lock()
	sess.closed = true
	busy := sess.running
	sess.mu.Unlock()
	// a running worker releases the session itself
	if !busy {
		s.handler.CloseClient(sess.client)
	}
	return
}

func (s *GnetServer) OnTraffic(c gnet.Conn) (action gnet.Action) {
	sess, ok := c.Context().(*session)
	if !ok {
		return gnet.Close
	}
	buf, err := c.Next(-1)
	if err != nil {
		logger.Infof("read from %s failed: %v", c.RemoteAddr(), err)
		return gnet.Close
	}
	sess.decoder.Feed(buf)
	var payloads []*parser.Payload
	for {
		args, err := sess.decoder.Next()
		if err != nil {
			payloads = append(payloads, &parser.Payload{Err: err})
			continue
		}
		if args == nil {
			break
		}
		payloads = append(payloads, &parser.Payload{Args: args})
	}
	if len(payloads) == 0 {
		return gnet.None
	}

	sess.mu.Lock()
	sess.inbox = append(sess.inbox, payloads...)
	start := !sess.running
	sess.running = true
	sess.mu.Unlock()
	if start {
		if err := s.pool.Submit(func() { s.drain(sess) }); err != nil {
			logger.Warnf("submit requests of %s failed: %v", c.RemoteAddr(), err)
			sess.mu.Lock()
			sess.running = false
			sess.mu.Unlock()
			return gnet.Close
		}
	}
	return gnet.None
}

// drain executes queued requests of a session in arrival order
func (s *GnetServer) drain(sess *session) {
	for {
		sess.mu.Lock()
		if sess.closed {
			sess.inbox = nil
			sess.running = false
			sess.mu.Unlock()
			s.handler.CloseClient(sess.client)
			return
		}
		if len(sess.inbox) == 0 {
			sess.running = false
			sess.mu.Unlock()
			return
		}
		payload := sess.inbox[0]
		sess.inbox[0] = nil
		sess.inbox = sess.inbox[1:]
		sess.mu.Unlock()

		if payload.Err != nil {
			s.handler.Reply(sess.client, protocol.MakeErrReply(payload.Err.Error()))
			continue
		}
		result := s.handler.Execute(sess.ctx, sess.client, payload.Args)
		if !s.handler.Reply(sess.client, result) {
			_ = sess.client.Close()
		}
	}
}
