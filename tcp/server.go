package tcp

/**
 * A tcp server
 */

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/hdt3213/minidis/interface/tcp"
	"github.com/hdt3213/minidis/lib/logger"
	"github.com/panjf2000/ants/v2"
)

// Config stores tcp server properties
type Config struct {
	Address string
	// MaxConnect bounds concurrently served connections, 0 means unlimited
	MaxConnect int
}

// Listen binds the configured address
func Listen(cfg *Config) (net.Listener, error) {
	listener, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return nil, err
	}
	logger.Info(fmt.Sprintf("bind: %s, start listening...", listener.Addr().String()))
	return listener, nil
}

// ListenAndServe serves connections accepted by listener, blocking until closeChan is closed or accept fails
func ListenAndServe(listener net.Listener, handler tcp.Handler, closeChan <-chan struct{}) error {
	return ListenAndServeWithConfig(listener, &Config{}, handler, closeChan)
}

// ListenAndServeWithConfig is ListenAndServe whose connections are handled by a pool of cfg.MaxConnect workers
func ListenAndServeWithConfig(listener net.Listener, cfg *Config, handler tcp.Handler, closeChan <-chan struct{}) error {
	size := cfg.MaxConnect
	if size <= 0 {
		size = -1
	}
	pool, err := ants.NewPool(size, ants.WithPanicHandler(func(p interface{}) {
		logger.Errorf("connection handler panic: %v", p)
	}))
	if err != nil {
		return err
	}
	return serve(listener, handler, closeChan, pool)
}

func serve(listener net.Listener, handler tcp.Handler, closeChan <-chan struct{}, pool *ants.Pool) error {
	defer pool.Release()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// listen signal
	errCh := make(chan error, 1)
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		select {
		case <-closeChan:
			logger.Info("get exit signal")
		case er := <-errCh:
			logger.Info(fmt.Sprintf("accept error: %s", er.Error()))
		}
		logger.Info("shutting down...")
		cancel()
		_ = listener.Close() // listener.Accept() will return err immediately
		_ = handler.Close()  // close connections
	}()

	var acceptErr error
	var waitDone sync.WaitGroup
	for {
		conn, err := listener.Accept()
		if err != nil {
			// learn from net/http/serve.go#Serve()
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				logger.Infof("accept occurs temporary error: %v, retry in 5ms", err)
				time.Sleep(5 * time.Millisecond)
				continue
			}
			if ctx.Err() == nil {
				acceptErr = err
			}
			errCh <- err
			break
		}
		waitDone.Add(1)
		err = pool.Submit(func() {
			defer waitDone.Done()
			handler.Handle(ctx, conn)
		})
		if err != nil {
			waitDone.Done()
			logger.Warnf("refuse connection from %s: %v", conn.RemoteAddr(), err)
			_ = conn.Close()
		}
	}
	<-stopped
	waitDone.Wait()
	return acceptErr
}
