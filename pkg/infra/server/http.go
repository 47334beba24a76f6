package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	httpopts "github.com/kart-io/ieum/pkg/options/server/http"
)

// HTTPServer 以 http.Server 承载 gin 引擎。
type HTTPServer struct {
	opts   *httpopts.Options
	server *http.Server

	mu   sync.RWMutex
	addr net.Addr
}

var _ Runnable = (*HTTPServer)(nil)

// NewHTTPServer creates an HTTP server for the engine.
func NewHTTPServer(opts *httpopts.Options, engine *gin.Engine) *HTTPServer {
	if opts == nil {
		opts = httpopts.NewOptions()
	}
	return &HTTPServer{
		opts: opts,
		server: &http.Server{
			Addr:         opts.Addr,
			Handler:      engine,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
			IdleTimeout:  opts.IdleTimeout,
		},
	}
}

// Name returns "http".
func (s *HTTPServer) Name() string {
	return "http"
}

// Addr 返回实际监听地址，Start 之前为 nil。
func (s *HTTPServer) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// Start 同步监听端口，随后在后台处理请求。
func (s *HTTPServer) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Addr, err)
	}
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()
	logger.Infow("HTTP server listening", "addr", ln.Addr().String())

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("HTTP server stopped unexpectedly", "addr", ln.Addr().String(), "error", err.Error())
		}
	}()
	return nil
}

// Stop gracefully shuts the server down.
func (s *HTTPServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
