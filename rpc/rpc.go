// rpc/rpc.go
package rpc

import (
	"context"
	"errors"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/wdlord/discord-pokebot/logger"
)

// Server manages the admin gRPC listener.
type Server struct {
	listener net.Listener
	grpc     *grpc.Server
}

// NewServer listens on addr and registers admin. Use ":0" to pick a free port.
func NewServer(addr string, admin AdminServer) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor))
	gs.RegisterService(&AdminServiceDesc, admin)
	return &Server{listener: listener, grpc: gs}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Start blocks serving requests until Stop.
func (s *Server) Start() error {
	logger.Log.Infow("rpc server listening", "addr", s.listener.Addr().String())
	if err := s.grpc.Serve(s.listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return s.Start()
}

// Stop drains in-flight calls and closes the listener.
func (s *Server) Stop() {
	logger.Log.Info("stopping rpc server")
	s.grpc.GracefulStop()
}

func loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	if err != nil {
		logger.Log.Warnw("rpc failed", "method", info.FullMethod, "code", status.Code(err).String(), "error", err, "duration", time.Since(start))
		return resp, err
	}
	logger.Log.Debugw("rpc ok", "method", info.FullMethod, "duration", time.Since(start))
	return resp, nil
}
