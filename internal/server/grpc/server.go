// Package grpc is the relay: it serves a docstore.Store to remote clients
// over the chatsync.docstore.DocumentStore service.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/chatsync/internal/docstore"
	"github.com/dmitrijs2005/chatsync/internal/docstore/grpcstore"
	"github.com/dmitrijs2005/chatsync/internal/logging"
	"google.golang.org/grpc"
)

var stopTimeout = 5 * time.Second

type GRPCServer struct {
	address   string
	store     docstore.Store
	logger    logging.Logger
	jwtSecret []byte
	hooks     grpcstore.ServerHooks
}

// NewGRPCServer serves store on address. An empty secretKey turns token
// checks off.
func NewGRPCServer(address string, l logging.Logger, store docstore.Store, secretKey string, hooks grpcstore.ServerHooks) *GRPCServer {
	s := &GRPCServer{
		address: address,
		logger:  l.With("module", "grpc_server"),
		store:   store,
		hooks:   hooks,
	}
	if secretKey != "" {
		s.jwtSecret = []byte(secretKey)
	}
	return s
}

// NewServer builds the grpc.Server with the relay registered on it.
func (s *GRPCServer) NewServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.metricsInterceptor, s.accessTokenInterceptor),
		grpc.ChainStreamInterceptor(s.streamMetricsInterceptor, s.streamAccessTokenInterceptor),
	)
	grpcstore.RegisterDocumentServer(srv, &handler{s: s})
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		stopped := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(stopped)
		}()
		// open subscriptions never finish on their own
		select {
		case <-stopped:
		case <-time.After(stopTimeout):
			srv.Stop()
		}
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
