// Package grpc is the gRPC transport of the account server.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/gophaccount/internal/api"
	"github.com/dmitrijs2005/gophaccount/internal/logging"
	"github.com/dmitrijs2005/gophaccount/internal/server/metrics"
	"github.com/dmitrijs2005/gophaccount/internal/server/services"
	"google.golang.org/grpc"
)

type GRPCServer struct {
	api.UnimplementedAccountServiceServer
	address  string
	sessions *services.SessionService
	accounts *services.AccountService
	metrics  *metrics.Metrics
	logger   logging.Logger
}

// NewGRPCServer builds the transport. m may be nil when metrics are off.
func NewGRPCServer(a string, l logging.Logger, ss *services.SessionService, as *services.AccountService, m *metrics.Metrics) *GRPCServer {
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		sessions: ss,
		accounts: as,
		metrics:  m,
	}
}

// NewServer returns a grpc.Server with the interceptor chain installed and
// the account service registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(s.metricsInterceptor, s.accessTokenInterceptor),
	}, opts...)

	srv := grpc.NewServer(opts...)
	api.RegisterAccountServiceServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
