package transport

import (
	"net"

	"google.golang.org/grpc"
)

type Server struct {
	grpc *grpc.Server
	lis  net.Listener
}

// StartServer listens on addr and lets register attach services before
// Serve is called.
func StartServer(addr string, register func(grpc.ServiceRegistrar), opts ...grpc.ServerOption) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &Server{
		grpc: grpc.NewServer(opts...),
		lis:  lis,
	}
	register(s.grpc)
	return s, nil
}

func (s *Server) Addr() string { return s.lis.Addr().String() }

func (s *Server) Serve() error {
	return s.grpc.Serve(s.lis)
}

func (s *Server) Stop() {
	s.grpc.GracefulStop()
}
