package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/blogd/internal/logging"
	pb "github.com/dmitrijs2005/blogd/internal/proto/blogpb"
	"github.com/dmitrijs2005/blogd/internal/server/authz"
	"github.com/dmitrijs2005/blogd/internal/server/metrics"
	"github.com/dmitrijs2005/blogd/internal/server/models"
	"github.com/dmitrijs2005/blogd/internal/server/services"
	"google.golang.org/grpc"
)

// BlogService is the domain service as seen by this adapter.
type BlogService interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error)
	Login(ctx context.Context, identifier, password string) (*services.AuthResult, error)
	CreatePost(ctx context.Context, id authz.Identity, title, content string) (*models.Post, error)
	GetPost(ctx context.Context, postID int64) (*models.Post, error)
	UpdatePost(ctx context.Context, id authz.Identity, postID int64, in services.UpdatePostInput) (*models.Post, error)
	DeletePost(ctx context.Context, id authz.Identity, postID int64) error
	ListPosts(ctx context.Context, limit, offset int) (*services.PostPage, error)
	DeleteAccount(ctx context.Context, id authz.Identity) error
}

// Gate admits a request for an operation; see authz.Gate.
type Gate interface {
	Admit(ctx context.Context, op authz.Operation, credential, origin string) (context.Context, error)
}

type GRPCServer struct {
	pb.UnimplementedBlogServiceServer
	address        string
	requestTimeout time.Duration
	blog           BlogService
	gate           Gate
	metrics        *metrics.Metrics
	ping           func(context.Context) error
	logger         logging.Logger
}

// NewGRPCServer wires the adapter. ping backs the Ping RPC and may be nil.
func NewGRPCServer(address string, requestTimeout time.Duration, l logging.Logger, blog BlogService, gate Gate,
	m *metrics.Metrics, ping func(context.Context) error) *GRPCServer {
	return &GRPCServer{
		address:        address,
		requestTimeout: requestTimeout,
		blog:           blog,
		gate:           gate,
		metrics:        m,
		ping:           ping,
		logger:         l.With("module", "grpc_server"),
	}
}

// NewServer returns a grpc.Server with the admission interceptor and the
// blog service registered.
func (s *GRPCServer) NewServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.unaryInterceptor))
	pb.RegisterBlogServiceServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.NewServer()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	<-stopped
	return nil
}
