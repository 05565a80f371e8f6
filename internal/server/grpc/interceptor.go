package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/blogd/internal/common"
	"github.com/dmitrijs2005/blogd/internal/logging"
	"github.com/dmitrijs2005/blogd/internal/netx"
	pb "github.com/dmitrijs2005/blogd/internal/proto/blogpb"
	"github.com/dmitrijs2005/blogd/internal/server/authz"
	"github.com/dmitrijs2005/blogd/internal/server/errmap"
	"github.com/dmitrijs2005/blogd/internal/server/metrics"
	"github.com/google/uuid"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

var methodOps = map[string]authz.Operation{
	pb.BlogService_Register_FullMethodName:      authz.OpRegister,
	pb.BlogService_Login_FullMethodName:         authz.OpLogin,
	pb.BlogService_CreatePost_FullMethodName:    authz.OpCreatePost,
	pb.BlogService_GetPost_FullMethodName:       authz.OpGetPost,
	pb.BlogService_UpdatePost_FullMethodName:    authz.OpUpdatePost,
	pb.BlogService_DeletePost_FullMethodName:    authz.OpDeletePost,
	pb.BlogService_ListPosts_FullMethodName:     authz.OpListPosts,
	pb.BlogService_DeleteAccount_FullMethodName: authz.OpDeleteAccount,
	pb.BlogService_Ping_FullMethodName:          authz.OpPing,
}

// unaryInterceptor runs every blog RPC through the gate, bounds it with the
// request timeout and renders domain errors as statuses.
func (s *GRPCServer) unaryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	op, ok := methodOps[info.FullMethod]
	if !ok {
		return handler(ctx, req)
	}
	start := time.Now()

	md, _ := metadata.FromIncomingContext(ctx)

	requestID := firstValue(md, common.RequestIDHeaderName)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ctx = logging.WithRequestID(ctx, requestID)
	_ = grpc.SetHeader(ctx, metadata.Pairs(common.RequestIDHeaderName, requestID))

	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	origin := netx.UnknownOrigin
	if p, ok := peer.FromContext(ctx); ok {
		origin = netx.OriginOf(p.Addr)
	}

	ctx, err := s.gate.Admit(ctx, op, firstValue(md, common.AuthorizationHeaderName), origin)

	var resp any
	if err == nil {
		resp, err = handler(ctx, req)
	}

	elapsed := time.Since(start)
	s.metrics.Observe(metrics.TransportGRPC, op, err, elapsed)

	if err != nil {
		st := toStatus(err)
		s.logger.Info(ctx, "rpc failed", "method", info.FullMethod, "code", st.Code().String(), "duration", elapsed)
		return nil, st.Err()
	}
	s.logger.Info(ctx, "rpc", "method", info.FullMethod, "duration", elapsed)
	return resp, nil
}

// toStatus maps err through errmap and attaches an ErrorInfo carrying the
// error kind.
func toStatus(err error) *status.Status {
	kind, m, msg := errmap.Resolve(err)
	st := status.New(m.GRPCCode, msg)
	if detailed, derr := st.WithDetails(&errdetails.ErrorInfo{Reason: string(kind), Domain: errmap.Domain}); derr == nil {
		return detailed
	}
	return st
}

func firstValue(md metadata.MD, key string) string {
	if v := md.Get(key); len(v) > 0 {
		return v[0]
	}
	return ""
}
