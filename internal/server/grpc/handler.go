package grpc

import (
	"context"

	pb "github.com/dmitrijs2005/blogd/internal/proto/blogpb"
	"github.com/dmitrijs2005/blogd/internal/server/authz"
	"github.com/dmitrijs2005/blogd/internal/server/models"
	"github.com/dmitrijs2005/blogd/internal/server/services"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Handlers return domain errors; unaryInterceptor turns them into statuses.

func (s *GRPCServer) Register(ctx context.Context, req *pb.RegisterRequest) (*pb.AuthResponse, error) {
	res, err := s.blog.Register(ctx, services.RegisterInput{Username: req.Username, Email: req.Email, Password: req.Password})
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Registered", "user_id", res.User.ID)
	return toAuthResponse(res), nil
}

func (s *GRPCServer) Login(ctx context.Context, req *pb.LoginRequest) (*pb.AuthResponse, error) {
	res, err := s.blog.Login(ctx, req.Identifier, req.Password)
	if err != nil {
		return nil, err
	}
	return toAuthResponse(res), nil
}

func (s *GRPCServer) CreatePost(ctx context.Context, req *pb.CreatePostRequest) (*pb.Post, error) {
	id, _ := authz.IdentityFromContext(ctx)
	p, err := s.blog.CreatePost(ctx, id, req.Title, req.Content)
	if err != nil {
		return nil, err
	}
	return toPost(p), nil
}

func (s *GRPCServer) GetPost(ctx context.Context, req *pb.GetPostRequest) (*pb.Post, error) {
	p, err := s.blog.GetPost(ctx, req.Id)
	if err != nil {
		return nil, err
	}
	return toPost(p), nil
}

func (s *GRPCServer) UpdatePost(ctx context.Context, req *pb.UpdatePostRequest) (*pb.Post, error) {
	id, _ := authz.IdentityFromContext(ctx)
	p, err := s.blog.UpdatePost(ctx, id, req.Id, services.UpdatePostInput{Title: req.Title, Content: req.Content})
	if err != nil {
		return nil, err
	}
	return toPost(p), nil
}

func (s *GRPCServer) DeletePost(ctx context.Context, req *pb.DeletePostRequest) (*pb.DeletePostResponse, error) {
	id, _ := authz.IdentityFromContext(ctx)
	if err := s.blog.DeletePost(ctx, id, req.Id); err != nil {
		return nil, err
	}
	return &pb.DeletePostResponse{}, nil
}

func (s *GRPCServer) ListPosts(ctx context.Context, req *pb.ListPostsRequest) (*pb.ListPostsResponse, error) {
	page, err := s.blog.ListPosts(ctx, int(req.Limit), int(req.Offset))
	if err != nil {
		return nil, err
	}
	out := &pb.ListPostsResponse{
		Posts:  make([]*pb.Post, 0, len(page.Posts)),
		Total:  page.Total,
		Limit:  int32(page.Limit),
		Offset: int32(page.Offset),
	}
	for _, p := range page.Posts {
		out.Posts = append(out.Posts, toPost(p))
	}
	return out, nil
}

func (s *GRPCServer) DeleteAccount(ctx context.Context, _ *pb.DeleteAccountRequest) (*pb.DeleteAccountResponse, error) {
	id, _ := authz.IdentityFromContext(ctx)
	if err := s.blog.DeleteAccount(ctx, id); err != nil {
		return nil, err
	}
	return &pb.DeleteAccountResponse{}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, _ *pb.PingRequest) (*pb.PingResponse, error) {
	if s.ping != nil {
		if err := s.ping(ctx); err != nil {
			s.logger.Error(ctx, "ping failed", "error", err)
			return &pb.PingResponse{Status: "UNAVAILABLE"}, nil
		}
	}
	return &pb.PingResponse{Status: "OK"}, nil
}

func toAuthResponse(res *services.AuthResult) *pb.AuthResponse {
	return &pb.AuthResponse{
		Token:     res.Token,
		ExpiresAt: timestamppb.New(res.ExpiresAt),
		User: &pb.User{
			Id:        res.User.ID,
			Username:  res.User.UserName,
			Email:     res.User.Email,
			CreatedAt: timestamppb.New(res.User.CreatedAt),
		},
	}
}

func toPost(p *models.Post) *pb.Post {
	return &pb.Post{
		Id:             p.ID,
		Title:          p.Title,
		Content:        p.Content,
		AuthorId:       p.AuthorID,
		AuthorUsername: p.AuthorUsername,
		CreatedAt:      timestamppb.New(p.CreatedAt),
		UpdatedAt:      timestamppb.New(p.UpdatedAt),
	}
}
