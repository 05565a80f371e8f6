// Package http is the REST adapter over the blog service, built on gin. It
// maps each route to one service call and renders errors through errmap.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/blogd/internal/logging"
	"github.com/dmitrijs2005/blogd/internal/server/authz"
	"github.com/dmitrijs2005/blogd/internal/server/metrics"
	"github.com/dmitrijs2005/blogd/internal/server/models"
	"github.com/dmitrijs2005/blogd/internal/server/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
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

type Options struct {
	Address            string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string
	CORSMaxAge         time.Duration
}

type HTTPServer struct {
	opts    Options
	blog    BlogService
	gate    Gate
	metrics *metrics.Metrics
	ping    func(context.Context) error
	logger  logging.Logger
}

// NewHTTPServer wires the adapter. ping backs /health and may be nil.
func NewHTTPServer(opts Options, l logging.Logger, blog BlogService, gate Gate, m *metrics.Metrics,
	ping func(context.Context) error) *HTTPServer {
	return &HTTPServer{
		opts:    opts,
		blog:    blog,
		gate:    gate,
		metrics: m,
		ping:    ping,
		logger:  l.With("module", "http_server"),
	}
}

// Router builds the gin engine with every route and middleware.
func (s *HTTPServer) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	// Origins come from the socket peer only; forwarding headers are ignored.
	_ = r.SetTrustedProxies(nil)

	r.Use(gin.Recovery(), s.requestID(), s.accessLog())
	if c, ok := s.corsConfig(); ok {
		r.Use(cors.New(c))
	}
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.GET("/health", s.health)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	v1 := r.Group("/api/v1")
	{
		v1.POST("/auth/register", s.admit(authz.OpRegister), s.register)
		v1.POST("/auth/login", s.admit(authz.OpLogin), s.login)

		v1.GET("/posts", s.admit(authz.OpListPosts), s.listPosts)
		v1.POST("/posts", s.admit(authz.OpCreatePost), s.createPost)
		v1.GET("/posts/:id", s.admit(authz.OpGetPost), s.getPost)
		v1.PUT("/posts/:id", s.admit(authz.OpUpdatePost), s.updatePost)
		v1.PATCH("/posts/:id", s.admit(authz.OpUpdatePost), s.updatePost)
		v1.DELETE("/posts/:id", s.admit(authz.OpDeletePost), s.deletePost)

		v1.DELETE("/users/me", s.admit(authz.OpDeleteAccount), s.deleteAccount)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{Code: "NOT_FOUND", Message: "route not found"})
	})

	return r
}

func (s *HTTPServer) corsConfig() (cors.Config, bool) {
	if len(s.opts.CORSAllowedOrigins) == 0 {
		return cors.Config{}, false
	}
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        s.opts.CORSMaxAge,
	}
	for _, o := range s.opts.CORSAllowedOrigins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c, true
		}
	}
	c.AllowOrigins = s.opts.CORSAllowedOrigins
	return c, true
}

func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve handles requests on lis until ctx is cancelled, then shuts down,
// waiting at most ShutdownTimeout for in-flight requests.
func (s *HTTPServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	stopped := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		timeout := s.opts.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		stopped <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-stopped
}
