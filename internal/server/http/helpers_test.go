package http

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/blogd/internal/logging"
	"github.com/dmitrijs2005/blogd/internal/server/authz"
	"github.com/dmitrijs2005/blogd/internal/server/models"
	"github.com/dmitrijs2005/blogd/internal/server/services"
)

type nopLogger struct{}

func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

type admitCall struct {
	op         authz.Operation
	credential string
	origin     string
}

type fakeGate struct {
	mu    sync.Mutex
	calls []admitCall
	err   error
	id    authz.Identity
}

func (g *fakeGate) Admit(ctx context.Context, op authz.Operation, credential, origin string) (context.Context, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, admitCall{op, credential, origin})
	if g.err != nil {
		return ctx, g.err
	}
	if g.id.UserID > 0 {
		ctx = authz.WithIdentity(ctx, g.id)
	}
	return ctx, nil
}

func (g *fakeGate) last() admitCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[len(g.calls)-1]
}

type fakeBlog struct {
	authRes *services.AuthResult
	post    *models.Post
	page    *services.PostPage
	err     error

	gotIdentity authz.Identity
	gotUpdate   services.UpdatePostInput
	gotLimit    int
	gotOffset   int
}

func (f *fakeBlog) Register(context.Context, services.RegisterInput) (*services.AuthResult, error) {
	return f.authRes, f.err
}
func (f *fakeBlog) Login(context.Context, string, string) (*services.AuthResult, error) {
	return f.authRes, f.err
}
func (f *fakeBlog) CreatePost(_ context.Context, id authz.Identity, _, _ string) (*models.Post, error) {
	f.gotIdentity = id
	return f.post, f.err
}
func (f *fakeBlog) GetPost(context.Context, int64) (*models.Post, error) { return f.post, f.err }
func (f *fakeBlog) UpdatePost(_ context.Context, id authz.Identity, _ int64, in services.UpdatePostInput) (*models.Post, error) {
	f.gotIdentity = id
	f.gotUpdate = in
	return f.post, f.err
}
func (f *fakeBlog) DeletePost(_ context.Context, id authz.Identity, _ int64) error {
	f.gotIdentity = id
	return f.err
}
func (f *fakeBlog) ListPosts(_ context.Context, limit, offset int) (*services.PostPage, error) {
	f.gotLimit, f.gotOffset = limit, offset
	return f.page, f.err
}
func (f *fakeBlog) DeleteAccount(_ context.Context, id authz.Identity) error {
	f.gotIdentity = id
	return f.err
}
