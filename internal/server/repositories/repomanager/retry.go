package repomanager

import (
	"context"

	"github.com/dmitrijs2005/blogd/internal/dbx"
	"github.com/dmitrijs2005/blogd/internal/server/models"
	"github.com/dmitrijs2005/blogd/internal/server/repositories/posts"
	"github.com/dmitrijs2005/blogd/internal/server/repositories/users"
)

type retryingUsers struct {
	next   users.Repository
	policy dbx.RetryPolicy
}

func (r *retryingUsers) Create(ctx context.Context, user *models.User) (out *models.User, err error) {
	err = dbx.Retry(ctx, r.policy, func(ctx context.Context) error {
		in := *user
		out, err = r.next.Create(ctx, &in)
		return err
	})
	return out, err
}

func (r *retryingUsers) FindByUsernameOrEmail(ctx context.Context, identifier string) (out *models.User, err error) {
	err = dbx.Retry(ctx, r.policy, func(ctx context.Context) error {
		out, err = r.next.FindByUsernameOrEmail(ctx, identifier)
		return err
	})
	return out, err
}

func (r *retryingUsers) Delete(ctx context.Context, id int64) error {
	return dbx.Retry(ctx, r.policy, func(ctx context.Context) error {
		return r.next.Delete(ctx, id)
	})
}

type retryingPosts struct {
	next   posts.Repository
	policy dbx.RetryPolicy
}

func (r *retryingPosts) Create(ctx context.Context, post *models.Post) (out *models.Post, err error) {
	err = dbx.Retry(ctx, r.policy, func(ctx context.Context) error {
		out, err = r.next.Create(ctx, post)
		return err
	})
	return out, err
}

func (r *retryingPosts) FindByID(ctx context.Context, id int64) (out *models.Post, err error) {
	err = dbx.Retry(ctx, r.policy, func(ctx context.Context) error {
		out, err = r.next.FindByID(ctx, id)
		return err
	})
	return out, err
}

func (r *retryingPosts) Update(ctx context.Context, id, authorID int64, patch models.PostPatch) (out *models.Post, err error) {
	err = dbx.Retry(ctx, r.policy, func(ctx context.Context) error {
		out, err = r.next.Update(ctx, id, authorID, patch)
		return err
	})
	return out, err
}

func (r *retryingPosts) Delete(ctx context.Context, id, authorID int64) error {
	return dbx.Retry(ctx, r.policy, func(ctx context.Context) error {
		return r.next.Delete(ctx, id, authorID)
	})
}

func (r *retryingPosts) List(ctx context.Context, limit, offset int) (out []*models.Post, err error) {
	err = dbx.Retry(ctx, r.policy, func(ctx context.Context) error {
		out, err = r.next.List(ctx, limit, offset)
		return err
	})
	return out, err
}

func (r *retryingPosts) Count(ctx context.Context) (n int64, err error) {
	err = dbx.Retry(ctx, r.policy, func(ctx context.Context) error {
		n, err = r.next.Count(ctx)
		return err
	})
	return n, err
}
