// Package services contains server-side business logic. BlogService is the
// only implementation of registration, login, and post management; both
// transports call it the same way.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/blogd/internal/clock"
	"github.com/dmitrijs2005/blogd/internal/common"
	"github.com/dmitrijs2005/blogd/internal/logging"
	"github.com/dmitrijs2005/blogd/internal/server/auth"
	"github.com/dmitrijs2005/blogd/internal/server/authz"
	"github.com/dmitrijs2005/blogd/internal/server/models"
	"github.com/dmitrijs2005/blogd/internal/server/repositories/posts"
	"github.com/dmitrijs2005/blogd/internal/server/repositories/repomanager"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

var errBadCredentials = fmt.Errorf("%w: invalid username or password", common.ErrorUnauthorized)

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// UpdatePostInput carries a partial update. Nil fields keep their value.
type UpdatePostInput struct {
	Title   *string
	Content *string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

type PostPage struct {
	Posts  []*models.Post
	Total  int64
	Limit  int
	Offset int
}

type Options struct {
	PageDefault int
	PageMax     int
}

type BlogService struct {
	repomanager repomanager.RepositoryManager
	hasher      *auth.PasswordHasher
	tokens      *auth.TokenIssuer
	clock       clock.Clock
	logger      logging.Logger
	validate    *validator.Validate
	pageDefault int
	pageMax     int
	dummyHash   string
}

func NewBlogService(m repomanager.RepositoryManager, hasher *auth.PasswordHasher, tokens *auth.TokenIssuer,
	clk clock.Clock, logger logging.Logger, opts Options) (*BlogService, error) {

	if opts.PageDefault <= 0 {
		opts.PageDefault = DefaultPageSize
	}
	if opts.PageMax <= 0 {
		opts.PageMax = MaxPageSize
	}
	if opts.PageDefault > opts.PageMax {
		return nil, fmt.Errorf("default page size %d exceeds max %d", opts.PageDefault, opts.PageMax)
	}

	// Verified against when a login names no user, so both paths cost one
	// argon2 derivation.
	dummy, err := hasher.Hash("blogd-dummy-password")
	if err != nil {
		return nil, fmt.Errorf("error preparing dummy hash: %w", err)
	}

	return &BlogService{
		repomanager: m,
		hasher:      hasher,
		tokens:      tokens,
		clock:       clk,
		logger:      logger,
		validate:    newValidator(),
		pageDefault: opts.PageDefault,
		pageMax:     opts.PageMax,
		dummyHash:   dummy,
	}, nil
}

// Register creates a user and issues a token for it.
func (s *BlogService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	f := registerFields{
		Username: strings.TrimSpace(in.Username),
		Email:    strings.TrimSpace(in.Email),
		Password: in.Password,
	}
	if err := s.validate.Struct(f); err != nil {
		return nil, invalid("input", err)
	}

	hash, err := s.hasher.Hash(f.Password)
	if err != nil {
		return nil, s.internal(ctx, "error hashing password", err)
	}

	user, err := s.repomanager.Users().Create(ctx, &models.User{UserName: f.Username, Email: f.Email, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, fmt.Errorf("%w: username or email is already taken", common.ErrorConflict)
		}
		return nil, s.internal(ctx, "error creating user", err)
	}

	return s.issue(ctx, user)
}

// Login authenticates by username or email. Unknown users and wrong
// passwords produce the same error.
func (s *BlogService) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		s.hasher.Verify(password, s.dummyHash)
		return nil, errBadCredentials
	}

	user, err := s.repomanager.Users().FindByUsernameOrEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			return nil, errBadCredentials
		}
		return nil, s.internal(ctx, "error looking up user", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, errBadCredentials
	}

	return s.issue(ctx, user)
}

func (s *BlogService) CreatePost(ctx context.Context, id authz.Identity, title, content string) (*models.Post, error) {
	if id.UserID <= 0 {
		return nil, fmt.Errorf("%w: authentication required", common.ErrorUnauthorized)
	}

	title = strings.TrimSpace(title)
	if err := s.checkTitle(title); err != nil {
		return nil, err
	}
	if err := s.checkContent(content); err != nil {
		return nil, err
	}

	p, err := s.repomanager.Posts().Create(ctx, &models.Post{Title: title, Content: content, AuthorID: id.UserID})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// The token outlived its account.
			return nil, fmt.Errorf("%w: account no longer exists", common.ErrorUnauthorized)
		}
		return nil, s.internal(ctx, "error creating post", err)
	}
	return p, nil
}

func (s *BlogService) GetPost(ctx context.Context, postID int64) (*models.Post, error) {
	p, err := s.repomanager.Posts().FindByID(ctx, postID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, postNotFound(postID)
		}
		return nil, s.internal(ctx, "error loading post", err)
	}
	return p, nil
}

// UpdatePost checks input, then existence, then ownership.
func (s *BlogService) UpdatePost(ctx context.Context, id authz.Identity, postID int64, in UpdatePostInput) (*models.Post, error) {
	if id.UserID <= 0 {
		return nil, fmt.Errorf("%w: authentication required", common.ErrorUnauthorized)
	}
	if in.Title == nil && in.Content == nil {
		return nil, fmt.Errorf("%w: nothing to update", common.ErrorValidation)
	}

	var patch models.PostPatch
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if err := s.checkTitle(title); err != nil {
			return nil, err
		}
		patch.Title = &title
	}
	if in.Content != nil {
		if err := s.checkContent(*in.Content); err != nil {
			return nil, err
		}
		content := *in.Content
		patch.Content = &content
	}

	if err := s.authorize(ctx, id, postID); err != nil {
		return nil, err
	}

	p, err := s.repomanager.Posts().Update(ctx, postID, id.UserID, patch)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// Deleted between the ownership check and the write.
			return nil, postNotFound(postID)
		}
		return nil, s.internal(ctx, "error updating post", err)
	}
	return p, nil
}

func (s *BlogService) DeletePost(ctx context.Context, id authz.Identity, postID int64) error {
	if id.UserID <= 0 {
		return fmt.Errorf("%w: authentication required", common.ErrorUnauthorized)
	}
	if err := s.authorize(ctx, id, postID); err != nil {
		return err
	}

	if err := s.repomanager.Posts().Delete(ctx, postID, id.UserID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return postNotFound(postID)
		}
		return s.internal(ctx, "error deleting post", err)
	}
	return nil
}

// ListPosts returns one page, newest first, together with the total count
// observed in the same snapshot.
func (s *BlogService) ListPosts(ctx context.Context, limit, offset int) (*PostPage, error) {
	if limit <= 0 {
		limit = s.pageDefault
	}
	if limit > s.pageMax {
		limit = s.pageMax
	}
	if offset < 0 {
		offset = 0
	}

	var page PostPage
	err := s.repomanager.Snapshot(ctx, func(ctx context.Context, repo posts.Repository) error {
		items, err := repo.List(ctx, limit, offset)
		if err != nil {
			return err
		}
		total, err := repo.Count(ctx)
		if err != nil {
			return err
		}
		page = PostPage{Posts: items, Total: total, Limit: limit, Offset: offset}
		return nil
	})
	if err != nil {
		return nil, s.internal(ctx, "error listing posts", err)
	}
	return &page, nil
}

// DeleteAccount removes the caller. Their posts go with them.
func (s *BlogService) DeleteAccount(ctx context.Context, id authz.Identity) error {
	if id.UserID <= 0 {
		return fmt.Errorf("%w: authentication required", common.ErrorUnauthorized)
	}
	if err := s.repomanager.Users().Delete(ctx, id.UserID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("%w: account no longer exists", common.ErrorUnauthorized)
		}
		return s.internal(ctx, "error deleting account", err)
	}
	return nil
}

func (s *BlogService) authorize(ctx context.Context, id authz.Identity, postID int64) error {
	p, err := s.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if p.AuthorID != id.UserID {
		return fmt.Errorf("%w: post %d belongs to another user", common.ErrorForbidden, postID)
	}
	return nil
}

func (s *BlogService) checkTitle(title string) error {
	if err := s.validate.Var(title, titleRules); err != nil {
		return invalid("title", err)
	}
	return nil
}

func (s *BlogService) checkContent(content string) error {
	if err := s.validate.Var(strings.TrimSpace(content), "required"); err != nil {
		return invalid("content", err)
	}
	if err := s.validate.Var(content, contentRules); err != nil {
		return invalid("content", err)
	}
	return nil
}

func (s *BlogService) issue(ctx context.Context, user *models.User) (*AuthResult, error) {
	token, exp, err := s.tokens.Issue(user.ID, s.clock.Now())
	if err != nil {
		return nil, s.internal(ctx, "error issuing token", err)
	}
	out := *user
	out.PasswordHash = ""
	return &AuthResult{User: &out, Token: token, ExpiresAt: exp}, nil
}

// internal logs err (the handler attaches the request id) and hides it from
// the caller.
// Context cancellation passes through so transports can see it.
func (s *BlogService) internal(ctx context.Context, msg string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn(ctx, msg, "error", err)
		return fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	s.logger.Error(ctx, msg, "error", err)
	return common.ErrorInternal
}

func postNotFound(id int64) error {
	return fmt.Errorf("%w: post %d", common.ErrorNotFound, id)
}
