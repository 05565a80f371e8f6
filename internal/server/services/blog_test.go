package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/blogd/internal/clock"
	"github.com/dmitrijs2005/blogd/internal/common"
	"github.com/dmitrijs2005/blogd/internal/cryptox"
	"github.com/dmitrijs2005/blogd/internal/logging"
	"github.com/dmitrijs2005/blogd/internal/server/auth"
	"github.com/dmitrijs2005/blogd/internal/server/authz"
	"github.com/dmitrijs2005/blogd/internal/server/models"
	"github.com/dmitrijs2005/blogd/internal/server/repositories/posts"
	"github.com/dmitrijs2005/blogd/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/blogd/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	mu     sync.Mutex
	errors []string
}

func (l *recordingLogger) Info(context.Context, string, ...any) {}
func (l *recordingLogger) Warn(context.Context, string, ...any) {}
func (l *recordingLogger) Error(_ context.Context, msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}
func (l *recordingLogger) With(...any) logging.Logger { return l }

type fixture struct {
	svc    *BlogService
	clock  *clock.MockClock
	tokens *auth.TokenIssuer
	logger *recordingLogger
}

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newFixtureWith(t *testing.T, m repomanager.RepositoryManager, clk *clock.MockClock) *fixture {
	t.Helper()
	hasher := auth.NewPasswordHasher(cryptox.Argon2Params{MemoryKiB: 64, Iterations: 1, Lanes: 1, SaltLen: 16, KeyLen: 32})
	tokens, err := auth.NewTokenIssuer(testSecret, time.Hour)
	require.NoError(t, err)
	logger := &recordingLogger{}
	svc, err := NewBlogService(m, hasher, tokens, clk, logger, Options{PageDefault: 2, PageMax: 5})
	require.NoError(t, err)
	return &fixture{svc: svc, clock: clk, tokens: tokens, logger: logger}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewMockClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	return newFixtureWith(t, repomanager.NewInMemoryRepositoryManager(clk), clk)
}

func (f *fixture) register(t *testing.T, name string) (*AuthResult, authz.Identity) {
	t.Helper()
	res, err := f.svc.Register(context.Background(), RegisterInput{Username: name, Email: name + "@example.com", Password: "secret123"})
	require.NoError(t, err)
	return res, authz.Identity{UserID: res.User.ID}
}

func strPtr(s string) *string { return &s }

func TestNewBlogService_RejectsDefaultAboveMax(t *testing.T) {
	clk := clock.NewMockClock(time.Now())
	hasher := auth.NewPasswordHasher(cryptox.Argon2Params{MemoryKiB: 64, Iterations: 1, Lanes: 1, SaltLen: 16, KeyLen: 32})
	tokens, err := auth.NewTokenIssuer(testSecret, time.Hour)
	require.NoError(t, err)

	_, err = NewBlogService(repomanager.NewInMemoryRepositoryManager(clk), hasher, tokens, clk, &recordingLogger{}, Options{PageDefault: 50, PageMax: 10})
	assert.Error(t, err)
}

func TestRegister_ThenLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Register(ctx, RegisterInput{Username: "  ivan ", Email: "ivan@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "ivan", res.User.UserName)
	assert.Empty(t, res.User.PasswordHash)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, f.clock.Now().Add(time.Hour), res.ExpiresAt)

	uid, err := f.tokens.Verify(res.Token, f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, uid)

	for _, ident := range []string{"ivan", "ivan@example.com"} {
		got, err := f.svc.Login(ctx, ident, "secret123")
		require.NoError(t, err, ident)
		assert.Equal(t, res.User.ID, got.User.ID)
		assert.Empty(t, got.User.PasswordHash)
	}
}

func TestRegister_Conflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "ivan")

	_, err := f.svc.Register(ctx, RegisterInput{Username: "ivan", Email: "other@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, common.ErrorConflict)

	_, err = f.svc.Register(ctx, RegisterInput{Username: "other", Email: "ivan@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, common.ErrorConflict)
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{"empty username", RegisterInput{Username: "   ", Email: "a@example.com", Password: "secret123"}, "username"},
		{"long username", RegisterInput{Username: strings.Repeat("u", MaxUsernameLength+1), Email: "a@example.com", Password: "secret123"}, "username"},
		{"at sign in username", RegisterInput{Username: "a@b", Email: "a@example.com", Password: "secret123"}, "username"},
		{"bad email", RegisterInput{Username: "a", Email: "not-an-email", Password: "secret123"}, "email"},
		{"empty email", RegisterInput{Username: "a", Email: "", Password: "secret123"}, "email"},
		{"short password", RegisterInput{Username: "a", Email: "a@example.com", Password: "short"}, "password"},
		{"long password", RegisterInput{Username: "a", Email: "a@example.com", Password: strings.Repeat("p", MaxPasswordLength+1)}, "password"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Register(context.Background(), tc.in)
			require.ErrorIs(t, err, common.ErrorValidation)
			assert.Contains(t, err.Error(), tc.field)
		})
	}
}

func TestRegister_UsernameCannotShadowEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ivan, _ := f.register(t, "ivan")

	_, err := f.svc.Register(ctx, RegisterInput{Username: "ivan@example.com", Email: "mallory@example.com", Password: "secret123"})
	require.ErrorIs(t, err, common.ErrorValidation)
	assert.Contains(t, err.Error(), "username must not contain")

	got, err := f.svc.Login(ctx, "ivan@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, ivan.User.ID, got.User.ID)
}

func TestRegister_LimitsMatchConstants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, RegisterInput{Username: strings.Repeat("u", MaxUsernameLength), Email: "u@example.com", Password: strings.Repeat("p", MinPasswordLength)})
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, RegisterInput{Username: "v", Email: "v@example.com", Password: strings.Repeat("p", MinPasswordLength-1)})
	require.ErrorIs(t, err, common.ErrorValidation)
	assert.Contains(t, err.Error(), fmt.Sprintf("at least %d characters", MinPasswordLength))
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "ivan")

	_, wrongPassword := f.svc.Login(ctx, "ivan", "wrong-password")
	_, unknownUser := f.svc.Login(ctx, "nobody", "secret123")
	_, empty := f.svc.Login(ctx, "", "")

	for _, err := range []error{wrongPassword, unknownUser, empty} {
		require.ErrorIs(t, err, common.ErrorUnauthorized)
		assert.Equal(t, wrongPassword.Error(), err.Error())
	}
}

func TestCreatePost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, ivan := f.register(t, "ivan")

	p, err := f.svc.CreatePost(ctx, ivan, " My First Post ", "Hello, World!")
	require.NoError(t, err)
	assert.Equal(t, ivan.UserID, p.AuthorID)
	assert.Equal(t, "ivan", p.AuthorUsername)
	assert.Equal(t, "My First Post", p.Title)

	_, err = f.svc.CreatePost(ctx, authz.Identity{}, "t", "c")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	_, err = f.svc.CreatePost(ctx, ivan, "  ", "c")
	assert.ErrorIs(t, err, common.ErrorValidation)
	_, err = f.svc.CreatePost(ctx, ivan, "t", "\n\t")
	assert.ErrorIs(t, err, common.ErrorValidation)
	_, err = f.svc.CreatePost(ctx, ivan, strings.Repeat("t", MaxTitleLength+1), "c")
	assert.ErrorIs(t, err, common.ErrorValidation)
	_, err = f.svc.CreatePost(ctx, ivan, "t", strings.Repeat("c", MaxContentLength+1))
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = f.svc.CreatePost(ctx, authz.Identity{UserID: 999}, "t", "c")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestGetPost_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetPost(context.Background(), 42)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpdatePost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, ivan := f.register(t, "ivan")
	_, olga := f.register(t, "olga")

	p, err := f.svc.CreatePost(ctx, ivan, "title", "content")
	require.NoError(t, err)

	_, err = f.svc.UpdatePost(ctx, olga, p.ID, UpdatePostInput{Title: strPtr("hijack")})
	assert.ErrorIs(t, err, common.ErrorForbidden)

	_, err = f.svc.UpdatePost(ctx, ivan, p.ID+100, UpdatePostInput{Title: strPtr("x")})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	// Input is checked before existence and ownership.
	_, err = f.svc.UpdatePost(ctx, olga, p.ID+100, UpdatePostInput{Title: strPtr("")})
	assert.ErrorIs(t, err, common.ErrorValidation)
	_, err = f.svc.UpdatePost(ctx, ivan, p.ID, UpdatePostInput{})
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = f.svc.UpdatePost(ctx, authz.Identity{}, p.ID, UpdatePostInput{Title: strPtr("x")})
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	f.clock.Advance(time.Minute)
	got, err := f.svc.UpdatePost(ctx, ivan, p.ID, UpdatePostInput{Content: strPtr("new content")})
	require.NoError(t, err)
	assert.Equal(t, "title", got.Title)
	assert.Equal(t, "new content", got.Content)
	assert.True(t, got.UpdatedAt.After(p.UpdatedAt))
	assert.Equal(t, p.CreatedAt, got.CreatedAt)
}

func TestDeletePost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, ivan := f.register(t, "ivan")
	_, olga := f.register(t, "olga")

	p, err := f.svc.CreatePost(ctx, ivan, "title", "content")
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.DeletePost(ctx, olga, p.ID), common.ErrorForbidden)
	assert.ErrorIs(t, f.svc.DeletePost(ctx, authz.Identity{}, p.ID), common.ErrorUnauthorized)
	require.NoError(t, f.svc.DeletePost(ctx, ivan, p.ID))
	assert.ErrorIs(t, f.svc.DeletePost(ctx, ivan, p.ID), common.ErrorNotFound)

	_, err = f.svc.GetPost(ctx, p.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestListPosts_PaginationPartitionsAllPosts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, ivan := f.register(t, "ivan")

	var want []int64
	for i := 0; i < 7; i++ {
		p, err := f.svc.CreatePost(ctx, ivan, "t", "c")
		require.NoError(t, err)
		want = append([]int64{p.ID}, want...)
		if i%3 == 0 {
			f.clock.Advance(time.Second)
		}
	}

	var got []int64
	for offset := 0; ; offset += 3 {
		page, err := f.svc.ListPosts(ctx, 3, offset)
		require.NoError(t, err)
		assert.Equal(t, int64(7), page.Total)
		if len(page.Posts) == 0 {
			break
		}
		for _, p := range page.Posts {
			got = append(got, p.ID)
		}
	}
	assert.Equal(t, want, got)
}

func TestListPosts_Clamping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, ivan := f.register(t, "ivan")
	for i := 0; i < 6; i++ {
		_, err := f.svc.CreatePost(ctx, ivan, "t", "c")
		require.NoError(t, err)
	}

	page, err := f.svc.ListPosts(ctx, 0, -4)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Limit)
	assert.Equal(t, 0, page.Offset)
	assert.Len(t, page.Posts, 2)

	page, err = f.svc.ListPosts(ctx, 1000, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, page.Limit)
	assert.Len(t, page.Posts, 5)
}

func TestScenario_IvanAndOlga(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg, err := f.svc.Register(ctx, RegisterInput{Username: "ivan", Email: "ivan@example.com", Password: "secret123"})
	require.NoError(t, err)
	require.Positive(t, reg.User.ID)

	login, err := f.svc.Login(ctx, "ivan@example.com", "secret123")
	require.NoError(t, err)
	ivanID, err := f.tokens.Verify(login.Token, f.clock.Now())
	require.NoError(t, err)
	ivan := authz.Identity{UserID: ivanID}

	post, err := f.svc.CreatePost(ctx, ivan, "My First Post", "Hello, World!")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, post.AuthorID)

	_, olga := f.register(t, "olga")
	_, err = f.svc.UpdatePost(ctx, olga, post.ID, UpdatePostInput{Title: strPtr("mine now")})
	assert.ErrorIs(t, err, common.ErrorForbidden)

	require.NoError(t, f.svc.DeleteAccount(ctx, ivan))
	_, err = f.svc.GetPost(ctx, post.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	assert.ErrorIs(t, f.svc.DeleteAccount(ctx, ivan), common.ErrorUnauthorized)
}

// ---- store failures ----

var errStore = errors.New("connection reset by peer")

type brokenManager struct{ repomanager.RepositoryManager }

func (brokenManager) Users() users.Repository { return brokenUsers{} }
func (brokenManager) Posts() posts.Repository { return brokenPosts{} }
func (brokenManager) Snapshot(context.Context, func(context.Context, posts.Repository) error) error {
	return errStore
}

type brokenUsers struct{}

func (brokenUsers) Create(context.Context, *models.User) (*models.User, error) { return nil, errStore }
func (brokenUsers) FindByUsernameOrEmail(context.Context, string) (*models.User, error) {
	return nil, errStore
}
func (brokenUsers) Delete(context.Context, int64) error { return errStore }

type brokenPosts struct{}

func (brokenPosts) Create(context.Context, *models.Post) (*models.Post, error) { return nil, errStore }
func (brokenPosts) FindByID(context.Context, int64) (*models.Post, error)      { return nil, errStore }
func (brokenPosts) Update(context.Context, int64, int64, models.PostPatch) (*models.Post, error) {
	return nil, errStore
}
func (brokenPosts) Delete(context.Context, int64, int64) error           { return errStore }
func (brokenPosts) List(context.Context, int, int) ([]*models.Post, error) { return nil, errStore }
func (brokenPosts) Count(context.Context) (int64, error)                  { return 0, errStore }

func TestStoreFailuresAreInternalAndLogged(t *testing.T) {
	clk := clock.NewMockClock(time.Now())
	f := newFixtureWith(t, brokenManager{}, clk)
	ctx := context.Background()
	id := authz.Identity{UserID: 1}

	_, regErr := f.svc.Register(ctx, RegisterInput{Username: "ivan", Email: "ivan@example.com", Password: "secret123"})
	_, loginErr := f.svc.Login(ctx, "ivan", "secret123")
	_, createErr := f.svc.CreatePost(ctx, id, "t", "c")
	_, getErr := f.svc.GetPost(ctx, 1)
	_, updateErr := f.svc.UpdatePost(ctx, id, 1, UpdatePostInput{Title: strPtr("t")})
	deleteErr := f.svc.DeletePost(ctx, id, 1)
	_, listErr := f.svc.ListPosts(ctx, 10, 0)
	accountErr := f.svc.DeleteAccount(ctx, id)

	for _, err := range []error{regErr, loginErr, createErr, getErr, updateErr, deleteErr, listErr, accountErr} {
		require.Error(t, err)
		assert.Equal(t, common.KindInternal, common.KindOf(err))
		assert.NotContains(t, err.Error(), errStore.Error())
	}
	assert.Len(t, f.logger.errors, 8)
}
