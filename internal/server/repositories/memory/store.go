// Package memory provides in-process implementations of the users and posts
// repositories with the same observable semantics as the PostgreSQL ones:
// unique usernames and emails, store-assigned ids and timestamps, and
// cascading deletion of a user's posts.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/blogd/internal/clock"
	"github.com/dmitrijs2005/blogd/internal/common"
	"github.com/dmitrijs2005/blogd/internal/server/models"
)

type Store struct {
	mu         sync.RWMutex
	clock      clock.Clock
	users      map[int64]models.User
	posts      map[int64]models.Post
	nextUserID int64
	nextPostID int64
}

func NewStore(clk clock.Clock) *Store {
	return &Store{
		clock: clk,
		users: make(map[int64]models.User),
		posts: make(map[int64]models.Post),
	}
}

// Snapshot returns an independent copy of the store's current state.
func (s *Store) Snapshot() *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := NewStore(s.clock)
	c.nextUserID = s.nextUserID
	c.nextPostID = s.nextPostID
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.posts {
		c.posts[k] = v
	}
	return c
}

func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }
func (s *Store) Posts() *PostRepository { return &PostRepository{s: s} }

type UserRepository struct{ s *Store }

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.UserName == user.UserName || u.Email == user.Email {
			return nil, common.ErrorConflict
		}
	}

	r.s.nextUserID++
	created := *user
	created.ID = r.s.nextUserID
	created.CreatedAt = r.s.clock.Now()
	r.s.users[created.ID] = created

	out := created
	return &out, nil
}

func (r *UserRepository) FindByUsernameOrEmail(ctx context.Context, identifier string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var byEmail *models.User
	for _, u := range r.s.users {
		if u.UserName == identifier {
			out := u
			return &out, nil
		}
		if u.Email == identifier && byEmail == nil {
			out := u
			byEmail = &out
		}
	}
	if byEmail != nil {
		return byEmail, nil
	}
	return nil, common.ErrorNotFound
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.users, id)
	for pid, p := range r.s.posts {
		if p.AuthorID == id {
			delete(r.s.posts, pid)
		}
	}
	return nil
}

type PostRepository struct{ s *Store }

// withAuthor must be called with the store lock held.
func (r *PostRepository) withAuthor(p models.Post) *models.Post {
	p.AuthorUsername = r.s.users[p.AuthorID].UserName
	return &p
}

func (r *PostRepository) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[post.AuthorID]; !ok {
		return nil, common.ErrorNotFound
	}

	now := r.s.clock.Now()
	r.s.nextPostID++
	created := models.Post{
		ID:        r.s.nextPostID,
		Title:     post.Title,
		Content:   post.Content,
		AuthorID:  post.AuthorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.s.posts[created.ID] = created

	return r.withAuthor(created), nil
}

func (r *PostRepository) FindByID(ctx context.Context, id int64) (*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.posts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return r.withAuthor(p), nil
}

func (r *PostRepository) Update(ctx context.Context, id, authorID int64, patch models.PostPatch) (*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.posts[id]
	if !ok || p.AuthorID != authorID {
		return nil, common.ErrorNotFound
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Content != nil {
		p.Content = *patch.Content
	}
	if now := r.s.clock.Now(); now.After(p.CreatedAt) {
		p.UpdatedAt = now
	} else {
		p.UpdatedAt = p.CreatedAt
	}
	r.s.posts[id] = p

	return r.withAuthor(p), nil
}

func (r *PostRepository) Delete(ctx context.Context, id, authorID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.posts[id]
	if !ok || p.AuthorID != authorID {
		return common.ErrorNotFound
	}
	delete(r.s.posts, id)
	return nil
}

func (r *PostRepository) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := make([]models.Post, 0, len(r.s.posts))
	for _, p := range r.s.posts {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	result := make([]*models.Post, 0)
	if offset >= len(all) {
		return result, nil
	}
	end := len(all)
	if limit >= 0 && offset+limit < end {
		end = offset + limit
	}
	for _, p := range all[offset:end] {
		result = append(result, r.withAuthor(p))
	}
	return result, nil
}

func (r *PostRepository) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.posts)), nil
}
