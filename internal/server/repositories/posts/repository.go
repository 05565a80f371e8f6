package posts

import (
	"context"

	"github.com/dmitrijs2005/blogd/internal/server/models"
)

// Repository persists posts. Reads return AuthorUsername joined from users.
// Update and Delete only touch a row owned by authorID and report
// common.ErrorNotFound otherwise.
type Repository interface {
	Create(ctx context.Context, post *models.Post) (*models.Post, error)
	FindByID(ctx context.Context, id int64) (*models.Post, error)
	Update(ctx context.Context, id, authorID int64, patch models.PostPatch) (*models.Post, error)
	Delete(ctx context.Context, id, authorID int64) error
	List(ctx context.Context, limit, offset int) ([]*models.Post, error)
	Count(ctx context.Context) (int64, error)
}
