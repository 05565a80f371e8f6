package users

import (
	"context"

	"github.com/dmitrijs2005/blogd/internal/server/models"
)

// Repository persists user accounts. Not-found is common.ErrorNotFound and a
// duplicate username or email is common.ErrorConflict.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByUsernameOrEmail(ctx context.Context, identifier string) (*models.User, error)
	Delete(ctx context.Context, id int64) error
}
