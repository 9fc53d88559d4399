// Package repository declares the storage contracts the services depend on.
//
// Two implementations live in sub-packages: sqlite (embedded, used for local
// runs and tests) and mongodb (the production document store). Services only
// ever see these interfaces.
//
// ERROR CONTRACT:
//   - a missing row/document → apperror.NotFound
//   - a unique username/email collision → apperror.Duplicate, decided by the
//     store's atomic insert, never by a read beforehand
//   - anything else → apperror.Store (wrapping the driver error)
package repository

import (
	"context"

	"github.com/sakif/inkpost/internal/model"
)

// PostFilter narrows and pages ListPosts. A zero Limit means "no limit".
type PostFilter struct {
	Category string
	Limit    int
	Offset   int
}

type UserRepository interface {
	// CreateUser assigns ID and timestamps on success.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

type PostRepository interface {
	CreatePost(ctx context.Context, post *model.Post) error
	GetPostByID(ctx context.Context, id string) (*model.Post, error)
	// ListPosts returns posts newest first.
	ListPosts(ctx context.Context, filter PostFilter) ([]model.Post, error)
	UpdatePost(ctx context.Context, post *model.Post) error
	DeletePost(ctx context.Context, id string) error
}

// Store is a full backend: both repositories plus lifecycle.
type Store interface {
	UserRepository
	PostRepository
	Ping(ctx context.Context) error
	Close() error
}
