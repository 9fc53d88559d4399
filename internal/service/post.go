// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services take repository interfaces, never a concrete store, so the same
// code runs on SQLite, MongoDB, or the in-memory fakes in the tests.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sakif/inkpost/internal/apperror"
	"github.com/sakif/inkpost/internal/auth"
	"github.com/sakif/inkpost/internal/model"
	"github.com/sakif/inkpost/internal/repository"
)

const (
	MaxTitleLength   = 200
	DefaultPage      = 1
	DefaultListLimit = 10
	MaxListLimit     = 100
)

var slugSeparator = regexp.MustCompile(`[^a-z0-9]+`)

// ListInput selects one page of posts. Zero values fall back to the defaults.
type ListInput struct {
	Category string
	Page     int
	Limit    int
}

// PostInput is the body of a create request.
type PostInput struct {
	Title    string
	Content  string
	Category string
	Tags     []string
}

// PostPatch is the body of an update request. Empty fields are left alone,
// so a field cannot be cleared through an update.
type PostPatch struct {
	Title    string
	Content  string
	Category string
	Tags     []string
}

// PostService handles business logic for blog posts.
type PostService struct {
	posts  repository.PostRepository
	users  repository.UserRepository
	logger *slog.Logger
}

func NewPostService(posts repository.PostRepository, users repository.UserRepository, logger *slog.Logger) *PostService {
	return &PostService{
		posts:  posts,
		users:  users,
		logger: logger,
	}
}

// List returns one page of posts, newest first, with author profiles filled in.
//
// PAGINATION:
// page and limit are 1-based and clamped: page < 1 → 1, limit < 1 → 10,
// limit > 100 → 100. Page 3 with limit 10 skips 20 posts.
func (s *PostService) List(ctx context.Context, in ListInput) ([]model.Post, error) {
	page := in.Page
	if page < 1 {
		page = DefaultPage
	}
	limit := in.Limit
	if limit < 1 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	// Past this page the offset no longer fits in an int; nothing lives there.
	if page-1 > math.MaxInt/limit {
		return []model.Post{}, nil
	}

	posts, err := s.posts.ListPosts(ctx, repository.PostFilter{
		Category: strings.TrimSpace(in.Category),
		Limit:    limit,
		Offset:   (page - 1) * limit,
	})
	if err != nil {
		s.logger.Error("failed to list posts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing posts: %w", err)
	}

	s.populateAuthors(ctx, posts)
	return posts, nil
}

// Get returns one post with its author profile.
func (s *PostService) Get(ctx context.Context, id string) (*model.Post, error) {
	post, err := s.posts.GetPostByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	return s.withAuthor(ctx, post), nil
}

// Create validates and saves a new post owned by actorID.
func (s *PostService) Create(ctx context.Context, actorID string, in PostInput) (*model.Post, error) {
	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)

	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if content == "" {
		return nil, apperror.ValidationFailed("content", "invalid content")
	}

	post := &model.Post{
		Title:    title,
		Content:  content,
		Slug:     Slugify(title),
		Author:   actorID,
		Category: strings.TrimSpace(in.Category),
		Tags:     cleanTags(in.Tags),
	}

	if err := s.posts.CreatePost(ctx, post); err != nil {
		s.logger.Error("failed to create post",
			slog.String("author", actorID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating post: %w", err)
	}

	s.logger.Info("post created",
		slog.String("id", post.ID),
		slog.String("author", actorID),
	)

	return s.withAuthor(ctx, post), nil
}

// Update applies patch to the post identified by id.
//
// ORDER OF CHECKS:
//  1. the post must exist              → NotFound (404)
//  2. the actor must be its author     → Forbidden (403)
//  3. the patched fields must be valid → Validation (400)
//
// Ownership is checked before validation so a non-owner learns nothing
// about what the post would accept.
func (s *PostService) Update(ctx context.Context, actorID, id string, patch PostPatch) (*model.Post, error) {
	post, err := s.posts.GetPostByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}

	if err := auth.RequireOwner(post.Author, actorID); err != nil {
		s.logger.Warn("update denied",
			slog.String("post_id", post.ID),
			slog.String("actor", actorID),
		)
		return nil, err
	}

	if title := strings.TrimSpace(patch.Title); title != "" {
		if err := validateTitle(title); err != nil {
			return nil, err
		}
		post.Title = title
		post.Slug = Slugify(title)
	}
	if content := strings.TrimSpace(patch.Content); content != "" {
		post.Content = content
	}
	if category := strings.TrimSpace(patch.Category); category != "" {
		post.Category = category
	}
	if len(patch.Tags) > 0 {
		post.Tags = cleanTags(patch.Tags)
	}

	if err := s.posts.UpdatePost(ctx, post); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("failed to update post",
			slog.String("post_id", post.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating post: %w", err)
	}

	s.logger.Info("post updated", slog.String("id", post.ID))
	return s.withAuthor(ctx, post), nil
}

// Delete removes the post identified by id if actorID is its author.
func (s *PostService) Delete(ctx context.Context, actorID, id string) error {
	post, err := s.posts.GetPostByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return err
	}

	if err := auth.RequireOwner(post.Author, actorID); err != nil {
		s.logger.Warn("delete denied",
			slog.String("post_id", post.ID),
			slog.String("actor", actorID),
		)
		return err
	}

	if err := s.posts.DeletePost(ctx, post.ID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		s.logger.Error("failed to delete post",
			slog.String("post_id", post.ID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("deleting post: %w", err)
	}

	s.logger.Info("post deleted", slog.String("id", post.ID))
	return nil
}

// withAuthor returns post with AuthorProfile filled in.
func (s *PostService) withAuthor(ctx context.Context, post *model.Post) *model.Post {
	one := []model.Post{*post}
	s.populateAuthors(ctx, one)
	return &one[0]
}

// populateAuthors fills AuthorProfile on each post, looking every distinct
// author up once. A failed lookup leaves the profile nil; the post itself
// is still worth returning.
func (s *PostService) populateAuthors(ctx context.Context, posts []model.Post) {
	profiles := make(map[string]*model.PublicUser)
	for i := range posts {
		id := posts[i].Author
		p, seen := profiles[id]
		if !seen {
			u, err := s.users.GetUserByID(ctx, id)
			if err != nil {
				if !errors.Is(err, apperror.ErrNotFound) {
					s.logger.Warn("failed to load post author",
						slog.String("author", id),
						slog.String("error", err.Error()),
					)
				}
			} else {
				pub := u.Public()
				p = &pub
			}
			profiles[id] = p
		}
		posts[i].AuthorProfile = p
	}
}

// Slugify lower-cases title and collapses every run of characters outside
// [a-z0-9] into a single '-'.
func Slugify(title string) string {
	return slugSeparator.ReplaceAllString(strings.ToLower(title), "-")
}

func validateTitle(title string) error {
	if title == "" || utf8.RuneCountInString(title) > MaxTitleLength {
		return apperror.ValidationFailed("title",
			fmt.Sprintf("title is required and must be %d characters or less", MaxTitleLength))
	}
	return nil
}

// cleanTags trims tags and drops empty ones. It never returns nil.
func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
