package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sakif/inkpost/internal/apperror"
	"github.com/sakif/inkpost/internal/model"
	"github.com/sakif/inkpost/internal/repository"
)

// =========================================================================
// FAKE REPOSITORIES
// =========================================================================
//
// WHAT IS A FAKE?
// A fake is a working, in-memory implementation of an interface used in
// tests. The services can't tell it apart from SQLite or MongoDB.
//
// Both fakes are guarded by a mutex so the concurrency tests can hammer them,
// and both enforce the same contracts as the real stores: unique
// username/email on insert, NotFound for missing ids.

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User
	nextID int

	// set to a non-nil error to simulate a database failure
	createErr error
	getErr    error
	lookups   int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.users {
		if u.Username == user.Username {
			return apperror.Duplicate("user", "username")
		}
		if u.Email == user.Email {
			return apperror.Duplicate("user", "email")
		}
	}

	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lookups++
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

type fakePostRepo struct {
	mu     sync.Mutex
	posts  map[string]*model.Post
	seq    int
	listed repository.PostFilter

	listErr error
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: make(map[string]*model.Post)}
}

func (f *fakePostRepo) CreatePost(_ context.Context, post *model.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	post.ID = fmt.Sprintf("post-%d", f.seq)
	// Monotonic fake clock: later posts are always newer.
	post.CreatedAt = time.Unix(int64(f.seq), 0).UTC()
	post.UpdatedAt = post.CreatedAt
	stored := *post
	f.posts[post.ID] = &stored
	return nil
}

func (f *fakePostRepo) GetPostByID(_ context.Context, id string) (*model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.posts[id]
	if !ok {
		return nil, apperror.NotFound("post", id)
	}
	cp := *p
	return &cp, nil
}

func (f *fakePostRepo) ListPosts(_ context.Context, filter repository.PostFilter) ([]model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listed = filter
	if f.listErr != nil {
		return nil, f.listErr
	}

	out := make([]model.Post, 0, len(f.posts))
	for _, p := range f.posts {
		if filter.Category == "" || p.Category == filter.Category {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if filter.Offset >= len(out) {
		return []model.Post{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakePostRepo) UpdatePost(_ context.Context, post *model.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.posts[post.ID]; !ok {
		return apperror.NotFound("post", post.ID)
	}
	stored := *post
	stored.AuthorProfile = nil
	f.posts[post.ID] = &stored
	return nil
}

func (f *fakePostRepo) DeletePost(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.posts[id]; !ok {
		return apperror.NotFound("post", id)
	}
	delete(f.posts, id)
	return nil
}

// quietLogger discards everything; failures show up through t.Errorf instead.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
