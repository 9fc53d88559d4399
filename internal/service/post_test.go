package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/sakif/inkpost/internal/apperror"
	"github.com/sakif/inkpost/internal/model"
	"github.com/sakif/inkpost/internal/repository"
)

// newTestPostService returns a PostService over fakes with two users,
// "alice" (user-1) and "bob" (user-2), already registered.
func newTestPostService(t *testing.T) (*PostService, *fakePostRepo, *fakeUserRepo) {
	t.Helper()
	users := newFakeUserRepo()
	for _, name := range []string{"alice", "bob"} {
		u := &model.User{Username: name, Email: name + "@example.com", PasswordHash: "x"}
		if err := users.CreateUser(context.Background(), u); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}
	posts := newFakePostRepo()
	return NewPostService(posts, users, quietLogger()), posts, users
}

const (
	aliceID = "user-1"
	bobID   = "user-2"
)

func mustCreate(t *testing.T, svc *PostService, actor, title, category string) *model.Post {
	t.Helper()
	p, err := svc.Create(context.Background(), actor, PostInput{Title: title, Content: "body", Category: category})
	if err != nil {
		t.Fatalf("setup: Create() error = %v", err)
	}
	return p
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestPostCreate_Success(t *testing.T) {
	svc, _, _ := newTestPostService(t)

	p, err := svc.Create(context.Background(), aliceID, PostInput{
		Title:    "  Hello, World!  ",
		Content:  " first post ",
		Category: "intro",
		Tags:     []string{" go ", "", "blog"},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if p.Author != aliceID {
		t.Errorf("Author = %q, want %q", p.Author, aliceID)
	}
	if p.Title != "Hello, World!" || p.Content != "first post" {
		t.Errorf("Create() did not trim: %+v", p)
	}
	if p.Slug != "hello-world-" {
		t.Errorf("Slug = %q, want %q", p.Slug, "hello-world-")
	}
	if len(p.Tags) != 2 || p.Tags[0] != "go" || p.Tags[1] != "blog" {
		t.Errorf("Tags = %v, want [go blog]", p.Tags)
	}
	if p.AuthorProfile == nil || p.AuthorProfile.Username != "alice" {
		t.Errorf("AuthorProfile = %+v, want alice", p.AuthorProfile)
	}
}

func TestPostCreate_Validation(t *testing.T) {
	tests := []struct {
		name      string
		in        PostInput
		wantField string
	}{
		{"empty title", PostInput{Title: "", Content: "c"}, "title"},
		{"blank title", PostInput{Title: "   ", Content: "c"}, "title"},
		{"title too long", PostInput{Title: strings.Repeat("t", MaxTitleLength+1), Content: "c"}, "title"},
		{"empty content", PostInput{Title: "T", Content: ""}, "content"},
		{"blank content", PostInput{Title: "T", Content: "\n\t "}, "content"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, posts, _ := newTestPostService(t)

			_, err := svc.Create(context.Background(), aliceID, tt.in)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("Create() error = %v, want ErrValidation", err)
			}
			if got := fieldOf(err); got != tt.wantField {
				t.Errorf("field = %q, want %q", got, tt.wantField)
			}
			if len(posts.posts) != 0 {
				t.Error("invalid post was stored")
			}
		})
	}
}

func TestPostCreate_TitleAtLimit(t *testing.T) {
	svc, _, _ := newTestPostService(t)

	if _, err := svc.Create(context.Background(), aliceID, PostInput{
		Title:   strings.Repeat("t", MaxTitleLength),
		Content: "c",
	}); err != nil {
		t.Fatalf("a %d-char title should be accepted: %v", MaxTitleLength, err)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct{ in, want string }{
		{"T", "t"},
		{"Hello World", "hello-world"},
		{"Go 1.25: what's new?", "go-1-25-what-s-new-"},
		{"  spaced  ", "-spaced-"},
		{"Ünïcödé", "-n-c-d-"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// =========================================================================
// LIST / GET TESTS
// =========================================================================

func TestPostList_DefaultsAndClamping(t *testing.T) {
	tests := []struct {
		name       string
		in         ListInput
		wantLimit  int
		wantOffset int
	}{
		{"zero values", ListInput{}, DefaultListLimit, 0},
		{"negative values", ListInput{Page: -3, Limit: -1}, DefaultListLimit, 0},
		{"page 3 of 5", ListInput{Page: 3, Limit: 5}, 5, 10},
		{"limit capped", ListInput{Page: 2, Limit: 1000}, MaxListLimit, MaxListLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, posts, _ := newTestPostService(t)

			if _, err := svc.List(context.Background(), tt.in); err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if posts.listed.Limit != tt.wantLimit || posts.listed.Offset != tt.wantOffset {
				t.Errorf("filter = %+v, want limit %d offset %d", posts.listed, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestPostList_PageBeyondAnyOffset(t *testing.T) {
	svc, posts, _ := newTestPostService(t)
	mustCreate(t, svc, aliceID, "only", "")

	for _, limit := range []int{1, 10, MaxListLimit} {
		got, err := svc.List(context.Background(), ListInput{Page: math.MaxInt, Limit: limit})
		if err != nil {
			t.Fatalf("List(limit %d) error = %v", limit, err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("List(limit %d) = %v, want an empty page", limit, titlesOf(got))
		}
	}
	if posts.listed != (repository.PostFilter{}) {
		t.Errorf("store was queried with %+v", posts.listed)
	}

	// The last page whose offset still fits goes to the store as usual.
	last := math.MaxInt/10 + 1
	if _, err := svc.List(context.Background(), ListInput{Page: last, Limit: 10}); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if posts.listed.Offset != (last-1)*10 || posts.listed.Offset < 0 {
		t.Errorf("offset = %d, want %d", posts.listed.Offset, (last-1)*10)
	}
}

func TestPostList_NewestFirstWithCategory(t *testing.T) {
	svc, _, _ := newTestPostService(t)
	for i := 1; i <= 3; i++ {
		mustCreate(t, svc, aliceID, fmt.Sprintf("go %d", i), "golang")
	}
	mustCreate(t, svc, bobID, "soup", "cooking")

	got, err := svc.List(context.Background(), ListInput{Category: "golang", Limit: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 || got[0].Title != "go 3" || got[1].Title != "go 2" {
		t.Errorf("List() = %v, want [go 3, go 2]", titlesOf(got))
	}
}

func TestPostList_PopulatesAuthorsOncePerAuthor(t *testing.T) {
	svc, _, users := newTestPostService(t)
	mustCreate(t, svc, aliceID, "a1", "")
	mustCreate(t, svc, aliceID, "a2", "")
	mustCreate(t, svc, bobID, "b1", "")

	users.lookups = 0
	got, err := svc.List(context.Background(), ListInput{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	for _, p := range got {
		if p.AuthorProfile == nil {
			t.Errorf("post %s has no author profile", p.ID)
			continue
		}
		if p.AuthorProfile.ID != p.Author {
			t.Errorf("post %s profile %s != author %s", p.ID, p.AuthorProfile.ID, p.Author)
		}
	}
	if users.lookups != 2 {
		t.Errorf("user lookups = %d, want 2 (one per distinct author)", users.lookups)
	}
}

func TestPostList_StoreFailure(t *testing.T) {
	svc, posts, _ := newTestPostService(t)
	posts.listErr = apperror.Store("listing", errors.New("boom"))

	if _, err := svc.List(context.Background(), ListInput{}); !errors.Is(err, apperror.ErrStore) {
		t.Fatalf("List() error = %v, want ErrStore", err)
	}
}

func TestPostGet(t *testing.T) {
	svc, _, _ := newTestPostService(t)
	created := mustCreate(t, svc, bobID, "hello", "")

	got, err := svc.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != "hello" || got.AuthorProfile == nil || got.AuthorProfile.Username != "bob" {
		t.Errorf("Get() = %+v", got)
	}

	if _, err := svc.Get(context.Background(), "post-404"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestPostGet_DeletedAuthorLeavesProfileNil(t *testing.T) {
	svc, _, users := newTestPostService(t)
	created := mustCreate(t, svc, bobID, "orphan", "")
	delete(users.users, bobID)

	got, err := svc.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.AuthorProfile != nil {
		t.Errorf("AuthorProfile = %+v, want nil", got.AuthorProfile)
	}
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestPostUpdate_OwnerPatchesOnlyGivenFields(t *testing.T) {
	svc, _, _ := newTestPostService(t)
	created, _ := svc.Create(context.Background(), aliceID, PostInput{
		Title: "Old Title", Content: "old body", Category: "misc", Tags: []string{"x"},
	})

	updated, err := svc.Update(context.Background(), aliceID, created.ID, PostPatch{Title: "New Title"})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated.Title != "New Title" || updated.Slug != "new-title" {
		t.Errorf("title/slug = %q/%q", updated.Title, updated.Slug)
	}
	if updated.Content != "old body" || updated.Category != "misc" || len(updated.Tags) != 1 {
		t.Errorf("unpatched fields changed: %+v", updated)
	}
	if updated.Author != aliceID {
		t.Errorf("Author changed to %q", updated.Author)
	}
}

func TestPostUpdate_WrongOwner(t *testing.T) {
	svc, posts, _ := newTestPostService(t)
	created := mustCreate(t, svc, aliceID, "mine", "")

	_, err := svc.Update(context.Background(), bobID, created.ID, PostPatch{Title: "hacked"})
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("Update() error = %v, want ErrForbidden", err)
	}
	if posts.posts[created.ID].Title != "mine" {
		t.Error("a forbidden update modified the post")
	}
}

func TestPostUpdate_ForbiddenBeforeValidation(t *testing.T) {
	svc, _, _ := newTestPostService(t)
	created := mustCreate(t, svc, aliceID, "mine", "")

	_, err := svc.Update(context.Background(), bobID, created.ID, PostPatch{Title: strings.Repeat("x", 500)})
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("Update() error = %v, want ErrForbidden", err)
	}
}

func TestPostUpdate_InvalidTitle(t *testing.T) {
	svc, _, _ := newTestPostService(t)
	created := mustCreate(t, svc, aliceID, "mine", "")

	_, err := svc.Update(context.Background(), aliceID, created.ID, PostPatch{Title: strings.Repeat("x", 201)})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("Update() error = %v, want ErrValidation", err)
	}
}

func TestPostUpdate_NotFound(t *testing.T) {
	svc, _, _ := newTestPostService(t)

	_, err := svc.Update(context.Background(), aliceID, "post-404", PostPatch{Title: "x"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("Update() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// DELETE TESTS
// =========================================================================

func TestPostDelete(t *testing.T) {
	svc, _, _ := newTestPostService(t)
	created := mustCreate(t, svc, aliceID, "doomed", "")

	if err := svc.Delete(context.Background(), bobID, created.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("Delete() by non-owner error = %v, want ErrForbidden", err)
	}
	if err := svc.Delete(context.Background(), aliceID, created.ID); err != nil {
		t.Fatalf("Delete() by owner error = %v", err)
	}
	if _, err := svc.Get(context.Background(), created.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("after delete: error = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(context.Background(), aliceID, created.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func titlesOf(posts []model.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Title
	}
	return out
}
