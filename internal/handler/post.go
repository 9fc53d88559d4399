package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/inkpost/internal/apperror"
	"github.com/sakif/inkpost/internal/auth"
	"github.com/sakif/inkpost/internal/model"
	"github.com/sakif/inkpost/internal/service"
)

// PostStore is the slice of service.PostService the handlers need.
type PostStore interface {
	List(ctx context.Context, in service.ListInput) ([]model.Post, error)
	Get(ctx context.Context, id string) (*model.Post, error)
	Create(ctx context.Context, actorID string, in service.PostInput) (*model.Post, error)
	Update(ctx context.Context, actorID, id string, patch service.PostPatch) (*model.Post, error)
	Delete(ctx context.Context, actorID, id string) error
}

// PostHandler manages CRUD operations for blog posts.
//
// Reads are public. Writes need RequireAuth in front of them; the handler
// takes the actor from the request context and leaves the ownership check
// to the service.
type PostHandler struct {
	posts  PostStore
	logger *slog.Logger
}

// NewPostHandler creates a new PostHandler.
func NewPostHandler(posts PostStore, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, logger: logger}
}

type postRequest struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

// HandleList returns one page of posts, newest first.
//
// HTTP: GET /api/posts?category=go&page=2&limit=10
//
// QUERY PARAMETERS:
// All optional. A page or limit that isn't a number is treated as absent,
// and the service applies its defaults.
func (h *PostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	posts, err := h.posts.List(r.Context(), service.ListInput{
		Category: q.Get("category"),
		Page:     queryInt(q.Get("page")),
		Limit:    queryInt(q.Get("limit")),
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, posts)
}

// HandleGetByID returns a single post.
//
// HTTP: GET /api/posts/{id}
func (h *PostHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// HandleCreate saves a new post owned by the caller.
//
// HTTP: POST /api/posts
// REQUEST BODY: {"title": "...", "content": "...", "category": "...", "tags": ["..."]}
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req postRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	post, err := h.posts.Create(r.Context(), actor.ID, service.PostInput(req))
	if err != nil {
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, post)
}

// HandleUpdate patches a post. Only non-empty fields are applied.
//
// HTTP: PUT /api/posts/{id}
func (h *PostHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req postRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	post, err := h.posts.Update(r.Context(), actor.ID, chi.URLParam(r, "id"), service.PostPatch(req))
	if err != nil {
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// HandleDelete removes a post.
//
// HTTP: DELETE /api/posts/{id}
// RESPONSE: 200 {"message": "post deleted successfully"}
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.posts.Delete(r.Context(), actor.ID, id); err != nil {
		WriteError(w, err)
		return
	}

	h.logger.Info("post delete completed", slog.String("id", id), slog.String("actor", actor.ID))
	writeJSON(w, http.StatusOK, MessageResponse{Message: "post deleted successfully"})
}

func (h *PostHandler) actor(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.logger.Error("write route reached without an authenticated user",
			slog.String("path", r.URL.Path))
		WriteError(w, apperror.Unauthenticated(auth.ReasonNoToken))
		return nil, false
	}
	return user, true
}

// queryInt parses a query value, returning 0 (meaning "use the default")
// for anything that isn't an integer.
func queryInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
