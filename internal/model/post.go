package model

import "time"

// Post is a blog post owned by the user whose ID is stored in Author.
//
// Author is set once at creation and never changes; the ownership guard
// compares it against the authenticated user's ID on every update/delete.
//
// AuthorProfile is filled in on reads so the front end can show the author's
// name without a second request. It is never persisted.
type Post struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	Content       string      `json:"content"`
	Slug          string      `json:"slug"`
	Author        string      `json:"author"`
	AuthorProfile *PublicUser `json:"authorProfile,omitempty"`
	Category      string      `json:"category"`
	Tags          []string    `json:"tags"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}
