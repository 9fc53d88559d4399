package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/inkpost/internal/apperror"
	"github.com/sakif/inkpost/internal/model"
	"github.com/sakif/inkpost/internal/repository"
)

const postColumns = `id, title, content, slug, author_id, category, tags, created_at, updated_at`

// CreatePost inserts a new post.
//
// ID GENERATION WITH xid:
// xid generates globally unique IDs that are 20 chars, URL-safe and sortable
// by creation time. Example: "cv37rs3pp9olc6atsptg"
//
// TAGS:
// SQLite has no array type, so tags are stored as a JSON array in a TEXT column.
func (db *DB) CreatePost(ctx context.Context, post *model.Post) error {
	tags, err := encodeTags(post.Tags)
	if err != nil {
		return apperror.Store("sqlite: encoding tags", err)
	}

	now := time.Now().UTC()
	id := xid.New().String()

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO posts (`+postColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		post.Title,
		post.Content,
		post.Slug,
		post.Author,
		post.Category,
		tags,
		toNanos(now),
		toNanos(now),
	)
	if err != nil {
		return apperror.Store("sqlite: creating post", err)
	}

	post.ID = id
	post.CreatedAt = now
	post.UpdatedAt = now
	return nil
}

// GetPostByID retrieves a single post by its ID.
//
// sql.ErrNoRows is not really an error; it just means "no matching row".
// We translate it to apperror.NotFound so the handler knows to return 404.
func (db *DB) GetPostByID(ctx context.Context, id string) (*model.Post, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = ?`,
		id,
	)
	p, err := scanPost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("post", id)
		}
		return nil, apperror.Store("sqlite: getting post", err)
	}
	return p, nil
}

// ListPosts returns posts newest first, optionally filtered by category.
//
// LIMIT/OFFSET pagination:
//
//	page 3 with 10 items per page → LIMIT 10 OFFSET 20
//
// Ties on created_at are broken by id so paging is stable.
func (db *DB) ListPosts(ctx context.Context, f repository.PostFilter) ([]model.Post, error) {
	var (
		where strings.Builder
		args  []any
	)
	if f.Category != "" {
		where.WriteString(" WHERE category = ?")
		args = append(args, f.Category)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = -1 // SQLite: negative LIMIT means no limit
	}
	offset := max(f.Offset, 0)
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts`+where.String()+`
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, apperror.Store("sqlite: listing posts", err)
	}
	// CRITICAL: always close rows when done, or the connection never
	// returns to the pool.
	defer rows.Close()

	posts := make([]model.Post, 0, max(f.Limit, 0))
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, apperror.Store("sqlite: scanning post row", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Store("sqlite: iterating posts", err)
	}

	return posts, nil
}

// UpdatePost overwrites the mutable fields of an existing post.
//
// id, author_id and created_at are immutable. RowsAffected() == 0 means the
// WHERE clause matched nothing, which is reported as NotFound.
func (db *DB) UpdatePost(ctx context.Context, post *model.Post) error {
	tags, err := encodeTags(post.Tags)
	if err != nil {
		return apperror.Store("sqlite: encoding tags", err)
	}

	now := time.Now().UTC()
	result, err := db.conn.ExecContext(ctx,
		`UPDATE posts
		 SET title = ?, content = ?, slug = ?, category = ?, tags = ?, updated_at = ?
		 WHERE id = ?`,
		post.Title,
		post.Content,
		post.Slug,
		post.Category,
		tags,
		toNanos(now),
		post.ID,
	)
	if err != nil {
		return apperror.Store("sqlite: updating post", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return apperror.Store("sqlite: checking rows affected", err)
	}
	if n == 0 {
		return apperror.NotFound("post", post.ID)
	}

	post.UpdatedAt = now
	return nil
}

// DeletePost removes a post by its ID.
func (db *DB) DeletePost(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return apperror.Store("sqlite: deleting post", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return apperror.Store("sqlite: checking rows affected", err)
	}
	if n == 0 {
		return apperror.NotFound("post", id)
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(s rowScanner) (*model.Post, error) {
	var (
		p                model.Post
		tags             string
		created, updated int64
	)
	if err := s.Scan(
		&p.ID, &p.Title, &p.Content, &p.Slug, &p.Author,
		&p.Category, &tags, &created, &updated,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags of post %s: %w", p.ID, err)
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	p.CreatedAt = fromNanos(created)
	p.UpdatedAt = fromNanos(updated)
	return &p, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
