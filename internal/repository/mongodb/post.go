package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/inkpost/internal/apperror"
	"github.com/sakif/inkpost/internal/model"
	"github.com/sakif/inkpost/internal/repository"
)

type postDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Title     string             `bson:"title"`
	Content   string             `bson:"content"`
	Slug      string             `bson:"slug"`
	Author    primitive.ObjectID `bson:"author"`
	Category  string             `bson:"category"`
	Tags      []string           `bson:"tags"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d *postDoc) toModel() model.Post {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return model.Post{
		ID:        d.ID.Hex(),
		Title:     d.Title,
		Content:   d.Content,
		Slug:      d.Slug,
		Author:    d.Author.Hex(),
		Category:  d.Category,
		Tags:      tags,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

func (s *Store) CreatePost(ctx context.Context, post *model.Post) error {
	author, ok := objectID(post.Author)
	if !ok {
		return apperror.ValidationFailed("author", "author is not a valid user id")
	}

	tags := post.Tags
	if tags == nil {
		tags = []string{}
	}

	ts := now()
	doc := postDoc{
		ID:        primitive.NewObjectID(),
		Title:     post.Title,
		Content:   post.Content,
		Slug:      post.Slug,
		Author:    author,
		Category:  post.Category,
		Tags:      tags,
		CreatedAt: ts,
		UpdatedAt: ts,
	}

	if _, err := s.posts.InsertOne(ctx, doc); err != nil {
		return apperror.Store("mongodb: inserting post", err)
	}

	post.ID = doc.ID.Hex()
	post.CreatedAt = ts
	post.UpdatedAt = ts
	return nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*model.Post, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, apperror.NotFound("post", id)
	}

	var doc postDoc
	if err := s.posts.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("post", id)
		}
		return nil, apperror.Store("mongodb: finding post", err)
	}

	p := doc.toModel()
	return &p, nil
}

// ListPosts returns posts sorted by createdAt descending, then _id descending.
func (s *Store) ListPosts(ctx context.Context, f repository.PostFilter) ([]model.Post, error) {
	filter := bson.M{}
	if f.Category != "" {
		filter["category"] = f.Category
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if f.Offset > 0 {
		opts.SetSkip(int64(f.Offset))
	}
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}

	cur, err := s.posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperror.Store("mongodb: listing posts", err)
	}

	var docs []postDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, apperror.Store("mongodb: decoding posts", err)
	}

	posts := make([]model.Post, 0, len(docs))
	for i := range docs {
		posts = append(posts, docs[i].toModel())
	}
	return posts, nil
}

// UpdatePost overwrites the mutable fields; author and createdAt never change.
func (s *Store) UpdatePost(ctx context.Context, post *model.Post) error {
	oid, ok := objectID(post.ID)
	if !ok {
		return apperror.NotFound("post", post.ID)
	}

	tags := post.Tags
	if tags == nil {
		tags = []string{}
	}

	ts := now()
	res, err := s.posts.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"title":     post.Title,
		"content":   post.Content,
		"slug":      post.Slug,
		"category":  post.Category,
		"tags":      tags,
		"updatedAt": ts,
	}})
	if err != nil {
		return apperror.Store("mongodb: updating post", err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("post", post.ID)
	}

	post.UpdatedAt = ts
	return nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	oid, ok := objectID(id)
	if !ok {
		return apperror.NotFound("post", id)
	}

	res, err := s.posts.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return apperror.Store("mongodb: deleting post", err)
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound("post", id)
	}
	return nil
}
