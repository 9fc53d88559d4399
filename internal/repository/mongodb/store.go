// Package mongodb implements the repository interfaces on MongoDB.
//
// Collections:
//
//	users  { _id, username, email, password, createdAt, updatedAt }
//	posts  { _id, title, content, slug, author, category, tags, createdAt, updatedAt }
//
// Unique indexes on users.username and users.email are created at startup
// and are the only thing that enforces uniqueness: a concurrent duplicate
// insert fails with E11000 and becomes apperror.Duplicate.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/sakif/inkpost/internal/repository"
)

const (
	usersCollection = "users"
	postsCollection = "posts"

	connectTimeout    = 10 * time.Second
	disconnectTimeout = 5 * time.Second
)

var _ repository.Store = (*Store)(nil)

// Store is a repository.Store backed by one MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	users  *mongo.Collection
	posts  *mongo.Collection
}

// Open connects to uri, verifies the connection and makes sure the indexes exist.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb: connecting: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb: pinging: %w", err)
	}

	s := newStore(client.Database(database))
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return s, nil
}

// newStore wraps an already connected database.
func newStore(db *mongo.Database) *Store {
	return &Store{
		client: db.Client(),
		db:     db,
		users:  db.Collection(usersCollection),
		posts:  db.Collection(postsCollection),
	}
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("mongodb: creating user indexes: %w", err)
	}

	_, err = s.posts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "author", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("mongodb: creating post indexes: %w", err)
	}
	return nil
}

// Ping checks that the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongodb: ping: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// objectID parses a hex id. A malformed id cannot match any document, so
// callers report it as not found.
func objectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	return oid, err == nil
}

// duplicateField names the field whose unique index rejected a write.
// The server message names the index before echoing the key value, e.g.
//
//	E11000 ... index: email_1 dup key: { email: "a@b.c" }
//
// so only the token after "index: " is trusted; the value may contain anything.
func duplicateField(err error) string {
	msg := err.Error()
	var we mongo.WriteException
	if errors.As(err, &we) && len(we.WriteErrors) > 0 {
		msg = we.WriteErrors[0].Message
	}

	if _, rest, ok := strings.Cut(msg, "index: "); ok {
		name, _, _ := strings.Cut(rest, " ")
		switch name {
		case "email_1":
			return "email"
		case "username_1":
			return "username"
		}
	}
	return "username or email"
}

// now is truncated to MongoDB's millisecond date precision so the values
// handed back to callers equal what a later read returns.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
