package repository

import (
	"context"
	"errors"
	"fmt"

	"auralis/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	FindByClerkID(ctx context.Context, clerkID string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	ListExcept(ctx context.Context, clerkID string) ([]*model.User, error)
	Count(ctx context.Context) (int64, error)
}

// MongoUserRepository implements UserRepository for MongoDB.
type MongoUserRepository struct {
	coll *mongo.Collection
}

// NewMongoUserRepository creates a new MongoUserRepository.
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{coll: db.Collection("users")}
}

// FindByClerkID retrieves a user by their external auth id.
func (r *MongoUserRepository) FindByClerkID(ctx context.Context, clerkID string) (*model.User, error) {
	var user model.User
	err := r.coll.FindOne(ctx, bson.M{"clerkId": clerkID}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", clerkID, err)
	}
	return &user, nil
}

// Create adds a new user; a second insert for the same clerk id returns ErrDuplicate.
func (r *MongoUserRepository) Create(ctx context.Context, user *model.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	ts := now()
	user.CreatedAt, user.UpdatedAt = ts, ts

	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert user: %w", ErrDuplicate)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// ListExcept returns every user except the given one.
func (r *MongoUserRepository) ListExcept(ctx context.Context, clerkID string) ([]*model.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{"clerkId": bson.M{"$ne": clerkID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	users := make([]*model.User, 0)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

func (r *MongoUserRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
