package repository

import (
	"context"
	"fmt"

	"auralis/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository defines the interface for chat message operations.
type MessageRepository interface {
	Create(ctx context.Context, message *model.Message) error
	// Conversation 两人之间的全部消息，按创建时间升序
	Conversation(ctx context.Context, a, b string) ([]*model.Message, error)
}

// conversationFilter 匹配 a->b 与 b->a 两个方向
func conversationFilter(a, b string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"senderId": a, "receiverId": b},
		bson.M{"senderId": b, "receiverId": a},
	}}
}

// MongoMessageRepository implements MessageRepository for MongoDB.
type MongoMessageRepository struct {
	coll *mongo.Collection
}

// NewMongoMessageRepository creates a new MongoMessageRepository.
func NewMongoMessageRepository(db *mongo.Database) *MongoMessageRepository {
	return &MongoMessageRepository{coll: db.Collection("messages")}
}

func (r *MongoMessageRepository) Create(ctx context.Context, message *model.Message) error {
	if message.ID.IsZero() {
		message.ID = primitive.NewObjectID()
	}
	ts := now()
	message.CreatedAt, message.UpdatedAt = ts, ts

	if _, err := r.coll.InsertOne(ctx, message); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *MongoMessageRepository) Conversation(ctx context.Context, a, b string) ([]*model.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.coll.Find(ctx, conversationFilter(a, b), opts)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	messages := make([]*model.Message, 0)
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return messages, nil
}
