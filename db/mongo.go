package db

import (
	"context"
	"fmt"
	"time"

	"auralis/config"
	"auralis/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ConnectMongo 建立 MongoDB 连接并检查可用性
func ConnectMongo(ctx context.Context, cfg *config.Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.MongoURI).
		SetAppName("auralis").
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("connected to MongoDB", logger.String("database", cfg.MongoDatabase))
	return client, nil
}

// mongoIndexes 各集合声明的索引
func mongoIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		"songs": {
			{Keys: bson.D{{Key: "title", Value: "text"}, {Key: "artist", Value: "text"}}},
			{Keys: bson.D{{Key: "genre", Value: 1}}},
			{Keys: bson.D{{Key: "artist", Value: 1}}},
			{Keys: bson.D{{Key: "isActive", Value: 1}}},
			{Keys: bson.D{{Key: "playCount", Value: -1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "albumId", Value: 1}}},
			{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "genre", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "playCount", Value: -1}}},
		},
		"albums": {
			{Keys: bson.D{{Key: "title", Value: "text"}, {Key: "artist", Value: "text"}}},
			{Keys: bson.D{{Key: "imageUrl", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "artist", Value: 1}}},
			{Keys: bson.D{{Key: "genre", Value: 1}}},
			{Keys: bson.D{{Key: "isActive", Value: 1}}},
			{Keys: bson.D{{Key: "releaseYear", Value: -1}}},
			{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "artist", Value: 1}, {Key: "releaseYear", Value: -1}}},
		},
		"users": {
			{Keys: bson.D{{Key: "clerkId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
		"messages": {
			{Keys: bson.D{{Key: "senderId", Value: 1}, {Key: "receiverId", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
	}
}

// EnsureMongoIndexes 创建缺失的索引，已存在的同名索引不受影响
func EnsureMongoIndexes(ctx context.Context, database *mongo.Database) error {
	for collection, models := range mongoIndexes() {
		names, err := database.Collection(collection).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", collection, err)
		}
		logger.Info("indexes ensured",
			logger.String("collection", collection),
			logger.Strings("indexes", names))
	}
	return nil
}
