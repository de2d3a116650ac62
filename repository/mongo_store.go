package repository

import (
	"context"

	"auralis/config"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// NewMongoStore 基于 Mongo 数据库构造仓库集合
func NewMongoStore(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		Driver:   config.DriverMongo,
		Songs:    NewMongoSongRepository(db),
		Albums:   NewMongoAlbumRepository(db),
		Users:    NewMongoUserRepository(db),
		Messages: NewMongoMessageRepository(db),
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		close: client.Disconnect,
	}
}
