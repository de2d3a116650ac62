package db

import (
	"context"
	"fmt"

	"auralis/config"
	"auralis/repository"
)

// OpenStore 按 DB_DRIVER 连接数据库；migrate 为 true 时同时建索引或迁移表结构
func OpenStore(ctx context.Context, cfg *config.Config, migrate bool) (*repository.Store, error) {
	switch cfg.DBDriver {
	case config.DriverMongo:
		client, err := ConnectMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		database := client.Database(cfg.MongoDatabase)
		if migrate {
			if err := EnsureMongoIndexes(ctx, database); err != nil {
				_ = client.Disconnect(context.Background())
				return nil, err
			}
		}
		return repository.NewMongoStore(client, database), nil

	case config.DriverMySQL:
		gdb, err := ConnectGormDB(cfg)
		if err != nil {
			return nil, err
		}
		store := repository.NewGormStore(gdb)
		if migrate {
			if err := AutoMigrateModels(gdb); err != nil {
				_ = store.Close(ctx)
				return nil, err
			}
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}
