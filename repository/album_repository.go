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

// AlbumFilter 专辑查询条件
type AlbumFilter struct {
	ActiveOnly bool
	Search     string // 标题或艺人
	Artist     string
	Genre      string
}

// AlbumRepository 定义专辑相关的数据库操作接口
type AlbumRepository interface {
	// Create 创建专辑，封面地址重复时返回 ErrDuplicate
	Create(ctx context.Context, album *model.Album) error

	// GetByID 根据ID获取专辑信息
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.Album, error)

	// FindByIDs 批量获取专辑
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*model.Album, error)

	// Find 分页查询，按创建时间倒序
	Find(ctx context.Context, filter AlbumFilter, skip, limit int64) ([]*model.Album, error)

	// Count 统计满足条件的专辑数
	Count(ctx context.Context, filter AlbumFilter) (int64, error)

	// AddSong 把歌曲追加到专辑末尾，已存在则不重复添加
	AddSong(ctx context.Context, albumID, songID primitive.ObjectID) error

	// RemoveSong 从专辑中移除歌曲
	RemoveSong(ctx context.Context, albumID, songID primitive.ObjectID) error

	// SetSongs 整体替换歌曲列表
	SetSongs(ctx context.Context, albumID primitive.ObjectID, songs []primitive.ObjectID) error

	// Delete 删除专辑
	Delete(ctx context.Context, id primitive.ObjectID) error

	// DistinctArtists 所有专辑中出现过的艺人
	DistinctArtists(ctx context.Context) ([]string, error)

	// ListAll 列出全部专辑，包括下架的
	ListAll(ctx context.Context) ([]*model.Album, error)

	// DeleteAll 清空，仅供 seed 使用
	DeleteAll(ctx context.Context) error
}

func albumFilterDoc(f AlbumFilter) bson.M {
	doc := bson.M{}
	if f.ActiveOnly {
		doc["isActive"] = true
	}
	if p := containsPattern(f.Search); p != "" {
		rx := primitive.Regex{Pattern: p, Options: "i"}
		doc["$or"] = bson.A{bson.M{"title": rx}, bson.M{"artist": rx}}
	}
	if p := containsPattern(f.Artist); p != "" {
		doc["artist"] = primitive.Regex{Pattern: p, Options: "i"}
	}
	if f.Genre != "" && f.Genre != model.GenreAll {
		doc["genre"] = f.Genre
	}
	return doc
}

// MongoAlbumRepository Mongo实现的专辑仓库
type MongoAlbumRepository struct {
	coll *mongo.Collection
}

// NewMongoAlbumRepository 创建专辑仓库
func NewMongoAlbumRepository(db *mongo.Database) *MongoAlbumRepository {
	return &MongoAlbumRepository{coll: db.Collection("albums")}
}

func (r *MongoAlbumRepository) Create(ctx context.Context, album *model.Album) error {
	if album.ID.IsZero() {
		album.ID = primitive.NewObjectID()
	}
	if album.Songs == nil {
		album.Songs = []primitive.ObjectID{}
	}
	ts := now()
	album.CreatedAt, album.UpdatedAt = ts, ts

	if _, err := r.coll.InsertOne(ctx, album); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert album: %w", ErrDuplicate)
		}
		return fmt.Errorf("insert album: %w", err)
	}
	return nil
}

func (r *MongoAlbumRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Album, error) {
	var album model.Album
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&album)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find album %s: %w", id.Hex(), err)
	}
	return &album, nil
}

func (r *MongoAlbumRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*model.Album, error) {
	if len(ids) == 0 {
		return []*model.Album{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *MongoAlbumRepository) Find(ctx context.Context, filter AlbumFilter, skip, limit int64) ([]*model.Album, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if skip > 0 {
		opts.SetSkip(skip)
	}
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return r.find(ctx, albumFilterDoc(filter), opts)
}

func (r *MongoAlbumRepository) find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]*model.Album, error) {
	cursor, err := r.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("find albums: %w", err)
	}
	albums := make([]*model.Album, 0)
	if err := cursor.All(ctx, &albums); err != nil {
		return nil, fmt.Errorf("decode albums: %w", err)
	}
	return albums, nil
}

func (r *MongoAlbumRepository) Count(ctx context.Context, filter AlbumFilter) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, albumFilterDoc(filter))
	if err != nil {
		return 0, fmt.Errorf("count albums: %w", err)
	}
	return n, nil
}

func (r *MongoAlbumRepository) AddSong(ctx context.Context, albumID, songID primitive.ObjectID) error {
	return r.update(ctx, albumID, bson.M{
		"$addToSet": bson.M{"songs": songID},
		"$set":      bson.M{"updatedAt": now()},
	})
}

func (r *MongoAlbumRepository) RemoveSong(ctx context.Context, albumID, songID primitive.ObjectID) error {
	return r.update(ctx, albumID, bson.M{
		"$pull": bson.M{"songs": songID},
		"$set":  bson.M{"updatedAt": now()},
	})
}

func (r *MongoAlbumRepository) SetSongs(ctx context.Context, albumID primitive.ObjectID, songs []primitive.ObjectID) error {
	if songs == nil {
		songs = []primitive.ObjectID{}
	}
	return r.update(ctx, albumID, bson.M{"$set": bson.M{"songs": songs, "updatedAt": now()}})
}

func (r *MongoAlbumRepository) update(ctx context.Context, albumID primitive.ObjectID, update bson.M) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": albumID}, update)
	if err != nil {
		return fmt.Errorf("update album %s: %w", albumID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoAlbumRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete album %s: %w", id.Hex(), err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoAlbumRepository) DistinctArtists(ctx context.Context) ([]string, error) {
	values, err := r.coll.Distinct(ctx, "artist", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("distinct album artists: %w", err)
	}
	return stringValues(values), nil
}

func (r *MongoAlbumRepository) ListAll(ctx context.Context) ([]*model.Album, error) {
	return r.find(ctx, bson.M{})
}

func (r *MongoAlbumRepository) DeleteAll(ctx context.Context) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{})
	return err
}
