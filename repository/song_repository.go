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

// SongSort 歌曲排序方式
type SongSort int

const (
	// SortNewest 按创建时间倒序
	SortNewest SongSort = iota
	// SortPopular 按播放次数倒序，再按创建时间倒序
	SortPopular
)

// SongFilter 歌曲查询条件，字符串字段为大小写不敏感的子串匹配
type SongFilter struct {
	ActiveOnly bool
	Search     string // 标题或艺人
	Title      string
	Artist     string
	Genre      string // 精确匹配，"all" 表示不过滤
	AlbumID    *primitive.ObjectID
}

// SongAlbumRef 歌曲与其所属专辑
type SongAlbumRef struct {
	SongID  primitive.ObjectID
	AlbumID primitive.ObjectID
}

// SongRepository 定义歌曲相关的数据库操作接口
type SongRepository interface {
	// Create 插入歌曲，ID 为空时自动生成
	Create(ctx context.Context, song *model.Song) error

	// GetByID 根据ID获取歌曲，不区分是否上架
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.Song, error)

	// Find 分页查询
	Find(ctx context.Context, filter SongFilter, sort SongSort, skip, limit int64) ([]*model.Song, error)

	// Count 统计满足条件的歌曲数
	Count(ctx context.Context, filter SongFilter) (int64, error)

	// Sample 随机抽取上架歌曲
	Sample(ctx context.Context, size int) ([]*model.Song, error)

	// IncrementPlayCount 原子加一并返回新的播放次数，仅对上架歌曲生效
	IncrementPlayCount(ctx context.Context, id primitive.ObjectID) (int64, error)

	// GroupByArtist 按艺人聚合，按总播放次数倒序
	GroupByArtist(ctx context.Context, filter SongFilter, skip, limit int64) ([]model.ArtistSummary, error)

	// ListByAlbum 列出引用该专辑的所有歌曲
	ListByAlbum(ctx context.Context, albumID primitive.ObjectID) ([]*model.Song, error)

	// ListAlbumRefs 列出所有带专辑引用的歌曲
	ListAlbumRefs(ctx context.Context) ([]SongAlbumRef, error)

	// ClearAlbum 清除歌曲的专辑引用
	ClearAlbum(ctx context.Context, songID primitive.ObjectID) error

	// Delete 删除歌曲
	Delete(ctx context.Context, id primitive.ObjectID) error

	// DeleteByAlbum 删除专辑下的所有歌曲
	DeleteByAlbum(ctx context.Context, albumID primitive.ObjectID) (int64, error)

	// DistinctArtists 所有歌曲中出现过的艺人
	DistinctArtists(ctx context.Context) ([]string, error)

	// DeleteAll 清空，仅供 seed 使用
	DeleteAll(ctx context.Context) error
}

// songFilterDoc 构造 Mongo 查询条件
func songFilterDoc(f SongFilter) bson.M {
	doc := bson.M{}
	if f.ActiveOnly {
		doc["isActive"] = true
	}
	if p := containsPattern(f.Search); p != "" {
		rx := primitive.Regex{Pattern: p, Options: "i"}
		doc["$or"] = bson.A{bson.M{"title": rx}, bson.M{"artist": rx}}
	}
	if p := containsPattern(f.Title); p != "" {
		doc["title"] = primitive.Regex{Pattern: p, Options: "i"}
	}
	if p := containsPattern(f.Artist); p != "" {
		doc["artist"] = primitive.Regex{Pattern: p, Options: "i"}
	}
	if f.Genre != "" && f.Genre != model.GenreAll {
		doc["genre"] = f.Genre
	}
	if f.AlbumID != nil {
		doc["albumId"] = *f.AlbumID
	}
	return doc
}

func songSortDoc(sort SongSort) bson.D {
	if sort == SortPopular {
		return bson.D{{Key: "playCount", Value: -1}, {Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
	}
	return bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
}

// artistGroupPipeline 按艺人聚合的管道
func artistGroupPipeline(f SongFilter, skip, limit int64) mongo.Pipeline {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: songFilterDoc(f)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$artist"},
			{Key: "songCount", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "totalPlays", Value: bson.D{{Key: "$sum", Value: "$playCount"}}},
			{Key: "imageUrl", Value: bson.D{{Key: "$first", Value: "$imageUrl"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "totalPlays", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	if skip > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$skip", Value: skip}})
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}
	return pipeline
}

// hideLikedBy 读路径上不取点赞用户
var hideLikedBy = bson.M{"likedBy": 0}

// MongoSongRepository Mongo实现的歌曲仓库
type MongoSongRepository struct {
	coll *mongo.Collection
}

// NewMongoSongRepository 创建歌曲仓库
func NewMongoSongRepository(db *mongo.Database) *MongoSongRepository {
	return &MongoSongRepository{coll: db.Collection("songs")}
}

func (r *MongoSongRepository) Create(ctx context.Context, song *model.Song) error {
	if song.ID.IsZero() {
		song.ID = primitive.NewObjectID()
	}
	ts := now()
	song.CreatedAt, song.UpdatedAt = ts, ts
	if song.LikedBy == nil {
		song.LikedBy = []primitive.ObjectID{}
	}

	if _, err := r.coll.InsertOne(ctx, song); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert song: %w", ErrDuplicate)
		}
		return fmt.Errorf("insert song: %w", err)
	}
	return nil
}

func (r *MongoSongRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Song, error) {
	var song model.Song
	err := r.coll.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(hideLikedBy)).Decode(&song)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find song %s: %w", id.Hex(), err)
	}
	return &song, nil
}

func (r *MongoSongRepository) Find(ctx context.Context, filter SongFilter, sort SongSort, skip, limit int64) ([]*model.Song, error) {
	opts := options.Find().SetSort(songSortDoc(sort)).SetProjection(hideLikedBy)
	if skip > 0 {
		opts.SetSkip(skip)
	}
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return r.find(ctx, songFilterDoc(filter), opts)
}

func (r *MongoSongRepository) find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]*model.Song, error) {
	cursor, err := r.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("find songs: %w", err)
	}
	songs := make([]*model.Song, 0)
	if err := cursor.All(ctx, &songs); err != nil {
		return nil, fmt.Errorf("decode songs: %w", err)
	}
	return songs, nil
}

func (r *MongoSongRepository) Count(ctx context.Context, filter SongFilter) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, songFilterDoc(filter))
	if err != nil {
		return 0, fmt.Errorf("count songs: %w", err)
	}
	return n, nil
}

func (r *MongoSongRepository) Sample(ctx context.Context, size int) ([]*model.Song, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"isActive": true}}},
		{{Key: "$sample", Value: bson.M{"size": size}}},
		{{Key: "$project", Value: hideLikedBy}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("sample songs: %w", err)
	}
	songs := make([]*model.Song, 0, size)
	if err := cursor.All(ctx, &songs); err != nil {
		return nil, fmt.Errorf("decode sampled songs: %w", err)
	}
	return songs, nil
}

func (r *MongoSongRepository) IncrementPlayCount(ctx context.Context, id primitive.ObjectID) (int64, error) {
	var song struct {
		PlayCount int64 `bson:"playCount"`
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"playCount": 1})
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "isActive": true},
		bson.M{"$inc": bson.M{"playCount": 1}},
		opts,
	).Decode(&song)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment play count %s: %w", id.Hex(), err)
	}
	return song.PlayCount, nil
}

func (r *MongoSongRepository) GroupByArtist(ctx context.Context, filter SongFilter, skip, limit int64) ([]model.ArtistSummary, error) {
	cursor, err := r.coll.Aggregate(ctx, artistGroupPipeline(filter, skip, limit))
	if err != nil {
		return nil, fmt.Errorf("group songs by artist: %w", err)
	}
	artists := make([]model.ArtistSummary, 0)
	if err := cursor.All(ctx, &artists); err != nil {
		return nil, fmt.Errorf("decode artist groups: %w", err)
	}
	return artists, nil
}

func (r *MongoSongRepository) ListByAlbum(ctx context.Context, albumID primitive.ObjectID) ([]*model.Song, error) {
	return r.find(ctx, bson.M{"albumId": albumID}, options.Find().SetProjection(hideLikedBy))
}

func (r *MongoSongRepository) ListAlbumRefs(ctx context.Context) ([]SongAlbumRef, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1, "albumId": 1})
	cursor, err := r.coll.Find(ctx, bson.M{"albumId": bson.M{"$exists": true, "$ne": nil}}, opts)
	if err != nil {
		return nil, fmt.Errorf("find song album refs: %w", err)
	}
	var docs []struct {
		ID      primitive.ObjectID `bson:"_id"`
		AlbumID primitive.ObjectID `bson:"albumId"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode song album refs: %w", err)
	}
	refs := make([]SongAlbumRef, 0, len(docs))
	for _, d := range docs {
		refs = append(refs, SongAlbumRef{SongID: d.ID, AlbumID: d.AlbumID})
	}
	return refs, nil
}

func (r *MongoSongRepository) ClearAlbum(ctx context.Context, songID primitive.ObjectID) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": songID},
		bson.M{"$unset": bson.M{"albumId": ""}, "$set": bson.M{"updatedAt": now()}},
	)
	if err != nil {
		return fmt.Errorf("clear album of song %s: %w", songID.Hex(), err)
	}
	return nil
}

func (r *MongoSongRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete song %s: %w", id.Hex(), err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoSongRepository) DeleteByAlbum(ctx context.Context, albumID primitive.ObjectID) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"albumId": albumID})
	if err != nil {
		return 0, fmt.Errorf("delete songs of album %s: %w", albumID.Hex(), err)
	}
	return res.DeletedCount, nil
}

func (r *MongoSongRepository) DistinctArtists(ctx context.Context) ([]string, error) {
	values, err := r.coll.Distinct(ctx, "artist", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("distinct song artists: %w", err)
	}
	return stringValues(values), nil
}

func (r *MongoSongRepository) DeleteAll(ctx context.Context) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{})
	return err
}

func stringValues(values []interface{}) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
