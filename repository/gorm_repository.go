package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"auralis/config"
	"auralis/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NewGormStore 基于 GORM(MySQL) 构造仓库集合
func NewGormStore(db *gorm.DB) *Store {
	return &Store{
		Driver:   config.DriverMySQL,
		Songs:    &GormSongRepository{db: db},
		Albums:   &GormAlbumRepository{db: db},
		Users:    &GormUserRepository{db: db},
		Messages: &GormMessageRepository{db: db},
		ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		close: func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}
}

func translate(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// applySongFilter 把 SongFilter 翻译为 WHERE 条件
func applySongFilter(q *gorm.DB, f SongFilter) *gorm.DB {
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if strings.TrimSpace(f.Search) != "" {
		p := likePattern(f.Search)
		q = q.Where("(title LIKE ? OR artist LIKE ?)", p, p)
	}
	if strings.TrimSpace(f.Title) != "" {
		q = q.Where("title LIKE ?", likePattern(f.Title))
	}
	if strings.TrimSpace(f.Artist) != "" {
		q = q.Where("artist LIKE ?", likePattern(f.Artist))
	}
	if f.Genre != "" && f.Genre != model.GenreAll {
		q = q.Where("genre = ?", f.Genre)
	}
	if f.AlbumID != nil {
		q = q.Where("album_id = ?", f.AlbumID.Hex())
	}
	return q
}

func applyAlbumFilter(q *gorm.DB, f AlbumFilter) *gorm.DB {
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if strings.TrimSpace(f.Search) != "" {
		p := likePattern(f.Search)
		q = q.Where("(title LIKE ? OR artist LIKE ?)", p, p)
	}
	if strings.TrimSpace(f.Artist) != "" {
		q = q.Where("artist LIKE ?", likePattern(f.Artist))
	}
	if f.Genre != "" && f.Genre != model.GenreAll {
		q = q.Where("genre = ?", f.Genre)
	}
	return q
}

func page(q *gorm.DB, skip, limit int64) *gorm.DB {
	if skip > 0 {
		q = q.Offset(int(skip))
	}
	if limit > 0 {
		q = q.Limit(int(limit))
	}
	return q
}

// GormSongRepository MySQL实现的歌曲仓库
type GormSongRepository struct {
	db *gorm.DB
}

func (r *GormSongRepository) Create(ctx context.Context, song *model.Song) error {
	if song.ID.IsZero() {
		song.ID = primitive.NewObjectID()
	}
	ts := now()
	song.CreatedAt, song.UpdatedAt = ts, ts
	return translate(r.db.WithContext(ctx).Create(songToRow(song)).Error, "insert song")
}

func (r *GormSongRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Song, error) {
	var row songRow
	if err := r.db.WithContext(ctx).Where("id = ?", id.Hex()).Take(&row).Error; err != nil {
		return nil, translate(err, "find song")
	}
	return rowToSong(&row), nil
}

func (r *GormSongRepository) Find(ctx context.Context, filter SongFilter, sort SongSort, skip, limit int64) ([]*model.Song, error) {
	q := applySongFilter(r.db.WithContext(ctx).Model(&songRow{}), filter)
	if sort == SortPopular {
		q = q.Order("play_count DESC")
	}
	q = page(q.Order("created_at DESC").Order("id DESC"), skip, limit)
	return r.scan(q)
}

func (r *GormSongRepository) scan(q *gorm.DB) ([]*model.Song, error) {
	var rows []songRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, translate(err, "find songs")
	}
	songs := make([]*model.Song, 0, len(rows))
	for i := range rows {
		songs = append(songs, rowToSong(&rows[i]))
	}
	return songs, nil
}

func (r *GormSongRepository) Count(ctx context.Context, filter SongFilter) (int64, error) {
	var n int64
	err := applySongFilter(r.db.WithContext(ctx).Model(&songRow{}), filter).Count(&n).Error
	return n, translate(err, "count songs")
}

func (r *GormSongRepository) Sample(ctx context.Context, size int) ([]*model.Song, error) {
	q := r.db.WithContext(ctx).Model(&songRow{}).
		Where("is_active = ?", true).
		Order("RAND()").
		Limit(size)
	return r.scan(q)
}

func (r *GormSongRepository) IncrementPlayCount(ctx context.Context, id primitive.ObjectID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&songRow{}).
			Where("id = ? AND is_active = ?", id.Hex(), true).
			UpdateColumn("play_count", gorm.Expr("play_count + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&songRow{}).Where("id = ?", id.Hex()).Pluck("play_count", &count).Error
	})
	if err != nil {
		return 0, translate(err, "increment play count")
	}
	return count, nil
}

func (r *GormSongRepository) GroupByArtist(ctx context.Context, filter SongFilter, skip, limit int64) ([]model.ArtistSummary, error) {
	var rows []struct {
		Name       string
		SongCount  int64
		TotalPlays int64
		ImageURL   string
	}
	q := applySongFilter(r.db.WithContext(ctx).Model(&songRow{}), filter).
		Select("artist AS name, COUNT(*) AS song_count, COALESCE(SUM(play_count), 0) AS total_plays, MIN(image_url) AS image_url").
		Group("artist").
		Order("total_plays DESC").
		Order("artist ASC")
	if err := page(q, skip, limit).Scan(&rows).Error; err != nil {
		return nil, translate(err, "group songs by artist")
	}
	artists := make([]model.ArtistSummary, 0, len(rows))
	for _, row := range rows {
		artists = append(artists, model.ArtistSummary{
			Name:       row.Name,
			SongCount:  row.SongCount,
			TotalPlays: row.TotalPlays,
			ImageURL:   row.ImageURL,
		})
	}
	return artists, nil
}

func (r *GormSongRepository) ListByAlbum(ctx context.Context, albumID primitive.ObjectID) ([]*model.Song, error) {
	return r.scan(r.db.WithContext(ctx).Model(&songRow{}).Where("album_id = ?", albumID.Hex()))
}

func (r *GormSongRepository) ListAlbumRefs(ctx context.Context) ([]SongAlbumRef, error) {
	var rows []songRow
	err := r.db.WithContext(ctx).Select("id", "album_id").
		Where("album_id IS NOT NULL AND album_id <> ''").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err, "find song album refs")
	}
	refs := make([]SongAlbumRef, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, SongAlbumRef{SongID: hexID(row.ID), AlbumID: hexID(*row.AlbumID)})
	}
	return refs, nil
}

func (r *GormSongRepository) ClearAlbum(ctx context.Context, songID primitive.ObjectID) error {
	err := r.db.WithContext(ctx).Model(&songRow{}).
		Where("id = ?", songID.Hex()).
		Updates(map[string]interface{}{"album_id": nil, "updated_at": now()}).Error
	return translate(err, "clear song album")
}

func (r *GormSongRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id.Hex()).Delete(&songRow{})
	if res.Error != nil {
		return translate(res.Error, "delete song")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormSongRepository) DeleteByAlbum(ctx context.Context, albumID primitive.ObjectID) (int64, error) {
	res := r.db.WithContext(ctx).Where("album_id = ?", albumID.Hex()).Delete(&songRow{})
	return res.RowsAffected, translate(res.Error, "delete album songs")
}

func (r *GormSongRepository) DistinctArtists(ctx context.Context) ([]string, error) {
	var artists []string
	err := r.db.WithContext(ctx).Model(&songRow{}).Distinct().Pluck("artist", &artists).Error
	return artists, translate(err, "distinct song artists")
}

func (r *GormSongRepository) DeleteAll(ctx context.Context) error {
	return translate(r.db.WithContext(ctx).Where("1 = 1").Delete(&songRow{}).Error, "delete songs")
}

// GormAlbumRepository MySQL实现的专辑仓库
type GormAlbumRepository struct {
	db *gorm.DB
}

func (r *GormAlbumRepository) Create(ctx context.Context, album *model.Album) error {
	if album.ID.IsZero() {
		album.ID = primitive.NewObjectID()
	}
	if album.Songs == nil {
		album.Songs = []primitive.ObjectID{}
	}
	ts := now()
	album.CreatedAt, album.UpdatedAt = ts, ts
	return translate(r.db.WithContext(ctx).Create(albumToRow(album)).Error, "insert album")
}

func (r *GormAlbumRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Album, error) {
	var row albumRow
	if err := r.db.WithContext(ctx).Where("id = ?", id.Hex()).Take(&row).Error; err != nil {
		return nil, translate(err, "find album")
	}
	return rowToAlbum(&row), nil
}

func (r *GormAlbumRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*model.Album, error) {
	if len(ids) == 0 {
		return []*model.Album{}, nil
	}
	return r.scan(r.db.WithContext(ctx).Model(&albumRow{}).Where("id IN ?", hexStrings(ids)))
}

func (r *GormAlbumRepository) Find(ctx context.Context, filter AlbumFilter, skip, limit int64) ([]*model.Album, error) {
	q := applyAlbumFilter(r.db.WithContext(ctx).Model(&albumRow{}), filter).
		Order("created_at DESC").
		Order("id DESC")
	return r.scan(page(q, skip, limit))
}

func (r *GormAlbumRepository) scan(q *gorm.DB) ([]*model.Album, error) {
	var rows []albumRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, translate(err, "find albums")
	}
	albums := make([]*model.Album, 0, len(rows))
	for i := range rows {
		albums = append(albums, rowToAlbum(&rows[i]))
	}
	return albums, nil
}

func (r *GormAlbumRepository) Count(ctx context.Context, filter AlbumFilter) (int64, error) {
	var n int64
	err := applyAlbumFilter(r.db.WithContext(ctx).Model(&albumRow{}), filter).Count(&n).Error
	return n, translate(err, "count albums")
}

// mutateSongs 在行锁内读改写歌曲列表
func (r *GormAlbumRepository) mutateSongs(ctx context.Context, albumID primitive.ObjectID, fn func([]string) []string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row albumRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", albumID.Hex()).
			Take(&row).Error
		if err != nil {
			return err
		}
		row.Songs = fn(row.Songs)
		if row.Songs == nil {
			row.Songs = []string{}
		}
		row.UpdatedAt = now()
		return tx.Model(&row).Select("Songs", "UpdatedAt").Updates(&row).Error
	})
	return translate(err, "update album songs")
}

func (r *GormAlbumRepository) AddSong(ctx context.Context, albumID, songID primitive.ObjectID) error {
	id := songID.Hex()
	return r.mutateSongs(ctx, albumID, func(songs []string) []string {
		for _, s := range songs {
			if s == id {
				return songs
			}
		}
		return append(songs, id)
	})
}

func (r *GormAlbumRepository) RemoveSong(ctx context.Context, albumID, songID primitive.ObjectID) error {
	id := songID.Hex()
	return r.mutateSongs(ctx, albumID, func(songs []string) []string {
		out := songs[:0]
		for _, s := range songs {
			if s != id {
				out = append(out, s)
			}
		}
		return out
	})
}

func (r *GormAlbumRepository) SetSongs(ctx context.Context, albumID primitive.ObjectID, songs []primitive.ObjectID) error {
	ids := hexStrings(songs)
	return r.mutateSongs(ctx, albumID, func([]string) []string { return ids })
}

func (r *GormAlbumRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id.Hex()).Delete(&albumRow{})
	if res.Error != nil {
		return translate(res.Error, "delete album")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormAlbumRepository) DistinctArtists(ctx context.Context) ([]string, error) {
	var artists []string
	err := r.db.WithContext(ctx).Model(&albumRow{}).Distinct().Pluck("artist", &artists).Error
	return artists, translate(err, "distinct album artists")
}

func (r *GormAlbumRepository) ListAll(ctx context.Context) ([]*model.Album, error) {
	return r.scan(r.db.WithContext(ctx).Model(&albumRow{}))
}

func (r *GormAlbumRepository) DeleteAll(ctx context.Context) error {
	return translate(r.db.WithContext(ctx).Where("1 = 1").Delete(&albumRow{}).Error, "delete albums")
}

// GormUserRepository MySQL实现的用户仓库
type GormUserRepository struct {
	db *gorm.DB
}

func (r *GormUserRepository) FindByClerkID(ctx context.Context, clerkID string) (*model.User, error) {
	var row userRow
	if err := r.db.WithContext(ctx).Where("clerk_id = ?", clerkID).Take(&row).Error; err != nil {
		return nil, translate(err, "find user")
	}
	return rowToUser(&row), nil
}

func (r *GormUserRepository) Create(ctx context.Context, user *model.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	ts := now()
	user.CreatedAt, user.UpdatedAt = ts, ts
	return translate(r.db.WithContext(ctx).Create(userToRow(user)).Error, "insert user")
}

func (r *GormUserRepository) ListExcept(ctx context.Context, clerkID string) ([]*model.User, error) {
	var rows []userRow
	err := r.db.WithContext(ctx).Where("clerk_id <> ?", clerkID).Order("created_at ASC").Find(&rows).Error
	if err != nil {
		return nil, translate(err, "find users")
	}
	users := make([]*model.User, 0, len(rows))
	for i := range rows {
		users = append(users, rowToUser(&rows[i]))
	}
	return users, nil
}

func (r *GormUserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&userRow{}).Count(&n).Error
	return n, translate(err, "count users")
}

// GormMessageRepository MySQL实现的消息仓库
type GormMessageRepository struct {
	db *gorm.DB
}

func (r *GormMessageRepository) Create(ctx context.Context, message *model.Message) error {
	if message.ID.IsZero() {
		message.ID = primitive.NewObjectID()
	}
	ts := now()
	message.CreatedAt, message.UpdatedAt = ts, ts
	return translate(r.db.WithContext(ctx).Create(messageToRow(message)).Error, "insert message")
}

func (r *GormMessageRepository) Conversation(ctx context.Context, a, b string) ([]*model.Message, error) {
	var rows []messageRow
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err, "find messages")
	}
	messages := make([]*model.Message, 0, len(rows))
	for i := range rows {
		messages = append(messages, rowToMessage(&rows[i]))
	}
	return messages, nil
}
