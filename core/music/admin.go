package music

import (
	"context"
	"errors"
	"math"
	"time"

	"auralis/config"
	"auralis/core/apperr"
	"auralis/logger"
	"auralis/model"
	"auralis/repository"
	"auralis/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MediaStore 外部对象存储
type MediaStore interface {
	Upload(ctx context.Context, kind storage.MediaKind, localPath, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// DurationProber 读取音频时长（秒）
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// UploadFile 已暂存到本地的上传文件
type UploadFile struct {
	Path        string
	Filename    string
	ContentType string
}

// AdminService 管理员的增删操作
type AdminService struct {
	songs  repository.SongRepository
	albums repository.AlbumRepository
	media  MediaStore
	prober DurationProber

	uploadTimeout   time.Duration
	cleanupOnDelete bool
	now             func() time.Time
}

// NewAdminService 创建管理服务
func NewAdminService(store *repository.Store, media MediaStore, prober DurationProber, cfg *config.Config) *AdminService {
	return &AdminService{
		songs:           store.Songs,
		albums:          store.Albums,
		media:           media,
		prober:          prober,
		uploadTimeout:   cfg.UploadTimeout,
		cleanupOnDelete: cfg.MediaCleanupOnDelete,
		now:             time.Now,
	}
}

func (s *AdminService) upload(ctx context.Context, kind storage.MediaKind, f *UploadFile) (string, error) {
	if s.uploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.uploadTimeout)
		defer cancel()
	}
	return s.media.Upload(ctx, kind, f.Path, f.ContentType)
}

// discard 删除已上传但未落库的媒体，请求上下文可能已取消
func (s *AdminService) discard(urls ...string) {
	timeout := s.uploadTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for _, url := range urls {
		if url == "" {
			continue
		}
		if err := s.media.Delete(ctx, url); err != nil {
			logger.Warn("Failed to delete media", logger.String("url", url), logger.ErrorField(err))
		}
	}
}

// probeDuration 读取失败时使用默认时长
func (s *AdminService) probeDuration(ctx context.Context, path string) int {
	if s.prober == nil {
		return model.DefaultSongDuration
	}
	d, err := s.prober.Duration(ctx, path)
	if err != nil || d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		logger.Warn("Could not extract audio duration, using default",
			logger.String("path", path),
			logger.Int("default", model.DefaultSongDuration),
			logger.Any("error", err))
		return model.DefaultSongDuration
	}
	secs := int(math.Round(d))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// CreateSong 上传音频和封面后创建歌曲；任何一步失败都不会留下半成品
func (s *AdminService) CreateSong(ctx context.Context, in CreateSongInput, audio, image *UploadFile) (*model.Song, error) {
	if audio == nil || image == nil {
		return nil, apperr.New(apperr.MissingFile, "Please upload all files")
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var albumID *primitive.ObjectID
	if in.AlbumID != "" {
		id, _ := model.ParseID(in.AlbumID)
		if _, err := s.albums.GetByID(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperr.New(apperr.NotFound, "Album not found")
			}
			return nil, err
		}
		albumID = &id
	}

	audioURL, err := s.upload(ctx, storage.MediaAudio, audio)
	if err != nil {
		logger.Error("Audio upload failed", logger.String("file", audio.Filename), logger.ErrorField(err))
		return nil, apperr.Wrap(apperr.UploadFailed, "Failed to upload audio file", err)
	}
	imageURL, err := s.upload(ctx, storage.MediaImage, image)
	if err != nil {
		logger.Error("Image upload failed", logger.String("file", image.Filename), logger.ErrorField(err))
		s.discard(audioURL)
		return nil, apperr.Wrap(apperr.UploadFailed, "Failed to upload image file", err)
	}

	genre := model.Genre(in.Genre)
	if genre == "" {
		genre = model.GenreOther
	}
	song := &model.Song{
		ID:       primitive.NewObjectID(),
		Title:    in.Title,
		Artist:   in.Artist,
		ImageURL: imageURL,
		AudioURL: audioURL,
		Duration: s.probeDuration(ctx, audio.Path),
		Genre:    genre,
		IsActive: true,
		AlbumID:  albumID,
	}

	// 先写专辑引用再插入歌曲，插入失败时撤销引用
	if albumID != nil {
		if err := s.albums.AddSong(ctx, *albumID, song.ID); err != nil {
			s.discard(audioURL, imageURL)
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperr.New(apperr.NotFound, "Album not found")
			}
			return nil, err
		}
	}
	if err := s.songs.Create(ctx, song); err != nil {
		if albumID != nil {
			if rerr := s.albums.RemoveSong(context.WithoutCancel(ctx), *albumID, song.ID); rerr != nil {
				logger.Error("Failed to revert album link",
					logger.String("albumId", albumID.Hex()),
					logger.String("songId", song.ID.Hex()),
					logger.ErrorField(rerr))
			}
		}
		s.discard(audioURL, imageURL)
		return nil, err
	}

	logger.Info("Song created",
		logger.String("songId", song.ID.Hex()),
		logger.String("title", song.Title),
		logger.Int("duration", song.Duration))
	return song, nil
}

// DeleteSong 先从专辑移除引用再删除歌曲，删除失败时恢复引用
func (s *AdminService) DeleteSong(ctx context.Context, rawID string) error {
	id, ok := model.ParseID(rawID)
	if !ok {
		return apperr.Invalid("Invalid song ID format")
	}
	song, err := s.songs.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.New(apperr.NotFound, "Song not found")
	}
	if err != nil {
		return err
	}

	unlinked := false
	if song.AlbumID != nil {
		err := s.albums.RemoveSong(ctx, *song.AlbumID, song.ID)
		switch {
		case err == nil:
			unlinked = true
		case errors.Is(err, repository.ErrNotFound):
			// 专辑已不存在，只删歌曲
		default:
			return err
		}
	}

	if err := s.songs.Delete(ctx, song.ID); err != nil {
		if unlinked {
			if rerr := s.albums.AddSong(context.WithoutCancel(ctx), *song.AlbumID, song.ID); rerr != nil {
				logger.Error("Failed to restore album link",
					logger.String("albumId", song.AlbumID.Hex()),
					logger.String("songId", song.ID.Hex()),
					logger.ErrorField(rerr))
			}
		}
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.New(apperr.NotFound, "Song not found")
		}
		return err
	}

	if s.cleanupOnDelete {
		s.discard(song.AudioURL, song.ImageURL)
	}
	logger.Info("Song deleted", logger.String("songId", song.ID.Hex()))
	return nil
}

// CreateAlbum 上传封面后创建空专辑
func (s *AdminService) CreateAlbum(ctx context.Context, in CreateAlbumInput, image *UploadFile) (*model.Album, error) {
	if image == nil {
		return nil, apperr.New(apperr.MissingFile, "Please upload an album cover image")
	}
	in.Normalize()
	year, err := in.Validate(s.now())
	if err != nil {
		return nil, err
	}

	imageURL, err := s.upload(ctx, storage.MediaImage, image)
	if err != nil {
		logger.Error("Album cover upload failed", logger.String("file", image.Filename), logger.ErrorField(err))
		return nil, apperr.Wrap(apperr.UploadFailed, "Failed to upload image file", err)
	}

	genre := model.Genre(in.Genre)
	if genre == "" {
		genre = model.GenreOther
	}
	album := &model.Album{
		ID:          primitive.NewObjectID(),
		Title:       in.Title,
		Artist:      in.Artist,
		ImageURL:    imageURL,
		Description: in.Description,
		ReleaseYear: year,
		Genre:       genre,
		IsActive:    true,
		Songs:       []primitive.ObjectID{},
	}
	if err := s.albums.Create(ctx, album); err != nil {
		s.discard(imageURL)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Invalid("Album image already exists")
		}
		return nil, err
	}

	logger.Info("Album created", logger.String("albumId", album.ID.Hex()), logger.String("title", album.Title))
	return album, nil
}

// DeleteAlbum 级联删除专辑下的所有歌曲，返回删除的歌曲数
func (s *AdminService) DeleteAlbum(ctx context.Context, rawID string) (int64, error) {
	id, ok := model.ParseID(rawID)
	if !ok {
		return 0, apperr.Invalid("Invalid album ID format")
	}
	album, err := s.albums.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, apperr.New(apperr.NotFound, "Album not found")
	}
	if err != nil {
		return 0, err
	}

	var media []string
	if s.cleanupOnDelete {
		songs, err := s.songs.ListByAlbum(ctx, id)
		if err != nil {
			return 0, err
		}
		for _, song := range songs {
			media = append(media, song.AudioURL, song.ImageURL)
		}
		media = append(media, album.ImageURL)
	}

	deleted, err := s.songs.DeleteByAlbum(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := s.albums.Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return deleted, err
	}

	if len(media) > 0 {
		s.discard(media...)
	}
	logger.Info("Album deleted", logger.String("albumId", id.Hex()), logger.Int64("songs", deleted))
	return deleted, nil
}
