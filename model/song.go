package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultSongDuration 无法读取音频时长时使用的秒数
const DefaultSongDuration = 180

// Song 表示一首歌曲
type Song struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Title     string               `bson:"title" json:"title"`
	Artist    string               `bson:"artist" json:"artist"`
	ImageURL  string               `bson:"imageUrl" json:"imageUrl"`
	AudioURL  string               `bson:"audioUrl" json:"audioUrl"`
	Duration  int                  `bson:"duration" json:"duration"`
	Genre     Genre                `bson:"genre" json:"genre"`
	PlayCount int64                `bson:"playCount" json:"playCount"`
	LikedBy   []primitive.ObjectID `bson:"likedBy,omitempty" json:"-"` // 永不返回给客户端
	IsActive  bool                 `bson:"isActive" json:"isActive"`
	AlbumID   *primitive.ObjectID  `bson:"albumId,omitempty" json:"albumId,omitempty"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// AlbumSummary 附加在歌曲上的专辑摘要
type AlbumSummary struct {
	ID          primitive.ObjectID `json:"_id"`
	Title       string             `json:"title"`
	Artist      string             `json:"artist"`
	ImageURL    string             `json:"imageUrl"`
	ReleaseYear int                `json:"releaseYear,omitempty"`
}

// SongView 对外返回的歌曲，带专辑摘要
type SongView struct {
	*Song
	Album *AlbumSummary `json:"album,omitempty"`
}

// SongCard 首页推荐类接口返回的精简字段
type SongCard struct {
	ID        primitive.ObjectID `json:"_id"`
	Title     string             `json:"title"`
	Artist    string             `json:"artist"`
	ImageURL  string             `json:"imageUrl"`
	AudioURL  string             `json:"audioUrl"`
	Duration  int                `json:"duration"`
	Genre     Genre              `json:"genre"`
	PlayCount *int64             `json:"playCount,omitempty"`
	Album     *AlbumSummary      `json:"album,omitempty"`
}

// Card 转换为精简字段
func (s *Song) Card() SongCard {
	return SongCard{
		ID:       s.ID,
		Title:    s.Title,
		Artist:   s.Artist,
		ImageURL: s.ImageURL,
		AudioURL: s.AudioURL,
		Duration: s.Duration,
		Genre:    s.Genre,
	}
}

// ArtistSummary 按艺人聚合的搜索结果
type ArtistSummary struct {
	Name       string `bson:"_id" json:"name"`
	SongCount  int64  `bson:"songCount" json:"songCount"`
	TotalPlays int64  `bson:"totalPlays" json:"totalPlays"`
	ImageURL   string `bson:"imageUrl" json:"imageUrl"`
}
