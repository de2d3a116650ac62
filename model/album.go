package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Album 表示一张专辑
type Album struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Title       string               `bson:"title" json:"title"`
	Artist      string               `bson:"artist" json:"artist"`
	ImageURL    string               `bson:"imageUrl" json:"imageUrl"`
	Description string               `bson:"description,omitempty" json:"description,omitempty"`
	ReleaseYear int                  `bson:"releaseYear,omitempty" json:"releaseYear,omitempty"`
	Genre       Genre                `bson:"genre" json:"genre"`
	IsActive    bool                 `bson:"isActive" json:"isActive"`
	Songs       []primitive.ObjectID `bson:"songs" json:"songs"` // 有序
	CreatedAt   time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// Summary 专辑摘要
func (a *Album) Summary() *AlbumSummary {
	return &AlbumSummary{
		ID:          a.ID,
		Title:       a.Title,
		Artist:      a.Artist,
		ImageURL:    a.ImageURL,
		ReleaseYear: a.ReleaseYear,
	}
}

// HasSong 专辑列表中是否包含该歌曲
func (a *Album) HasSong(id primitive.ObjectID) bool {
	for _, s := range a.Songs {
		if s == id {
			return true
		}
	}
	return false
}

// AlbumWithSongs 专辑详情，歌曲按专辑顺序展开
type AlbumWithSongs struct {
	*Album
	Songs []*Song `json:"songs"`
}
