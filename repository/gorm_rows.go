package repository

import (
	"time"

	"auralis/model"
)

// MySQL 后端的表结构，主键沿用 24 位十六进制 id，便于两个后端的数据互相迁移

type songRow struct {
	ID        string    `gorm:"primaryKey;size:24"`
	Title     string    `gorm:"size:100;not null"`
	Artist    string    `gorm:"size:50;not null;index"`
	ImageURL  string    `gorm:"size:512;not null"`
	AudioURL  string    `gorm:"size:512;not null"`
	Duration  int       `gorm:"not null"`
	Genre     string    `gorm:"size:20;not null;index"`
	PlayCount int64     `gorm:"not null;index"`
	LikedBy   []string  `gorm:"serializer:json;type:text"`
	IsActive  bool      `gorm:"not null;index"`
	AlbumID   *string   `gorm:"size:24;index"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (songRow) TableName() string { return "songs" }

type albumRow struct {
	ID          string    `gorm:"primaryKey;size:24"`
	Title       string    `gorm:"size:100;not null"`
	Artist      string    `gorm:"size:50;not null;index"`
	ImageURL    string    `gorm:"size:512;not null;uniqueIndex"`
	Description string    `gorm:"size:500"`
	ReleaseYear int       `gorm:"index"`
	Genre       string    `gorm:"size:20;not null;index"`
	IsActive    bool      `gorm:"not null;index"`
	Songs       []string  `gorm:"serializer:json;type:text"`
	CreatedAt   time.Time `gorm:"index"`
	UpdatedAt   time.Time
}

func (albumRow) TableName() string { return "albums" }

type userRow struct {
	ID        string    `gorm:"primaryKey;size:24"`
	ClerkID   string    `gorm:"size:64;not null;uniqueIndex"`
	FullName  string    `gorm:"size:255"`
	ImageURL  string    `gorm:"size:512"`
	Email     *string   `gorm:"size:255;uniqueIndex"` // NULL 不参与唯一约束
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (userRow) TableName() string { return "users" }

type messageRow struct {
	ID         string    `gorm:"primaryKey;size:24"`
	SenderID   string    `gorm:"size:64;not null;index:idx_messages_pair"`
	ReceiverID string    `gorm:"size:64;not null;index:idx_messages_pair"`
	Content    string    `gorm:"type:text;not null"`
	CreatedAt  time.Time `gorm:"index"`
	UpdatedAt  time.Time
}

func (messageRow) TableName() string { return "messages" }

// Models 需要 AutoMigrate 的表
func Models() []interface{} {
	return []interface{}{&songRow{}, &albumRow{}, &userRow{}, &messageRow{}}
}

func songToRow(s *model.Song) *songRow {
	row := &songRow{
		ID:        s.ID.Hex(),
		Title:     s.Title,
		Artist:    s.Artist,
		ImageURL:  s.ImageURL,
		AudioURL:  s.AudioURL,
		Duration:  s.Duration,
		Genre:     string(s.Genre),
		PlayCount: s.PlayCount,
		LikedBy:   hexStrings(s.LikedBy),
		IsActive:  s.IsActive,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if s.AlbumID != nil {
		id := s.AlbumID.Hex()
		row.AlbumID = &id
	}
	return row
}

// rowToSong 读路径不带点赞用户
func rowToSong(r *songRow) *model.Song {
	s := &model.Song{
		ID:        hexID(r.ID),
		Title:     r.Title,
		Artist:    r.Artist,
		ImageURL:  r.ImageURL,
		AudioURL:  r.AudioURL,
		Duration:  r.Duration,
		Genre:     model.Genre(r.Genre),
		PlayCount: r.PlayCount,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.AlbumID != nil && *r.AlbumID != "" {
		id := hexID(*r.AlbumID)
		s.AlbumID = &id
	}
	return s
}

func albumToRow(a *model.Album) *albumRow {
	return &albumRow{
		ID:          a.ID.Hex(),
		Title:       a.Title,
		Artist:      a.Artist,
		ImageURL:    a.ImageURL,
		Description: a.Description,
		ReleaseYear: a.ReleaseYear,
		Genre:       string(a.Genre),
		IsActive:    a.IsActive,
		Songs:       hexStrings(a.Songs),
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func rowToAlbum(r *albumRow) *model.Album {
	return &model.Album{
		ID:          hexID(r.ID),
		Title:       r.Title,
		Artist:      r.Artist,
		ImageURL:    r.ImageURL,
		Description: r.Description,
		ReleaseYear: r.ReleaseYear,
		Genre:       model.Genre(r.Genre),
		IsActive:    r.IsActive,
		Songs:       hexIDs(r.Songs),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func userToRow(u *model.User) *userRow {
	row := &userRow{
		ID:        u.ID.Hex(),
		ClerkID:   u.ClerkID,
		FullName:  u.FullName,
		ImageURL:  u.ImageURL,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.Email != "" {
		email := u.Email
		row.Email = &email
	}
	return row
}

func rowToUser(r *userRow) *model.User {
	u := &model.User{
		ID:        hexID(r.ID),
		ClerkID:   r.ClerkID,
		FullName:  r.FullName,
		ImageURL:  r.ImageURL,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Email != nil {
		u.Email = *r.Email
	}
	return u
}

func messageToRow(m *model.Message) *messageRow {
	return &messageRow{
		ID:         m.ID.Hex(),
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func rowToMessage(r *messageRow) *model.Message {
	return &model.Message{
		ID:         hexID(r.ID),
		SenderID:   r.SenderID,
		ReceiverID: r.ReceiverID,
		Content:    r.Content,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}
