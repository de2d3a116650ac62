package music

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"auralis/core/apperr"
	"auralis/model"
)

const (
	maxTitleLen       = 100
	maxArtistLen      = 50
	maxDescriptionLen = 500
	minReleaseYear    = 1900
)

type fieldErrors []apperr.FieldError

func (f *fieldErrors) add(field, message string, value interface{}) {
	*f = append(*f, apperr.FieldError{Field: field, Message: message, Value: value})
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return apperr.Validation(f)
}

func checkTitleArtist(errs *fieldErrors, kind, title, artist string) {
	switch {
	case title == "":
		errs.add("title", kind+" title is required", title)
	case utf8.RuneCountInString(title) > maxTitleLen:
		errs.add("title", fmt.Sprintf("Title cannot exceed %d characters", maxTitleLen), title)
	}
	switch {
	case artist == "":
		errs.add("artist", "Artist name is required", artist)
	case utf8.RuneCountInString(artist) > maxArtistLen:
		errs.add("artist", fmt.Sprintf("Artist name cannot exceed %d characters", maxArtistLen), artist)
	}
}

// CreateSongInput 管理员创建歌曲的字段
type CreateSongInput struct {
	Title   string
	Artist  string
	Genre   string
	AlbumID string
}

// Normalize 去掉首尾空白
func (in *CreateSongInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Artist = strings.TrimSpace(in.Artist)
	in.Genre = strings.TrimSpace(in.Genre)
	in.AlbumID = strings.TrimSpace(in.AlbumID)
}

// Validate 收集所有字段错误后一并返回
func (in CreateSongInput) Validate() error {
	var errs fieldErrors
	checkTitleArtist(&errs, "Song", in.Title, in.Artist)
	if in.Genre != "" && !model.IsSongGenre(model.Genre(in.Genre)) {
		errs.add("genre", "Invalid genre", in.Genre)
	}
	if in.AlbumID != "" {
		if _, ok := model.ParseID(in.AlbumID); !ok {
			errs.add("albumId", "Invalid ID format", in.AlbumID)
		}
	}
	return errs.err()
}

// CreateAlbumInput 管理员创建专辑的字段
type CreateAlbumInput struct {
	Title       string
	Artist      string
	Description string
	ReleaseYear string // 表单原值，留空表示未提供
	Genre       string
}

func (in *CreateAlbumInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Artist = strings.TrimSpace(in.Artist)
	in.Description = strings.TrimSpace(in.Description)
	in.ReleaseYear = strings.TrimSpace(in.ReleaseYear)
	in.Genre = strings.TrimSpace(in.Genre)
}

// Validate 校验专辑字段，返回解析后的发行年份（未提供时为 0）
func (in CreateAlbumInput) Validate(now time.Time) (int, error) {
	var errs fieldErrors
	checkTitleArtist(&errs, "Album", in.Title, in.Artist)
	if utf8.RuneCountInString(in.Description) > maxDescriptionLen {
		errs.add("description", fmt.Sprintf("Description cannot exceed %d characters", maxDescriptionLen), in.Description)
	}

	year := 0
	if in.ReleaseYear != "" {
		y, ok := parseYear(in.ReleaseYear)
		if !ok || y < minReleaseYear || y > now.Year() {
			errs.add("releaseYear", fmt.Sprintf("Release year must be between %d and %d", minReleaseYear, now.Year()), in.ReleaseYear)
		} else {
			year = y
		}
	}
	if in.Genre != "" && !model.IsAlbumGenre(model.Genre(in.Genre)) {
		errs.add("genre", "Invalid genre", in.Genre)
	}
	return year, errs.err()
}

func parseYear(s string) (int, bool) {
	y, err := strconv.Atoi(s)
	return y, err == nil
}
