package music

import (
	"context"
	"fmt"

	"auralis/logger"
	"auralis/model"
	"auralis/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const sampleAudioURL = "https://www.soundjay.com/misc/sounds/bell-ringing-05.wav"

var sampleAlbums = []model.Album{
	{
		Title:       "Grandi Successi Italiani",
		Artist:      "Vari Artisti",
		ImageURL:    "https://images.unsplash.com/photo-1493225457124-a3eb161ffa5f?w=400&h=400&fit=crop",
		Description: "Una collezione dei più grandi successi della musica italiana",
		ReleaseYear: 2020,
		Genre:       model.GenrePop,
	},
	{
		Title:       "Musica Classica Italiana",
		Artist:      "Andrea Bocelli",
		ImageURL:    "https://images.unsplash.com/photo-1516280440614-37939bbacd81?w=400&h=400&fit=crop",
		Description: "Le più belle melodie della musica classica italiana",
		ReleaseYear: 2019,
		Genre:       model.GenreClassical,
	},
}

var sampleSongs = []model.Song{
	{Title: "Bella Ciao", Artist: "Modena City Ramblers", ImageURL: "https://images.unsplash.com/photo-1493225457124-a3eb161ffa5f?w=300&h=300&fit=crop", Duration: 180, Genre: model.GenreFolk, PlayCount: 1250},
	{Title: "Azzurro", Artist: "Adriano Celentano", ImageURL: "https://images.unsplash.com/photo-1470225620780-dba8ba36b745?w=300&h=300&fit=crop", Duration: 210, Genre: model.GenrePop, PlayCount: 2100},
	{Title: "Nel blu dipinto di blu", Artist: "Domenico Modugno", ImageURL: "https://images.unsplash.com/photo-1445985543470-41fba5c3144a?w=300&h=300&fit=crop", Duration: 195, Genre: model.GenrePop, PlayCount: 3200},
	{Title: "Con te partirò", Artist: "Andrea Bocelli", ImageURL: "https://images.unsplash.com/photo-1516280440614-37939bbacd81?w=300&h=300&fit=crop", Duration: 240, Genre: model.GenreClassical, PlayCount: 1800},
	{Title: "Laura non c'è", Artist: "Nek", ImageURL: "https://images.unsplash.com/photo-1571330735066-03aaa9429d89?w=300&h=300&fit=crop", Duration: 225, Genre: model.GenrePop, PlayCount: 950},
	{Title: "Caruso", Artist: "Lucio Dalla", ImageURL: "https://images.unsplash.com/photo-1493225457124-a3eb161ffa5f?w=300&h=300&fit=crop", Duration: 275, Genre: model.GenrePop, PlayCount: 2800},
}

// 前三首归第一张专辑，其余归第二张
const firstAlbumSize = 3

// SeedReport 写入的示例数据数量
type SeedReport struct {
	Skipped bool `json:"skipped"`
	Albums  int  `json:"albums"`
	Songs   int  `json:"songs"`
}

// Seed 写入示例专辑和歌曲；库中已有歌曲且未指定 force 时跳过
func Seed(ctx context.Context, store *repository.Store, force bool) (*SeedReport, error) {
	existing, err := store.Songs.Count(ctx, repository.SongFilter{})
	if err != nil {
		return nil, fmt.Errorf("count songs: %w", err)
	}
	if existing > 0 && !force {
		logger.Warn("Database already has songs, skipping seed", logger.Int64("songs", existing))
		return &SeedReport{Skipped: true}, nil
	}

	if err := store.Songs.DeleteAll(ctx); err != nil {
		return nil, fmt.Errorf("clear songs: %w", err)
	}
	if err := store.Albums.DeleteAll(ctx); err != nil {
		return nil, fmt.Errorf("clear albums: %w", err)
	}

	albums := make([]*model.Album, len(sampleAlbums))
	for i := range sampleAlbums {
		album := sampleAlbums[i]
		album.ID = primitive.NewObjectID()
		album.IsActive = true
		album.Songs = []primitive.ObjectID{}
		albums[i] = &album
	}

	songs := make([]*model.Song, len(sampleSongs))
	for i := range sampleSongs {
		song := sampleSongs[i]
		song.ID = primitive.NewObjectID()
		song.AudioURL = sampleAudioURL
		song.IsActive = true

		owner := albums[0]
		if i >= firstAlbumSize {
			owner = albums[1]
		}
		albumID := owner.ID
		song.AlbumID = &albumID
		owner.Songs = append(owner.Songs, song.ID)
		songs[i] = &song
	}

	for _, album := range albums {
		if err := store.Albums.Create(ctx, album); err != nil {
			return nil, fmt.Errorf("insert album %q: %w", album.Title, err)
		}
	}
	for _, song := range songs {
		if err := store.Songs.Create(ctx, song); err != nil {
			return nil, fmt.Errorf("insert song %q: %w", song.Title, err)
		}
	}

	logger.Info("Seed finished", logger.Int("albums", len(albums)), logger.Int("songs", len(songs)))
	return &SeedReport{Albums: len(albums), Songs: len(songs)}, nil
}
